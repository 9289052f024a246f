package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cvcoach/internal/ai"
	"cvcoach/internal/ai/aitest"
	apperrors "cvcoach/internal/errors"
)

type memoryRecorder struct {
	mu      sync.Mutex
	records []CallRecord
	err     error
}

func (m *memoryRecorder) RecordCall(_ context.Context, rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func assertTotalMatchesBuckets(t *testing.T, c *Counters) {
	t.Helper()
	snap := c.Snapshot()
	sum := 0
	for _, n := range snap.ByContext {
		sum += n
	}
	if sum != snap.Total {
		t.Errorf("Total %d does not match sum of buckets %d", snap.Total, sum)
	}
}

func TestCallIncrementsBeforeDelegating(t *testing.T) {
	counters := NewCounters()
	var seenTotal int
	fake := &aitest.Completer{Respond: func(aitest.Call) (string, error) {
		seenTotal = counters.Total()
		return "ok", nil
	}}
	caller := NewCaller(fake, counters)

	if _, err := caller.Call(context.Background(), TagDiagnosis, []ai.Message{ai.User("oi")}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if seenTotal != 1 {
		t.Errorf("Expected counter incremented before the call, saw %d", seenTotal)
	}
	if counters.Count(TagDiagnosis) != 1 {
		t.Errorf("Expected diagnosis bucket 1, got %d", counters.Count(TagDiagnosis))
	}
}

func TestCallCountsFailures(t *testing.T) {
	counters := NewCounters()
	caller := NewCaller(aitest.Failing(errors.New("down")), counters)

	if _, err := caller.Call(context.Background(), TagRewrite, nil); err == nil {
		t.Fatal("Expected error from failing client")
	}
	if counters.Count(TagRewrite) != 1 {
		t.Errorf("Failed calls still count, got %d", counters.Count(TagRewrite))
	}
}

func TestUnknownTagBecomesOther(t *testing.T) {
	counters := NewCounters()
	caller := NewCaller(aitest.New("a"), counters)

	if _, err := caller.Call(context.Background(), Tag("made_up"), nil); err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if counters.Count(TagOther) != 1 {
		t.Errorf("Expected unknown tag counted as other, got %d", counters.Count(TagOther))
	}
	assertTotalMatchesBuckets(t, counters)
}

func TestTotalEqualsSumOfBuckets(t *testing.T) {
	counters := NewCounters()
	fake := &aitest.Completer{Default: "ok"}
	caller := NewCaller(fake, counters)

	sequence := []Tag{TagDiagnosis, TagFocusedCollection, TagFocusedCollection, TagRewrite, TagLinkedIn, TagValidation, TagOther, "x"}
	for _, tag := range sequence {
		_, _ = caller.Call(context.Background(), tag, nil)
		assertTotalMatchesBuckets(t, counters)
	}
	if counters.Total() != len(sequence) {
		t.Errorf("Expected total %d, got %d", len(sequence), counters.Total())
	}

	snap := counters.Snapshot()
	if len(snap.ByContext) != len(Tags()) {
		t.Errorf("Snapshot should list every tag, got %v", snap.ByContext)
	}
	// focused_collection and other tie at 2; ties break by name
	if got := snap.SortedContexts(); len(got) == 0 || got[0] != string(TagFocusedCollection) {
		t.Errorf("Unexpected ordering %v", got)
	}

	counters.Reset()
	if counters.Total() != 0 {
		t.Errorf("Expected zero after reset, got %d", counters.Total())
	}
}

func TestCallerRecordsCalls(t *testing.T) {
	recorder := &memoryRecorder{}
	counters := NewCounters()
	caller := NewCaller(aitest.New("resposta"), counters, WithRecorder(recorder, "sess-1"))

	if _, err := caller.Call(context.Background(), TagLinkedIn, []ai.Message{ai.User("abc")}); err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if len(recorder.records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.SessionID != "sess-1" || rec.Tag != TagLinkedIn || !rec.Success {
		t.Errorf("Unexpected record %+v", rec)
	}
	if rec.PromptChars != 3 || rec.ResponseChars != 8 {
		t.Errorf("Unexpected sizes prompt=%d response=%d", rec.PromptChars, rec.ResponseChars)
	}
}

func TestCallerRecorderFailureDoesNotFailCall(t *testing.T) {
	recorder := &memoryRecorder{err: errors.New("disk full")}
	caller := NewCaller(aitest.New("ok"), NewCounters(), WithRecorder(recorder, "s"), WithLogger(apperrors.Discard()))

	if _, err := caller.Call(context.Background(), TagOther, nil); err != nil {
		t.Fatalf("Recorder failure must not fail the call: %v", err)
	}
}

func TestWithClientSharesCounters(t *testing.T) {
	counters := NewCounters()
	chat := NewCaller(aitest.New("a"), counters)
	scoring := chat.WithClient(aitest.New("b"))

	_, _ = chat.Call(context.Background(), TagRewrite, nil)
	got, _ := scoring.Call(context.Background(), TagDiagnosis, nil)

	if got != "b" {
		t.Errorf("Expected scoring client reply, got %q", got)
	}
	if counters.Total() != 2 {
		t.Errorf("Expected shared total 2, got %d", counters.Total())
	}
}

func TestRecordersFanOut(t *testing.T) {
	failing := &memoryRecorder{err: errors.New("disk full")}
	ok := &memoryRecorder{}
	rs := Recorders{failing, nil, ok}

	err := rs.RecordCall(context.Background(), CallRecord{SessionID: "s", Tag: TagRewrite})
	if err == nil {
		t.Error("Expected the first recorder error to surface")
	}
	if len(failing.records) != 1 || len(ok.records) != 1 {
		t.Errorf("Expected every recorder to receive the record, got %d and %d", len(failing.records), len(ok.records))
	}
}
