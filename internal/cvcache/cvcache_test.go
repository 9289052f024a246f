package cvcache

import (
	"context"
	"strings"
	"testing"

	"cvcoach/internal/ai"
	"cvcoach/internal/ai/aitest"
	"cvcoach/internal/errors"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
)

func newSession(cv string) *session.Session {
	s := session.New("test")
	s.SetCV(cv)
	return s
}

func TestEnsureSummaryCachesResult(t *testing.T) {
	sess := newSession(strings.Repeat("a", 12000))
	fake := aitest.New("**Perfil:** vendedor")
	caller := telemetry.NewCaller(fake, sess.Telemetry)
	cache := New(nil, nil)

	for i := 0; i < 3; i++ {
		got, err := cache.EnsureSummary(context.Background(), sess, caller)
		if err != nil {
			t.Fatalf("EnsureSummary: %v", err)
		}
		if got != "**Perfil:** vendedor" {
			t.Errorf("Unexpected summary %q", got)
		}
	}

	if fake.CallCount() != 1 {
		t.Errorf("Expected one LLM call, got %d", fake.CallCount())
	}
	if sess.Telemetry.Count(telemetry.TagOther) != 1 {
		t.Error("Expected the summary call in the 'other' bucket")
	}

	call, _ := fake.LastCall()
	if call.Options.Temperature != ai.DeterministicTemperature || call.Options.Seed == nil || *call.Options.Seed != ai.DeterministicSeed {
		t.Errorf("Expected deterministic options, got %+v", call.Options)
	}
	if n := strings.Count(call.Messages[1].Content, "a"); n != SummaryInputLimit {
		t.Errorf("Prompt carried %d 'a' characters, expected the CV cut to %d", n, SummaryInputLimit)
	}
}

func TestEnsureSummaryFailureLeavesSession(t *testing.T) {
	sess := newSession("Gerente de Vendas")
	caller := telemetry.NewCaller(aitest.Failing(errors.NewTimeoutError(errors.ErrCodeAITimeout, "timeout", nil)), sess.Telemetry)

	if _, err := New(nil, nil).EnsureSummary(context.Background(), sess, caller); err == nil {
		t.Fatal("Expected error")
	}
	if sess.CVSummary != "" {
		t.Error("Summary must stay empty after a failure")
	}
	if !strings.HasPrefix(ContextForPrompt(sess), "CURRÍCULO:\nGerente de Vendas") {
		t.Errorf("Expected truncated CV fallback, got %q", ContextForPrompt(sess))
	}
}

func TestEnsureSummaryWithoutCV(t *testing.T) {
	sess := session.New("empty")
	caller := telemetry.NewCaller(aitest.New("x"), sess.Telemetry)
	_, err := New(nil, nil).EnsureSummary(context.Background(), sess, caller)
	if !errors.IsType(err, errors.ErrorTypePrecondition) {
		t.Errorf("Expected precondition error, got %v", err)
	}
	if sess.Telemetry.Total() != 0 {
		t.Error("No call should be made without a CV")
	}
}

func TestContextForPrompt(t *testing.T) {
	if got := ContextForPrompt(session.New("x")); got != "" {
		t.Errorf("Expected empty context without CV, got %q", got)
	}

	long := newSession(strings.Repeat("é", 5000))
	got := ContextForPrompt(long)
	if !strings.HasSuffix(got, TruncationMarker) {
		t.Error("Expected truncation marker on long CV")
	}
	if n := strings.Count(got, "é"); n != FallbackLimit {
		t.Errorf("Expected %d runes of CV, got %d", FallbackLimit, n)
	}

	short := newSession("CV curto")
	if strings.Contains(ContextForPrompt(short), TruncationMarker) {
		t.Error("Short CV must not carry the truncation marker")
	}

	short.CVSummary = "resumo"
	if got := ContextForPrompt(short); !strings.Contains(got, "resumo") || strings.Contains(got, "CV curto") {
		t.Errorf("Expected the summary to win, got %q", got)
	}

	Invalidate(short)
	if short.CVSummary != "" {
		t.Error("Invalidate must clear the summary")
	}
}
