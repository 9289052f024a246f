package telemetry

import (
	"context"
	"time"
	"unicode/utf8"

	"cvcoach/internal/ai"
	"cvcoach/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CallRecord is one audited LLM call
type CallRecord struct {
	SessionID     string
	Tag           Tag
	StartedAt     time.Time
	Duration      time.Duration
	Success       bool
	ErrorType     string
	PromptChars   int
	ResponseChars int
}

// Recorder persists call records
type Recorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

// Recorders fans one record out to several recorders. Every recorder is
// called; the first error is returned.
type Recorders []Recorder

func (rs Recorders) RecordCall(ctx context.Context, rec CallRecord) error {
	var first error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordCall(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Caller wraps an ai.Completer and bumps the session counters before every call
type Caller struct {
	client    ai.Completer
	counters  *Counters
	recorder  Recorder
	sessionID string
	logger    *errors.Logger
	calls     metric.Int64Counter
}

// CallerOption configures a Caller
type CallerOption func(*Caller)

// WithRecorder audits every call under sessionID
func WithRecorder(r Recorder, sessionID string) CallerOption {
	return func(c *Caller) {
		c.recorder = r
		c.sessionID = sessionID
	}
}

// WithLogger sets the logger used for recorder failures
func WithLogger(l *errors.Logger) CallerOption {
	return func(c *Caller) { c.logger = l }
}

// NewCaller creates a Caller. counters must be the session's counters.
func NewCaller(client ai.Completer, counters *Counters, opts ...CallerOption) *Caller {
	c := &Caller{
		client:   client,
		counters: counters,
		logger:   errors.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	calls, err := otel.Meter("cvcoach.telemetry").Int64Counter(
		"cvcoach.llm.calls",
		metric.WithDescription("LLM calls by context tag"),
		metric.WithUnit("{call}"),
	)
	if err == nil {
		c.calls = calls
	}
	return c
}

// Counters returns the counters this caller increments
func (c *Caller) Counters() *Counters { return c.counters }

// WithClient returns a Caller sharing counters and recorder but calling client
func (c *Caller) WithClient(client ai.Completer) *Caller {
	clone := *c
	clone.client = client
	return &clone
}

// Call increments the counters for tag and then delegates to the client
func (c *Caller) Call(ctx context.Context, tag Tag, messages []ai.Message, opts ...ai.CallOption) (string, error) {
	tag = NormalizeTag(tag)
	c.counters.Increment(tag)
	if c.calls != nil {
		c.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("context", string(tag))))
	}

	start := time.Now()
	text, err := c.client.Complete(ctx, messages, opts...)

	if c.recorder != nil {
		rec := CallRecord{
			SessionID:     c.sessionID,
			Tag:           tag,
			StartedAt:     start,
			Duration:      time.Since(start),
			Success:       err == nil,
			PromptChars:   promptChars(messages),
			ResponseChars: utf8.RuneCountInString(text),
		}
		if err != nil {
			rec.ErrorType = string(errors.TypeOf(err))
		}
		if recErr := c.recorder.RecordCall(ctx, rec); recErr != nil {
			c.logger.Warn("Failed to record LLM call", "session_id", c.sessionID, "context", string(tag), "error", recErr.Error())
		}
	}

	return text, err
}

func promptChars(messages []ai.Message) int {
	n := 0
	for _, m := range messages {
		n += utf8.RuneCountInString(m.Content)
	}
	return n
}
