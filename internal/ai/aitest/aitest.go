// Package aitest provides scripted LLM doubles for tests.
package aitest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cvcoach/internal/ai"
)

// Call records one Complete invocation
type Call struct {
	Messages []ai.Message
	Options  ai.CallOptions
}

// Prompt returns the concatenated message contents of the call
func (c Call) Prompt() string {
	parts := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}

// Completer is a scripted ai.Completer. Replies are consumed in order; when
// Respond is set it takes precedence.
type Completer struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call

	// Respond computes a reply from the call when set
	Respond func(call Call) (string, error)
	// Default is returned once the script is exhausted
	Default string
}

// Reply is one scripted answer
type Reply struct {
	Text string
	Err  error
}

var _ ai.Completer = (*Completer)(nil)

// New creates a Completer answering texts in order
func New(texts ...string) *Completer {
	c := &Completer{}
	for _, t := range texts {
		c.replies = append(c.replies, Reply{Text: t})
	}
	return c
}

// Failing creates a Completer that always returns err
func Failing(err error) *Completer {
	return &Completer{Respond: func(Call) (string, error) { return "", err }}
}

// Push appends scripted replies
func (c *Completer) Push(replies ...Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

func (c *Completer) Complete(ctx context.Context, messages []ai.Message, opts ...ai.CallOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	options := ai.CallOptions{Temperature: ai.DefaultTemperature}
	for _, opt := range opts {
		opt(&options)
	}
	call := Call{Messages: append([]ai.Message(nil), messages...), Options: options}

	c.mu.Lock()
	c.calls = append(c.calls, call)
	respond := c.Respond
	var next *Reply
	if respond == nil && len(c.replies) > 0 {
		r := c.replies[0]
		c.replies = c.replies[1:]
		next = &r
	}
	def := c.Default
	c.mu.Unlock()

	if respond != nil {
		return respond(call)
	}
	if next != nil {
		return next.Text, next.Err
	}
	if def != "" {
		return def, nil
	}
	return "", errors.New("aitest: no scripted reply left")
}

// Calls returns a copy of the recorded calls
func (c *Completer) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallCount returns the number of Complete invocations
func (c *Completer) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// LastCall returns the most recent call
func (c *Completer) LastCall() (Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		return Call{}, false
	}
	return c.calls[len(c.calls)-1], true
}

// Provider is a scripted ai.Provider for exercising ai.Client
type Provider struct {
	mu       sync.Mutex
	Replies  []Reply
	Requests []ai.Request
	// Block makes Generate wait for ctx cancellation
	Block bool
}

var _ ai.Provider = (*Provider)(nil)

func (p *Provider) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	block := p.Block
	var r Reply
	if len(p.Replies) > 0 {
		r = p.Replies[0]
		p.Replies = p.Replies[1:]
	}
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &ai.Response{Text: r.Text}, nil
}

func (p *Provider) Name() string  { return "fake" }
func (p *Provider) Model() string { return "fake-model" }
func (p *Provider) Close() error  { return nil }

// Attempts returns how many Generate calls were made
func (p *Provider) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// Clock records back-off sleeps without waiting
type Clock struct {
	mu     sync.Mutex
	Sleeps []time.Duration
}

var _ ai.Clock = (*Clock)(nil)

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.Sleeps = append(c.Sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}
