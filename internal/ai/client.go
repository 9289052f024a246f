package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	apperrors "cvcoach/internal/errors"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// Reproducible settings used by diagnosis and scoring calls
const (
	DeterministicTemperature float32 = 0.3
	DeterministicSeed        int32   = 42

	DefaultTemperature float32 = 0.7
	DefaultTimeout             = 30 * time.Second
	DefaultMaxRetries          = 3

	maxBackoff = 30 * time.Second
)

// CallOptions are the per-call generation settings
type CallOptions struct {
	Temperature float32
	Seed        *int32
	Timeout     time.Duration
	MaxRetries  int
}

// CallOption mutates CallOptions
type CallOption func(*CallOptions)

func WithTemperature(t float32) CallOption {
	return func(o *CallOptions) { o.Temperature = t }
}

func WithSeed(seed int32) CallOption {
	return func(o *CallOptions) { o.Seed = &seed }
}

func WithTimeout(d time.Duration) CallOption {
	return func(o *CallOptions) { o.Timeout = d }
}

func WithMaxRetries(n int) CallOption {
	return func(o *CallOptions) { o.MaxRetries = n }
}

// Deterministic pins temperature 0.3 and seed 42
func Deterministic() CallOption {
	return func(o *CallOptions) {
		o.Temperature = DeterministicTemperature
		seed := DeterministicSeed
		o.Seed = &seed
	}
}

// ClientOptions configure a Client
type ClientOptions struct {
	Timeout     time.Duration
	MaxRetries  int
	Temperature float32
	Breaker     *CircuitBreaker
	Clock       Clock
	Logger      *apperrors.Logger
}

// Client wraps a Provider with timeouts, retries with exponential back-off,
// rate-limit detection, a circuit breaker and response clean-up.
type Client struct {
	provider Provider
	breaker  *CircuitBreaker
	clock    Clock
	logger   *apperrors.Logger
	defaults CallOptions
}

var _ Completer = (*Client)(nil)

// NewClient creates a Client around provider
func NewClient(provider Provider, opts ClientOptions) *Client {
	defaults := CallOptions{
		Temperature: opts.Temperature,
		Timeout:     opts.Timeout,
		MaxRetries:  opts.MaxRetries,
	}
	if defaults.Timeout <= 0 {
		defaults.Timeout = DefaultTimeout
	}
	if defaults.MaxRetries < 0 {
		defaults.MaxRetries = 0
	}
	if defaults.Temperature <= 0 {
		defaults.Temperature = DefaultTemperature
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = apperrors.Discard()
	}
	return &Client{
		provider: provider,
		breaker:  opts.Breaker,
		clock:    clock,
		logger:   logger,
		defaults: defaults,
	}
}

// Provider returns the wrapped provider
func (c *Client) Provider() Provider { return c.provider }

// Breaker returns the circuit breaker, nil when disabled
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Complete sends messages to the model and returns the cleaned reply
func (c *Client) Complete(ctx context.Context, messages []Message, opts ...CallOption) (string, error) {
	o := c.defaults
	for _, opt := range opts {
		opt(&o)
	}

	tracer := otel.Tracer("cvcoach.ai")
	ctx, span := tracer.Start(ctx, "ai.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", c.provider.Name()),
		attribute.String("ai.model", c.provider.Model()),
		attribute.Float64("ai.temperature", float64(o.Temperature)),
		attribute.Int("ai.messages", len(messages)),
		attribute.Int("ai.max_retries", o.MaxRetries),
	)
	if o.Seed != nil {
		span.SetAttributes(attribute.Int("ai.seed", int(*o.Seed)))
	}

	req := Request{Messages: messages, Temperature: o.Temperature, Seed: o.Seed}
	text, err := c.breaker.Execute(func() (string, error) {
		return c.completeWithRetry(ctx, req, o)
	})
	if err != nil {
		err = c.wrapBreakerError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("success", false))
		return "", err
	}

	span.SetAttributes(attribute.Bool("success", true))
	return CleanResponse(text), nil
}

// completeWithRetry runs one logical call: up to MaxRetries+1 attempts,
// each bounded by Timeout, sleeping 2^attempt seconds between attempts.
func (c *Client) completeWithRetry(ctx context.Context, req Request, o CallOptions) (string, error) {
	var lastErr error
	lastClass := classRetryable

	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			c.logger.Warn("Retrying AI call",
				"provider", c.provider.Name(),
				"attempt", attempt,
				"max_retries", o.MaxRetries,
				"backoff", delay.String(),
				"error", lastErr.Error())
			if err := c.clock.Sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.Timeout)
		resp, err := c.provider.Generate(attemptCtx, req)
		attemptTimedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil {
			if resp == nil || strings.TrimSpace(resp.Text) == "" {
				lastErr = apperrors.NewAIError(apperrors.ErrCodeAIEmptyResponse, "O modelo retornou uma resposta vazia", nil)
				lastClass = classRetryable
				continue
			}
			if attempt > 0 {
				c.logger.Info("AI call succeeded after retry", "provider", c.provider.Name(), "attempts", attempt+1)
			}
			return resp.Text, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		lastClass = classifyError(err, attemptTimedOut)
		switch lastClass {
		case classRateLimit:
			c.logger.Warn("AI provider rate limited the request", "provider", c.provider.Name(), "error", err.Error())
			return "", apperrors.NewRateLimitError(apperrors.ErrCodeAIRateLimited,
				"Limite de requisições ao serviço de IA atingido. Aguarde alguns instantes e tente novamente.", err)
		case classFatal:
			c.logger.Debug("AI error is not retryable", "provider", c.provider.Name(), "error", err.Error())
			return "", apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed, "Falha ao consultar o serviço de IA", err)
		}
	}

	c.logger.LogError(lastErr, "AI call failed after all retry attempts",
		"provider", c.provider.Name(),
		"total_attempts", o.MaxRetries+1)

	if lastClass == classTimeout {
		return "", apperrors.NewTimeoutError(apperrors.ErrCodeAITimeout,
			"O serviço de IA demorou demais para responder. Tente novamente.", lastErr).
			WithContext("attempts", o.MaxRetries+1)
	}
	return "", apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
		fmt.Sprintf("Falha ao consultar o serviço de IA após %d tentativas", o.MaxRetries+1), lastErr)
}

func (c *Client) wrapBreakerError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if IsBreakerOpen(err) {
		return apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Serviço de IA temporariamente indisponível. Tente novamente em instantes.", err).
			WithContext("circuit_breaker", c.breaker.Name())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(apperrors.ErrCodeAITimeout, "A requisição foi cancelada", err)
	}
	return apperrors.NewInternalError(apperrors.ErrCodeInternal, "Erro inesperado ao consultar o serviço de IA", err)
}

// backoffDelay is 2^attempt seconds, capped
func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	return min(delay, maxBackoff)
}

type errorClass int

const (
	classRetryable errorClass = iota
	classTimeout
	classRateLimit
	classFatal
)

// classifyError sorts provider errors into back-off, timeout, rate-limit
// or give-up buckets
func classifyError(err error, attemptTimedOut bool) errorClass {
	if err == nil {
		return classRetryable
	}

	if status := statusCode(err); status != 0 {
		switch status {
		case http.StatusTooManyRequests:
			return classRateLimit
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return classFatal
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return classTimeout
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") {
		return classRateLimit
	}

	if attemptTimedOut || errors.Is(err, context.DeadlineExceeded) {
		return classTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTimeout
	}

	return classRetryable
}

// statusCode extracts an HTTP status from the SDK error types we know
func statusCode(err error) int {
	var googleErr *googleapi.Error
	if errors.As(err, &googleErr) {
		return googleErr.Code
	}
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	return 0
}
