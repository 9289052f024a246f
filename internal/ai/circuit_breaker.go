package ai

import (
	"context"
	"errors"
	"fmt"

	"cvcoach/internal/config"
	apperrors "cvcoach/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards completion calls for one operation
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[string]
}

// NewCircuitBreaker creates a breaker for an operation. It returns nil when
// the breaker is disabled; a nil breaker passes calls straight through.
func NewCircuitBreaker(operation string, cfg *config.CircuitBreakerConfig, logger *apperrors.Logger) *CircuitBreaker {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = apperrors.Discard()
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("AI-%s", operation),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", operation,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
		// Throttling, bad input and caller cancellation say nothing about
		// provider health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) {
				return true
			}
			switch apperrors.TypeOf(err) {
			case apperrors.ErrorTypeRateLimit, apperrors.ErrorTypeValidation:
				return true
			}
			return false
		},
	}

	return &CircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Execute runs fn under breaker protection
func (cb *CircuitBreaker) Execute(fn func() (string, error)) (string, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// Name returns the breaker name, empty when disabled
func (cb *CircuitBreaker) Name() string {
	if cb == nil || cb.cb == nil {
		return ""
	}
	return cb.cb.Name()
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (cb *CircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}

// IsBreakerOpen reports whether err was produced by an open or saturated breaker
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
