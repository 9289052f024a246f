package ai

import (
	"context"
	"fmt"

	"cvcoach/internal/config"
	"cvcoach/internal/errors"
)

// ModelChecker is implemented by providers that can probe model availability
type ModelChecker interface {
	CheckModel(ctx context.Context) *ModelInfo
}

// NewProvider builds the provider named in cfg
func NewProvider(cfg *config.OperationAIConfig, logger *errors.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// NewClientFromConfig creates a Client for one operation (chat or scoring)
// from its resolved configuration
func NewClientFromConfig(cfg config.OperationAIConfig, operation string, logger *errors.Logger) (*Client, error) {
	if logger == nil {
		logger = errors.Discard()
	}

	opts := ClientOptions{Logger: logger}
	if cfg.Timeout != nil {
		opts.Timeout = *cfg.Timeout
	}
	if cfg.MaxRetries != nil {
		opts.MaxRetries = *cfg.MaxRetries
	} else {
		opts.MaxRetries = DefaultMaxRetries
	}
	if cfg.Temperature != nil {
		opts.Temperature = *cfg.Temperature
	}

	logger.Debug("Initializing AI client",
		"provider", cfg.Provider,
		"operation", operation,
		"model", cfg.Model,
		"temperature", opts.Temperature,
		"timeout", opts.Timeout,
		"max_retries", opts.MaxRetries)

	provider, err := NewProvider(&cfg, logger)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	opts.Breaker = NewCircuitBreaker(operation, cfg.CircuitBreaker, logger)
	return NewClient(provider, opts), nil
}

// CheckModel returns availability info when the provider supports probing
func (c *Client) CheckModel(ctx context.Context) *ModelInfo {
	if checker, ok := c.provider.(ModelChecker); ok {
		return checker.CheckModel(ctx)
	}
	return &ModelInfo{Provider: c.provider.Name(), Name: c.provider.Model(), Available: true}
}
