package ai

import (
	"context"
	"fmt"

	"cvcoach/internal/config"
	apperrors "cvcoach/internal/errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIProvider implements Provider for the OpenAI chat completions API and
// any compatible endpoint reachable through baseURL.
type OpenAIProvider struct {
	client openai.Client
	model  string
	logger *apperrors.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI provider for an operation config
func NewOpenAIProvider(cfg *config.OperationAIConfig, logger *apperrors.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeMissingAPIKey,
			"OpenAI API key is required", nil)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Client owns retries
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (o *OpenAIProvider) Name() string  { return config.ProviderOpenAI }
func (o *OpenAIProvider) Model() string { return o.model }
func (o *OpenAIProvider) Close() error  { return nil }

// Generate performs a single chat completion
func (o *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    toOpenAIMessages(req.Messages),
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.Seed != nil {
		params.Seed = openai.Int(int64(*req.Seed))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}

	usage := &TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	return &Response{Text: resp.Choices[0].Message.Content, Usage: usage}, nil
}

// CheckModel verifies the configured model is reachable
func (o *OpenAIProvider) CheckModel(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Provider: o.Name(), Name: o.model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	if _, err := o.client.Models.Get(checkCtx, o.model); err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		o.logger.Warn("Model availability check failed",
			"model", o.model,
			"provider", o.Name(),
			"error", err.Error())
		return info
	}
	info.Available = true
	return info
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
