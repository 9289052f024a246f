package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cvcoach/internal/config"
	apperrors "cvcoach/internal/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const modelCheckTimeout = 10 * time.Second

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client *genai.Client
	model  string
	logger *apperrors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider for an operation config
func NewGeminiProvider(cfg *config.OperationAIConfig, logger *apperrors.Logger) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, apperrors.NewAIError(apperrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

func (g *GeminiProvider) Name() string  { return config.ProviderGemini }
func (g *GeminiProvider) Model() string { return g.model }
func (g *GeminiProvider) Close() error  { return nil }

// Generate performs a single GenerateContent call
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	system, contents := toGeminiContents(req.Messages)

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.Seed != nil {
		genConfig.Seed = genai.Ptr(*req.Seed)
	}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, genConfig)
	if err != nil {
		return nil, err
	}

	usage := extractTokenUsage(result)
	if usage != nil {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(
				attribute.Int64("ai.tokens.input", usage.InputTokens),
				attribute.Int64("ai.tokens.output", usage.OutputTokens),
				attribute.Int64("ai.tokens.total", usage.TotalTokens),
			)
		}
	}

	return &Response{Text: result.Text(), Usage: usage}, nil
}

// CheckModel verifies the configured model is reachable
func (g *GeminiProvider) CheckModel(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Provider: g.Name(), Name: g.model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	model, err := g.client.Models.Get(checkCtx, g.model, &genai.GetModelConfig{})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.model,
			"provider", g.Name(),
			"error", err.Error())
		return info
	}

	info.Available = true
	g.logger.Debug("Model availability check successful",
		"model", g.model,
		"display_name", model.DisplayName,
		"version", model.Version)
	return info
}

// toGeminiContents folds system messages into one instruction and maps the
// remaining turns onto user/model contents.
func toGeminiContents(messages []Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
