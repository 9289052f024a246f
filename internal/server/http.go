package server

import (
	"context"
	"time"

	"cvcoach/internal/ai"
	"cvcoach/internal/config"
	cvcoachErrors "cvcoach/internal/errors"
	"cvcoach/internal/observability"
	"cvcoach/internal/phase"
	"cvcoach/internal/session"
	"cvcoach/internal/storage"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// CVRequest carries a pasted CV
type CVRequest struct {
	Text string `json:"text"`
}

// ChatRequest carries one candidate message
type ChatRequest struct {
	Message string `json:"message"`
}

// NavigateRequest names the phase to enter
type NavigateRequest struct {
	Phase string `json:"phase"`
}

// ScoreRequest is a one-shot ATS evaluation outside a session
type ScoreRequest struct {
	CV             string `json:"cv"`
	TargetRole     string `json:"targetRole"`
	Objective      string `json:"objective"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// SalaryRequest checks an expectation against the market band of a role
type SalaryRequest struct {
	Expectation string `json:"expectation"`
	Role        string `json:"role"`
	Location    string `json:"location"`
	Remote      bool   `json:"remote"`
}

// ErrorResponse represents an error response. Session is set when the
// failing port still produced a snapshot.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
	Session *session.View `json:"session,omitempty"`
}

// ModelHealth is implemented by *ai.Client
type ModelHealth interface {
	CheckModel(ctx context.Context) *ai.ModelInfo
	Breaker() *ai.CircuitBreaker
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	Router *phase.Router
	Audit  *storage.Store
	Models map[string]ModelHealth

	Observability *observability.ObservabilityManager
	Metrics       *observability.Metrics
	tracer        oteltrace.Tracer

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger    *cvcoachErrors.Logger
	startedAt time.Time
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// Deps are the collaborators the handlers call. Router is required.
type Deps struct {
	Router        *phase.Router
	Audit         *storage.Store
	Models        map[string]ModelHealth
	Observability *observability.ObservabilityManager
}

// ConfigFrom maps the server section of the application config
func ConfigFrom(appCfg *config.Config, version string) ServerConfig {
	return ServerConfig{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		APIKeys:        appCfg.Server.APIKeys,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.App.MaxFileSize,
		RateLimit:      &appCfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Deps, logger *cvcoachErrors.Logger) *Server {
	if logger == nil {
		logger = cvcoachErrors.Discard()
	}

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	om := deps.Observability
	if om == nil {
		// a disabled manager never fails
		om, _ = observability.NewObservabilityManager(observability.ObservabilityConfig{}, appCfg)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		Router:         deps.Router,
		Audit:          deps.Audit,
		Models:         deps.Models,
		Observability:  om,
		Metrics:        om.GetMetrics(),
		tracer:         om.Tracer("cvcoach.api"),
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
		startedAt:      time.Now(),
	}
}
