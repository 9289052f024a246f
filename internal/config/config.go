package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// API Key Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (CVCOACH_AI_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Prompts       PromptsConfig       `mapstructure:"prompts"`
	Session       SessionConfig       `mapstructure:"session"`
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	BaseURL        string               `mapstructure:"baseURL"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	MaxRetries     int                  `mapstructure:"maxRetries"`
	Temperature    float32              `mapstructure:"temperature"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// Operation-specific configurations
	Chat    OperationAIConfig `mapstructure:"chat"`
	Scoring OperationAIConfig `mapstructure:"scoring"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for specific operations
type OperationAIConfig struct {
	Provider       string                `mapstructure:"provider"`
	Model          string                `mapstructure:"model"`
	BaseURL        string                `mapstructure:"baseURL"`
	Timeout        *time.Duration        `mapstructure:"timeout"`
	APIKey         string                `mapstructure:"apiKey"`
	MaxRetries     *int                  `mapstructure:"maxRetries"`
	Temperature    *float32              `mapstructure:"temperature"`
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptsConfig controls the override directory for built-in prompts
type PromptsConfig struct {
	Dir           string        `mapstructure:"dir"`
	Watch         bool          `mapstructure:"watch"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// SessionConfig holds conversation tuning knobs
type SessionConfig struct {
	MinCollectionAnswers int           `mapstructure:"minCollectionAnswers"`
	DeepDiveMaxQuestions int           `mapstructure:"deepDiveMaxQuestions"`
	MaxSEOKeywords       int           `mapstructure:"maxSEOKeywords"`
	IdleTTL              time.Duration `mapstructure:"idleTTL"`
	CleanupInterval      time.Duration `mapstructure:"cleanupInterval"`
	DefaultObjective     string        `mapstructure:"defaultObjective"`
	ScoreCacheSize       int           `mapstructure:"scoreCacheSize"`
	MaxCVCharacters      int           `mapstructure:"maxCVCharacters"`
	MaxChatMessageLength int           `mapstructure:"maxChatMessageLength"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// StorageConfig controls the sqlite audit log of LLM calls
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServiceName     string            `mapstructure:"serviceName"`
	ServiceVersion  string            `mapstructure:"serviceVersion"`
	ServiceInstance string            `mapstructure:"serviceInstance"`
	ConsoleOutput   bool              `mapstructure:"consoleOutput"`
	SampleRate      float64           `mapstructure:"sampleRate"`
	Tracing         TracingConfig     `mapstructure:"tracing"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Console         ConsoleConfig     `mapstructure:"console"`
	Prometheus      PrometheusConfig  `mapstructure:"prometheus"`
	OTLP            OTLPConfig        `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load("")
}

// LoadConfigFile loads configuration from an explicit file path; an empty
// path behaves like LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	return load(path)
}

func load(explicitFile string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CVCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/cvcoach/")
		v.AddConfigPath("$HOME/.cvcoach")
		v.AddConfigPath(".")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || explicitFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid. The AI API key is checked
// separately by ValidateAI so offline commands can run without one.
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("AI maxRetries cannot be negative")
	}

	switch c.AI.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported AI provider: %s (must be %q or %q)", c.AI.Provider, ProviderGemini, ProviderOpenAI)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Session.MinCollectionAnswers < 1 {
		return fmt.Errorf("session.minCollectionAnswers must be at least 1")
	}
	if c.Session.DeepDiveMaxQuestions < c.Session.MinCollectionAnswers {
		return fmt.Errorf("session.deepDiveMaxQuestions must be >= session.minCollectionAnswers")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage is enabled")
	}

	return nil
}

// ValidateAI checks the settings every LLM-backed command needs.
func (c *Config) ValidateAI() error {
	if c.AI.APIKey == "" && c.AI.Chat.APIKey == "" {
		return fmt.Errorf("AI API key is required (set CVCOACH_AI_APIKEY environment variable)")
	}
	return nil
}
