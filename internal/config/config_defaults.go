package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.baseURL", "")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.7)

	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Operation overrides stay empty so they inherit the globals
	v.SetDefault("ai.chat.provider", "")
	v.SetDefault("ai.chat.model", "")
	v.SetDefault("ai.scoring.provider", "")
	v.SetDefault("ai.scoring.model", "")

	// Prompt overrides
	v.SetDefault("prompts.dir", "")
	v.SetDefault("prompts.watch", false)
	v.SetDefault("prompts.debounceDelay", 500*time.Millisecond)

	// Conversation
	v.SetDefault("session.minCollectionAnswers", 4)
	v.SetDefault("session.deepDiveMaxQuestions", 10)
	v.SetDefault("session.maxSEOKeywords", 5)
	v.SetDefault("session.idleTTL", 2*time.Hour)
	v.SetDefault("session.cleanupInterval", 10*time.Minute)
	v.SetDefault("session.defaultObjective", "Recolocação no Mercado")
	v.SetDefault("session.scoreCacheSize", 256)
	v.SetDefault("session.maxCVCharacters", 60000)
	v.SetDefault("session.maxChatMessageLength", 4000)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 180*time.Second) // A tick may chain several LLM calls
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// Storage
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.path", "cvcoach.db")

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 5*1024*1024) // 5MB, PDFs included

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.aiKey", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "cvcoach")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
}

// Default returns a configuration populated with the built-in defaults
// only, without reading files or the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.applyFallbacks()
	return &cfg
}
