package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAIKeyFallbacks()
	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyAIKeyFallbacks accepts the provider-native environment variables
// when no CVCOACH_AI_APIKEY was given
func (c *Config) applyAIKeyFallbacks() {
	if c.AI.APIKey != "" {
		return
	}
	var candidates []string
	switch c.AI.Provider {
	case ProviderOpenAI:
		candidates = []string{"OPENAI_API_KEY"}
	default:
		candidates = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, name := range candidates {
		if value := os.Getenv(name); value != "" {
			c.AI.APIKey = value
			return
		}
	}
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CVCOACH_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CVCOACH_AI_APIKEY",
		"CVCOACH_AI_PROVIDER",
		"CVCOACH_AI_MODEL",
		"CVCOACH_SERVER_PORT",
		"CVCOACH_SERVER_HOST",
		"CVCOACH_APP_LOGLEVEL",
		"CVCOACH_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"OPENAI_API_KEY",
	}

	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   No environment overrides set")
	}

	log.Printf("[CONFIG] AI Provider: %s, Model: %s", c.AI.Provider, c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s", c.Server.Host, c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Vault Enabled: %t, Storage Enabled: %t, Observability Enabled: %t",
		c.Vault.Enabled, c.Storage.Enabled, c.Observability.Enabled)
	if c.Prompts.Dir != "" {
		log.Printf("[CONFIG] Prompt overrides: %s (watch=%t)", c.Prompts.Dir, c.Prompts.Watch)
	}
}
