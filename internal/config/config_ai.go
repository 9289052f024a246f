package config

// Supported LLM providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.CircuitBreaker == nil {
		cb := c.AI.CircuitBreaker
		opCfg.CircuitBreaker = &cb
	}
}

// GetChatConfig returns the AI configuration used by the conversation
// (diagnosis, questions, rewrite, LinkedIn) with fallback to global config
func (c *Config) GetChatConfig() OperationAIConfig {
	config := c.AI.Chat
	c.applyOperationDefaults(&config)
	return config
}

// GetScoringConfig returns the AI configuration used by the ATS scorer
// with fallback to global config
func (c *Config) GetScoringConfig() OperationAIConfig {
	config := c.AI.Scoring
	c.applyOperationDefaults(&config)
	return config
}

// applyAPIKeyToConfig applies an API key to every AI configuration that
// does not already carry its own
func applyAPIKeyToConfig(config *Config, key string) {
	config.AI.APIKey = key
	if config.AI.Chat.APIKey == "" {
		config.AI.Chat.APIKey = key
	}
	if config.AI.Scoring.APIKey == "" {
		config.AI.Scoring.APIKey = key
	}
}
