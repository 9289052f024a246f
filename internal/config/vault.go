package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cvcoach/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KV v2 paths. Empty paths are skipped.
type VaultSecrets struct {
	// APIKeys points at a secret whose "keys" field is a comma-separated list
	APIKeys string `mapstructure:"apiKeys"`
	// AIKey points at a secret whose "api_key" field is the LLM provider key
	AIKey string `mapstructure:"aiKey"`
}

// kvSecret is one KV v2 read
type kvSecret struct {
	data    map[string]any
	version int64
}

// vaultReader reads KV v2 secrets with a resolved token
type vaultReader struct {
	client *api.Client
	logger *errors.Logger
}

// ApplyVaultSecrets overrides the AI key and the server API keys with the
// values stored in Vault. It is a no-op when Vault is disabled.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.Discard()
	}
	vc := config.Vault
	if !vc.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	logger.Info("Loading secrets from Vault",
		"address", vc.Address,
		"api_keys_path", vc.Secrets.APIKeys,
		"ai_key_path", vc.Secrets.AIKey)

	r, err := newVaultReader(vc, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}

	if path := vc.Secrets.APIKeys; path != "" {
		raw, err := r.stringField(path, "keys")
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if keys := splitKeys(raw); len(keys) > 0 {
			config.Server.APIKeys = keys
			logger.Info("API keys loaded from Vault", "count", len(keys))
		} else {
			logger.Warn("No API keys found in Vault", "path", path)
		}
	}

	if path := vc.Secrets.AIKey; path != "" {
		key, err := r.stringField(path, "api_key")
		if err != nil {
			return fmt.Errorf("failed to load AI API key from vault: %w", err)
		}
		if key == "" {
			logger.Warn("Empty AI API key found in Vault", "path", path)
		} else {
			applyAPIKeyToConfig(config, key)
			logger.Info("AI API key loaded from Vault", "provider", config.AI.Provider)
		}
	}
	return nil
}

func newVaultReader(vc VaultConfig, logger *errors.Logger) (*vaultReader, error) {
	apiCfg := api.DefaultConfig()
	if vc.Address != "" {
		apiCfg.Address = vc.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if vc.Namespace != "" {
		client.SetNamespace(vc.Namespace)
	}

	token, err := resolveVaultToken(vc, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Debug("Connected to Vault", "version", health.Version, "sealed", health.Sealed)

	return &vaultReader{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the configured token over the token file
func resolveVaultToken(vc VaultConfig, logger *errors.Logger) (string, error) {
	token := vc.Token
	if token == "" && vc.TokenFile != "" {
		logger.Debug("Reading Vault token from file", "file", vc.TokenFile)
		raw, err := os.ReadFile(vc.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

func (r *vaultReader) read(path string) (*kvSecret, error) {
	secret, err := r.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	out := &kvSecret{data: data}
	if meta, ok := secret.Data["metadata"].(map[string]any); ok {
		if raw, ok := meta["version"]; ok {
			if out.version, err = parseVersionValue(raw, path); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (r *vaultReader) stringField(path, key string) (string, error) {
	secret, err := r.read(path)
	if err != nil {
		return "", err
	}
	value, ok := secret.data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	r.logger.Debug("Secret read from Vault", "path", path, "key", key, "version", secret.version, "value", maskSecret(s))
	return s, nil
}

func parseVersionValue(raw any, path string) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
}

func splitKeys(raw string) []string {
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}

func maskSecret(s string) string {
	if len(s) > 8 {
		return s[:4] + "****" + s[len(s)-4:]
	}
	if s != "" {
		return "****"
	}
	return ""
}
