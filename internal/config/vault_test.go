package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cvcoach/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVault serves the two endpoints the client touches: health and a KV v2 read.
func fakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sys/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"initialized": true, "sealed": false, "standby": false, "version": "1.17.0", "cluster_name": "test",
		})
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		data, ok := secrets[r.URL.Path[len("/v1/"):]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestApplyVaultSecretsLoadsAIKey(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{
		"secret/data/cvcoach/ai":     {"api_key": "vault-ai-key"},
		"secret/data/cvcoach/server": {"keys": "k1, k2"},
	})

	cfg := Default()
	cfg.AI.Scoring.APIKey = "scoring-only-key"
	cfg.Vault = VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "root",
		Secrets: VaultSecrets{AIKey: "secret/data/cvcoach/ai", APIKeys: "secret/data/cvcoach/server"},
	}

	err := ApplyVaultSecrets(cfg, errors.Discard())
	require.NoError(t, err)

	assert.Equal(t, "vault-ai-key", cfg.AI.APIKey)
	assert.Equal(t, "vault-ai-key", cfg.AI.Chat.APIKey)
	assert.Equal(t, "scoring-only-key", cfg.AI.Scoring.APIKey)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
}

func TestApplyVaultSecretsMissingPath(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{})

	cfg := Default()
	cfg.Vault = VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "root",
		Secrets: VaultSecrets{AIKey: "secret/data/missing"},
	}

	err := ApplyVaultSecrets(cfg, errors.Discard())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load AI API key")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := Default()
	assert.NoError(t, ApplyVaultSecrets(cfg, errors.Discard()))
	assert.Empty(t, cfg.AI.APIKey)
}

func TestResolveVaultToken(t *testing.T) {
	logger := errors.Discard()

	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{"int64", int64(7), 7, false},
		{"float64", float64(7), 7, false},
		{"string", "7", 7, false},
		{"bad string", "seven", 0, true},
		{"unsupported", []string{"7"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersionValue(tt.input, "secret/x")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
