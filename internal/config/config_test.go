package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Model.APIKeyEnv)
	assert.Equal(t, 60, cfg.Model.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Retry.MaxTries)
	assert.Equal(t, 500, cfg.Retry.BackoffMS)
	assert.Equal(t, 8, cfg.Session.HistoryWindow)
}

func TestApplyDefaultsFillsZeroFieldsOnly(t *testing.T) {
	cfg := Config{
		Model: ModelConfig{Name: "gpt-4o-mini"},
		Retry: RetryConfig{MaxTries: 5},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
	assert.Equal(t, 5, cfg.Retry.MaxTries)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Model.APIKeyEnv)
	assert.Equal(t, 500, cfg.Retry.BackoffMS)
	assert.Equal(t, 8, cfg.Session.HistoryWindow)
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{
			name:     "empty settings are valid",
			settings: map[string]any{},
		},
		{
			name: "full valid settings",
			settings: map[string]any{
				"model": map[string]any{
					"name":            "gpt-4o",
					"api_key_env":     "OPENAI_API_KEY",
					"timeout_seconds": 30,
				},
				"retry":   map[string]any{"max_tries": 3, "backoff_ms": 250},
				"session": map[string]any{"history_window": 8},
			},
		},
		{
			name:     "unknown top-level key",
			settings: map[string]any{"models": map[string]any{}},
			wantErr:  true,
		},
		{
			name:     "max_tries out of range",
			settings: map[string]any{"retry": map[string]any{"max_tries": 0}},
			wantErr:  true,
		},
		{
			name:     "wrong type",
			settings: map[string]any{"model": map[string]any{"timeout_seconds": "soon"}},
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid config")
			} else {
				require.NoError(t, err)
			}
		})
	}
}
