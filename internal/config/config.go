// Package config provides configuration loading and management for the
// pascal conversation agent.
package config

// Config is the root configuration.
type Config struct {
	Model   ModelConfig   `json:"model"   mapstructure:"model"`
	Retry   RetryConfig   `json:"retry"   mapstructure:"retry"`
	Session SessionConfig `json:"session" mapstructure:"session"`
}

// ModelConfig describes the model backend.
type ModelConfig struct {
	Name           string `json:"name"                      mapstructure:"name"`
	BaseURL        string `json:"base_url,omitempty"        mapstructure:"base_url"`
	APIKeyEnv      string `json:"api_key_env,omitempty"     mapstructure:"api_key_env"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" mapstructure:"timeout_seconds"`
}

// RetryConfig bounds the model call retry loop.
type RetryConfig struct {
	MaxTries  int `json:"max_tries,omitempty"  mapstructure:"max_tries"`
	BackoffMS int `json:"backoff_ms,omitempty" mapstructure:"backoff_ms"`
}

// SessionConfig locates durable session state.
type SessionConfig struct {
	DBPath        string `json:"db_path,omitempty"        mapstructure:"db_path"`
	HistoryWindow int    `json:"history_window,omitempty" mapstructure:"history_window"`
}

// Defaults returns the configuration used when no config file is present.
func Defaults() Config {
	return Config{
		Model: ModelConfig{
			Name:           "gpt-4o",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 60,
		},
		Retry: RetryConfig{
			MaxTries:  3,
			BackoffMS: 500,
		},
		Session: SessionConfig{
			HistoryWindow: 8,
		},
	}
}

// ApplyDefaults fills zero-valued fields from Defaults.
func (c *Config) ApplyDefaults() {
	def := Defaults()
	if c.Model.Name == "" {
		c.Model.Name = def.Model.Name
	}
	if c.Model.APIKeyEnv == "" {
		c.Model.APIKeyEnv = def.Model.APIKeyEnv
	}
	if c.Model.TimeoutSeconds <= 0 {
		c.Model.TimeoutSeconds = def.Model.TimeoutSeconds
	}
	if c.Retry.MaxTries <= 0 {
		c.Retry.MaxTries = def.Retry.MaxTries
	}
	if c.Retry.BackoffMS <= 0 {
		c.Retry.BackoffMS = def.Retry.BackoffMS
	}
	if c.Session.HistoryWindow <= 0 {
		c.Session.HistoryWindow = def.Session.HistoryWindow
	}
}
