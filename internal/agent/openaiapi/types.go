package openaiapi

import "time"

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultAPIKeyEnv = "OPENAI_API_KEY"
	defaultTimeout   = 60 * time.Second

	// Near-deterministic sampling. Reply shape matters more than variety.
	defaultTemperature = 0.2
)

// Message roles accepted by the chat API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config is model backend client configuration.
type Config struct {
	Model     string
	BaseURL   string
	APIKey    string
	APIKeyEnv string
	Timeout   time.Duration
}

// Message is one entry in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single chat completion request.
type CompletionRequest struct {
	Messages []Message
}

// CompletionResponse is a single chat completion response.
type CompletionResponse struct {
	OutputText string
}
