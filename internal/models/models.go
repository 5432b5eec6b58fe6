package models

// RoleUser is the only role this client ever sends.
const RoleUser = "user"

// Message represents a single conversational message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the JSON body posted to the chat-completion endpoint.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Params holds per-call overrides. Zero values fall back to the client
// defaults; Temperature is a pointer because 0 is a meaningful value.
type Params struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Float64 returns a pointer to v, for filling Params.Temperature.
func Float64(v float64) *float64 {
	return &v
}
