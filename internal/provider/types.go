package provider

// FinishReason describes why the model stopped generating.
type FinishReason string

// Finish reasons.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonFiltering FinishReason = "filtering"
)

// CompletionRequest is a single-turn completion request. Each request
// carries the full prompt and no history.
type CompletionRequest struct {
	// System is an optional system instruction applied by the provider.
	System string `json:"system,omitempty"`

	// Prompt is the user text, carried unchanged from the channel.
	Prompt string `json:"prompt"`

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness. Nil means provider default.
	Temperature *float64 `json:"temperature,omitempty"`
}

// CompletionResponse is the full result of a completion request.
type CompletionResponse struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
}

// TokenUsage reports token consumption for a single request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
