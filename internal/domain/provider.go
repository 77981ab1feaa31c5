package domain

// Provider describes an LLM endpoint used to pre-translate unfinished messages.
type Provider struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"` // ollama, openrouter
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}
