package gemini

import "time"

// Config carries credentials and endpoint settings for the Gemini
// generateContent API. Everything is injected explicitly; the client never
// reads the environment.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}
