package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"newspulse/app/cfg"
)

// Request is a prompt request to a completion-service provider.
type Request struct {
	Prompt    string
	System    string
	MaxTokens int
}

// Client is the vendor-agnostic completion-service capability. The concrete
// provider is selected once at construction and injected into pipeline
// components; components never look providers up themselves.
type Client interface {
	// Name returns the provider name (e.g., "anthropic", "openai")
	Name() string

	// Complete sends a prompt and returns the response text
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteJSON sends a prompt expecting a JSON response and
	// deserializes it into out. A malformed response yields a *ParseError.
	CompleteJSON(ctx context.Context, req Request, out interface{}) error
}

// ParseError marks a completion response that could not be decoded against
// the expected schema. Callers recover from it locally; it never fails a run.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s returned malformed JSON: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is a completion parse failure
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}

const jsonSystemSuffix = "\n\nYou must respond with valid JSON only. No other text."

// decodeJSON strips markdown code fences some providers wrap around JSON
// responses, then deserializes into out.
func decodeJSON(provider, text string, out interface{}) error {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), out); err != nil {
		return &ParseError{Provider: provider, Err: err}
	}

	return nil
}

// New selects and constructs the configured provider. Missing credentials are
// a configuration error raised immediately to the caller, never swallowed.
func New(c *cfg.Cfg) (Client, error) {
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return NewAnthropicClient(c.AnthropicAPIKey, c.LLMModel), nil
	case "openai":
		if c.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return NewOpenAIClient(c.OpenAIAPIKey, c.LLMModel), nil
	case "gemini", "google":
		if c.GoogleAPIKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY is not set")
		}
		return NewGeminiClient(c.GoogleAPIKey, c.LLMModel)
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", c.LLMProvider)
	}
}
