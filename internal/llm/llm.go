package llm

import (
	"context"
	"fmt"
	"net/http"

	"triage-assist/internal/config"
)

// Generator produces raw completion text for a system prompt and one user
// message.  The text is untrusted and must be parsed and validated by the
// caller.
type Generator interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userText string) (string, error)
}

// TransportError reports a non-success answer from a generator endpoint.
// Body holds a truncated copy of the response body or error message.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s API error: %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += "\n" + e.Body
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

const bodySnippetLimit = 500

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= bodySnippetLimit {
		return s
	}
	return string(r[:bodySnippetLimit]) + "…"
}

// NewGenerator builds the generator selected by cfg.Provider.  It returns
// nil, nil when no provider is configured.
func NewGenerator(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}), nil
	case config.ProviderAzure:
		return NewAzureOpenAIClient(AzureConfig{
			Endpoint:   cfg.AzureEndpoint,
			APIKey:     cfg.AzureAPIKey,
			Deployment: cfg.AzureDeployment,
			APIVersion: cfg.AzureAPIVersion,
		}), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
