package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiClient calls the Gemini generateContent API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// GeminiConfig configures a Gemini client.  BaseURL is only set in tests.
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewGeminiClient creates a Gemini generator.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Name identifies the provider.
func (c *GeminiClient) Name() string { return "gemini" }

// Generate sends the report with the system prompt as system instruction.
func (c *GeminiClient) Generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userText), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &TransportError{Provider: c.Name(), StatusCode: apiErr.Code, Body: snippet(apiErr.Message), Err: err}
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return "", &TransportError{Provider: c.Name(), StatusCode: apiErrPtr.Code, Body: snippet(apiErrPtr.Message), Err: err}
		}
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", &TransportError{Provider: c.Name(), StatusCode: http.StatusOK, Body: "response missing content"}
	}
	return text, nil
}
