package llm

import (
	"context"
	"errors"
	"math"
	"net/http"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient calls a chat completion endpoint, either api.openai.com or an
// Azure OpenAI deployment.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	provider string
}

// OpenAIConfig configures an OpenAI-hosted client.  BaseURL overrides the
// public endpoint (it must include the /v1 suffix).
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// AzureConfig configures an Azure OpenAI deployment.  Endpoint may be given
// with or without a trailing slash or /openai suffix.
type AzureConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	HTTPClient *http.Client
}

// NewOpenAIClient constructs an OpenAI-backed generator.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		c.HTTPClient = cfg.HTTPClient
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(c),
		model:    model,
		provider: "openai",
	}
}

// NewAzureOpenAIClient constructs a generator for one Azure deployment.  The
// request URL is {endpoint}/openai/deployments/{deployment}/chat/completions
// with the api-version query parameter and an api-key header.
func NewAzureOpenAIClient(cfg AzureConfig) *OpenAIClient {
	c := openai.DefaultAzureConfig(cfg.APIKey, NormalizeAzureEndpoint(cfg.Endpoint))
	if cfg.APIVersion != "" {
		c.APIVersion = cfg.APIVersion
	}
	deployment := cfg.Deployment
	c.AzureModelMapperFunc = func(string) string { return deployment }
	if cfg.HTTPClient != nil {
		c.HTTPClient = cfg.HTTPClient
	}
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(c),
		model:    deployment,
		provider: "azure-openai",
	}
}

var openaiSuffix = regexp.MustCompile(`(?i)/openai$`)

// NormalizeAzureEndpoint trims whitespace, trailing slashes and a trailing
// /openai segment so that the deployment path can be appended.
func NormalizeAzureEndpoint(endpoint string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	return openaiSuffix.ReplaceAllString(trimmed, "")
}

// Name identifies the provider in logs and stored runs.
func (c *OpenAIClient) Name() string { return c.provider }

// Generate sends the system prompt and the report as a two-message chat and
// returns the assistant content.
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userText string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
		// Zero would be dropped by omitempty.
		Temperature: math.SmallestNonzeroFloat32,
	})
	if err != nil {
		return "", c.wrapError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &TransportError{Provider: c.provider, StatusCode: http.StatusOK, Body: "response missing content"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{Provider: c.provider, StatusCode: apiErr.HTTPStatusCode, Body: snippet(apiErr.Message), Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = snippet(reqErr.Err.Error())
		}
		return &TransportError{Provider: c.provider, StatusCode: reqErr.HTTPStatusCode, Body: body, Err: err}
	}
	return err
}
