package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

const (
	defaultName      = "gemini"
	defaultMaxTokens = 64
)

// Client implements llm.Backend on top of the genai SDK.
type Client struct {
	cfg    llm.Config
	client *genai.Client
}

// Option customizes the genai client configuration.
type Option func(*genai.ClientConfig)

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(cc *genai.ClientConfig) {
		if client != nil {
			cc.HTTPClient = client
		}
	}
}

// NewClient constructs a Gemini backend. A missing API key is reported on
// the first Complete call so offline commands can still build a router.
func NewClient(ctx context.Context, cfg llm.Config, opts ...Option) (*Client, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	c := &Client{cfg: cfg}
	if cfg.APIKey == "" {
		return c, nil
	}

	timeout := llm.DefaultHTTPTimeout()
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Timeout: &timeout,
		},
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, cfg.Name, "new client", "create genai client", err)
	}
	c.client = client
	return c, nil
}

// Name returns the configured backend name.
func (c *Client) Name() string { return c.cfg.Name }

// Sampling reports the temperature and token limit sent with each request.
func (c *Client) Sampling() llm.Sampling {
	return llm.Sampling{Temperature: c.cfg.Temperature, MaxTokens: c.cfg.MaxTokens}
}

// Complete issues exactly one GenerateContent call.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if c.client == nil {
		return llm.Response{}, services.Wrap(services.ErrConfiguration, c.cfg.Name, "complete", "api key required", nil)
	}
	if len(req.Messages) == 0 {
		return llm.Response{}, services.Wrap(services.ErrValidation, c.cfg.Name, "complete", "no messages", nil)
	}

	contents, config := buildRequest(req, c.cfg)
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return llm.Response{}, llm.Classify(c.cfg.Name, "complete", c.translate(err))
	}

	var finishReason string
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		finishReason = string(resp.Candidates[0].FinishReason)
	}
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return llm.Response{}, llm.Classify(c.cfg.Name, "complete", &llm.EmptyContentError{
			Backend:      c.cfg.Name,
			FinishReason: finishReason,
			Snippet:      "<empty>",
		})
	}
	out := llm.Response{Content: content, FinishReason: finishReason}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int64(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// HealthCheck issues a short completion to verify the key and model.
func (c *Client) HealthCheck(ctx context.Context, model string) error {
	_, err := c.Complete(ctx, llm.Request{
		Model:    model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Respond with the single word OK."}},
	})
	return err
}

func buildRequest(req llm.Request, cfg llm.Config) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, assistant, user := llm.Split(req.Messages)
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(cfg.Temperature)),
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	var parts []*genai.Part
	for _, text := range []string{system, assistant} {
		if strings.TrimSpace(text) != "" {
			parts = append(parts, genai.NewPartFromText(text))
		}
	}
	if len(parts) > 0 {
		// Few-shot examples ride along as a second instruction part; the
		// conversation itself must open with a user turn.
		config.SystemInstruction = genai.NewContentFromParts(parts, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}
	return contents, config
}

func (c *Client) translate(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Backend: c.cfg.Name, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.StatusError{Backend: c.cfg.Name, StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return err
}
