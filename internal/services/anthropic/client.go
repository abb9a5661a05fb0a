package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

const (
	defaultName      = "anthropic"
	defaultMaxTokens = 64
)

// Client implements llm.Backend on top of the Anthropic SDK.
type Client struct {
	cfg    llm.Config
	client sdk.Client
}

// Option customizes the SDK client.
type Option func(*[]option.RequestOption)

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *[]option.RequestOption) {
		if client != nil {
			*opts = append(*opts, option.WithHTTPClient(client))
		}
	}
}

// NewClient constructs an Anthropic backend. SDK retries are disabled;
// the predictor owns the retry policy.
func NewClient(cfg llm.Config, opts ...Option) *Client {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	timeout := llm.DefaultHTTPTimeout()
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	for _, opt := range opts {
		opt(&requestOpts)
	}
	return &Client{cfg: cfg, client: sdk.NewClient(requestOpts...)}
}

// Name returns the configured backend name.
func (c *Client) Name() string { return c.cfg.Name }

// Sampling reports the temperature and token limit sent with each request.
func (c *Client) Sampling() llm.Sampling {
	return llm.Sampling{Temperature: c.cfg.Temperature, MaxTokens: c.cfg.MaxTokens}
}

// Complete issues exactly one Messages API call.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if c.cfg.APIKey == "" {
		return llm.Response{}, services.Wrap(services.ErrConfiguration, c.cfg.Name, "complete", "api key required", nil)
	}
	if len(req.Messages) == 0 {
		return llm.Response{}, services.Wrap(services.ErrValidation, c.cfg.Name, "complete", "no messages", nil)
	}

	params := buildParams(req, c.cfg)
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, llm.Classify(c.cfg.Name, "complete", c.translate(err))
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	content := strings.TrimSpace(strings.Join(parts, ""))
	if content == "" {
		return llm.Response{}, llm.Classify(c.cfg.Name, "complete", &llm.EmptyContentError{
			Backend:      c.cfg.Name,
			FinishReason: string(msg.StopReason),
			Snippet:      "<empty>",
		})
	}
	return llm.Response{
		Content:      content,
		FinishReason: string(msg.StopReason),
		Usage: llm.Usage{
			PromptTokens:     msg.Usage.InputTokens,
			CompletionTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

// HealthCheck issues a short completion to verify the key and model.
func (c *Client) HealthCheck(ctx context.Context, model string) error {
	_, err := c.Complete(ctx, llm.Request{
		Model:    model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Respond with the single word OK."}},
	})
	return err
}

func buildParams(req llm.Request, cfg llm.Config) sdk.MessageNewParams {
	system, assistant, user := llm.Split(req.Messages)
	params := sdk.MessageNewParams{
		Model:       sdk.Model(req.Model),
		MaxTokens:   int64(cfg.MaxTokens),
		Temperature: sdk.Float(cfg.Temperature),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(user))},
	}
	if strings.TrimSpace(system) != "" {
		params.System = append(params.System, sdk.TextBlockParam{Text: system})
	}
	if strings.TrimSpace(assistant) != "" {
		params.System = append(params.System, sdk.TextBlockParam{Text: assistant})
	}
	return params
}

// translate maps SDK API errors onto llm.StatusError so classification
// matches the OpenAI-compatible client.
func (c *Client) translate(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	statusErr := &llm.StatusError{
		Backend:    c.cfg.Name,
		StatusCode: apiErr.StatusCode,
		Body:       apiErr.RawJSON(),
	}
	if apiErr.Response != nil {
		statusErr.RetryAfter, _ = llm.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}
	return statusErr
}
