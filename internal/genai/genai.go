// Package genai provides the chat-completion client for dummybot using the
// OpenAI API.
//
// A completion is a single attempt; failures are classified so the
// orchestrator can surface them to the user instead of retrying.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dummycorp/dummybot/internal/prompt"
)

// ErrorKind classifies a completion failure.
type ErrorKind string

const (
	// ErrorKindAuth indicates invalid or missing API credentials.
	ErrorKindAuth ErrorKind = "auth_error"
	// ErrorKindQuota indicates rate or usage limits were hit.
	ErrorKindQuota ErrorKind = "quota_error"
	// ErrorKindNetwork indicates the request never produced an API response.
	ErrorKindNetwork ErrorKind = "network_error"
	// ErrorKindUnknown covers everything else.
	ErrorKindUnknown ErrorKind = "unknown_error"
)

// CompletionError is a classified completion failure carrying a
// human-readable reason.
type CompletionError struct {
	Kind   ErrorKind
	Reason string
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Generator is the completion interface consumed by the orchestrator.
type Generator interface {
	// Complete sends the prompt pair and returns generated text. Failures
	// are *CompletionError values.
	Complete(ctx context.Context, p prompt.Prompt, s prompt.Settings) (string, error)
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat-completion service.
type Client struct {
	client openai.Client
	model  openai.ChatModel
}

// Compile-time check that Client implements Generator.
var _ Generator = (*Client)(nil)

// NewClient initializes a GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	slog.Debug("Client.NewClient: GenAI client created", "model", model)
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Complete sends a single chat-completion request. No automatic retry.
func (c *Client) Complete(ctx context.Context, p prompt.Prompt, s prompt.Settings) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
	}
	if s.Temperature > 0 {
		params.Temperature = openai.Float(s.Temperature)
	}
	if s.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(s.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		cerr := Classify(err)
		slog.Error("Client.Complete: completion failed", "kind", cerr.Kind, "reason", cerr.Reason)
		return "", cerr
	}
	if len(resp.Choices) == 0 {
		return "", &CompletionError{Kind: ErrorKindUnknown, Reason: "no choices returned"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Classify maps an OpenAI client error to a CompletionError.
func Classify(err error) *CompletionError {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		reason := apierr.Code
		if reason == "" {
			reason = apierr.Message
		}
		if reason == "" {
			reason = apierr.Error()
		}
		switch apierr.StatusCode {
		case 401, 403:
			return &CompletionError{Kind: ErrorKindAuth, Reason: reason}
		case 429:
			return &CompletionError{Kind: ErrorKindQuota, Reason: reason}
		default:
			return &CompletionError{Kind: ErrorKindUnknown, Reason: reason}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &CompletionError{Kind: ErrorKindNetwork, Reason: err.Error()}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &CompletionError{Kind: ErrorKindNetwork, Reason: err.Error()}
	}
	return &CompletionError{Kind: ErrorKindUnknown, Reason: err.Error()}
}
