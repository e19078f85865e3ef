// Package slackclient wraps the Slack Web API behind the narrow interfaces
// the rest of dummybot consumes.
package slackclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Message is one raw conversation message as fetched from Slack.
type Message struct {
	UserID    string
	Text      string
	Timestamp string
}

// Messenger delivers replies to Slack conversations.
type Messenger interface {
	// PostMessage posts a message, optionally threaded, and returns the
	// delivery handle (message timestamp) for later in-place updates.
	PostMessage(ctx context.Context, channelID, text, threadTS string) (string, error)

	// PostEphemeral posts a message visible only to the given user.
	PostEphemeral(ctx context.Context, channelID, userID, text string) error

	// UpdateMessage replaces the text of a previously posted message in place.
	UpdateMessage(ctx context.Context, channelID, timestamp, text string) error
}

// ConversationReader reads conversation history and resolves user names.
type ConversationReader interface {
	// History returns up to limit most-recent messages, newest first.
	History(ctx context.Context, channelID string, limit int) ([]Message, error)

	// DisplayName resolves a user's display name, best-effort.
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Opts holds configuration for the Slack client.
type Opts struct {
	BotToken string
	APIURL   string
}

// Option configures the Slack client.
type Option func(*Opts)

// WithBotToken sets the bot token used for Web API calls.
func WithBotToken(token string) Option {
	return func(o *Opts) { o.BotToken = token }
}

// WithAPIURL overrides the Slack API base URL (used by tests).
func WithAPIURL(url string) Option {
	return func(o *Opts) { o.APIURL = url }
}

// Client is the slack-go backed implementation of Messenger and
// ConversationReader.
type Client struct {
	api *slack.Client
}

var (
	_ Messenger          = (*Client)(nil)
	_ ConversationReader = (*Client)(nil)
)

// NewClient creates a Slack Web API client from the given options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BotToken == "" {
		slog.Error("Slack bot token not set")
		return nil, fmt.Errorf("slack bot token not set")
	}
	var slackOpts []slack.Option
	if cfg.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(cfg.APIURL))
	}
	return &Client{api: slack.New(cfg.BotToken, slackOpts...)}, nil
}

func (c *Client) PostMessage(ctx context.Context, channelID, text, threadTS string) (string, error) {
	msgOpts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		msgOpts = append(msgOpts, slack.MsgOptionTS(threadTS))
	}
	_, ts, err := c.api.PostMessageContext(ctx, channelID, msgOpts...)
	if err != nil {
		slog.Error("Client.PostMessage failed", "error", err, "channel", channelID)
		return "", fmt.Errorf("post message to %s failed: %w", channelID, err)
	}
	slog.Debug("Client.PostMessage succeeded", "channel", channelID, "ts", ts)
	return ts, nil
}

func (c *Client) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	_, err := c.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Error("Client.PostEphemeral failed", "error", err, "channel", channelID, "user", userID)
		return fmt.Errorf("post ephemeral to %s failed: %w", channelID, err)
	}
	slog.Debug("Client.PostEphemeral succeeded", "channel", channelID, "user", userID)
	return nil
}

func (c *Client) UpdateMessage(ctx context.Context, channelID, timestamp, text string) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, channelID, timestamp, slack.MsgOptionText(text, false))
	if err != nil {
		slog.Error("Client.UpdateMessage failed", "error", err, "channel", channelID, "ts", timestamp)
		return fmt.Errorf("update message %s in %s failed: %w", timestamp, channelID, err)
	}
	slog.Debug("Client.UpdateMessage succeeded", "channel", channelID, "ts", timestamp)
	return nil
}

func (c *Client) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		slog.Error("Client.History failed", "error", err, "channel", channelID)
		return nil, fmt.Errorf("conversation history for %s failed: %w", channelID, err)
	}
	messages := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, Message{
			UserID:    m.User,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	slog.Debug("Client.History succeeded", "channel", channelID, "count", len(messages))
	return messages, nil
}

func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("user info for %s failed: %w", userID, err)
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName, nil
	}
	if user.RealName != "" {
		return user.RealName, nil
	}
	return user.Name, nil
}
