// Package auth generates and decodes the tokens used by the account-linking
// flow.
//
// The link state token is an opaque base64 JSON blob that round-trips the
// Slack context through the login page; the access token is the opaque
// credential issued when a link succeeds.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LinkState carries the Slack context of the triggering message through the
// account-linking flow.
type LinkState struct {
	SlackUserID string `json:"slackUserId"`
	ChannelID   string `json:"channelId"`
	MessageTS   string `json:"messageTs"`
	Timestamp   int64  `json:"timestamp"`
}

// EncodeLinkState encodes a link state as an opaque base64 token.
func EncodeLinkState(state LinkState) (string, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode link state failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeLinkState decodes a base64 state token back into a LinkState.
// Tokens missing the Slack user id are rejected.
func DecodeLinkState(token string) (LinkState, error) {
	var state LinkState
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return state, fmt.Errorf("state token is not valid base64: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("state token is not valid JSON: %w", err)
	}
	if state.SlackUserID == "" {
		return state, fmt.Errorf("state token has no Slack user id")
	}
	return state, nil
}

// NewAccessToken generates the opaque access token issued at link time.
func NewAccessToken(username string) string {
	raw := fmt.Sprintf("%s_%d_%s", username, time.Now().UnixMilli(), uuid.NewString())
	return "token_" + base64.RawURLEncoding.EncodeToString([]byte(raw))
}
