// Package models defines the core data structures for dummybot.
//
// It includes the inbound event variants, the linked-identity record, and
// transcript entries, which are shared across modules.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ConversationMode determines prompt tone, token budget, and reply-delivery
// strategy. It is derived from the Slack channel type and never persisted.
type ConversationMode string

const (
	// ModeBroadcast covers shared channels where the bot was @mentioned.
	ModeBroadcast ConversationMode = "broadcast"
	// ModeDirect covers one-on-one direct-message conversations.
	ModeDirect ConversationMode = "direct"
)

// IsValidConversationMode checks if the given mode is supported.
func IsValidConversationMode(m ConversationMode) bool {
	switch m {
	case ModeBroadcast, ModeDirect:
		return true
	default:
		return false
	}
}

// EventKind tags the closed set of inbound event variants.
type EventKind string

const (
	// EventKindMention is an @mention of the bot in a channel.
	EventKindMention EventKind = "mention"
	// EventKindDirectMessage is a message sent to the bot's DM channel.
	EventKindDirectMessage EventKind = "direct_message"
	// EventKindAction is an interactive action (button click, form submit).
	EventKindAction EventKind = "interactive_action"
)

// IsValidEventKind checks if the given event kind is supported.
func IsValidEventKind(k EventKind) bool {
	switch k {
	case EventKindMention, EventKindDirectMessage, EventKindAction:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrInvalidEventKind       = errors.New("invalid event kind")
	ErrMissingEventID         = errors.New("event id is required")
	ErrMissingActorID         = errors.New("actor id is required")
	ErrMissingConversationID  = errors.New("conversation id is required")
	ErrMissingTimestamp       = errors.New("timestamp is required")
	ErrInvalidConversationMode = errors.New("invalid conversation mode")
)

// InboundEvent is a validated inbound mention/DM/action event received from
// the Slack Events API. Malformed payloads are rejected at the boundary
// through Validate rather than accessed ad hoc downstream.
type InboundEvent struct {
	Kind           EventKind        `json:"kind"`
	EventID        string           `json:"event_id"`
	ActorID        string           `json:"actor_id"`
	ConversationID string           `json:"conversation_id"`
	Mode           ConversationMode `json:"mode"`
	Text           string           `json:"text"`
	Timestamp      string           `json:"timestamp"`
	ThreadTS       string           `json:"thread_ts,omitempty"`
}

// Validate performs required-field validation on an InboundEvent.
func (e *InboundEvent) Validate() error {
	if !IsValidEventKind(e.Kind) {
		return ErrInvalidEventKind
	}
	if e.EventID == "" {
		return ErrMissingEventID
	}
	if e.ActorID == "" {
		return ErrMissingActorID
	}
	if e.ConversationID == "" {
		return ErrMissingConversationID
	}
	if e.Timestamp == "" {
		return ErrMissingTimestamp
	}
	if !IsValidConversationMode(e.Mode) {
		return ErrInvalidConversationMode
	}
	return nil
}

// ReplyThreadTS returns the thread to reply into: the existing thread when
// the trigger was threaded, otherwise the trigger message itself.
func (e *InboundEvent) ReplyThreadTS() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.Timestamp
}

// ComposeEventID builds the dedup key for an event from its source
// timestamp, actor, and conversation.
func ComposeEventID(timestamp, actorID, conversationID string) string {
	return fmt.Sprintf("%s:%s:%s", timestamp, actorID, conversationID)
}

// LinkedIdentity represents a successful account link between a Slack user
// and a DummyCorp account. At most one exists per Slack user; re-linking
// overwrites the prior record.
type LinkedIdentity struct {
	SlackUserID     string    `json:"slackUserId"`
	DummyCorpUserID string    `json:"dummyCorpUserId"`
	AccessToken     string    `json:"accessToken"`
	LinkedAt        time.Time `json:"linkedAt"`
}

// TranscriptEntry is one resolved conversation message. Entries are
// constructed per-request and never persisted.
type TranscriptEntry struct {
	AuthorDisplayName string `json:"author_display_name"`
	Text              string `json:"text"`
	Timestamp         string `json:"timestamp"`
}
