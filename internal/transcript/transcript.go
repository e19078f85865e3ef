// Package transcript assembles the bounded conversation context used as
// model input.
//
// Given a conversation identifier it fetches recent messages, resolves each
// author's display name, strips Slack mention markup, and renders an ordered
// transcript. Failures degrade instead of aborting: a failed name lookup
// falls back to a placeholder author, and a failed history fetch yields the
// HistoryUnavailable sentinel so the conversation can still proceed.
package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/dummycorp/dummybot/internal/models"
	"github.com/dummycorp/dummybot/internal/slackclient"
)

const (
	// BroadcastWindow is the number of preceding messages fetched for
	// channel conversations.
	BroadcastWindow = 20
	// DirectWindow is the history window for direct messages. Direct mode
	// intentionally carries no server-fetched history; only the current turn.
	DirectWindow = 0

	// HistoryUnavailable is rendered in place of the transcript when the
	// history fetch fails outright.
	HistoryUnavailable = "(conversation history unavailable)"

	// unknownAuthor is used when a per-message name lookup fails.
	unknownAuthor = "Unknown User"
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// StripMentions removes Slack mention markup (<@U123ABC>) from text.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// WindowFor returns the history window size for a conversation mode.
func WindowFor(mode models.ConversationMode) int {
	if mode == models.ModeDirect {
		return DirectWindow
	}
	return BroadcastWindow
}

// Assembler builds transcripts from a conversation reader.
type Assembler struct {
	reader slackclient.ConversationReader
}

// NewAssembler creates an Assembler backed by the given reader.
func NewAssembler(reader slackclient.ConversationReader) *Assembler {
	return &Assembler{reader: reader}
}

// Assemble fetches up to WindowFor(mode)+1 recent messages (the +1 admits
// the triggering message itself), reverses them to chronological order,
// drops the triggering message, and resolves author display names. The
// returned transcript is built fresh per call. A failed history fetch
// returns an error; callers should substitute HistoryUnavailable and
// proceed.
func (a *Assembler) Assemble(ctx context.Context, conversationID, triggerTS string, mode models.ConversationMode) ([]models.TranscriptEntry, error) {
	window := WindowFor(mode)
	if window == 0 {
		return nil, nil
	}

	messages, err := a.reader.History(ctx, conversationID, window+1)
	if err != nil {
		slog.Warn("Assembler.Assemble: history fetch failed", "error", err, "conversation", conversationID)
		return nil, fmt.Errorf("history fetch failed: %w", err)
	}

	// Slack returns newest first; reverse to chronological order and drop
	// the triggering message from the history-for-prompt.
	ordered := make([]slackclient.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Timestamp == triggerTS {
			continue
		}
		ordered = append(ordered, messages[i])
	}
	if len(ordered) > window {
		ordered = ordered[len(ordered)-window:]
	}

	names := a.resolveNames(ctx, ordered)

	entries := make([]models.TranscriptEntry, 0, len(ordered))
	for _, m := range ordered {
		entries = append(entries, models.TranscriptEntry{
			AuthorDisplayName: names[m.UserID],
			Text:              StripMentions(m.Text),
			Timestamp:         m.Timestamp,
		})
	}
	slog.Debug("Assembler.Assemble: transcript built", "conversation", conversationID, "entries", len(entries))
	return entries, nil
}

// resolveNames looks up display names for the distinct authors in msgs.
// Lookups are read-only and independent, so they are issued concurrently.
// A failed lookup degrades to a placeholder rather than aborting.
func (a *Assembler) resolveNames(ctx context.Context, msgs []slackclient.Message) map[string]string {
	names := make(map[string]string)
	for _, m := range msgs {
		names[m.UserID] = unknownAuthor
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for userID := range names {
		if userID == "" {
			continue
		}
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			name, err := a.reader.DisplayName(ctx, userID)
			if err != nil {
				slog.Warn("Assembler.resolveNames: lookup failed", "error", err, "user", userID)
				return
			}
			mu.Lock()
			names[userID] = name
			mu.Unlock()
		}(userID)
	}
	wg.Wait()
	return names
}

// Render renders entries as the tagged per-message block interpolated into
// broadcast prompts. An empty transcript renders as an empty string.
func Render(entries []models.TranscriptEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&b, "<message id=%q author=%q ts=%q>\n%s\n</message>\n", fmt.Sprintf("%d", i+1), entry.AuthorDisplayName, entry.Timestamp, entry.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
