// Package prompt constructs the mode-dependent system/user prompt pairs sent
// to the completion client.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dummycorp/dummybot/internal/models"
)

// Generation settings per conversation mode.
const (
	// BroadcastTemperature keeps channel answers low-variance and analytical.
	BroadcastTemperature = 0.7
	// BroadcastMaxTokens caps the generated length for channel answers.
	BroadcastMaxTokens = 500
	// DirectTemperature allows more variance in one-on-one conversation.
	DirectTemperature = 0.8
	// DirectMaxTokens caps the generated length for direct replies.
	DirectMaxTokens = 800

	// DefaultBroadcastInstruction substitutes an empty mention text.
	DefaultBroadcastInstruction = "Summarize this conversation"
	// DefaultDirectInstruction substitutes an empty direct message.
	DefaultDirectInstruction = "Hello"
)

// Prompt is a system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// Settings carries the generation parameters alongside a prompt.
type Settings struct {
	Temperature float64
	MaxTokens   int64
}

const broadcastSystemTemplate = `You are Dummy, DummyCorp's assistant bot, replying in a shared Slack channel.
You are speaking with the linked DummyCorp user "%s".

You can:
- Summarize the recent conversation
- Extract action items and their owners
- Answer questions from the conversation history

Formatting rules:
- Use Slack mrkdwn: *bold*, _italic_, and "-" bullet lists
- Keep the tone analytical and the answer compact
- Never invent messages that are not in the transcript

Recent conversation:
%s`

const directSystemTemplate = `You are Dummy, DummyCorp's assistant bot, in a one-on-one Slack conversation with the linked DummyCorp user "%s".
Keep a warm, conversational tone. Maintain continuity with what was said in earlier turns of this conversation.`

// Build is a pure function constructing the prompt pair and generation
// settings for a conversation mode. Broadcast prompts interpolate the
// rendered transcript; direct prompts carry no server-fetched history.
func Build(mode models.ConversationMode, identity models.LinkedIdentity, history, userText string) (Prompt, Settings) {
	userText = strings.TrimSpace(userText)

	if mode == models.ModeDirect {
		if userText == "" {
			userText = DefaultDirectInstruction
		}
		return Prompt{
				System: fmt.Sprintf(directSystemTemplate, identity.DummyCorpUserID),
				User:   userText,
			}, Settings{
				Temperature: DirectTemperature,
				MaxTokens:   DirectMaxTokens,
			}
	}

	if userText == "" {
		userText = DefaultBroadcastInstruction
	}
	return Prompt{
			System: fmt.Sprintf(broadcastSystemTemplate, identity.DummyCorpUserID, history),
			User:   userText,
		}, Settings{
			Temperature: BroadcastTemperature,
			MaxTokens:   BroadcastMaxTokens,
		}
}
