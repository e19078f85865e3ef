// Package api provides the Slack Events API webhook handler.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/dummycorp/dummybot/internal/models"
)

// slackEventsHandler receives Slack Events API deliveries. It verifies the
// request signature, answers the url_verification challenge, converts the
// inner event into a validated InboundEvent, acknowledges within Slack's
// three-second deadline, and hands processing to the orchestrator.
func (s *Server) slackEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Server.slackEventsHandler: failed to read request body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if s.signingSecret != "" {
		if err := verifySignature(r.Header, body, s.signingSecret); err != nil {
			slog.Warn("Server.slackEventsHandler: invalid Slack signature", "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		slog.Error("Server.slackEventsHandler: failed to parse event", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if event.Type == slackevents.URLVerification {
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		slog.Info("Server.slackEventsHandler: responding to URL verification challenge")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(challenge.Challenge)); err != nil {
			slog.Error("Server.slackEventsHandler: failed to write challenge", "error", err)
		}
		return
	}

	// Acknowledge quickly; processing continues asynchronously.
	w.WriteHeader(http.StatusOK)

	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := eventFromCallback(event.InnerEvent)
	if !ok {
		return
	}
	if err := ev.Validate(); err != nil {
		slog.Warn("Server.slackEventsHandler: rejected malformed event", "error", err)
		return
	}
	slog.Debug("Server.slackEventsHandler: dispatching event", "event_id", ev.EventID, "kind", ev.Kind)
	s.dispatch(ev)
}

// eventFromCallback converts the supported inner event variants into an
// InboundEvent. Bot messages, message subtypes, and threaded DM follow-ups
// are not triggers and are dropped here.
func eventFromCallback(inner slackevents.EventsAPIInnerEvent) (models.InboundEvent, bool) {
	switch e := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		return models.InboundEvent{
			Kind:           models.EventKindMention,
			EventID:        models.ComposeEventID(e.TimeStamp, e.User, e.Channel),
			ActorID:        e.User,
			ConversationID: e.Channel,
			Mode:           models.ModeBroadcast,
			Text:           e.Text,
			Timestamp:      e.TimeStamp,
			ThreadTS:       e.ThreadTimeStamp,
		}, true
	case *slackevents.MessageEvent:
		if e.ChannelType != "im" {
			return models.InboundEvent{}, false
		}
		if e.SubType != "" || e.BotID != "" || e.ThreadTimeStamp != "" {
			return models.InboundEvent{}, false
		}
		return models.InboundEvent{
			Kind:           models.EventKindDirectMessage,
			EventID:        models.ComposeEventID(e.TimeStamp, e.User, e.Channel),
			ActorID:        e.User,
			ConversationID: e.Channel,
			Mode:           models.ModeDirect,
			Text:           e.Text,
			Timestamp:      e.TimeStamp,
		}, true
	default:
		return models.InboundEvent{}, false
	}
}

// verifySignature checks the Slack request signature headers against the
// signing secret.
func verifySignature(header http.Header, body []byte, secret string) error {
	verifier, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return err
	}
	if _, err := verifier.Write(body); err != nil {
		return err
	}
	return verifier.Ensure()
}
