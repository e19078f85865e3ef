// Package bot implements the event intake and response orchestration
// pipeline.
//
// The Orchestrator receives a validated inbound event, applies the dedup and
// account-linking gates, assembles context, builds the prompt, invokes the
// completion client, and drives reply delivery with in-place status updates.
// Its guiding policy: always leave a visible trace of outcome in the
// conversation; never a silent drop except for confirmed duplicates.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dummycorp/dummybot/internal/auth"
	"github.com/dummycorp/dummybot/internal/genai"
	"github.com/dummycorp/dummybot/internal/models"
	"github.com/dummycorp/dummybot/internal/prompt"
	"github.com/dummycorp/dummybot/internal/slackclient"
	"github.com/dummycorp/dummybot/internal/store"
	"github.com/dummycorp/dummybot/internal/transcript"
)

// State is a terminal state of one orchestration run.
type State string

const (
	// StateDedupSkipped means the event was a confirmed duplicate.
	StateDedupSkipped State = "dedup_skipped"
	// StateUnauthenticatedExit means the actor was prompted to link.
	StateUnauthenticatedExit State = "unauthenticated_exit"
	// StateDelivered means a reply (success or surfaced failure) was delivered.
	StateDelivered State = "delivered"
	// StateError means the run failed before any reply could be attempted.
	StateError State = "error"
)

// Reply texts.
const (
	placeholderText = "Processing…"
	apologyText     = "Sorry, something went wrong! 😅"
)

// Options configures an Orchestrator. Store, Messenger, Assembler, and
// Generator are required.
type Options struct {
	Store     store.Store
	Messenger slackclient.Messenger
	Assembler *transcript.Assembler
	Generator genai.Generator

	// BaseURL is the externally reachable base URL embedded in
	// prompt-to-link messages, e.g. "https://dummybot.example.com".
	BaseURL string

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Orchestrator is the top-level per-event state machine.
type Orchestrator struct {
	store     store.Store
	messenger slackclient.Messenger
	assembler *transcript.Assembler
	generator genai.Generator
	baseURL   string
	now       func() time.Time
}

// New creates an Orchestrator from options.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if opts.Assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:     opts.Store,
		messenger: opts.Messenger,
		assembler: opts.Assembler,
		generator: opts.Generator,
		baseURL:   opts.BaseURL,
		now:       now,
	}, nil
}

// HandleEvent runs the pipeline for one inbound event. It never panics: any
// unhandled failure is caught, logged, and converted into a best-effort
// apology reply.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev models.InboundEvent) (final State) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Orchestrator.HandleEvent: recovered from panic", "panic", r, "event_id", ev.EventID)
			o.sendApology(ctx, ev)
			final = StateError
		}
	}()

	if err := ev.Validate(); err != nil {
		slog.Warn("Orchestrator.HandleEvent: rejected malformed event", "error", err, "event_id", ev.EventID)
		return StateError
	}
	slog.Debug("Orchestrator.HandleEvent: event received", "event_id", ev.EventID, "mode", ev.Mode, "actor", ev.ActorID)

	// Claim the dedup marker before any externally visible side effect. A
	// crash after marking but before replying loses the reply; that is
	// preferred over replying twice.
	claimed, err := o.store.MarkProcessed(ev.EventID)
	if err != nil {
		// Without a claimed marker the at-most-once guarantee is gone, so no
		// reply is attempted.
		slog.Error("Orchestrator.HandleEvent: dedup claim failed", "error", err, "event_id", ev.EventID)
		return StateError
	}
	if !claimed {
		slog.Info("Orchestrator.HandleEvent: skipping duplicate event", "event_id", ev.EventID)
		return StateDedupSkipped
	}

	identity, err := o.store.GetLinkedIdentity(ev.ActorID)
	if err != nil {
		slog.Error("Orchestrator.HandleEvent: identity lookup failed", "error", err, "actor", ev.ActorID)
		o.sendApology(ctx, ev)
		return StateError
	}
	if identity == nil {
		o.promptToLink(ctx, ev)
		return StateUnauthenticatedExit
	}
	slog.Debug("Orchestrator.HandleEvent: actor is linked", "actor", ev.ActorID, "dummyCorpUserID", identity.DummyCorpUserID)

	entries, err := o.assembler.Assemble(ctx, ev.ConversationID, ev.Timestamp, ev.Mode)
	history := transcript.Render(entries)
	if err != nil {
		// Degraded: proceed without history rather than aborting.
		history = transcript.HistoryUnavailable
	}

	p, settings := prompt.Build(ev.Mode, *identity, history, transcript.StripMentions(ev.Text))

	// Broadcast mode posts an immediate placeholder threaded to the trigger,
	// keeping its handle for the in-place update.
	var placeholderTS string
	if ev.Mode == models.ModeBroadcast {
		placeholderTS, err = o.messenger.PostMessage(ctx, ev.ConversationID, placeholderText, ev.ReplyThreadTS())
		if err != nil {
			slog.Error("Orchestrator.HandleEvent: placeholder post failed", "error", err, "event_id", ev.EventID)
			o.sendApology(ctx, ev)
			return StateError
		}
	}

	text, err := o.generator.Complete(ctx, p, settings)
	if err != nil {
		// The classified failure is surfaced verbatim as the response so the
		// user always observes an outcome.
		slog.Warn("Orchestrator.HandleEvent: completion failed", "error", err, "event_id", ev.EventID)
		o.deliver(ctx, ev, identity, placeholderTS, "⚠️ "+err.Error())
		return StateDelivered
	}

	if ev.Mode == models.ModeBroadcast {
		text = fmt.Sprintf("🤖 AI Response for %s: %s", identity.DummyCorpUserID, text)
	}
	o.deliver(ctx, ev, identity, placeholderTS, text)
	slog.Info("Orchestrator.HandleEvent: reply delivered", "event_id", ev.EventID, "mode", ev.Mode)
	return StateDelivered
}

// deliver writes the final reply: broadcast mode updates the placeholder in
// place, direct mode posts a new reply.
func (o *Orchestrator) deliver(ctx context.Context, ev models.InboundEvent, identity *models.LinkedIdentity, placeholderTS, text string) {
	var err error
	if ev.Mode == models.ModeBroadcast && placeholderTS != "" {
		err = o.messenger.UpdateMessage(ctx, ev.ConversationID, placeholderTS, text)
	} else {
		_, err = o.messenger.PostMessage(ctx, ev.ConversationID, text, ev.ThreadTS)
	}
	if err != nil {
		slog.Error("Orchestrator.deliver: reply delivery failed", "error", err, "event_id", ev.EventID)
	}
}

// promptToLink sends the prompt-to-link message: a private ephemeral notice
// in broadcast mode, a regular reply in direct mode. The embedded state
// token round-trips the Slack context through the login flow.
func (o *Orchestrator) promptToLink(ctx context.Context, ev models.InboundEvent) {
	token, err := auth.EncodeLinkState(auth.LinkState{
		SlackUserID: ev.ActorID,
		ChannelID:   ev.ConversationID,
		MessageTS:   ev.Timestamp,
		Timestamp:   o.now().UnixMilli(),
	})
	if err != nil {
		slog.Error("Orchestrator.promptToLink: state token encode failed", "error", err, "actor", ev.ActorID)
		return
	}
	link := fmt.Sprintf("%s/auth/login?state=%s", o.baseURL, url.QueryEscape(token))
	text := fmt.Sprintf("👋 Hi! To use me you need to link your DummyCorp account first.\n<%s|🔐 Link your DummyCorp account>", link)

	if ev.Mode == models.ModeBroadcast {
		err = o.messenger.PostEphemeral(ctx, ev.ConversationID, ev.ActorID, text)
	} else {
		_, err = o.messenger.PostMessage(ctx, ev.ConversationID, text, "")
	}
	if err != nil {
		slog.Error("Orchestrator.promptToLink: delivery failed", "error", err, "actor", ev.ActorID)
		return
	}
	slog.Info("Orchestrator.promptToLink: prompt-to-link sent", "actor", ev.ActorID, "mode", ev.Mode)
}

// sendApology makes a best-effort attempt to leave a visible trace after an
// unexpected failure.
func (o *Orchestrator) sendApology(ctx context.Context, ev models.InboundEvent) {
	if ev.ConversationID == "" {
		return
	}
	if _, err := o.messenger.PostMessage(ctx, ev.ConversationID, apologyText, ev.ReplyThreadTS()); err != nil {
		slog.Error("Orchestrator.sendApology: apology delivery failed", "error", err, "event_id", ev.EventID)
	}
}
