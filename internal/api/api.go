// Package api provides HTTP handlers and the main server logic for dummybot.
//
// It exposes the Slack Events API webhook, the account-linking login and
// callback pages, the Slack app-install callback page, and administrative
// endpoints over the identity store.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dummycorp/dummybot/internal/bot"
	"github.com/dummycorp/dummybot/internal/genai"
	"github.com/dummycorp/dummybot/internal/models"
	"github.com/dummycorp/dummybot/internal/slackclient"
	"github.com/dummycorp/dummybot/internal/store"
	"github.com/dummycorp/dummybot/internal/transcript"
)

// DefaultAddr is the default API server listen address.
const DefaultAddr = ":8080"

// EventHandler processes one validated inbound event to a terminal state.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev models.InboundEvent) bot.State
}

// Opts holds configuration for the API server.
type Opts struct {
	Addr          string
	SigningSecret string
	BaseURL       string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithSigningSecret sets the Slack signing secret used to verify webhooks.
func WithSigningSecret(secret string) Option {
	return func(o *Opts) { o.SigningSecret = secret }
}

// WithBaseURL sets the externally reachable base URL for login links.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) { o.BaseURL = baseURL }
}

// Server wires the HTTP surface to the store, messenger, and orchestrator.
type Server struct {
	st            store.Store
	messenger     slackclient.Messenger
	events        EventHandler
	signingSecret string
	baseURL       string
	addr          string

	// dispatch hands a parsed event to the orchestrator. The default runs
	// asynchronously so the webhook can acknowledge within Slack's deadline.
	dispatch func(ev models.InboundEvent)
}

// NewServer creates a Server from its collaborators and options.
func NewServer(st store.Store, messenger slackclient.Messenger, events EventHandler, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{
		st:            st,
		messenger:     messenger,
		events:        events,
		signingSecret: cfg.SigningSecret,
		baseURL:       cfg.BaseURL,
		addr:          cfg.Addr,
	}
	s.dispatch = func(ev models.InboundEvent) {
		go s.events.HandleEvent(context.Background(), ev)
	}
	return s
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/events", s.slackEventsHandler)
	mux.HandleFunc("/slack/oauth/callback", s.oauthCallbackHandler)
	mux.HandleFunc("/auth/login", s.authLoginHandler)
	mux.HandleFunc("/auth/callback", s.authCallbackHandler)
	mux.HandleFunc("/admin/users", s.adminUsersHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// ListenAndServe starts the API server.
func (s *Server) ListenAndServe() error {
	slog.Info("Server.ListenAndServe: dummybot API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Run builds all modules from the given options and starts the server. The
// storage backend is selected by DSN detection; with no DSN an in-memory
// store is used, which does not survive the process and is only suitable
// for local development.
func Run(storeOpts []store.Option, slackOpts []slackclient.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	var storeCfg store.Opts
	for _, opt := range storeOpts {
		opt(&storeCfg)
	}

	var st store.Store
	var err error
	switch {
	case storeCfg.DSN == "":
		slog.Warn("Run: no database DSN provided, using in-memory store")
		st = store.NewInMemoryStore()
	case store.DetectDSNType(storeCfg.DSN) == "postgres":
		slog.Debug("Run: detected PostgreSQL DSN, configuring Postgres store")
		st, err = store.NewPostgresStore(storeOpts...)
	default:
		slog.Debug("Run: detected SQLite DSN, configuring SQLite store")
		st, err = store.NewSQLiteStore(storeOpts...)
	}
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	slackClient, err := slackclient.NewClient(slackOpts...)
	if err != nil {
		return fmt.Errorf("failed to create Slack client: %w", err)
	}

	generator, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create GenAI client: %w", err)
	}

	var apiCfg Opts
	for _, opt := range apiOpts {
		opt(&apiCfg)
	}

	orch, err := bot.New(bot.Options{
		Store:     st,
		Messenger: slackClient,
		Assembler: transcript.NewAssembler(slackClient),
		Generator: generator,
		BaseURL:   apiCfg.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	server := NewServer(st, slackClient, orch, apiOpts...)
	return server.ListenAndServe()
}
