package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/dummycorp/dummybot/internal/api"
	"github.com/dummycorp/dummybot/internal/genai"
	"github.com/dummycorp/dummybot/internal/slackclient"
	"github.com/dummycorp/dummybot/internal/store"
	"github.com/dummycorp/dummybot/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for dummybot state data
	DefaultStateDir = "/var/lib/dummybot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "dummybot.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	slackOpts := buildSlackOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping dummybot with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "slack", len(slackOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "base_url", *flags.baseURL)
	if err := api.Run(storeOpts, slackOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("dummybot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("dummybot exited successfully")
}

// Config holds environment configuration
type Config struct {
	SlackBotToken      string
	SlackSigningSecret string
	DatabaseURL        string
	StateDir           string
	OpenAIKey          string
	OpenAIModel        string
	APIAddr            string
	BaseURL            string
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	botToken      *string
	signingSecret *string
	openaiKey     *string
	openaiModel   *string
	apiAddr       *string
	baseURL       *string
}

// initializeLogger sets up structured logging; DUMMYBOT_DEBUG enables debug level
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("DUMMYBOT_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StateDir:           util.GetEnvOrDefault("DUMMYBOT_STATE_DIR", DefaultStateDir),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		APIAddr:            os.Getenv("API_ADDR"),
		BaseURL:            util.GetEnvOrDefault("BASE_URL", "http://localhost:8080"),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"SLACK_BOT_TOKEN_SET", config.SlackBotToken != "",
		"SLACK_SIGNING_SECRET_SET", config.SlackSigningSecret != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"DUMMYBOT_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"BASE_URL", config.BaseURL)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for dummybot data (overrides $DUMMYBOT_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the identity and dedup store (overrides $DATABASE_URL)"),
		botToken:      flag.String("slack-bot-token", config.SlackBotToken, "Slack bot token (overrides $SLACK_BOT_TOKEN)"),
		signingSecret: flag.String("slack-signing-secret", config.SlackSigningSecret, "Slack signing secret for webhook verification (overrides $SLACK_SIGNING_SECRET)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:   flag.String("openai-model", config.OpenAIModel, "OpenAI model name (overrides $OPENAI_MODEL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		baseURL:       flag.String("base-url", config.BaseURL, "externally reachable base URL for login links (overrides $BASE_URL)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"botTokenSet", *flags.botToken != "",
		"signingSecretSet", *flags.signingSecret != "",
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"apiAddr", *flags.apiAddr,
		"baseURL", *flags.baseURL)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildSlackOptions constructs Slack client configuration options
func buildSlackOptions(flags Flags) []slackclient.Option {
	var slackOpts []slackclient.Option
	if *flags.botToken != "" {
		slackOpts = append(slackOpts, slackclient.WithBotToken(*flags.botToken))
	}
	return slackOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.signingSecret != "" {
		apiOpts = append(apiOpts, api.WithSigningSecret(*flags.signingSecret))
	}
	if *flags.baseURL != "" {
		apiOpts = append(apiOpts, api.WithBaseURL(*flags.baseURL))
	}
	return apiOpts
}
