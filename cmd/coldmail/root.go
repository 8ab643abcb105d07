package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/coldmail/internal/ai"
	"github.com/amishk599/coldmail/internal/config"
	"github.com/amishk599/coldmail/internal/embed"
	"github.com/amishk599/coldmail/internal/pipeline"
	"github.com/amishk599/coldmail/internal/portfolio"
	"github.com/amishk599/coldmail/internal/scrape"
	"github.com/amishk599/coldmail/internal/store"
)

const (
	configEnvVar      = "COLDMAIL_CONFIG"
	defaultConfigPath = "config.yaml"
	dotEnvPath        = ".env"
)

var (
	cfgPath string
	debug   bool
)

// errReported marks a failure that was already shown to the user.
var errReported = errors.New("already reported")

var rootCmd = &cobra.Command{
	Use:   "coldmail",
	Short: "Cold email generator for job postings",
	Long: "coldmail scrapes a job page, extracts the role with an LLM, matches it against your\n" +
		"portfolio and drafts a cold email citing the most relevant projects.",
	// Default to `shell` so that `coldmail` with no args opens the interactive UI.
	RunE:          runShell,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: COLDMAIL_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > COLDMAIL_CONFIG env var > "./config.yaml".
// Built-in defaults are used only when the implicit ./config.yaml is absent.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(dotEnvPath); err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
			return config.Default()
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

func setupLogger(w io.Writer, dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// app holds the long-lived pieces shared by the commands.
type app struct {
	cfg   *config.Config
	store *store.SQLiteStore
	index *portfolio.Index
}

func (a *app) Close() error {
	return a.store.Close()
}

// openApp opens the vector store and wires the portfolio index.
func openApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	embedder, err := embed.New(cfg.Embedding, &http.Client{Timeout: cfg.LLM.Timeout})
	if err != nil {
		return nil, err
	}

	vs, err := store.NewSQLiteStore(cfg.VectorStore.Path)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	cols := portfolio.Columns{TechStack: cfg.Portfolio.TechStackColumn, Link: cfg.Portfolio.LinkColumn}
	index := portfolio.NewIndex(cfg.Portfolio.Source, cols, vs, cfg.VectorStore.Collection, embedder, logger)

	logger.Debug("portfolio index wired",
		"source", cfg.Portfolio.Source,
		"store", cfg.VectorStore.Path,
		"collection", cfg.VectorStore.Collection,
		"embedder", embedder.Name(),
	)
	return &app{cfg: cfg, store: vs, index: index}, nil
}

// buildPipeline wires fetcher, LLM stages and matcher into one pipeline.
func buildPipeline(a *app, logger *slog.Logger) *pipeline.Pipeline {
	cfg := a.cfg
	fetcher := scrape.NewFetcher(&http.Client{Timeout: cfg.Scrape.Timeout}, cfg.Scrape.UserAgent, cfg.Scrape.Format)

	llmClient := &http.Client{Timeout: cfg.LLM.Timeout}
	provider := ai.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens, llmClient)
	logger.Debug("llm configured", "base_url", cfg.LLM.BaseURL, "model", cfg.LLM.Model)

	return pipeline.New(
		fetcher,
		ai.NewLLMJobExtractor(provider, ai.ExtractJobTemplate, logger),
		portfolio.NewMatcher(a.index),
		ai.NewLLMEmailComposer(provider, ai.ColdEmailTemplate, logger),
		pipeline.Options{
			MinChars:     cfg.Scrape.MinChars,
			PreviewChars: cfg.Scrape.PreviewChars,
			TopK:         cfg.Portfolio.TopK,
		},
		logger,
	)
}
