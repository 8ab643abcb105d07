package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/coldmail/internal/model"
	"github.com/amishk599/coldmail/internal/pipeline"
)

var noPreview bool

var generateCmd = &cobra.Command{
	Use:   "generate <url>",
	Short: "Generate a cold email for one job URL and print it",
	Long:  "Runs scrape, extraction, portfolio matching and composition once, printing the preview and the email to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&noPreview, "no-preview", false, "do not print the scraped page preview")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// stdout carries the email; logs go to stderr.
	logger := setupLogger(os.Stderr, debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return errReported
	}
	if err := cfg.RequireLLM(); err != nil {
		logger.Error("llm not configured", "error", err)
		return errReported
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := buildPipeline(a, logger).Run(ctx, args[0], func(s pipeline.Stage) {
		if !s.Terminal() {
			logger.Info(s.Label(), "stage", s.String())
		}
	})

	out := cmd.OutOrStdout()
	if !noPreview && res.Preview != "" {
		fmt.Fprintf(out, "=== Scraped Page Preview ===\n%s\n\n", res.Preview)
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "✗ "+model.UserMessage(err))
		return errReported
	}

	fmt.Fprintf(out, "=== Cold Email ===\n%s\n", res.Email)
	return nil
}
