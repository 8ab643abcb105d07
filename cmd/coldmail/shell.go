package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/coldmail/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open the interactive generator (TUI)",
	Long:  "Shows a URL field and a Generate Email button; runs one request per trigger.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireLLM(); err != nil {
		return err
	}

	// The TUI owns the terminal; log output would corrupt the alt screen.
	silentLogger := setupLogger(io.Discard, debug)

	a, err := openApp(cfg, silentLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := shell.Run(buildPipeline(a, silentLogger)); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return errReported
	}
	return nil
}
