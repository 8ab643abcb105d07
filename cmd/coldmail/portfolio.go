package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/coldmail/internal/portfolio"
)

var (
	rebuild bool
	topK    int
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Inspect the portfolio vector store",
}

var portfolioLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Index the portfolio source into the vector store",
	Long:  "Builds the collection from the portfolio file when it is empty, then prints the entry count.",
	Args:  cobra.NoArgs,
	RunE:  runPortfolioLoad,
}

var portfolioQueryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Show the portfolio links nearest to a skills text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPortfolioQuery,
}

func init() {
	portfolioLoadCmd.Flags().BoolVar(&rebuild, "rebuild", false, "drop the collection and index the source again")
	portfolioQueryCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of results (default: portfolio.top_k)")
	portfolioCmd.AddCommand(portfolioLoadCmd, portfolioQueryCmd)
	rootCmd.AddCommand(portfolioCmd)
}

func runPortfolioLoad(cmd *cobra.Command, args []string) error {
	logger := setupLogger(os.Stderr, debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return errReported
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if rebuild {
		if err := a.store.DeleteCollection(ctx, cfg.VectorStore.Collection); err != nil {
			return err
		}
		logger.Info("collection dropped", "collection", cfg.VectorStore.Collection)
	}

	coll, err := a.index.Get(ctx)
	if err != nil {
		return err
	}
	n, err := coll.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "collection %q: %d entries (%s)\n", coll.Name(), n, cfg.VectorStore.Path)
	return nil
}

func runPortfolioQuery(cmd *cobra.Command, args []string) error {
	logger := setupLogger(os.Stderr, debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return errReported
	}
	k := topK
	if k <= 0 {
		k = cfg.Portfolio.TopK
	}

	a, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	coll, err := a.index.Get(ctx)
	if err != nil {
		return err
	}

	results, err := coll.Query(ctx, strings.Join(args, " "), k)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. %.4f  %s\n   %s\n", i+1, r.Score, r.Metadata[portfolio.LinkKey], r.Text)
	}
	return nil
}
