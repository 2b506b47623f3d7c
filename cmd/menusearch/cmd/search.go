package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/menusearch/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	orderType string
	topN      int
	rerank    bool
	json      bool
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the categories of one order type",
		Long: `Search the index of one order type and print the best matching names.

The query runs as typed and, if stemming changes it, in stemmed form; the
two rankings are fused with Reciprocal Rank Fusion. A missing or stale
index is built on the fly.

Examples:
  menusearch search pizza --order-type delivery
  menusearch search "spicy wings" -o "Dine In" -n 3
  menusearch search desserts -o delivery --rerank --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			var rerank *bool
			if cmd.Flags().Changed("rerank") {
				rerank = &opts.rerank
			}
			return runSearch(cmd.Context(), cmd, g, query, rerank, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.orderType, "order-type", "o", "", "Order type to search (required)")
	cmd.Flags().IntVarP(&opts.topN, "top-n", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Rerank the fused results with the semantic model")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output results as JSON")
	_ = cmd.MarkFlagRequired("order-type")

	return cmd
}

type searchResultJSON struct {
	Query     string   `json:"query"`
	OrderType string   `json:"order_type"`
	Results   []string `json:"results"`
	TookMS    float64  `json:"took_ms"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, g *globalOptions, query string, rerank *bool, opts searchOptions) error {
	a, err := newApp(ctx, g, appOptions{rerank: rerank}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	names, err := a.service.SimpleSearch(ctx, query, opts.orderType, opts.topN)
	took := time.Since(start)
	if err != nil {
		return err
	}
	a.logger.Debug("search_complete",
		slog.String("query", query),
		slog.String("order_type", opts.orderType),
		slog.Int("results", len(names)),
		slog.Duration("took", took))

	out := output.New(cmd.OutOrStdout())
	if opts.json {
		return out.JSON(searchResultJSON{
			Query:     query,
			OrderType: opts.orderType,
			Results:   names,
			TookMS:    float64(took.Microseconds()) / 1000,
		})
	}
	out.SearchResults(query, opts.orderType, names, took)
	return nil
}
