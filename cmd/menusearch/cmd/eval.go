package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/menusearch/internal/eval"
	"github.com/Aman-CERP/menusearch/internal/output"
)

type evalOptions struct {
	concurrency int
	minMAP      float64
	json        bool
}

func newEvalCmd(g *globalOptions) *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:   "eval <judgments.yaml>",
		Short: "Score search quality against relevance judgments",
		Long: `Run every judged query of a suite through search and report
precision@k, recall@k, nDCG@k per cutoff and the mean average precision.

Judgments file:
  order_type: delivery
  k: [1, 3, 5]
  queries:
    - query: pizza
      relevant:
        Pizza: 2
        Calzones: 1

With --min-map the command fails when MAP is below the threshold, which
makes it usable as a regression gate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), cmd, g, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Queries evaluated in parallel")
	cmd.Flags().Float64Var(&opts.minMAP, "min-map", 0, "Fail if MAP is below this value")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output the report as JSON")

	return cmd
}

func runEval(ctx context.Context, cmd *cobra.Command, g *globalOptions, path string, opts evalOptions) error {
	suite, err := eval.LoadSuite(path)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, g, appOptions{}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := eval.NewEvaluator(a.service, opts.concurrency, a.logger).Run(ctx, suite)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if opts.json {
		if err := out.JSON(report); err != nil {
			return err
		}
	} else {
		out.EvalReport(report)
	}

	if report.Summary.MAP < opts.minMAP {
		return fmt.Errorf("MAP %.4f is below --min-map %.4f", report.Summary.MAP, opts.minMAP)
	}
	return nil
}
