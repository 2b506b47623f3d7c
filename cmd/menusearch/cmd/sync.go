package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/menusearch/internal/output"
	"github.com/Aman-CERP/menusearch/internal/search"
)

func newSyncCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Build or refresh the index of every order type",
		Long: `Read the catalog and make sure every order type has an up-to-date index.

An index whose content hash matches the catalog is reused; others are
rebuilt and persisted. One failing order type does not stop the others,
but the command exits non-zero if any failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), cmd, g, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the sync report as JSON")

	return cmd
}

// syncResultJSON is the JSON shape of search.SyncResult.
type syncResultJSON struct {
	OrderType string `json:"order_type"`
	Key       string `json:"key"`
	Documents int    `json:"documents"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

type syncReportJSON struct {
	Namespace  string           `json:"namespace"`
	Results    []syncResultJSON `json:"results"`
	Failed     int              `json:"failed"`
	DurationMS int64            `json:"duration_ms"`
}

func toSyncJSON(namespace string, r search.SyncReport) syncReportJSON {
	out := syncReportJSON{
		Namespace:  namespace,
		Results:    make([]syncResultJSON, 0, len(r.Results)),
		Failed:     r.Failed(),
		DurationMS: r.Duration.Milliseconds(),
	}
	for _, res := range r.Results {
		j := syncResultJSON{
			OrderType: res.OrderType,
			Key:       res.Key.String(),
			Documents: res.Documents,
			Outcome:   res.Outcome,
		}
		if res.Err != nil {
			j.Error = res.Err.Error()
		}
		out.Results = append(out.Results, j)
	}
	return out
}

func runSync(ctx context.Context, cmd *cobra.Command, g *globalOptions, jsonOutput bool) error {
	a, err := newApp(ctx, g, appOptions{}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.SyncIndexes(ctx)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if jsonOutput {
		if err := out.JSON(toSyncJSON(a.service.Namespace(), report)); err != nil {
			return err
		}
	} else {
		out.SyncReport(report)
	}

	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d order type(s) failed to sync", n, len(report.Results))
	}
	return nil
}
