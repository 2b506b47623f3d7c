package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/output"
)

func newIndexCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect and manage cached indexes",
	}
	cmd.AddCommand(newIndexInfoCmd(g))
	cmd.AddCommand(newIndexInvalidateCmd(g))
	return cmd
}

func newIndexInfoCmd(g *globalOptions) *cobra.Command {
	var jsonOutput, showDocs bool

	cmd := &cobra.Command{
		Use:   "info [order-type...]",
		Short: "Show the cached index of order types",
		Long: `Show the persisted index of each given order type, or of every order
type in the catalog: content hash, build time, document and term counts.

Nothing is built; an order type without a cached index is reported as missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexInfo(cmd.Context(), cmd, g, args, showDocs, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&showDocs, "docs", false, "List the indexed documents")

	return cmd
}

type indexInfoJSON struct {
	Key          string   `json:"key"`
	Blob         string   `json:"blob"`
	Hash         string   `json:"hash,omitempty"`
	BuiltAt      string   `json:"built_at,omitempty"`
	Documents    int      `json:"documents"`
	Terms        int      `json:"terms"`
	AvgDocLength float64  `json:"avg_doc_length"`
	Docs         []string `json:"docs,omitempty"`
	Error        string   `json:"error,omitempty"`
}

func runIndexInfo(ctx context.Context, cmd *cobra.Command, g *globalOptions, orderTypes []string, showDocs, jsonOutput bool) error {
	a, err := newApp(ctx, g, appOptions{}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if len(orderTypes) == 0 {
		orderTypes, err = a.provider.OrderTypes(ctx)
		if err != nil {
			return fmt.Errorf("list order types: %w", err)
		}
	}

	out := output.New(cmd.OutOrStdout())
	infos := make([]indexInfoJSON, 0, len(orderTypes))
	for _, ot := range orderTypes {
		key := a.service.Key(ot)
		info := indexInfoJSON{Key: key.String(), Blob: key.BlobName()}

		art, err := a.indexer.Load(ctx, key)
		if err != nil {
			info.Error = err.Error()
			if !jsonOutput {
				if merrors.HasCode(err, merrors.ErrCodeCacheMiss) {
					out.Warningf("%s: no cached index (run 'menusearch sync')", key)
				} else {
					out.Errorf("%s: %s", key, err)
				}
			}
			infos = append(infos, info)
			continue
		}

		stats := art.Index.Stats()
		info.Hash = art.Hash
		info.BuiltAt = art.BuiltAt.UTC().Format("2006-01-02T15:04:05Z")
		info.Documents = stats.Documents
		info.Terms = stats.Terms
		info.AvgDocLength = stats.AvgDocLength
		if showDocs {
			info.Docs = art.Index.Docs
		}
		infos = append(infos, info)

		if !jsonOutput {
			out.IndexInfo(art, showDocs)
		}
	}

	if jsonOutput {
		return out.JSON(infos)
	}
	return nil
}

func newIndexInvalidateCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <order-type>...",
		Short: "Delete cached indexes so the next search rebuilds them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g, appOptions{}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := output.New(cmd.OutOrStdout())
			for _, ot := range args {
				if err := a.service.Invalidate(cmd.Context(), ot); err != nil {
					return fmt.Errorf("invalidate %s: %w", ot, err)
				}
				out.Successf("Invalidated %s", a.service.Key(ot))
			}
			return nil
		},
	}
}
