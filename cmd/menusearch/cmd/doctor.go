package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/menusearch/internal/output"
	"github.com/Aman-CERP/menusearch/internal/preflight"
	"github.com/Aman-CERP/menusearch/internal/store"
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var jsonOutput, verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the catalog, cache and semantic model are usable",
		Long: `Run the preflight checks: the catalog parses, the index cache backend
accepts a write, the file cache has free disk space and, when reranking
is enabled, the embedding model answers.

Exits non-zero when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g, appOptions{}, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			target := preflight.Target{
				CatalogPath: a.cfg.Catalog.Path,
				Blobs:       a.blobs,
				Embedder:    a.embedder,
			}
			if strings.EqualFold(a.cfg.Cache.Backend, store.BackendFile) {
				target.CacheDir = a.cfg.Cache.Dir
			}

			checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()), preflight.WithVerbose(verbose))
			results := checker.RunAll(cmd.Context(), target)
			if jsonOutput {
				if err := output.New(cmd.OutOrStdout()).JSON(results); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("system check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")

	return cmd
}
