// Package cmd provides the CLI commands for menusearch.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/output"
	"github.com/Aman-CERP/menusearch/internal/profiling"
	"github.com/Aman-CERP/menusearch/pkg/version"
)

// globalOptions are the persistent flags shared by all subcommands. Empty
// values leave the configuration untouched.
type globalOptions struct {
	configPath string
	catalog    string
	namespace  string
	backend    string
	stemmer    string
	logLevel   string
	logFile    string
	debug      bool

	profile  profiling.Options
	profiler *profiling.Session
}

// startProfiling begins the profiles requested on the command line.
func (g *globalOptions) startProfiling() error {
	if !g.profile.Enabled() {
		return nil
	}
	s, err := profiling.Start(g.profile)
	if err != nil {
		return err
	}
	g.profiler = s
	return nil
}

// stopProfiling flushes an active profiling session. It is safe to call
// when none is running.
func (g *globalOptions) stopProfiling(cmd *cobra.Command) error {
	if g.profiler == nil {
		return nil
	}
	err := g.profiler.Stop()
	g.profiler = nil
	if err == nil {
		output.New(cmd.ErrOrStderr()).Statusf("📊", "Profiles written (heap in use: %s)", output.FormatBytes(profiling.HeapInUse()))
	}
	return err
}

// NewRootCmd creates the root command for the menusearch CLI.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *globalOptions) {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "menusearch",
		Short: "Keyword search over restaurant menu categories",
		Long: `menusearch indexes the categories of each order type of a menu catalog
with BM25 and answers short keyword queries with a ranked list of names.

Each query runs as typed and, when stemming changes it, in stemmed form;
the two rankings are fused with Reciprocal Rank Fusion. Indexes are cached
by content hash and rebuilt only when the catalog text changes.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return g.startProfiling()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return g.stopProfiling(cmd)
		},
	}
	cmd.SetVersionTemplate("menusearch version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file (default: .menusearch.yaml in the working directory)")
	pf.StringVar(&g.catalog, "catalog", "", "Catalog file (YAML or JSON)")
	pf.StringVar(&g.namespace, "namespace", "", "Namespace of the index keys")
	pf.StringVar(&g.backend, "backend", "", "Index cache backend: file, redis, sqlite, memory")
	pf.StringVar(&g.stemmer, "stemmer", "", "Query stemmer: snowball, porter, none")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFile, "log-file", "", "Also write JSON logs to this file (rotated)")
	pf.BoolVar(&g.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&g.profile.CPU, "cpu-profile", "", "Write a CPU profile to this file")
	pf.StringVar(&g.profile.Heap, "mem-profile", "", "Write a heap profile to this file on exit")
	pf.StringVar(&g.profile.Trace, "trace", "", "Write an execution trace to this file")

	cmd.AddCommand(newSyncCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newEvalCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newVersionCmd())

	return cmd, g
}

// Execute runs the root command and prints failures in CLI form.
func Execute() error {
	root, g := newRootCmd()
	err := root.Execute()
	// PersistentPostRunE is skipped when a command fails.
	if stopErr := g.stopProfiling(root); err == nil {
		err = stopErr
	}
	if err != nil {
		fmt.Fprint(os.Stderr, merrors.FormatForCLI(err))
	}
	return err
}
