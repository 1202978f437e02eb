package main

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/pkg/di"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	out        io.Writer
	configFile string
	container  *di.Container
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "qcache",
		Short: "Run queries through a fingerprint cache",
		Long: `qcache executes SQL against a configured connection through a cached
connector. Each outcome is printed as one JSON line: "computed" when the
query ran, "cache_hit" when the value came from the cache.

Fingerprints are built from query text only; parameters do not take part.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: ./qcache.yaml or ~/.config/qcache/qcache.yaml)")

	root.AddCommand(newGetCmd(a))
	root.AddCommand(newListCmd(a))

	return root
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		return errors.Wrap(err, "build container")
	}
	a.container = container
	return nil
}

func (a *app) close(cmd *cobra.Command, args []string) error {
	if a.container == nil {
		return nil
	}
	return a.container.Close()
}
