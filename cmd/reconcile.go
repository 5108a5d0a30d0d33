package cmd

import (
	"context"
	"errors"
	"flag"
	"log/slog"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/renderer"
	"github.com/google/subcommands"
)

type reconcileCmd struct {
	dryRun bool
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "matches sales against purchases (FIFO)" }
func (*reconcileCmd) Usage() string {
	return `cgt reconcile [-n]

Matches every pending sale against the oldest unreconciled purchases of the
same asset, and records the links in the ledger.

Sales are processed oldest first, each one is committed on its own. The
reconciliation stops at the first sale without enough purchases; sales
reconciled before it are kept. Running it again only processes what is left.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "Dry run: show the links without recording them")
}

func (c *reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openStore(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer s.Close()

	opts := []capgains.ReconcileOption{capgains.WithLogger(slog.Default())}
	if c.dryRun {
		opts = append(opts, capgains.DryRun())
	}
	res, err := capgains.NewReconciler(s, opts...).ReconcileAll(ctx)
	// what was committed is shown even on failure.
	printMarkdown(renderer.ReconcileMarkdown(res, c.dryRun))
	if err != nil {
		var short *capgains.InsufficientInventoryError
		if errors.As(err, &short) {
			return fail("Error: sale %d of %s on %s is missing %s units", short.SaleID, short.AssetCode, short.Date, short.Missing)
		}
		return fail("Error reconciling: %v", err)
	}
	return subcommands.ExitSuccess
}
