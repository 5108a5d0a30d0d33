package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/capgains"
	"github.com/google/subcommands"
)

type linksCmd struct{}

func (*linksCmd) Name() string     { return "links" }
func (*linksCmd) Synopsis() string { return "exports reconciliation links as JSONL" }
func (*linksCmd) Usage() string {
	return `cgt links

Writes every reconciliation link of the ledger on the standard output, one JSON
object per line.
`
}

func (c *linksCmd) SetFlags(f *flag.FlagSet) {}

func (c *linksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openStore(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer s.Close()

	if err := capgains.ExportLinks(os.Stdout, s.Links(ctx)); err != nil {
		return fail("Error exporting links: %v", err)
	}
	return subcommands.ExitSuccess
}
