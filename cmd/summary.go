package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/etnz/capgains/renderer"
	"github.com/google/subcommands"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	year   int
	format string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the yearly tax report" }
func (*summaryCmd) Usage() string {
	return `cgt summary [-year <year>] [-format term|markdown|html]

  Displays dividends, interest and capital gains of a tax year, in the ledger
  currency and converted to the report currency.

  Dividends and interest are those paid after January 1st up to January 1st of
  the next year included. Capital gains are those of the sales of the calendar
  year, run 'cgt reconcile' first.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", date.Today().Year()-1, "Tax year")
	f.StringVar(&c.format, "format", "term", "Output format (term, markdown, html)")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch c.format {
	case "term", "markdown", "html":
	default:
		fmt.Fprintf(os.Stderr, "Unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}

	s, err := openStore(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer s.Close()

	ledger, report := currencies()
	rep, err := capgains.NewReporter(s, ledger, report).Build(ctx, c.year)
	if err != nil {
		var missing *capgains.MissingRateError
		if errors.As(err, &missing) {
			return fail("Error: no %s/%s rate on or before %s, run 'cgt import-fx' or 'cgt fetch-fx'", ledger, report, missing.Date)
		}
		return fail("Error computing report: %v", err)
	}

	md := renderer.ReportMarkdown(rep)
	switch c.format {
	case "markdown":
		fmt.Print(md)
	case "html":
		page, err := renderer.HTML(fmt.Sprintf("Tax Report %d", rep.Year), md)
		if err != nil {
			return fail("Error rendering report: %v", err)
		}
		fmt.Print(page)
	default:
		printMarkdown(md)
	}
	return subcommands.ExitSuccess
}
