package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/etnz/capgains"
	"github.com/google/subcommands"
)

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "imports broker activities into the ledger" }
func (*importCmd) Usage() string {
	return `cgt import <activities.csv>

Imports the activities of a broker CSV export into the ledger.

The first line is a header. Columns are:

  date,description,investment,assetcode,pot,account,quantity,price,total

where date is like 05-Apr-23 and description is one of Purchase, Sale, Fee,
Dividend or Interest. Nothing is imported if any line is invalid.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "import requires exactly one CSV file")
		return subcommands.ExitUsageError
	}
	activities, err := readFile(f.Arg(0), capgains.ImportActivities)
	if err != nil {
		return fail("Error reading activities: %v", err)
	}

	s, err := openStore(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer s.Close()

	ids, err := s.AddActivities(ctx, activities)
	if err != nil {
		return fail("Error importing activities: %v", err)
	}
	fmt.Printf("Imported %d activities into %s\n", len(ids), *dbFile)
	return subcommands.ExitSuccess
}

type importFxCmd struct{}

func (*importFxCmd) Name() string     { return "import-fx" }
func (*importFxCmd) Synopsis() string { return "imports fx rates into the ledger" }
func (*importFxCmd) Usage() string {
	return `cgt import-fx <rates.csv>

Imports daily fx rates into the ledger. The first line is a header, then each
line is 'date,currency,rate', the rate being the number of ledger currency
units for one unit of the report currency. Lines without a rate are skipped.
`
}

func (c *importFxCmd) SetFlags(f *flag.FlagSet) {}

func (c *importFxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "import-fx requires exactly one CSV file")
		return subcommands.ExitUsageError
	}
	rates, err := readFile(f.Arg(0), func(r io.Reader) ([]capgains.FxRate, error) {
		return capgains.ImportRates(r, slog.Default())
	})
	if err != nil {
		return fail("Error reading fx rates: %v", err)
	}

	s, err := openStore(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer s.Close()

	if err := s.AddRates(ctx, rates); err != nil {
		return fail("Error importing fx rates: %v", err)
	}
	fmt.Printf("Imported %d fx rates into %s\n", len(rates), *dbFile)
	return subcommands.ExitSuccess
}

// readFile decodes the file 'name' with 'decode', "-" reads the standard input.
func readFile[T any](name string, decode func(io.Reader) (T, error)) (T, error) {
	if name == "-" {
		return decode(os.Stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return decode(f)
}
