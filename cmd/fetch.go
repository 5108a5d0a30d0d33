package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/google/subcommands"
)

type fetchFxCmd struct {
	year    int
	start   string
	end     string
	baseURL string
}

func (*fetchFxCmd) Name() string     { return "fetch-fx" }
func (*fetchFxCmd) Synopsis() string { return "downloads historical fx rates into the ledger" }
func (*fetchFxCmd) Usage() string {
	return `cgt fetch-fx [-year <year>] [-s <date>] [-d <date>] [-url <url>]

Downloads the daily reference rates between the ledger currency and the report
currency and appends them to the ledger.

By default it fetches the whole previous year. Responses are cached on disk for
the day.
`
}

func (c *fetchFxCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", date.Today().Year()-1, "Fetch rates of the calendar year")
	f.StringVar(&c.start, "s", "", "First date to fetch, overrides -year. See the user manual for supported date formats.")
	f.StringVar(&c.end, "d", "", "Last date to fetch, overrides -year. See the user manual for supported date formats.")
	f.StringVar(&c.baseURL, "url", capgains.DefaultRatesURL, "Base URL of the rates time series API")
}

// period returns the range of dates to fetch.
func (c *fetchFxCmd) period() (date.Range, error) {
	period := date.Year(c.year)
	if c.start != "" {
		d, err := date.Parse(c.start)
		if err != nil {
			return period, err
		}
		period.From = d
	}
	if c.end != "" {
		d, err := date.Parse(c.end)
		if err != nil {
			return period, err
		}
		period.To = d
	}
	if period.To.Before(period.From) {
		return period, fmt.Errorf("empty period %s", period)
	}
	return period, nil
}

func (c *fetchFxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	period, err := c.period()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
		return subcommands.ExitUsageError
	}
	ledger, report := currencies()

	fetcher := capgains.RateFetcher{Client: capgains.DailyClient(slog.Default()), BaseURL: c.baseURL}
	rates, err := fetcher.Fetch(ctx, ledger, report, period)
	if err != nil {
		return fail("Error fetching fx rates: %v", err)
	}

	s, err := openStore(ctx)
	if err != nil {
		return fail("Error opening ledger: %v", err)
	}
	defer s.Close()

	if err := s.AddRates(ctx, rates); err != nil {
		return fail("Error storing fx rates: %v", err)
	}
	fmt.Printf("Fetched %d %s/%s rates for %s\n", len(rates), ledger, report, period)
	return subcommands.ExitSuccess
}
