package capgains

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// DefaultRatesURL serves daily reference rates as a time series.
const DefaultRatesURL = "https://api.frankfurter.app"

// RateFetcher downloads historical daily fx rates.
type RateFetcher struct {
	Client  *http.Client
	BaseURL string
}

// Fetch returns the rates published over 'period' as units of 'ledger' currency
// for one unit of 'report' currency, by ascending date.
//
// The server answers a JSON time series:
//
//	{"base": "EUR", "rates": {"2023-01-02": {"GBP": 0.88}, ...}}
func (f RateFetcher) Fetch(ctx context.Context, ledger, report string, period date.Range) ([]FxRate, error) {
	base := f.BaseURL
	if base == "" {
		base = DefaultRatesURL
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	addr := fmt.Sprintf("%s/%s..%s?%s", base, period.From, period.To,
		url.Values{"from": {report}, "to": {ledger}}.Encode())

	var jobj any
	if err := jwget(ctx, client, addr, &jobj); err != nil {
		return nil, fmt.Errorf("cannot fetch %s/%s rates: %w", ledger, report, err)
	}
	return parseRateSeries(jobj, ledger)
}

// parseRateSeries extracts the 'currency' rate of each day of a time series.
func parseRateSeries(jobj any, currency string) ([]FxRate, error) {
	jval, err := jsonpath.Get("$.rates", jobj)
	if err != nil {
		return nil, fmt.Errorf("cannot find rates: %w", err)
	}
	days, ok := jval.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rates is not an object: %v", jval)
	}

	var rates []FxRate
	for day, jday := range days {
		on, err := date.Parse(day)
		if err != nil {
			return nil, err
		}
		jrate, err := jsonpath.Get(fmt.Sprintf("$[%q]", currency), jday)
		if err != nil {
			return nil, fmt.Errorf("no %s rate on %s: %w", currency, day, err)
		}
		rate, err := decimal.NewFromString(fmt.Sprint(jrate))
		if err != nil {
			return nil, fmt.Errorf("invalid %s rate on %s: %v", currency, day, jrate)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%s rate on %s is not positive: %s", currency, day, rate)
		}
		rates = append(rates, FxRate{Date: on, Rate: rate})
	}
	slices.SortFunc(rates, func(a, b FxRate) int { return a.Date.Compare(b.Date) })
	return rates, nil
}
