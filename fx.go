package capgains

import (
	"context"
	"fmt"

	"github.com/etnz/capgains/date"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// FXResolver converts ledger amounts to the report currency using the latest
// rate known on or before a date.
type FXResolver struct {
	store  Store
	cur    string // report currency
	lookup *cache.Cache // by day: a report converts many amounts of the same few days, each a store query
}

// NewFXResolver returns a resolver to currency 'reportCurrency'.
//
// Rates are memoized per day for the lifetime of the resolver, create one per
// report.
func NewFXResolver(s Store, reportCurrency string) *FXResolver {
	return &FXResolver{
		store:  s,
		cur:    reportCurrency,
		lookup: cache.New(cache.NoExpiration, 0),
	}
}

// Currency returns the report currency.
func (r *FXResolver) Currency() string { return r.cur }

// RateOnOrBefore returns the rate of the latest day on or before 'on'.
//
// It fails with a *MissingRateError if the ledger has no rate that old: a
// conversion is never silently done at par.
func (r *FXResolver) RateOnOrBefore(ctx context.Context, on date.Date) (decimal.Decimal, error) {
	key := on.String()
	if v, ok := r.lookup.Get(key); ok {
		return v.(decimal.Decimal), nil
	}
	rate, ok, err := r.store.RateOnOrBefore(ctx, on)
	if err != nil {
		return decimal.Zero, fmt.Errorf("cannot read fx rate on %s: %w", on, err)
	}
	if !ok {
		return decimal.Zero, &MissingRateError{Date: on}
	}
	if !rate.IsPositive() {
		return decimal.Zero, integrityf(0, "fx rate on or before %s is not positive: %s", on, rate)
	}
	r.lookup.Set(key, rate, cache.NoExpiration)
	return rate, nil
}

// Convert converts 'm' on day 'on', it returns the converted money and the rate used.
func (r *FXResolver) Convert(ctx context.Context, m Money, on date.Date) (Money, decimal.Decimal, error) {
	rate, err := r.RateOnOrBefore(ctx, on)
	if err != nil {
		return Money{}, decimal.Zero, err
	}
	return m.Convert(rate, r.cur), rate, nil
}
