package capgains

import (
	"context"
	"iter"

	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// Store is the ledger the reconciliation and the reports are computed from.
//
// Sequences are lazy and forward only: they must be consumed before any other
// call to the store.
type Store interface {
	// PendingSales returns the sales not fully reconciled, by ascending date then id.
	PendingSales(ctx context.Context) iter.Seq2[Pending, error]

	// UnreconciledPurchases returns the purchases of 'assetCode' not fully
	// reconciled, by ascending date then id.
	UnreconciledPurchases(ctx context.Context, assetCode string) iter.Seq2[Pending, error]

	// InsertLinks appends all the links or none of them.
	InsertLinks(ctx context.Context, links []Link) error

	// Income returns the activities of 'kind' dated strictly after 'after' up to
	// and including 'through', by ascending date then id.
	Income(ctx context.Context, kind Kind, after, through date.Date) iter.Seq2[Activity, error]

	// SaleLots returns, for the sales dated in 'year', each link joined to its
	// sale and purchase, ordered by sale date, sale id, purchase date and purchase id.
	SaleLots(ctx context.Context, year int) iter.Seq2[SaleLot, error]

	// RateOnOrBefore returns the rate of the latest day on or before 'on'.
	// When several rates share that day, the last one inserted wins.
	RateOnOrBefore(ctx context.Context, on date.Date) (rate decimal.Decimal, ok bool, err error)
}

// Writer is the write side of the ledger used by the importers.
type Writer interface {
	// AddActivities validates and appends activities, it returns their ids.
	AddActivities(ctx context.Context, activities []Activity) ([]int64, error)
	// AddRates appends fx rates.
	AddRates(ctx context.Context, rates []FxRate) error
}

// Dividends returns the dividends dated strictly after 'after' up to and including 'through'.
func Dividends(ctx context.Context, s Store, after, through date.Date) iter.Seq2[Activity, error] {
	return s.Income(ctx, Dividend, after, through)
}

// collect consumes a sequence, stopping at the first error.
func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var list []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}
