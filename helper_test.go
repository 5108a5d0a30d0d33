package capgains

import (
	"context"
	"testing"

	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// dec is a helper for test to create exact decimals from const
func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// GBP is a helper for test to create ledger money from const
func GBP(s string) Money { return M(dec(s), "GBP") }

// EUR is a helper for test to create report money from const
func EUR(s string) Money { return M(dec(s), "EUR") }

func trade(kind Kind, on, asset string, units int64, total string) Activity {
	return Activity{
		Date:      date.MustParse(on),
		Kind:      kind,
		AssetCode: asset,
		Quantity:  Units(units),
		Price:     dec(total).Div(decimal.NewFromInt(units)),
		Total:     dec(total),
	}
}

func buy(on, asset string, units int64, total string) Activity {
	return trade(Purchase, on, asset, units, total)
}

func sell(on, asset string, units int64, total string) Activity {
	return trade(Sale, on, asset, units, total)
}

func income(kind Kind, on, asset, total string) Activity {
	return Activity{Date: date.MustParse(on), Kind: kind, AssetCode: asset, Total: dec(total)}
}

// newLedger returns a memory ledger with the activities, their ids are their rank starting at 1.
func newLedger(t *testing.T, activities ...Activity) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if _, err := s.AddActivities(context.Background(), activities); err != nil {
		t.Fatalf("AddActivities() error = %v", err)
	}
	return s
}

// addRates adds rates given as date, rate pairs.
func addRates(t *testing.T, s Writer, pairs ...string) {
	t.Helper()
	var rates []FxRate
	for i := 0; i+1 < len(pairs); i += 2 {
		rates = append(rates, FxRate{Date: date.MustParse(pairs[i]), Rate: dec(pairs[i+1])})
	}
	if err := s.AddRates(context.Background(), rates); err != nil {
		t.Fatalf("AddRates() error = %v", err)
	}
}

func links(t *testing.T, s *MemoryStore) []Link {
	t.Helper()
	list, err := collect(s.Links(context.Background()))
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}
	return list
}

// reconciledOf sums the links of an activity, as a sale if 'sale' is true.
func reconciledOf(list []Link, id int64, sale bool) Quantity {
	var q Quantity
	for _, l := range list {
		if (sale && l.SaleID == id) || (!sale && l.PurchaseID == id) {
			q = q.Add(l.Quantity)
		}
	}
	return q
}
