package capgains

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

func TestFXResolver_RateOnOrBefore(t *testing.T) {
	ledger := NewMemoryStore()
	addRates(t, ledger,
		"2023-01-02", "1.10",
		"2023-01-05", "1.20",
		"2023-01-05", "1.25", // same day, inserted last wins
	)
	fx := NewFXResolver(ledger, "EUR")

	testCases := []struct {
		on   string
		want string
	}{
		{"2023-01-02", "1.10"},
		{"2023-01-04", "1.10"},
		{"2023-01-05", "1.25"},
		{"2023-12-31", "1.25"},
	}
	for _, tc := range testCases {
		got, err := fx.RateOnOrBefore(context.Background(), date.MustParse(tc.on))
		if err != nil {
			t.Errorf("RateOnOrBefore(%s) error = %v", tc.on, err)
			continue
		}
		if !got.Equal(dec(tc.want)) {
			t.Errorf("RateOnOrBefore(%s) = %v, want %v", tc.on, got, tc.want)
		}
	}
}

func TestFXResolver_MissingRate(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryStore()
	addRates(t, ledger, "2023-01-02", "1.10")
	fx := NewFXResolver(ledger, "EUR")

	_, err := fx.RateOnOrBefore(ctx, date.MustParse("2023-01-01"))
	if !errors.Is(err, ErrMissingRate) {
		t.Fatalf("RateOnOrBefore() error = %v, want ErrMissingRate", err)
	}
	var missing *MissingRateError
	if !errors.As(err, &missing) || missing.Date != date.MustParse("2023-01-01") {
		t.Errorf("RateOnOrBefore() error = %#v, want a *MissingRateError on 2023-01-01", err)
	}

	// failures are not memoized.
	addRates(t, ledger, "2022-12-30", "1.05")
	got, err := fx.RateOnOrBefore(ctx, date.MustParse("2023-01-01"))
	if err != nil || !got.Equal(dec("1.05")) {
		t.Errorf("RateOnOrBefore() = %v, %v, want 1.05", got, err)
	}
}

func TestFXResolver_Convert(t *testing.T) {
	ledger := NewMemoryStore()
	addRates(t, ledger, "2023-01-02", "0.8")
	fx := NewFXResolver(ledger, "EUR")

	got, rate, err := fx.Convert(context.Background(), GBP("100"), date.MustParse("2023-06-01"))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !rate.Equal(dec("0.8")) || !got.Equal(EUR("125")) {
		t.Errorf("Convert() = %v at %v, want 125 EUR at 0.8", got.Amount(), rate)
	}
}

// countingStore counts the rate queries reaching the ledger.
type countingStore struct {
	*MemoryStore
	queries int
}

func (s *countingStore) RateOnOrBefore(ctx context.Context, on date.Date) (decimal.Decimal, bool, error) {
	s.queries++
	return s.MemoryStore.RateOnOrBefore(ctx, on)
}

func TestFXResolver_QueriesEachDayOnce(t *testing.T) {
	ctx := context.Background()
	ledger := &countingStore{MemoryStore: NewMemoryStore()}
	addRates(t, ledger, "2023-01-02", "0.8")
	fx := NewFXResolver(ledger, "EUR")

	for _, on := range []string{"2023-06-01", "2023-06-01", "2023-06-02", "2023-06-01"} {
		if _, _, err := fx.Convert(ctx, GBP("10"), date.MustParse(on)); err != nil {
			t.Fatalf("Convert(%s) error = %v", on, err)
		}
	}
	if ledger.queries != 2 {
		t.Errorf("rate queries = %d, want 2, one per day", ledger.queries)
	}
}
