// Package capgainstest provides a conformance suite for capgains.Store implementations.
package capgainstest

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// Ledger is a store that can also be written to.
type Ledger interface {
	capgains.Store
	capgains.Writer
}

// RunStoreTests runs the conformance suite, 'open' must return a new empty ledger.
func RunStoreTests(t *testing.T, open func(t *testing.T) Ledger) {
	tests := []struct {
		name string
		fn   func(*testing.T, Ledger)
	}{
		{"PendingSalesOrder", testPendingSalesOrder},
		{"UnreconciledPurchases", testUnreconciledPurchases},
		{"InsertLinksAllOrNothing", testInsertLinksAllOrNothing},
		{"Income", testIncome},
		{"SaleLots", testSaleLots},
		{"RateOnOrBefore", testRateOnOrBefore},
		{"RejectsInvalidActivities", testRejectsInvalidActivities},
		{"EndToEnd", testEndToEnd},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) { tc.fn(t, open(t)) })
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func activity(kind capgains.Kind, on, asset string, units int64, total string) capgains.Activity {
	a := capgains.Activity{
		Date:      date.MustParse(on),
		Kind:      kind,
		AssetCode: asset,
		Quantity:  capgains.Units(units),
		Total:     dec(total),
	}
	if units > 0 {
		a.Price = a.Total.Div(decimal.NewFromInt(units))
	}
	return a
}

func add(t *testing.T, l Ledger, activities ...capgains.Activity) []int64 {
	t.Helper()
	ids, err := l.AddActivities(context.Background(), activities)
	if err != nil {
		t.Fatalf("AddActivities() error = %v", err)
	}
	if len(ids) != len(activities) {
		t.Fatalf("AddActivities() returned %d ids, want %d", len(ids), len(activities))
	}
	return ids
}

func collect[T any](t *testing.T, seq iter.Seq2[T, error]) []T {
	t.Helper()
	var list []T
	for v, err := range seq {
		if err != nil {
			t.Fatalf("sequence error = %v", err)
		}
		list = append(list, v)
	}
	return list
}

func pendingIDs(list []capgains.Pending) []int64 {
	var out []int64
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func testPendingSalesOrder(t *testing.T, l Ledger) {
	ctx := context.Background()
	id := add(t, l,
		activity(capgains.Purchase, "2023-01-01", "ABC", 10, "100"),
		activity(capgains.Sale, "2023-03-01", "ABC", 2, "30"),
		activity(capgains.Sale, "2023-02-01", "ABC", 2, "30"),
		activity(capgains.Sale, "2023-02-01", "ABC", 2, "30"),
		activity(capgains.Sale, "2023-01-15", "ABC", 2, "30"),
	)
	got := pendingIDs(collect(t, l.PendingSales(ctx)))
	want := []int64{id[4], id[2], id[3], id[1]}
	if !equalIDs(got, want) {
		t.Fatalf("PendingSales() = %v, want %v", got, want)
	}

	// fully reconciled sales leave, partially reconciled ones stay with their reconciled quantity.
	links := []capgains.Link{
		{SaleID: id[4], PurchaseID: id[0], Quantity: capgains.Units(2)},
		{SaleID: id[2], PurchaseID: id[0], Quantity: capgains.Units(1)},
	}
	if err := l.InsertLinks(ctx, links); err != nil {
		t.Fatalf("InsertLinks() error = %v", err)
	}
	pending := collect(t, l.PendingSales(ctx))
	if got, want := pendingIDs(pending), []int64{id[2], id[3], id[1]}; !equalIDs(got, want) {
		t.Fatalf("PendingSales() = %v, want %v", got, want)
	}
	if !pending[0].Reconciled.Equal(capgains.Units(1)) || !pending[0].Remaining().Equal(capgains.Units(1)) {
		t.Errorf("PendingSales()[0] reconciled %v remaining %v, want 1 and 1", pending[0].Reconciled, pending[0].Remaining())
	}
}

func testUnreconciledPurchases(t *testing.T, l Ledger) {
	ctx := context.Background()
	id := add(t, l,
		activity(capgains.Purchase, "2023-02-01", "ABC", 10, "100"),
		activity(capgains.Purchase, "2023-01-01", "XYZ", 10, "100"),
		activity(capgains.Purchase, "2023-01-01", "ABC", 5, "50"),
		activity(capgains.Sale, "2023-03-01", "ABC", 5, "60"),
	)
	got := pendingIDs(collect(t, l.UnreconciledPurchases(ctx, "ABC")))
	if want := []int64{id[2], id[0]}; !equalIDs(got, want) {
		t.Fatalf("UnreconciledPurchases(ABC) = %v, want %v", got, want)
	}
	if err := l.InsertLinks(ctx, []capgains.Link{{SaleID: id[3], PurchaseID: id[2], Quantity: capgains.Units(5)}}); err != nil {
		t.Fatalf("InsertLinks() error = %v", err)
	}
	got = pendingIDs(collect(t, l.UnreconciledPurchases(ctx, "ABC")))
	if want := []int64{id[0]}; !equalIDs(got, want) {
		t.Errorf("UnreconciledPurchases(ABC) = %v, want %v", got, want)
	}
}

func testInsertLinksAllOrNothing(t *testing.T, l Ledger) {
	ctx := context.Background()
	id := add(t, l,
		activity(capgains.Purchase, "2023-01-01", "ABC", 10, "100"),
		activity(capgains.Purchase, "2023-01-02", "ABC", 10, "100"),
		activity(capgains.Sale, "2023-02-01", "ABC", 15, "200"),
	)
	testCases := []struct {
		name  string
		links []capgains.Link
	}{
		{"zero quantity", []capgains.Link{
			{SaleID: id[2], PurchaseID: id[0], Quantity: capgains.Units(10)},
			{SaleID: id[2], PurchaseID: id[1], Quantity: capgains.Units(0)},
		}},
		{"purchase over consumed", []capgains.Link{
			{SaleID: id[2], PurchaseID: id[0], Quantity: capgains.Units(11)},
		}},
		{"sale over reconciled", []capgains.Link{
			{SaleID: id[2], PurchaseID: id[0], Quantity: capgains.Units(10)},
			{SaleID: id[2], PurchaseID: id[1], Quantity: capgains.Units(6)},
		}},
		{"swapped sides", []capgains.Link{
			{SaleID: id[0], PurchaseID: id[2], Quantity: capgains.Units(1)},
		}},
	}
	for _, tc := range testCases {
		err := l.InsertLinks(ctx, tc.links)
		if !errors.Is(err, capgains.ErrIntegrity) {
			t.Errorf("InsertLinks(%s) error = %v, want ErrIntegrity", tc.name, err)
		}
	}
	pending := collect(t, l.PendingSales(ctx))
	if len(pending) != 1 || !pending[0].Reconciled.IsZero() {
		t.Errorf("PendingSales() = %+v, want the sale with nothing reconciled", pending)
	}
}

func testIncome(t *testing.T, l Ledger) {
	ctx := context.Background()
	id := add(t, l,
		activity(capgains.Dividend, "2023-01-01", "ABC", 0, "1"),
		activity(capgains.Dividend, "2024-01-01", "ABC", 0, "2"),
		activity(capgains.Dividend, "2023-05-01", "XYZ", 0, "3"),
		activity(capgains.Interest, "2023-05-01", "", 0, "4"),
		activity(capgains.Dividend, "2024-01-02", "ABC", 0, "5"),
	)
	got := collect(t, capgains.Dividends(ctx, l, date.StartOfYear(2023), date.StartOfYear(2024)))
	var gotIDs []int64
	for _, a := range got {
		gotIDs = append(gotIDs, a.ID)
	}
	if want := []int64{id[2], id[1]}; !equalIDs(gotIDs, want) {
		t.Fatalf("Dividends(2023) = %v, want %v", gotIDs, want)
	}
	if !got[0].Total.Equal(dec("3")) || got[0].AssetCode != "XYZ" || got[0].Kind != capgains.Dividend {
		t.Errorf("Dividends(2023)[0] = %+v, want the XYZ dividend of 3", got[0])
	}
	interest := collect(t, l.Income(ctx, capgains.Interest, date.StartOfYear(2023), date.StartOfYear(2024)))
	if len(interest) != 1 || interest[0].ID != id[3] {
		t.Errorf("Income(Interest) = %+v, want activity %d", interest, id[3])
	}
}

func testSaleLots(t *testing.T, l Ledger) {
	ctx := context.Background()
	id := add(t, l,
		activity(capgains.Purchase, "2022-06-01", "ABC", 10, "100"), // 0
		activity(capgains.Purchase, "2022-01-01", "ABC", 10, "90"),  // 1
		activity(capgains.Sale, "2023-05-01", "ABC", 12, "150"),     // 2
		activity(capgains.Sale, "2023-02-01", "ABC", 3, "40"),       // 3
		activity(capgains.Sale, "2022-12-01", "ABC", 2, "25"),       // 4
		activity(capgains.Sale, "2023-06-01", "ABC", 1, "15"),       // 5 never reconciled
	)
	links := []capgains.Link{
		{SaleID: id[4], PurchaseID: id[1], Quantity: capgains.Units(2)},
		{SaleID: id[2], PurchaseID: id[0], Quantity: capgains.Units(7)},
		{SaleID: id[3], PurchaseID: id[1], Quantity: capgains.Units(3)},
		{SaleID: id[2], PurchaseID: id[1], Quantity: capgains.Units(5)},
	}
	if err := l.InsertLinks(ctx, links); err != nil {
		t.Fatalf("InsertLinks() error = %v", err)
	}
	lots := collect(t, l.SaleLots(ctx, 2023))
	type pair struct{ sale, purchase int64 }
	want := []pair{{id[3], id[1]}, {id[2], id[1]}, {id[2], id[0]}}
	if len(lots) != len(want) {
		t.Fatalf("SaleLots(2023) = %d lots, want %d", len(lots), len(want))
	}
	for i, w := range want {
		got := pair{lots[i].Sale.ID, lots[i].Purchase.ID}
		if got != w {
			t.Errorf("SaleLots(2023)[%d] = %v, want %v", i, got, w)
		}
	}
	if !lots[2].Link.Quantity.Equal(capgains.Units(7)) || !lots[2].Purchase.Total.Equal(dec("100")) || !lots[2].Sale.Total.Equal(dec("150")) {
		t.Errorf("SaleLots(2023)[2] = %+v, want 7 units of the 100 purchase sold for 150", lots[2])
	}
	// units of the purchase taken by the links inserted before, whatever the sale year.
	for i, want := range []int64{2, 5, 0} {
		if !lots[i].Consumed.Equal(capgains.Units(want)) {
			t.Errorf("SaleLots(2023)[%d].Consumed = %v, want %v", i, lots[i].Consumed, capgains.Units(want))
		}
	}
}

func testRateOnOrBefore(t *testing.T, l Ledger) {
	ctx := context.Background()
	err := l.AddRates(ctx, []capgains.FxRate{
		{Date: date.MustParse("2023-01-03"), Rate: dec("1.1")},
		{Date: date.MustParse("2023-01-05"), Rate: dec("1.2")},
		{Date: date.MustParse("2023-01-05"), Rate: dec("1.3")},
	})
	if err != nil {
		t.Fatalf("AddRates() error = %v", err)
	}
	testCases := []struct {
		on     string
		want   string
		wantOK bool
	}{
		{"2023-01-02", "0", false},
		{"2023-01-03", "1.1", true},
		{"2023-01-04", "1.1", true},
		{"2023-01-05", "1.3", true},
		{"2024-01-01", "1.3", true},
	}
	for _, tc := range testCases {
		got, ok, err := l.RateOnOrBefore(ctx, date.MustParse(tc.on))
		if err != nil {
			t.Errorf("RateOnOrBefore(%s) error = %v", tc.on, err)
			continue
		}
		if ok != tc.wantOK || (ok && !got.Equal(dec(tc.want))) {
			t.Errorf("RateOnOrBefore(%s) = %v, %v want %v, %v", tc.on, got, ok, tc.want, tc.wantOK)
		}
	}
}

func testRejectsInvalidActivities(t *testing.T, l Ledger) {
	ctx := context.Background()
	negative := activity(capgains.Purchase, "2023-01-01", "ABC", 1, "10")
	negative.Quantity = capgains.Q(-1)
	invalid := []capgains.Activity{
		activity(capgains.Kind(42), "2023-01-01", "ABC", 1, "10"),
		negative,
		activity(capgains.Sale, "2023-01-01", "", 1, "10"),
	}
	for _, a := range invalid {
		if _, err := l.AddActivities(ctx, []capgains.Activity{a}); !errors.Is(err, capgains.ErrIntegrity) {
			t.Errorf("AddActivities(%+v) error = %v, want ErrIntegrity", a, err)
		}
	}
	if got := collect(t, l.PendingSales(ctx)); len(got) != 0 {
		t.Errorf("PendingSales() = %v, want nothing stored", got)
	}
}

func testEndToEnd(t *testing.T, l Ledger) {
	ctx := context.Background()
	add(t, l,
		activity(capgains.Purchase, "2023-01-01", "ABC", 10, "100"),
		activity(capgains.Sale, "2023-06-01", "ABC", 10, "150"),
	)
	if err := l.AddRates(ctx, []capgains.FxRate{{Date: date.MustParse("2023-01-01"), Rate: dec("1.25")}}); err != nil {
		t.Fatalf("AddRates() error = %v", err)
	}
	res, err := capgains.NewReconciler(l).ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("ReconcileAll() error = %v", err)
	}
	if len(res.Links) != 1 || !res.Links[0].Quantity.Equal(capgains.Units(10)) {
		t.Fatalf("ReconcileAll() links = %v, want a single link of 10 units", res.Links)
	}
	rep, err := capgains.NewReporter(l, "GBP", "EUR").Build(ctx, 2023)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !rep.CapitalGainsNative.Amount().Equal(dec("50")) || !rep.CapitalGainsConverted.Amount().Equal(dec("40")) {
		t.Errorf("capital gains = %v / %v, want 50 / 40", rep.CapitalGainsNative.Amount(), rep.CapitalGainsConverted.Amount())
	}
	again, err := capgains.NewReconciler(l).ReconcileAll(ctx)
	if err != nil || len(again.Links) != 0 {
		t.Errorf("second ReconcileAll() = %v, %v, want no link", again.Links, err)
	}
}
