package capgains

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/capgains/date"
)

// reconciledReport reconciles the ledger and builds the report of 'year'.
func reconciledReport(t *testing.T, ledger *MemoryStore, year int) *Report {
	t.Helper()
	ctx := context.Background()
	if _, err := NewReconciler(ledger, quiet()).ReconcileAll(ctx); err != nil {
		t.Fatalf("ReconcileAll() error = %v", err)
	}
	rep, err := NewReporter(ledger, "GBP", "EUR").Build(ctx, year)
	if err != nil {
		t.Fatalf("Build(%d) error = %v", year, err)
	}
	return rep
}

func TestReport_Scenario(t *testing.T) {
	ledger := newLedger(t,
		buy("2023-01-01", "ABC", 10, "100"),
		sell("2023-06-01", "ABC", 10, "150"),
	)
	addRates(t, ledger, "2023-01-01", "1.25")

	rep := reconciledReport(t, ledger, 2023)

	if l := links(t, ledger); len(l) != 1 || !l[0].Quantity.Equal(Units(10)) {
		t.Errorf("links = %v, want a single link of 10 units", l)
	}
	if !rep.CapitalGainsNative.Equal(GBP("50")) {
		t.Errorf("CapitalGainsNative = %v, want 50", rep.CapitalGainsNative.Amount())
	}
	if !rep.CapitalGainsConverted.Equal(EUR("40")) {
		t.Errorf("CapitalGainsConverted = %v, want 40", rep.CapitalGainsConverted.Amount())
	}
	if len(rep.Sales) != 1 {
		t.Fatalf("Sales = %d, want 1", len(rep.Sales))
	}
	s := rep.Sales[0]
	if !s.CostBasis.Equal(GBP("100")) || s.Partial() || len(s.Lots) != 1 {
		t.Errorf("sale = cost basis %v partial %v lots %d, want 100, false, 1", s.CostBasis.Amount(), s.Partial(), len(s.Lots))
	}
}

func TestReport_SplitPurchaseCostsExactlyItsTotal(t *testing.T) {
	ledger := newLedger(t,
		buy("2022-01-01", "ABC", 3, "100"),
		sell("2022-06-01", "ABC", 1, "40"),
		sell("2023-02-01", "ABC", 1, "40"),
		sell("2023-03-01", "ABC", 1, "40"),
	)
	addRates(t, ledger, "2022-01-01", "1")

	first := reconciledReport(t, ledger, 2022)
	rep, err := NewReporter(ledger, "GBP", "EUR").Build(context.Background(), 2023)
	if err != nil {
		t.Fatalf("Build(2023) error = %v", err)
	}

	cost := first.Sales[0].CostBasis
	for _, s := range rep.Sales {
		cost = cost.Add(s.CostBasis)
	}
	if !cost.Equal(GBP("100")) {
		t.Errorf("cost basis over both years = %v, want exactly 100", cost.Amount())
	}
	gains := first.CapitalGainsNative.Add(rep.CapitalGainsNative)
	if !gains.Equal(GBP("20")) {
		t.Errorf("capital gains over both years = %v, want exactly 20", gains.Amount())
	}
}

func TestReport_CostAllocation(t *testing.T) {
	ledger := newLedger(t,
		buy("2023-01-01", "ABC", 100, "1000"),
		sell("2023-03-01", "ABC", 50, "600"),
		sell("2023-04-01", "ABC", 50, "700"),
	)
	addRates(t, ledger, "2023-01-01", "1")

	rep := reconciledReport(t, ledger, 2023)

	if len(rep.Sales) != 2 {
		t.Fatalf("Sales = %d, want 2", len(rep.Sales))
	}
	for i, wantProfit := range []string{"100", "200"} {
		s := rep.Sales[i]
		if !s.CostBasis.Equal(GBP("500")) {
			t.Errorf("sale[%d].CostBasis = %v, want 500", i, s.CostBasis.Amount())
		}
		if !s.Profit.Equal(GBP(wantProfit)) {
			t.Errorf("sale[%d].Profit = %v, want %v", i, s.Profit.Amount(), wantProfit)
		}
	}
	if !rep.CapitalGainsNative.Equal(GBP("300")) {
		t.Errorf("CapitalGainsNative = %v, want 300", rep.CapitalGainsNative.Amount())
	}
}

func TestReport_LotsInFIFOOrder(t *testing.T) {
	ledger := newLedger(t,
		buy("2023-02-01", "ABC", 10, "120"),
		buy("2023-01-01", "ABC", 10, "100"),
		sell("2023-03-01", "ABC", 15, "200"),
	)
	addRates(t, ledger, "2023-01-01", "1")

	rep := reconciledReport(t, ledger, 2023)
	got := rep.Sales[0].Lots
	if len(got) != 2 || got[0].PurchaseID != 2 || got[1].PurchaseID != 1 {
		t.Fatalf("lots = %+v, want purchase 2 then purchase 1", got)
	}
	// 100 + 5/10 × 120
	if !rep.Sales[0].CostBasis.Equal(GBP("160")) {
		t.Errorf("CostBasis = %v, want 160", rep.Sales[0].CostBasis.Amount())
	}
}

func TestReport_DividendWindow(t *testing.T) {
	ledger := newLedger(t,
		income(Dividend, "2023-01-01", "ABC", "10"),
		income(Dividend, "2023-06-01", "ABC", "20"),
		income(Dividend, "2024-01-01", "XYZ", "30"),
		income(Dividend, "2024-01-02", "XYZ", "40"),
		income(Interest, "2023-07-01", "", "5"),
	)
	addRates(t, ledger, "2022-01-01", "2")

	testCases := []struct {
		year      int
		wantDates []string
		wantTotal string
	}{
		{2022, []string{"2023-01-01"}, "10"},
		{2023, []string{"2023-06-01", "2024-01-01"}, "50"},
		{2024, []string{"2024-01-02"}, "40"},
	}
	for _, tc := range testCases {
		rep, err := NewReporter(ledger, "GBP", "EUR").Build(context.Background(), tc.year)
		if err != nil {
			t.Fatalf("Build(%d) error = %v", tc.year, err)
		}
		var got []string
		for _, l := range rep.Dividends {
			got = append(got, l.Date.String())
		}
		if len(got) != len(tc.wantDates) {
			t.Errorf("Build(%d) dividends = %v, want %v", tc.year, got, tc.wantDates)
			continue
		}
		for i := range got {
			if got[i] != tc.wantDates[i] {
				t.Errorf("Build(%d) dividends = %v, want %v", tc.year, got, tc.wantDates)
				break
			}
		}
		if !rep.DividendsNative.Equal(GBP(tc.wantTotal)) {
			t.Errorf("Build(%d).DividendsNative = %v, want %v", tc.year, rep.DividendsNative.Amount(), tc.wantTotal)
		}
		if want := dec(tc.wantTotal).Div(dec("2")); !rep.DividendsConverted.Amount().Equal(want) {
			t.Errorf("Build(%d).DividendsConverted = %v, want %v", tc.year, rep.DividendsConverted.Amount(), want)
		}
	}
}

func TestReport_Interest(t *testing.T) {
	ledger := newLedger(t,
		income(Interest, "2023-07-01", "", "5"),
		income(Fee, "2023-07-01", "", "3"),
	)
	addRates(t, ledger, "2023-01-01", "0.5")

	rep, err := NewReporter(ledger, "GBP", "EUR").Build(context.Background(), 2023)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(rep.Interest) != 1 || !rep.InterestConverted.Equal(EUR("10")) {
		t.Errorf("Interest = %v converted %v, want one line converted to 10", rep.Interest, rep.InterestConverted.Amount())
	}
	if len(rep.Dividends) != 0 {
		t.Errorf("Dividends = %v, want none", rep.Dividends)
	}
}

func TestReport_NearestPriorRate(t *testing.T) {
	ledger := newLedger(t,
		buy("2023-01-01", "ABC", 10, "100"),
		sell("2023-06-04", "ABC", 10, "200"), // a Sunday
	)
	addRates(t, ledger,
		"2023-01-01", "1",
		"2023-06-02", "1.25",
		"2023-06-05", "2",
	)
	rep := reconciledReport(t, ledger, 2023)
	s := rep.Sales[0]
	if !s.Rate.Equal(dec("1.25")) || !s.ProfitConverted.Equal(EUR("80")) {
		t.Errorf("sale rate = %v converted %v, want 1.25 and 80", s.Rate, s.ProfitConverted.Amount())
	}
}

func TestReport_MissingRate(t *testing.T) {
	ledger := newLedger(t,
		buy("2023-01-01", "ABC", 10, "100"),
		sell("2023-02-01", "ABC", 10, "150"),
	)
	addRates(t, ledger, "2023-03-01", "1.1")
	ctx := context.Background()
	if _, err := NewReconciler(ledger, quiet()).ReconcileAll(ctx); err != nil {
		t.Fatalf("ReconcileAll() error = %v", err)
	}

	_, err := NewReporter(ledger, "GBP", "EUR").Build(ctx, 2023)
	if !errors.Is(err, ErrMissingRate) {
		t.Fatalf("Build() error = %v, want ErrMissingRate", err)
	}
}

func TestReport_YearAndReconciliationScope(t *testing.T) {
	ledger := newLedger(t,
		buy("2022-01-01", "ABC", 30, "300"),
		sell("2022-12-31", "ABC", 10, "110"),
		sell("2023-01-01", "ABC", 10, "120"),
	)
	addRates(t, ledger, "2022-01-01", "1")
	rep := reconciledReport(t, ledger, 2023)
	if len(rep.Sales) != 1 || rep.Sales[0].Date != date.MustParse("2023-01-01") {
		t.Fatalf("Sales = %+v, want only the 2023-01-01 sale", rep.Sales)
	}

	// a sale added after reconciliation is absent until reconciled.
	if _, err := ledger.AddActivities(context.Background(), []Activity{sell("2023-05-01", "ABC", 5, "70")}); err != nil {
		t.Fatal(err)
	}
	rep, err := NewReporter(ledger, "GBP", "EUR").Build(context.Background(), 2023)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(rep.Sales) != 1 {
		t.Errorf("Sales = %d, want the unreconciled sale to be absent", len(rep.Sales))
	}
	if !rep.CapitalGainsNative.Equal(GBP("20")) {
		t.Errorf("CapitalGainsNative = %v, want 20", rep.CapitalGainsNative.Amount())
	}
}

func TestReport_PartialSaleFlagged(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t,
		buy("2023-01-01", "ABC", 10, "100"),
		sell("2023-02-01", "ABC", 10, "150"),
	)
	addRates(t, ledger, "2023-01-01", "1")
	if err := ledger.InsertLinks(ctx, []Link{{SaleID: 2, PurchaseID: 1, Quantity: Units(4)}}); err != nil {
		t.Fatal(err)
	}
	rep, err := NewReporter(ledger, "GBP", "EUR").Build(ctx, 2023)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !rep.Sales[0].Partial() {
		t.Errorf("Partial() = false, want true for a sale reconciled for 4 of 10 units")
	}
}
