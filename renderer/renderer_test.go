package renderer

import (
	"strings"
	"testing"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

func gbp(s string) capgains.Money { return capgains.M(decimal.RequireFromString(s), "GBP") }
func usd(s string) capgains.Money { return capgains.M(decimal.RequireFromString(s), "USD") }

func sampleReport() *capgains.Report {
	return &capgains.Report{
		Year:           2023,
		LedgerCurrency: "GBP",
		ReportCurrency: "USD",
		Dividends: []capgains.IncomeLine{{
			ActivityID: 4,
			Date:       date.New(2023, 6, 1),
			AssetCode:  "ABC",
			Native:     gbp("12.5"),
			Rate:       decimal.RequireFromString("0.8"),
			Converted:  usd("15.625"),
		}},
		Sales: []capgains.SaleDetail{{
			SaleID:    3,
			Date:      date.New(2023, 3, 1),
			AssetCode: "ABC",
			Quantity:  capgains.Units(15),
			Price:     decimal.NewFromInt(20),
			Total:     gbp("300"),
			Lots: []capgains.LotDetail{
				{PurchaseID: 1, Date: date.New(2023, 1, 1), Quantity: capgains.Units(10), PurchaseQuantity: capgains.Units(10), Price: decimal.NewFromInt(10), PurchaseTotal: gbp("100"), AllocatedCost: gbp("100")},
				{PurchaseID: 2, Date: date.New(2023, 1, 2), Quantity: capgains.Units(5), PurchaseQuantity: capgains.Units(10), Price: decimal.NewFromInt(12), PurchaseTotal: gbp("120"), AllocatedCost: gbp("60")},
			},
			Reconciled:      capgains.Units(15),
			CostBasis:       gbp("160"),
			Profit:          gbp("140"),
			Rate:            decimal.RequireFromString("0.8"),
			ProfitConverted: usd("175"),
		}},
		DividendsNative:       gbp("12.5"),
		DividendsConverted:    usd("15.625"),
		InterestNative:        gbp("0"),
		InterestConverted:     usd("0"),
		CapitalGainsNative:    gbp("140"),
		CapitalGainsConverted: usd("175"),
	}
}

func TestReportMarkdown(t *testing.T) {
	got := ReportMarkdown(sampleReport())

	for _, want := range []string{
		"# Tax Report 2023",
		"| Dividends | £12.50 | $15.63 |",
		"| Capital Gains | +£140.00 | +$175.00 |",
		"| 2023-06-01 | ABC | £12.50 | 0.8 | $15.63 |",
		"### Sale of 15.0000 ABC on 2023-03-01",
		"| 2023-01-02 | 5.0000 / 10.0000 | 12 | £60.00 |",
		"| **Cost Basis** | | | **£160.00** |",
		"- Profit: +£140.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ReportMarkdown() does not contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "## Interest") {
		t.Errorf("ReportMarkdown() renders an empty interest section:\n%s", got)
	}
	if strings.Contains(got, "Only") {
		t.Errorf("ReportMarkdown() flags a fully reconciled sale:\n%s", got)
	}
}

func TestReportMarkdownPartialSale(t *testing.T) {
	rep := sampleReport()
	rep.Sales[0].Reconciled = capgains.Units(10)
	got := ReportMarkdown(rep)
	if want := "Only 10.0000 units are reconciled"; !strings.Contains(got, want) {
		t.Errorf("ReportMarkdown() does not contain %q, got:\n%s", want, got)
	}
}

func TestReconcileMarkdown(t *testing.T) {
	res := capgains.ReconcileResult{
		Batch: "b1",
		Sales: 1,
		Links: []capgains.Link{
			{SaleID: 3, PurchaseID: 1, Quantity: capgains.Units(10)},
			{SaleID: 3, PurchaseID: 2, Quantity: capgains.Q(50000)},
		},
	}
	got := ReconcileMarkdown(res, true)
	for _, want := range []string{
		"# Reconciliation (dry run)",
		"1 sale(s) reconciled with 2 link(s)",
		"| 3 | 2 | 5.0000 |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ReconcileMarkdown() does not contain %q, got:\n%s", want, got)
		}
	}

	if got := ReconcileMarkdown(capgains.ReconcileResult{}, false); !strings.Contains(got, "Nothing to reconcile.") {
		t.Errorf("ReconcileMarkdown(empty) = %q", got)
	}
}

func TestHTML(t *testing.T) {
	got, err := HTML("Tax Report 2023", ReportMarkdown(sampleReport()))
	if err != nil {
		t.Fatalf("HTML() unexpected error: %v", err)
	}
	for _, want := range []string{"<title>Tax Report 2023</title>", "<table>", "<h1>Tax Report 2023</h1>"} {
		if !strings.Contains(got, want) {
			t.Errorf("HTML() does not contain %q", want)
		}
	}
}
