package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/capgains"
)

// quantities are always printed with their full precision.
const quantityPlaces = 4

// ReportMarkdown renders the yearly tax report.
func ReportMarkdown(rep *capgains.Report) string {
	r := &reportRenderer{Builder: &strings.Builder{}}

	r.Printf("# Tax Report %d\n\n", rep.Year)
	r.Printf("Amounts in %s, converted to %s.\n\n", rep.LedgerCurrency, rep.ReportCurrency)

	r.Printf("## Summary\n\n")
	r.Printf("| | %s | %s |\n", rep.LedgerCurrency, rep.ReportCurrency)
	r.Printf("|:---|---:|---:|\n")
	r.Printf("| Dividends | %s | %s |\n", rep.DividendsNative, rep.DividendsConverted)
	r.Printf("| Interest | %s | %s |\n", rep.InterestNative, rep.InterestConverted)
	r.Printf("| Capital Gains | %s | %s |\n", rep.CapitalGainsNative.SignedString(), rep.CapitalGainsConverted.SignedString())
	r.Printf("\n")

	r.income("Dividends", rep.Dividends)
	r.income("Interest", rep.Interest)
	r.sales(rep.Sales)
	return r.String()
}

// reportRenderer writes markdown sections into a buffer.
type reportRenderer struct {
	*strings.Builder
}

func (r *reportRenderer) Printf(format string, args ...any) {
	fmt.Fprintf(r, format, args...)
}

func (r *reportRenderer) income(title string, lines []capgains.IncomeLine) {
	ConditionalBlock(r, func(w io.Writer) bool {
		fmt.Fprintf(w, "## %s\n\n", title)
		fmt.Fprintf(w, "| Date | Asset | Amount | Rate | Converted |\n")
		fmt.Fprintf(w, "|:---|:---|---:|---:|---:|\n")
		for _, l := range lines {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n", l.Date, l.AssetCode, l.Native, l.Rate, l.Converted)
		}
		fmt.Fprintf(w, "\n")
		return len(lines) > 0
	})
}

func (r *reportRenderer) sales(sales []capgains.SaleDetail) {
	if len(sales) == 0 {
		return
	}
	r.Printf("## Capital Gains\n\n")
	for _, s := range sales {
		r.Printf("### Sale of %s %s on %s\n\n", s.Quantity.Decimal().StringFixed(quantityPlaces), s.AssetCode, s.Date)
		if s.Partial() {
			r.Printf("> Only %s units are reconciled, run the reconciliation first.\n\n", s.Reconciled.Decimal().StringFixed(quantityPlaces))
		}
		r.Printf("| Purchase | Quantity | Price | Cost |\n")
		r.Printf("|:---|---:|---:|---:|\n")
		for _, lot := range s.Lots {
			r.Printf("| %s | %s / %s | %s | %s |\n",
				lot.Date,
				lot.Quantity.Decimal().StringFixed(quantityPlaces),
				lot.PurchaseQuantity.Decimal().StringFixed(quantityPlaces),
				lot.Price,
				lot.AllocatedCost,
			)
		}
		r.Printf("| **Cost Basis** | | | **%s** |\n\n", s.CostBasis)

		r.Printf("- Proceeds: %s at %s\n", s.Total, s.Price)
		r.Printf("- Profit: %s\n", s.Profit.SignedString())
		r.Printf("- Converted: %s (rate %s)\n\n", s.ProfitConverted.SignedString(), s.Rate)
	}
}
