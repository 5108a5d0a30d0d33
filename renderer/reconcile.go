package renderer

import (
	"strings"

	"github.com/etnz/capgains"
)

// ReconcileMarkdown renders the links created by a reconciliation pass.
func ReconcileMarkdown(res capgains.ReconcileResult, dryRun bool) string {
	r := &reportRenderer{Builder: &strings.Builder{}}
	if dryRun {
		r.Printf("# Reconciliation (dry run)\n\n")
	} else {
		r.Printf("# Reconciliation\n\n")
	}
	if len(res.Links) == 0 {
		r.Printf("Nothing to reconcile.\n")
		return r.String()
	}
	r.Printf("Batch `%s`: %d sale(s) reconciled with %d link(s).\n\n", res.Batch, res.Sales, len(res.Links))
	r.Printf("| Sale | Purchase | Quantity |\n")
	r.Printf("|---:|---:|---:|\n")
	for _, l := range res.Links {
		r.Printf("| %d | %d | %s |\n", l.SaleID, l.PurchaseID, l.Quantity.Decimal().StringFixed(quantityPlaces))
	}
	return r.String()
}
