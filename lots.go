package capgains

import "github.com/shopspring/decimal"

// lots is the ordered work list of purchases still holding units of one asset.
type lots []Pending

// allocate matches 'quantity' units of sale 'saleID' against the lots in
// order, oldest first.
//
// It returns the links to create and the quantity left unmatched when the
// lots are exhausted. The lots remaining quantities are updated in place, so
// the same work list can serve the next sale.
func (l lots) allocate(saleID int64, quantity Quantity) (links []Link, missing Quantity) {
	remaining := quantity
	for i := range l {
		if remaining.IsZero() {
			break
		}
		available := l[i].Remaining()
		if !available.IsPositive() {
			continue
		}
		take := remaining.Min(available)
		links = append(links, Link{SaleID: saleID, PurchaseID: l[i].ID, Quantity: take})
		l[i].Reconciled = l[i].Reconciled.Add(take)
		remaining = remaining.Sub(take)
	}
	return links, remaining
}

// allocatedCost returns the share of the purchase total taken by 'q' units
// of a purchase of 'purchased' units, of which 'consumed' units were taken
// before.
//
// The whole total is allocated, fees included, not just price × quantity.
// Each share is the difference of the cumulated costs, so the division
// remainder goes to the lot that finishes the purchase and the shares always
// add up to the total.
func allocatedCost(total decimal.Decimal, consumed, q, purchased Quantity) decimal.Decimal {
	return costOf(total, consumed.Add(q), purchased).Sub(costOf(total, consumed, purchased))
}

// costOf is the cost of the first 'q' units of a purchase.
func costOf(total decimal.Decimal, q, purchased Quantity) decimal.Decimal {
	switch {
	case q.IsZero():
		return decimal.Zero
	case q.Equal(purchased):
		return total
	}
	return total.Mul(decimal.NewFromInt(q.Scaled())).Div(decimal.NewFromInt(purchased.Scaled()))
}
