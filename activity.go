package capgains

import (
	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// Activity is a single, immutable, ledger entry.
type Activity struct {
	ID         int64 // assigned by the store
	Date       date.Date
	Kind       Kind
	Investment string
	AssetCode  string
	Pot        string
	Account    string
	Quantity   Quantity // zero for non trade activities
	Price      decimal.Decimal
	Total      decimal.Decimal
}

// IsTrade reports whether the activity moves units of an asset.
func (a Activity) IsTrade() bool { return a.Kind == Purchase || a.Kind == Sale }

// Validate checks the invariants every activity must hold, it returns an
// *IntegrityError on the first violation found.
func (a Activity) Validate() error {
	if !a.Kind.Valid() {
		return integrityf(a.ID, "unknown activity kind %d", int(a.Kind))
	}
	if a.Date.IsZero() {
		return integrityf(a.ID, "%s has no date", a.Kind)
	}
	if a.Quantity.IsNegative() {
		return integrityf(a.ID, "%s has a negative quantity %s", a.Kind, a.Quantity)
	}
	if a.IsTrade() {
		if a.AssetCode == "" {
			return integrityf(a.ID, "%s on %s has no asset code", a.Kind, a.Date)
		}
		if !a.Quantity.IsPositive() {
			return integrityf(a.ID, "%s of %s on %s has no quantity", a.Kind, a.AssetCode, a.Date)
		}
	}
	return nil
}

// MarshalJSON writes the activity with a stable field order.
func (a Activity) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", a.ID)
	w.Append("date", a.Date)
	w.Append("kind", a.Kind)
	w.Optional("investment", a.Investment)
	w.Optional("assetcode", a.AssetCode)
	w.Optional("pot", a.Pot)
	w.Optional("account", a.Account)
	w.Append("quantity", a.Quantity)
	w.Append("price", a.Price)
	w.Append("total", a.Total)
	return w.MarshalJSON()
}

// Pending is an activity along with the quantity already reconciled against it.
type Pending struct {
	Activity
	Reconciled Quantity
}

// Remaining returns the quantity not yet reconciled.
func (p Pending) Remaining() Quantity { return p.Quantity.Sub(p.Reconciled) }

// Link records that Quantity units of a sale are matched against a purchase.
// Links are append only.
type Link struct {
	ID         int64 // assigned by the store
	SaleID     int64
	PurchaseID int64
	Quantity   Quantity
	Batch      string // reconciliation pass that created the link, may be empty
}

// Validate checks that the link quantity is strictly positive.
func (l Link) Validate() error {
	if !l.Quantity.IsPositive() {
		return integrityf(l.SaleID, "reconciliation against purchase %d has a non positive quantity %s", l.PurchaseID, l.Quantity)
	}
	return nil
}

// MarshalJSON writes the link with a stable field order.
func (l Link) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", l.ID)
	w.Append("sale", l.SaleID)
	w.Append("purchase", l.PurchaseID)
	w.Append("quantity", l.Quantity)
	w.Optional("batch", l.Batch)
	return w.MarshalJSON()
}

// FxRate is the number of ledger currency units for one unit of report currency on a day.
type FxRate struct {
	ID   int64
	Date date.Date
	Rate decimal.Decimal
}

// SaleLot is one lot of a sale: the link and the purchase it consumes.
type SaleLot struct {
	Sale     Activity
	Link     Link
	Purchase Activity
	Consumed Quantity // units of the purchase taken by the links created before this one
}
