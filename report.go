package capgains

import (
	"context"
	"fmt"

	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// Report is the yearly tax statement of a ledger.
type Report struct {
	Year           int
	LedgerCurrency string
	ReportCurrency string

	Dividends []IncomeLine
	Interest  []IncomeLine
	Sales     []SaleDetail

	DividendsNative       Money
	DividendsConverted    Money
	InterestNative        Money
	InterestConverted     Money
	CapitalGainsNative    Money
	CapitalGainsConverted Money
}

// IncomeLine is a dividend or an interest payment and its conversion.
type IncomeLine struct {
	ActivityID int64
	Date       date.Date
	AssetCode  string
	Native     Money
	Rate       decimal.Decimal
	Converted  Money
}

// SaleDetail is the capital gain computation of a single sale.
type SaleDetail struct {
	SaleID    int64
	Date      date.Date
	AssetCode string
	Quantity  Quantity
	Price     decimal.Decimal
	Total     Money

	Lots       []LotDetail
	Reconciled Quantity // sum of the lots quantities
	CostBasis  Money

	Profit          Money
	Rate            decimal.Decimal
	ProfitConverted Money
}

// Partial reports whether the sale is only partly reconciled.
func (s SaleDetail) Partial() bool { return !s.Reconciled.Equal(s.Quantity) }

// LotDetail is the part of a purchase consumed by a sale.
type LotDetail struct {
	PurchaseID       int64
	Date             date.Date
	Quantity         Quantity // reconciled quantity
	PurchaseQuantity Quantity
	Price            decimal.Decimal
	PurchaseTotal    Money
	AllocatedCost    Money
}

// Reporter builds tax reports out of a reconciled ledger.
type Reporter struct {
	store          Store
	ledgerCurrency string
	reportCurrency string
}

// NewReporter returns a reporter for a ledger in 'ledgerCurrency', converting
// amounts into 'reportCurrency'.
func NewReporter(s Store, ledgerCurrency, reportCurrency string) *Reporter {
	return &Reporter{store: s, ledgerCurrency: ledgerCurrency, reportCurrency: reportCurrency}
}

// Build computes the report for 'year'.
//
// Dividends and interest are the payments dated strictly after January 1st of
// 'year' and up to January 1st of the next year included. Capital gains are
// computed for the sales dated in the calendar year 'year', sales without any
// reconciliation are ignored. Reconciliation is expected to have run already.
func (r *Reporter) Build(ctx context.Context, year int) (*Report, error) {
	fx := NewFXResolver(r.store, r.reportCurrency)
	rep := &Report{
		Year:                  year,
		LedgerCurrency:        r.ledgerCurrency,
		ReportCurrency:        r.reportCurrency,
		DividendsNative:       r.native(decimal.Zero),
		DividendsConverted:    M(decimal.Zero, r.reportCurrency),
		InterestNative:        r.native(decimal.Zero),
		InterestConverted:     M(decimal.Zero, r.reportCurrency),
		CapitalGainsNative:    r.native(decimal.Zero),
		CapitalGainsConverted: M(decimal.Zero, r.reportCurrency),
	}

	after, through := date.StartOfYear(year), date.StartOfYear(year+1)
	var err error
	rep.Dividends, rep.DividendsNative, rep.DividendsConverted, err = r.income(ctx, fx, Dividend, after, through)
	if err != nil {
		return nil, fmt.Errorf("cannot compute dividends of %d: %w", year, err)
	}
	rep.Interest, rep.InterestNative, rep.InterestConverted, err = r.income(ctx, fx, Interest, after, through)
	if err != nil {
		return nil, fmt.Errorf("cannot compute interest of %d: %w", year, err)
	}
	if err := r.capitalGains(ctx, fx, rep); err != nil {
		return nil, fmt.Errorf("cannot compute capital gains of %d: %w", year, err)
	}
	return rep, nil
}

func (r *Reporter) native(v decimal.Decimal) Money { return M(v, r.ledgerCurrency) }

// income lists and converts the activities of 'kind' in the (after, through] window.
func (r *Reporter) income(ctx context.Context, fx *FXResolver, kind Kind, after, through date.Date) (lines []IncomeLine, native, converted Money, err error) {
	native, converted = r.native(decimal.Zero), M(decimal.Zero, fx.Currency())
	activities, err := collect(r.store.Income(ctx, kind, after, through))
	if err != nil {
		return nil, native, converted, err
	}
	for _, a := range activities {
		if err := a.Validate(); err != nil {
			return nil, native, converted, err
		}
		amount := r.native(a.Total)
		conv, rate, err := fx.Convert(ctx, amount, a.Date)
		if err != nil {
			return nil, native, converted, fmt.Errorf("%s %d of %s: %w", kind, a.ID, a.AssetCode, err)
		}
		lines = append(lines, IncomeLine{
			ActivityID: a.ID,
			Date:       a.Date,
			AssetCode:  a.AssetCode,
			Native:     amount,
			Rate:       rate,
			Converted:  conv,
		})
		native = native.Add(amount)
		converted = converted.Add(conv)
	}
	return lines, native, converted, nil
}

// capitalGains groups the sale lots by sale and allocates the purchases cost to each.
func (r *Reporter) capitalGains(ctx context.Context, fx *FXResolver, rep *Report) error {
	saleLots, err := collect(r.store.SaleLots(ctx, rep.Year))
	if err != nil {
		return err
	}
	var current *SaleDetail
	for _, lot := range saleLots {
		if current == nil || current.SaleID != lot.Sale.ID {
			if current != nil {
				if err := r.closeSale(ctx, fx, rep, current); err != nil {
					return err
				}
			}
			current = &SaleDetail{
				SaleID:    lot.Sale.ID,
				Date:      lot.Sale.Date,
				AssetCode: lot.Sale.AssetCode,
				Quantity:  lot.Sale.Quantity,
				Price:     lot.Sale.Price,
				Total:     r.native(lot.Sale.Total),
				CostBasis: r.native(decimal.Zero),
			}
		}
		detail, err := r.lot(lot)
		if err != nil {
			return err
		}
		current.Lots = append(current.Lots, detail)
		current.Reconciled = current.Reconciled.Add(detail.Quantity)
		current.CostBasis = current.CostBasis.Add(detail.AllocatedCost)
	}
	if current != nil {
		return r.closeSale(ctx, fx, rep, current)
	}
	return nil
}

// lot computes the cost allocated to a single lot.
func (r *Reporter) lot(lot SaleLot) (LotDetail, error) {
	if err := lot.Link.Validate(); err != nil {
		return LotDetail{}, err
	}
	if lot.Purchase.Kind != Purchase {
		return LotDetail{}, integrityf(lot.Purchase.ID, "sale %d reconciled against a %s", lot.Sale.ID, lot.Purchase.Kind)
	}
	if !lot.Purchase.Quantity.IsPositive() {
		return LotDetail{}, integrityf(lot.Purchase.ID, "purchase of %s has no quantity", lot.Purchase.AssetCode)
	}
	if lot.Consumed.IsNegative() || lot.Consumed.Add(lot.Link.Quantity).GreaterThan(lot.Purchase.Quantity) {
		return LotDetail{}, integrityf(lot.Purchase.ID, "sale %d reconciled for %s units of a %s units purchase already reconciled for %s units", lot.Sale.ID, lot.Link.Quantity, lot.Purchase.Quantity, lot.Consumed)
	}
	return LotDetail{
		PurchaseID:       lot.Purchase.ID,
		Date:             lot.Purchase.Date,
		Quantity:         lot.Link.Quantity,
		PurchaseQuantity: lot.Purchase.Quantity,
		Price:            lot.Purchase.Price,
		PurchaseTotal:    r.native(lot.Purchase.Total),
		AllocatedCost:    r.native(allocatedCost(lot.Purchase.Total, lot.Consumed, lot.Link.Quantity, lot.Purchase.Quantity)),
	}, nil
}

// closeSale computes the profit of a sale once all its lots are known and adds it to the report.
func (r *Reporter) closeSale(ctx context.Context, fx *FXResolver, rep *Report, s *SaleDetail) error {
	if s.Reconciled.GreaterThan(s.Quantity) {
		return integrityf(s.SaleID, "sale reconciled for %s units, more than its %s units", s.Reconciled, s.Quantity)
	}
	s.Profit = s.Total.Sub(s.CostBasis)
	conv, rate, err := fx.Convert(ctx, s.Profit, s.Date)
	if err != nil {
		return fmt.Errorf("sale %d of %s: %w", s.SaleID, s.AssetCode, err)
	}
	s.Rate, s.ProfitConverted = rate, conv
	rep.Sales = append(rep.Sales, *s)
	rep.CapitalGainsNative = rep.CapitalGainsNative.Add(s.Profit)
	rep.CapitalGainsConverted = rep.CapitalGainsConverted.Add(conv)
	return nil
}
