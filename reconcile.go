package capgains

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Reconciler matches sales against purchases on a FIFO basis.
type Reconciler struct {
	store  Store
	logger *slog.Logger
	dryRun bool
}

// ReconcileOption configures a Reconciler.
type ReconcileOption func(*Reconciler)

// WithLogger sets the logger used to trace each allocation.
func WithLogger(l *slog.Logger) ReconcileOption {
	return func(r *Reconciler) { r.logger = l }
}

// DryRun computes the links without inserting them.
func DryRun() ReconcileOption {
	return func(r *Reconciler) { r.dryRun = true }
}

// NewReconciler returns a Reconciler over 's'.
func NewReconciler(s Store, opts ...ReconcileOption) *Reconciler {
	r := &Reconciler{store: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReconcileResult summarizes a reconciliation pass.
type ReconcileResult struct {
	Batch string // identifies the links created by this pass
	Sales int    // number of sales fully reconciled by this pass
	Links []Link // links created, in creation order
}

// ReconcileAll reconciles every pending sale, oldest first.
//
// Each sale is committed as a unit once it is fully matched. The pass stops at
// the first sale that cannot be fully matched with an *InsufficientInventoryError:
// sales committed before it stay reconciled, nothing is committed for it. Running
// it again without new activities creates no link.
func (r *Reconciler) ReconcileAll(ctx context.Context) (ReconcileResult, error) {
	res := ReconcileResult{Batch: uuid.NewString()}

	// Pending sales are read upfront: the store cannot be written while a sequence is open.
	sales, err := collect(r.store.PendingSales(ctx))
	if err != nil {
		return res, fmt.Errorf("cannot list pending sales: %w", err)
	}
	r.logger.Debug("pending sales", "count", len(sales), "batch", res.Batch)

	// purchases work list per asset, for this pass only.
	queues := make(map[string]lots)
	for _, sale := range sales {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		links, err := r.reconcile(ctx, sale, res.Batch, queues)
		if err != nil {
			return res, err
		}
		res.Sales++
		res.Links = append(res.Links, links...)
	}
	r.logger.Info("reconciliation done", "batch", res.Batch, "sales", res.Sales, "links", len(res.Links))
	return res, nil
}

// reconcile fully matches a single sale and commits its links.
func (r *Reconciler) reconcile(ctx context.Context, sale Pending, batch string, queues map[string]lots) ([]Link, error) {
	if err := sale.Validate(); err != nil {
		return nil, err
	}
	if sale.Kind != Sale {
		return nil, integrityf(sale.ID, "pending sale is a %s", sale.Kind)
	}
	remaining := sale.Remaining()
	if !remaining.IsPositive() {
		return nil, integrityf(sale.ID, "sale reconciled for %s units, more than its %s units", sale.Reconciled, sale.Quantity)
	}

	purchases, ok := queues[sale.AssetCode]
	if !ok {
		list, err := collect(r.store.UnreconciledPurchases(ctx, sale.AssetCode))
		if err != nil {
			return nil, fmt.Errorf("cannot list purchases of %s for sale %d: %w", sale.AssetCode, sale.ID, err)
		}
		for _, p := range list {
			if err := p.Validate(); err != nil {
				return nil, err
			}
		}
		purchases = lots(list)
		queues[sale.AssetCode] = purchases
	}

	links, missing := purchases.allocate(sale.ID, remaining)
	if missing.IsPositive() {
		return nil, &InsufficientInventoryError{
			SaleID:    sale.ID,
			Date:      sale.Date,
			AssetCode: sale.AssetCode,
			Quantity:  remaining,
			Missing:   missing,
		}
	}

	byID := make(map[int64]Pending, len(purchases))
	for _, p := range purchases {
		byID[p.ID] = p
	}
	for i := range links {
		links[i].Batch = batch
		p := byID[links[i].PurchaseID]
		r.logger.Info("reconciling",
			"quantity", links[i].Quantity,
			"sale", sale.ID, "sale_quantity", sale.Quantity, "sale_date", sale.Date,
			"purchase", p.ID, "purchase_quantity", p.Quantity, "purchase_date", p.Date,
		)
	}

	if r.dryRun {
		return links, nil
	}
	if err := r.store.InsertLinks(ctx, links); err != nil {
		return nil, fmt.Errorf("cannot commit reconciliation of sale %d: %w", sale.ID, err)
	}
	return links, nil
}
