package capgains

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/etnz/capgains/date"
	"github.com/shopspring/decimal"
)

// MemoryStore is a Store held in memory.
//
// Links are kept in an append only arena indexed by sale and by purchase, so
// that the reconciled quantity of any activity is found without scanning.
type MemoryStore struct {
	mu         sync.RWMutex
	activities []Activity // activity i has id i+1
	links      []Link     // link i has id i+1
	bySale     map[int64][]int
	byPurchase map[int64][]int
	rates      date.History[decimal.Decimal]
}

// NewMemoryStore creates an empty ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bySale:     make(map[int64][]int),
		byPurchase: make(map[int64][]int),
	}
}

var _ Store = (*MemoryStore)(nil)
var _ Writer = (*MemoryStore)(nil)

// activity returns the activity with this id, if any.
func (s *MemoryStore) activity(id int64) (Activity, bool) {
	if id < 1 || id > int64(len(s.activities)) {
		return Activity{}, false
	}
	return s.activities[id-1], true
}

// reconciled sums the quantity of the links referenced by 'index'.
func (s *MemoryStore) reconciled(index []int) Quantity {
	var q Quantity
	for _, i := range index {
		q = q.Add(s.links[i].Quantity)
	}
	return q
}

// byDate orders activities by ascending date then id.
func byDate(a, b Activity) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// pending returns a snapshot of the activities of 'kind' matching 'keep' that are not fully reconciled.
func (s *MemoryStore) pending(kind Kind, keep func(Activity) bool, index map[int64][]int) []Pending {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []Pending
	for _, a := range s.activities {
		if a.Kind != kind || !keep(a) {
			continue
		}
		p := Pending{Activity: a, Reconciled: s.reconciled(index[a.ID])}
		if p.Reconciled.LessThan(a.Quantity) {
			list = append(list, p)
		}
	}
	slices.SortFunc(list, func(a, b Pending) int { return byDate(a.Activity, b.Activity) })
	return list
}

// seq turns a snapshot into a sequence.
func seq[T any](list []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, v := range list {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (s *MemoryStore) PendingSales(ctx context.Context) iter.Seq2[Pending, error] {
	all := func(Activity) bool { return true }
	return seq(s.pending(Sale, all, s.bySale))
}

func (s *MemoryStore) UnreconciledPurchases(ctx context.Context, assetCode string) iter.Seq2[Pending, error] {
	same := func(a Activity) bool { return a.AssetCode == assetCode }
	return seq(s.pending(Purchase, same, s.byPurchase))
}

// InsertLinks checks every link against the ledger before appending any of them.
func (s *MemoryStore) InsertLinks(ctx context.Context, links []Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// quantities consumed by this batch on top of the stored links.
	consumed := make(map[int64]Quantity)
	for _, l := range links {
		if err := l.Validate(); err != nil {
			return err
		}
		sale, ok := s.activity(l.SaleID)
		if !ok || sale.Kind != Sale {
			return integrityf(l.SaleID, "reconciled sale is not a sale")
		}
		purchase, ok := s.activity(l.PurchaseID)
		if !ok || purchase.Kind != Purchase {
			return integrityf(l.PurchaseID, "reconciled purchase is not a purchase")
		}
		if sale.AssetCode != purchase.AssetCode {
			return integrityf(l.SaleID, "sale of %s reconciled against purchase %d of %s", sale.AssetCode, purchase.ID, purchase.AssetCode)
		}
		consumed[sale.ID] = consumed[sale.ID].Add(l.Quantity)
		consumed[purchase.ID] = consumed[purchase.ID].Add(l.Quantity)
	}
	for id, q := range consumed {
		a, _ := s.activity(id)
		index := s.bySale[id]
		if a.Kind == Purchase {
			index = s.byPurchase[id]
		}
		if total := s.reconciled(index).Add(q); total.GreaterThan(a.Quantity) {
			return integrityf(id, "%s reconciled for %s units, more than its %s units", a.Kind, total, a.Quantity)
		}
	}

	for _, l := range links {
		l.ID = int64(len(s.links) + 1)
		i := len(s.links)
		s.links = append(s.links, l)
		s.bySale[l.SaleID] = append(s.bySale[l.SaleID], i)
		s.byPurchase[l.PurchaseID] = append(s.byPurchase[l.PurchaseID], i)
	}
	return nil
}

func (s *MemoryStore) Income(ctx context.Context, kind Kind, after, through date.Date) iter.Seq2[Activity, error] {
	window := date.After(after, through)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []Activity
	for _, a := range s.activities {
		if a.Kind == kind && window.Contains(a.Date) {
			list = append(list, a)
		}
	}
	slices.SortFunc(list, byDate)
	return seq(list)
}

func (s *MemoryStore) SaleLots(ctx context.Context, year int) iter.Seq2[SaleLot, error] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sales []Activity
	for _, a := range s.activities {
		if a.Kind == Sale && a.Date.Year() == year {
			sales = append(sales, a)
		}
	}
	slices.SortFunc(sales, byDate)

	var list []SaleLot
	for _, sale := range sales {
		start := len(list)
		for _, i := range s.bySale[sale.ID] {
			l := s.links[i]
			purchase, _ := s.activity(l.PurchaseID)
			var consumed Quantity
			for _, j := range s.byPurchase[l.PurchaseID] {
				if j < i {
					consumed = consumed.Add(s.links[j].Quantity)
				}
			}
			list = append(list, SaleLot{Sale: sale, Link: l, Purchase: purchase, Consumed: consumed})
		}
		slices.SortStableFunc(list[start:], func(a, b SaleLot) int { return byDate(a.Purchase, b.Purchase) })
	}
	return seq(list)
}

func (s *MemoryStore) RateOnOrBefore(ctx context.Context, on date.Date) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates.ValueAsOf(on)
	return rate, ok, nil
}

func (s *MemoryStore) AddActivities(ctx context.Context, activities []Activity) ([]int64, error) {
	for i, a := range activities {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("activity #%d: %w", i+1, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(activities))
	for _, a := range activities {
		a.ID = int64(len(s.activities) + 1)
		s.activities = append(s.activities, a)
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (s *MemoryStore) AddRates(ctx context.Context, rates []FxRate) error {
	for _, r := range rates {
		if !r.Rate.IsPositive() {
			return integrityf(0, "fx rate on %s is not positive: %s", r.Date, r.Rate)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rates {
		s.rates.Append(r.Date, r.Rate)
	}
	return nil
}

// Links returns all the links in insertion order.
func (s *MemoryStore) Links(ctx context.Context) iter.Seq2[Link, error] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return seq(slices.Clone(s.links))
}
