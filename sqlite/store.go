// Package sqlite stores a capgains ledger in a SQLite database file.
//
// The store uses a single connection: there is one writer at a time, and a
// sequence returned by the store must be fully consumed (or abandoned) before
// the next call.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store is a capgains.Store backed by SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ capgains.Store = (*Store)(nil)
var _ capgains.Writer = (*Store)(nil)

// Open opens (or creates) the ledger database at 'dsn', use ":memory:" for a
// throw away ledger.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger %q: %w", dsn, err)
	}
	// single writer, and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialize ledger %q: %w", dsn, err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

const activityColumns = "id, date, description, investment, assetcode, pot, account, quantity, price, total"

// columnsOf prefixes the activity columns with a table alias.
func columnsOf(alias string) string {
	cols := strings.Split(activityColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// activityRow is an activity as stored in the database.
type activityRow struct {
	id                                  int64
	on                                  date.Date
	kind                                string
	investment, assetCode, pot, account sql.NullString
	quantity                            int64
	price, total                        string
}

func (r *activityRow) dest() []any {
	return []any{&r.id, &r.on, &r.kind, &r.investment, &r.assetCode, &r.pot, &r.account, &r.quantity, &r.price, &r.total}
}

// activity converts the row, every value is checked so that a corrupt row is never used.
func (r *activityRow) activity() (capgains.Activity, error) {
	kind, err := capgains.ParseKind(r.kind)
	if err != nil {
		return capgains.Activity{}, fmt.Errorf("activity %d: %w", r.id, err)
	}
	price, err := decimal.NewFromString(r.price)
	if err != nil {
		return capgains.Activity{}, &capgains.IntegrityError{ActivityID: r.id, Reason: fmt.Sprintf("price %q is not a decimal", r.price)}
	}
	total, err := decimal.NewFromString(r.total)
	if err != nil {
		return capgains.Activity{}, &capgains.IntegrityError{ActivityID: r.id, Reason: fmt.Sprintf("total %q is not a decimal", r.total)}
	}
	a := capgains.Activity{
		ID:         r.id,
		Date:       r.on,
		Kind:       kind,
		Investment: r.investment.String,
		AssetCode:  r.assetCode.String,
		Pot:        r.pot.String,
		Account:    r.account.String,
		Quantity:   capgains.Q(r.quantity),
		Price:      price,
		Total:      total,
	}
	if err := a.Validate(); err != nil {
		return capgains.Activity{}, err
	}
	return a, nil
}

// query returns a sequence over the rows of a query, each row converted by 'scan'.
func query[T any](ctx context.Context, db *sql.DB, scan func(*sql.Rows) (T, error), q string, args ...any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := db.QueryContext(ctx, q, args...)
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}

func scanActivity(rows *sql.Rows) (capgains.Activity, error) {
	var r activityRow
	if err := rows.Scan(r.dest()...); err != nil {
		return capgains.Activity{}, err
	}
	return r.activity()
}

func scanPending(rows *sql.Rows) (capgains.Pending, error) {
	var r activityRow
	var reconciled int64
	if err := rows.Scan(append(r.dest(), &reconciled)...); err != nil {
		return capgains.Pending{}, err
	}
	a, err := r.activity()
	if err != nil {
		return capgains.Pending{}, err
	}
	return capgains.Pending{Activity: a, Reconciled: capgains.Q(reconciled)}, nil
}

// pendingQuery selects the activities of a kind not fully reconciled, 'side' is the reconciliation column referencing them.
func pendingQuery(side, filter string) string {
	return `
		select ` + columnsOf("a") + `, coalesce(sum(r.quantity), 0) as reconciled
		from activities as a
		left outer join reconciliation as r on a.id = r.` + side + `
		where a.description = ? ` + filter + `
		group by a.id
		having reconciled < a.quantity
		order by a.date asc, a.id asc`
}

func (s *Store) PendingSales(ctx context.Context) iter.Seq2[capgains.Pending, error] {
	return query(ctx, s.db, scanPending, pendingQuery("sale_id", ""), capgains.Sale.String())
}

func (s *Store) UnreconciledPurchases(ctx context.Context, assetCode string) iter.Seq2[capgains.Pending, error] {
	return query(ctx, s.db, scanPending, pendingQuery("purchase_id", "and a.assetcode = ?"), capgains.Purchase.String(), assetCode)
}

// InsertLinks inserts the links in a single transaction, each one is checked
// against the ledger and the links inserted before it.
func (s *Store) InsertLinks(ctx context.Context, links []capgains.Link) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, l := range links {
		if err := l.Validate(); err != nil {
			return err
		}
		sale, err := reconciledSide(ctx, tx, l.SaleID, capgains.Sale, "sale_id")
		if err != nil {
			return err
		}
		purchase, err := reconciledSide(ctx, tx, l.PurchaseID, capgains.Purchase, "purchase_id")
		if err != nil {
			return err
		}
		if sale.assetCode != purchase.assetCode {
			return &capgains.IntegrityError{ActivityID: l.SaleID, Reason: fmt.Sprintf("sale of %s reconciled against purchase %d of %s", sale.assetCode, l.PurchaseID, purchase.assetCode)}
		}
		for _, side := range []side{sale, purchase} {
			if total := side.reconciled.Add(l.Quantity); total.GreaterThan(side.quantity) {
				return &capgains.IntegrityError{ActivityID: side.id, Reason: fmt.Sprintf("reconciled for %s units, more than its %s units", total, side.quantity)}
			}
		}
		batch := sql.NullString{String: l.Batch, Valid: l.Batch != ""}
		if _, err := tx.ExecContext(ctx,
			"insert into reconciliation(sale_id, purchase_id, quantity, batch) values (?, ?, ?, ?)",
			l.SaleID, l.PurchaseID, l.Quantity.Scaled(), batch); err != nil {
			return fmt.Errorf("cannot insert reconciliation of sale %d: %w", l.SaleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cannot commit reconciliation: %w", err)
	}
	return nil
}

// side is an activity on one side of a link.
type side struct {
	id         int64
	assetCode  string
	quantity   capgains.Quantity
	reconciled capgains.Quantity
}

// reconciledSide reads activity 'id' expected to be of 'kind' and its reconciled quantity.
func reconciledSide(ctx context.Context, tx *sql.Tx, id int64, kind capgains.Kind, column string) (side, error) {
	var description string
	var assetCode sql.NullString
	var quantity, reconciled int64
	err := tx.QueryRowContext(ctx, `
		select a.description, a.assetcode, a.quantity,
			(select coalesce(sum(r.quantity), 0) from reconciliation as r where r.`+column+` = a.id)
		from activities as a where a.id = ?`, id).Scan(&description, &assetCode, &quantity, &reconciled)
	if errors.Is(err, sql.ErrNoRows) {
		return side{}, &capgains.IntegrityError{ActivityID: id, Reason: fmt.Sprintf("reconciled %s does not exist", strings.ToLower(kind.String()))}
	}
	if err != nil {
		return side{}, fmt.Errorf("cannot read activity %d: %w", id, err)
	}
	if description != kind.String() {
		return side{}, &capgains.IntegrityError{ActivityID: id, Reason: fmt.Sprintf("reconciled as a %s but is a %s", kind, description)}
	}
	return side{id: id, assetCode: assetCode.String, quantity: capgains.Q(quantity), reconciled: capgains.Q(reconciled)}, nil
}

func (s *Store) Income(ctx context.Context, kind capgains.Kind, after, through date.Date) iter.Seq2[capgains.Activity, error] {
	q := `select ` + activityColumns + ` from activities
		where description = ? and date > ? and date <= ?
		order by date asc, id asc`
	return query(ctx, s.db, scanActivity, q, kind.String(), after, through)
}

func scanSaleLot(rows *sql.Rows) (capgains.SaleLot, error) {
	var sale, purchase activityRow
	var linkID, quantity, consumed int64
	var batch sql.NullString
	dest := append(sale.dest(), &linkID, &quantity, &batch, &consumed)
	dest = append(dest, purchase.dest()...)
	if err := rows.Scan(dest...); err != nil {
		return capgains.SaleLot{}, err
	}
	lot := capgains.SaleLot{
		Link:     capgains.Link{ID: linkID, SaleID: sale.id, PurchaseID: purchase.id, Quantity: capgains.Q(quantity), Batch: batch.String},
		Consumed: capgains.Q(consumed),
	}
	var err error
	if lot.Sale, err = sale.activity(); err != nil {
		return lot, err
	}
	if lot.Purchase, err = purchase.activity(); err != nil {
		return lot, err
	}
	return lot, nil
}

func (s *Store) SaleLots(ctx context.Context, year int) iter.Seq2[capgains.SaleLot, error] {
	q := `select ` + columnsOf("s") + `, r.id, r.quantity, r.batch,
		(select coalesce(sum(o.quantity), 0) from reconciliation as o where o.purchase_id = r.purchase_id and o.id < r.id),
		` + columnsOf("p") + `
		from activities as s
		inner join reconciliation as r on s.id = r.sale_id
		inner join activities as p on r.purchase_id = p.id
		where s.description = ? and strftime('%Y', s.date) = ?
		order by s.date asc, s.id asc, p.date asc, p.id asc, r.id asc`
	return query(ctx, s.db, scanSaleLot, q, capgains.Sale.String(), fmt.Sprintf("%04d", year))
}

// RateOnOrBefore breaks ties between rates of the same day with the latest inserted row.
func (s *Store) RateOnOrBefore(ctx context.Context, on date.Date) (decimal.Decimal, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		"select rate from fx where date <= ? order by date desc, rowid desc limit 1", on).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("cannot query fx rate on %s: %w", on, err)
	}
	rate, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false, &capgains.IntegrityError{Reason: fmt.Sprintf("fx rate %q on or before %s is not a decimal", text, on)}
	}
	return rate, true, nil
}

func (s *Store) AddActivities(ctx context.Context, activities []capgains.Activity) (ids []int64, err error) {
	for i, a := range activities {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("activity #%d: %w", i+1, err)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		"insert into activities(date, description, investment, assetcode, pot, account, quantity, price, total) values (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("cannot prepare insert: %w", err)
	}
	defer stmt.Close()

	ids = make([]int64, 0, len(activities))
	for _, a := range activities {
		res, err := stmt.ExecContext(ctx, a.Date, a.Kind.String(), a.Investment, a.AssetCode, a.Pot, a.Account,
			a.Quantity.Scaled(), a.Price.String(), a.Total.String())
		if err != nil {
			return nil, fmt.Errorf("cannot insert %s on %s: %w", a.Kind, a.Date, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("cannot commit activities: %w", err)
	}
	return ids, nil
}

func (s *Store) AddRates(ctx context.Context, rates []capgains.FxRate) (err error) {
	for _, r := range rates {
		if !r.Rate.IsPositive() {
			return &capgains.IntegrityError{Reason: fmt.Sprintf("fx rate on %s is not positive: %s", r.Date, r.Rate)}
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for _, r := range rates {
		if _, err := tx.ExecContext(ctx, "insert into fx(date, rate) values (?, ?)", r.Date, r.Rate.String()); err != nil {
			return fmt.Errorf("cannot insert fx rate on %s: %w", r.Date, err)
		}
	}
	return tx.Commit()
}

// Links returns every reconciliation link in insertion order.
func (s *Store) Links(ctx context.Context) iter.Seq2[capgains.Link, error] {
	scan := func(rows *sql.Rows) (capgains.Link, error) {
		var l capgains.Link
		var quantity int64
		var batch sql.NullString
		if err := rows.Scan(&l.ID, &l.SaleID, &l.PurchaseID, &quantity, &batch); err != nil {
			return l, err
		}
		l.Quantity, l.Batch = capgains.Q(quantity), batch.String
		return l, nil
	}
	return query(ctx, s.db, scan, "select id, sale_id, purchase_id, quantity, batch from reconciliation order by id asc")
}
