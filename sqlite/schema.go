package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is compatible with ledgers created by earlier versions of the
// importers: tables are only created when missing.
const schema = `
create table if not exists activities (
	id integer primary key asc,
	date text not null,
	description text check(description in ('Purchase', 'Sale', 'Fee', 'Dividend', 'Interest')) not null,
	investment text,
	assetcode text,
	pot text,
	account text,
	quantity integer not null,
	price text not null,
	total text not null
);

create table if not exists reconciliation (
	id integer primary key asc,
	purchase_id integer not null,
	sale_id integer not null,
	quantity integer not null,
	batch text,
	foreign key(purchase_id) references activities(id),
	foreign key(sale_id) references activities(id)
);

create table if not exists fx (
	date text not null,
	rate text not null
);

create index if not exists idx_activities_description_date on activities(description, date);
create index if not exists idx_reconciliation_sale on reconciliation(sale_id);
create index if not exists idx_reconciliation_purchase on reconciliation(purchase_id);
create index if not exists idx_fx_date on fx(date);
`

// migrate creates the schema and upgrades older ledgers.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("cannot create schema: %w", err)
	}

	columns, err := s.columns(ctx, "reconciliation")
	if err != nil {
		return err
	}
	if !columns["batch"] {
		s.logger.Info("migrating reconciliation table", "column", "batch")
		if _, err := s.db.ExecContext(ctx, "alter table reconciliation add column batch text"); err != nil {
			return fmt.Errorf("cannot add column batch to reconciliation: %w", err)
		}
	}
	return nil
}

// columns returns the set of column names of 'table'.
func (s *Store) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("pragma table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("cannot query schema of %s: %w", table, err)
	}
	defer rows.Close()

	exists := make(map[string]bool)
	for rows.Next() {
		var cid, notnull, pk int
		var name, dataType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &dataType, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("cannot scan schema of %s: %w", table, err)
		}
		exists[name] = true
	}
	return exists, rows.Err()
}
