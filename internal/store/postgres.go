// Package store persists Monte Carlo run summaries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// ErrTableName is returned for table names that are not plain identifiers.
var ErrTableName = errors.New("invalid table name")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ProductValue is the estimate for one product of a run.
type ProductValue struct {
	Index  int
	Mean   float64
	StdErr float64
}

// Summary is what a pricing run stores: one row per product.
type Summary struct {
	RunAt   time.Time
	Product string
	Measure string
	Paths   int
	Seed    uint64
	Values  []ProductValue
}

// Postgres writes summaries into a single table.
type Postgres struct {
	db    *sql.DB
	table string
}

// Open connects to dsn with the lib/pq driver. The connection is checked
// lazily by the first statement.
func Open(dsn, table string) (*Postgres, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("store.Open: %q: %w", table, ErrTableName)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	return &Postgres{db: db, table: pq.QuoteIdentifier(table)}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func createTableSQL(quotedTable string) string {
	return `CREATE TABLE IF NOT EXISTS ` + quotedTable + ` (
	id            BIGSERIAL PRIMARY KEY,
	run_at        TIMESTAMPTZ NOT NULL,
	product       TEXT NOT NULL,
	measure       TEXT NOT NULL,
	paths         INTEGER NOT NULL,
	seed          NUMERIC(20, 0) NOT NULL,
	product_index INTEGER NOT NULL,
	mean          DOUBLE PRECISION NOT NULL,
	std_err       DOUBLE PRECISION NOT NULL
)`
}

func insertSQL(quotedTable string) string {
	return `INSERT INTO ` + quotedTable +
		` (run_at, product, measure, paths, seed, product_index, mean, std_err) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
}

// EnsureSchema creates the table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, createTableSQL(p.table)); err != nil {
		return fmt.Errorf("store: create table: %w", err)
	}
	return nil
}

// Save inserts every product value of s in one transaction.
func (p *Postgres) Save(ctx context.Context, s Summary) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSQL(p.table))
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	// seeds span the full uint64 range, which BIGINT cannot hold
	seed := strconv.FormatUint(s.Seed, 10)
	for _, v := range s.Values {
		if _, err = stmt.ExecContext(ctx, s.RunAt, s.Product, s.Measure, s.Paths, seed, v.Index, v.Mean, v.StdErr); err != nil {
			return fmt.Errorf("store: insert product %d: %w", v.Index, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
