package store

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestOpen_RejectsTableNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "runs; DROP TABLE x", "1runs", "mc-runs", strings.Repeat("a", 64)} {
		if _, err := Open("postgres://localhost/db", name); !errors.Is(err, ErrTableName) {
			t.Fatalf("Open(%q): got %v, want ErrTableName", name, err)
		}
	}
}

func TestOpen_QuotesTable(t *testing.T) {
	t.Parallel()

	// sql.Open does not connect, so no server is needed
	pg, err := Open("postgres://localhost/db?sslmode=disable", "mc_runs")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer pg.Close()
	if pg.table != `"mc_runs"` {
		t.Fatalf("table = %s, want quoted identifier", pg.table)
	}

	create := createTableSQL(pg.table)
	if !strings.HasPrefix(create, `CREATE TABLE IF NOT EXISTS "mc_runs" (`) {
		t.Fatalf("create statement: %s", create)
	}
	insert := insertSQL(pg.table)
	if !strings.Contains(insert, `INSERT INTO "mc_runs"`) || !strings.Contains(insert, "$8") || strings.Contains(insert, "$9") {
		t.Fatalf("insert statement: %s", insert)
	}
}

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Postgres{db: db, table: pq.QuoteIdentifier("mc_runs")}, mock
}

func TestSave_OneRowPerProduct(t *testing.T) {
	t.Parallel()

	pg, mock := newMockStore(t)
	s := Summary{
		RunAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Product: "caplets",
		Measure: "terminal",
		Paths:   1000,
		Seed:    math.MaxUint64,
		Values:  []ProductValue{{Index: 0, Mean: 0.01, StdErr: 0.001}, {Index: 1, Mean: 0.02, StdErr: 0.002}},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertSQL(pg.table)))
	for _, v := range s.Values {
		// the seed goes out as its exact decimal text
		prep.ExpectExec().
			WithArgs(s.RunAt, s.Product, s.Measure, s.Paths, "18446744073709551615", v.Index, v.Mean, v.StdErr).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := pg.Save(context.Background(), s); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSave_RollsBackOnInsertError(t *testing.T) {
	t.Parallel()

	pg, mock := newMockStore(t)
	s := Summary{Product: "forwards", Measure: "money_market", Paths: 10, Seed: 42,
		Values: []ProductValue{{Index: 0}, {Index: 1}}}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertSQL(pg.table)))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := pg.Save(context.Background(), s)
	if err == nil || !strings.Contains(err.Error(), "insert product 1") {
		t.Fatalf("got %v, want insert error for product 1", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	pg, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(createTableSQL(pg.table))).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := pg.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if !strings.Contains(createTableSQL(pg.table), "seed          NUMERIC(20, 0)") {
		t.Fatalf("seed column cannot hold every uint64")
	}
}
