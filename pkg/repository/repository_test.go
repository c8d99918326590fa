package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/pestwatch/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

type item struct {
	id   int
	name string
}

func scanItem(s repository.Scanner) (item, error) {
	var it item
	err := s.Scan(&it.id, &it.name)
	return it, err
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestMapError(t *testing.T) {
	other := errors.New("some other error")
	fk := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"postgres unique violation", &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"postgres other code passes through", fk, fk},
		{"other passes through", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errDuplicate)
			if got != tt.want {
				t.Errorf("MapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMapErrorSQLiteDuplicate(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `INSERT INTO items (name) VALUES ($1)`, "a"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := db.ExecContext(ctx, `INSERT INTO items (name) VALUES ($1)`, "a")
	if err == nil {
		t.Fatal("second insert succeeded, want unique violation")
	}

	if got := repository.MapError(err, errNotFound, errDuplicate); got != errDuplicate {
		t.Errorf("MapError(sqlite unique) = %v, want %v", got, errDuplicate)
	}
}

func TestQueryHelpers(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	inserted, err := repository.WithTx(ctx, db, func(tx *sql.Tx) (item, error) {
		if err := repository.ExecOne(ctx, tx, `INSERT INTO items (name) VALUES ($1)`, "alpha"); err != nil {
			return item{}, err
		}
		return repository.QueryOne(ctx, tx, `SELECT id, name FROM items WHERE name = $1`, []any{"alpha"}, scanItem)
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if inserted.name != "alpha" {
		t.Errorf("inserted name = %q", inserted.name)
	}

	items, err := repository.QueryMany(ctx, db, `SELECT id, name FROM items ORDER BY id`, nil, scanItem)
	if err != nil {
		t.Fatalf("QueryMany: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("QueryMany returned %d items, want 1", len(items))
	}

	err = repository.ExecOne(ctx, db, `DELETE FROM items WHERE name = $1`, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ExecOne(no match) = %v, want sql.ErrNoRows", err)
	}

	_, err = repository.QueryOne(ctx, db, `SELECT id, name FROM items WHERE id = $1`, []any{999}, scanItem)
	if got := repository.MapError(err, errNotFound, errDuplicate); got != errNotFound {
		t.Errorf("QueryOne(missing) mapped = %v, want %v", got, errNotFound)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := repository.WithTx(ctx, db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ($1)`, "rolled"); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want %v", err, boom)
	}

	items, err := repository.QueryMany(ctx, db, `SELECT id, name FROM items`, nil, scanItem)
	if err != nil {
		t.Fatalf("QueryMany: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("rolled back insert is visible: %v", items)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("panic was swallowed")
			}
		}()
		repository.WithTx(ctx, db, func(tx *sql.Tx) (struct{}, error) {
			if _, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ($1)`, "panicked"); err != nil {
				t.Fatalf("insert: %v", err)
			}
			panic("boom")
		})
	}()

	items, err := repository.QueryMany(ctx, db, `SELECT id, name FROM items`, nil, scanItem)
	if err != nil {
		t.Fatalf("QueryMany: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("insert from panicking tx is visible: %v", items)
	}
}

func TestQueryPage(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	for _, name := range []string{"armyworm", "borer", "snail", "unknown", "weevil"} {
		if err := repository.ExecOne(ctx, db, `INSERT INTO items (name) VALUES ($1)`, name); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}

	tests := []struct {
		name      string
		limit     int
		offset    int
		wantTotal int
		wantNames []string
	}{
		{"first page", 2, 0, 5, []string{"armyworm", "borer"}},
		{"last partial page", 2, 4, 5, []string{"weevil"}},
		{"past the end", 2, 10, 5, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := repository.QueryPage(
				ctx, db,
				`SELECT COUNT(*) FROM items`, nil,
				`SELECT id, name FROM items ORDER BY name LIMIT $1 OFFSET $2`, []any{tt.limit, tt.offset},
				scanItem,
			)
			if err != nil {
				t.Fatalf("QueryPage: %v", err)
			}
			if p.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", p.Total, tt.wantTotal)
			}
			if len(p.Items) != len(tt.wantNames) {
				t.Fatalf("got %d items, want %d", len(p.Items), len(tt.wantNames))
			}
			for i, it := range p.Items {
				if it.name != tt.wantNames[i] {
					t.Errorf("item %d = %q, want %q", i, it.name, tt.wantNames[i])
				}
			}
		})
	}
}
