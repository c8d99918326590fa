// Package repository holds generic helpers for running SQL against either a
// pool or a transaction and scanning the results into typed values.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is the query surface shared by *sql.DB, *sql.Tx and *sql.Conn.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one row into a T.
type ScanFunc[T any] func(Scanner) (T, error)

// WithTx runs fn inside a transaction on db. The transaction commits when fn
// returns nil and rolls back otherwise, including when fn panics.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (result T, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if result, err = fn(tx); err != nil {
		return result, err
	}
	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// QueryOne scans the single row returned by query. A missing row surfaces as
// sql.ErrNoRows.
func QueryOne[T any](ctx context.Context, db DBTX, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(db.QueryRowContext(ctx, query, args...))
}

// QueryMany scans every row returned by query. No rows yields an empty,
// non-nil slice.
func QueryMany[T any](ctx context.Context, db DBTX, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Page is one window of a larger result set.
type Page[T any] struct {
	Items []T
	Total int
}

// QueryPage runs a COUNT statement and a windowed statement built from the
// same filters. Both run inside one read transaction so the total matches the
// rows it describes.
func QueryPage[T any](
	ctx context.Context,
	db *sql.DB,
	countSQL string, countArgs []any,
	pageSQL string, pageArgs []any,
	scan ScanFunc[T],
) (Page[T], error) {
	return WithTx(ctx, db, func(tx *sql.Tx) (Page[T], error) {
		var p Page[T]
		if err := tx.QueryRowContext(ctx, countSQL, countArgs...).Scan(&p.Total); err != nil {
			return p, fmt.Errorf("count: %w", err)
		}

		items, err := QueryMany(ctx, tx, pageSQL, pageArgs, scan)
		if err != nil {
			return p, err
		}
		p.Items = items
		return p, nil
	})
}

// ExecOne runs a statement that must touch exactly one row. Zero rows affected
// is reported as sql.ErrNoRows.
func ExecOne(ctx context.Context, db DBTX, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	switch {
	case err != nil:
		return err
	case n == 0:
		return sql.ErrNoRows
	case n > 1:
		return fmt.Errorf("expected 1 row affected, got %d", n)
	}
	return nil
}
