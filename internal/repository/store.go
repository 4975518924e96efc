package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
// Every repository method picks the transaction carried by ctx when one
// is active so that a workflow can compose several repositories inside
// one Store.WithTx scope.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Store owns the connection pool and hands out scoped transactions.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx runs fn inside a READ COMMITTED transaction.  The transaction
// is committed when fn returns nil and rolled back on any error or
// panic, so no partial write is ever visible.  Nested calls reuse the
// outer transaction.  Lock wait timeouts and deadlocks are reported
// wrapped in ErrLockConflict.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	committed = true
	return nil
}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// conn returns the active transaction or the pool.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return db
}

// CleanData deletes every row except users and refresh tokens, children
// first.  It is used by the operator tool to reset an environment.
func (s *Store) CleanData(ctx context.Context) error {
	tables := []string{"tickets", "ticket_types", "orders", "payments", "speakers", "events", "venues"}
	return s.WithTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, s.db)
		for _, t := range tables {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("delete %s: %w", t, err)
			}
		}
		return nil
	})
}
