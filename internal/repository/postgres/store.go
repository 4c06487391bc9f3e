package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courierhq/courier/internal/repository"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code runs against the pool or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func bundle(q Querier) repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepo(q),
		Conversations: NewConversationRepo(q),
		Messages:      NewMessageRepo(q),
		History:       NewMessageHistoryRepo(q),
		Notifications: NewNotificationRepo(q),
	}
}

// Repositories returns a pool-backed bundle for single-statement operations.
func (s *Store) Repositories() repository.Repositories {
	return bundle(s.pool)
}

// WithinTx runs fn inside one transaction. A non-nil error from fn, a failed
// commit, or a cancelled context all leave the store untouched.
func (s *Store) WithinTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			_ = rbErr // commit already finished the transaction
		}
	}()

	if err := fn(bundle(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
