package postgres

import (
	"context"
	"fmt"

	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// Store implements domain.Store on top of PostgreSQL transactions
type Store struct {
	db *DB
}

// NewStore creates a new PostgreSQL backed store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn inside a database transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(ctx, repositories(dbTx)); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Repositories returns repositories bound to the connection pool
func (s *Store) Repositories() domain.Repositories {
	return repositories(s.db)
}

func repositories(q querier) domain.Repositories {
	return domain.Repositories{
		Events:       &eventRepository{q: q},
		Transactions: &transactionRepository{q: q},
		Lots:         &lotRepository{q: q},
		Assets:       &assetRepository{q: q},
		Portfolios:   &portfolioRepository{q: q},
		Institutions: &institutionRepository{q: q},
	}
}
