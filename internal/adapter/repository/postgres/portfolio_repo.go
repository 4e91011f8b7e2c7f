package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// portfolioRepository implements domain.PortfolioRepository
type portfolioRepository struct {
	q querier
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *DB) domain.PortfolioRepository {
	return &portfolioRepository{q: db}
}

// GetByOwner returns the owner's portfolio.
// Inside a database transaction the row is locked until commit.
func (r *portfolioRepository) GetByOwner(ctx context.Context, ownerID int64) (*domain.Portfolio, error) {
	query := `
		SELECT id, owner_id, total_balance, applied_balance, sale_profit, income_profit, updated_at
		FROM portfolios
		WHERE owner_id = $1
	`
	if _, inTx := r.q.(*sql.Tx); inTx {
		query += ` FOR UPDATE`
	}

	var p domain.Portfolio
	var total, applied, saleProfit, incomeProfit string

	err := r.q.QueryRowContext(ctx, query, ownerID).Scan(
		&p.ID,
		&p.OwnerID,
		&total,
		&applied,
		&saleProfit,
		&incomeProfit,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPortfolioNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio by owner: %w", err)
	}

	if p.TotalBalance, err = parseDecimal("total_balance", total); err != nil {
		return nil, err
	}
	if p.AppliedBalance, err = parseDecimal("applied_balance", applied); err != nil {
		return nil, err
	}
	if p.SaleProfit, err = parseDecimal("sale_profit", saleProfit); err != nil {
		return nil, err
	}
	if p.IncomeProfit, err = parseDecimal("income_profit", incomeProfit); err != nil {
		return nil, err
	}

	return &p, nil
}

// Create inserts a portfolio; one per owner
func (r *portfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	if err := p.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO portfolios (id, owner_id, total_balance, applied_balance, sale_profit, income_profit, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		p.ID,
		p.OwnerID,
		p.TotalBalance.String(),
		p.AppliedBalance.String(),
		p.SaleProfit.String(),
		p.IncomeProfit.String(),
		p.UpdatedAt,
	)
	if err != nil {
		return mapInsertError("portfolio", err)
	}
	return conflictIfUnchanged("portfolio", result)
}

// UpdateBalances persists the four balances
func (r *portfolioRepository) UpdateBalances(ctx context.Context, p *domain.Portfolio) error {
	query := `
		UPDATE portfolios
		SET total_balance = $2, applied_balance = $3, sale_profit = $4, income_profit = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		p.ID,
		p.TotalBalance.String(),
		p.AppliedBalance.String(),
		p.SaleProfit.String(),
		p.IncomeProfit.String(),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio balances: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPortfolioNotFound
	}
	return nil
}
