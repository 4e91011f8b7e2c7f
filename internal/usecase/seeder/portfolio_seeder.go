package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// PortfolioSeeder provisions an empty portfolio for each configured owner
type PortfolioSeeder struct {
	repo domain.PortfolioRepository
}

// NewPortfolioSeeder creates a new PortfolioSeeder instance
func NewPortfolioSeeder(repo domain.PortfolioRepository) *PortfolioSeeder {
	return &PortfolioSeeder{
		repo: repo,
	}
}

// Seed ensures every owner has a portfolio. Existing portfolios are left as they are.
// Returns the number of portfolios created.
func (s *PortfolioSeeder) Seed(ctx context.Context, owners []int64) (int, error) {
	created := 0
	for _, ownerID := range owners {
		_, err := s.repo.GetByOwner(ctx, ownerID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrPortfolioNotFound) {
			return created, fmt.Errorf("failed to look up portfolio of owner %d: %w", ownerID, err)
		}

		portfolio := &domain.Portfolio{
			ID:             uuid.New(),
			OwnerID:        ownerID,
			TotalBalance:   decimal.Zero,
			AppliedBalance: decimal.Zero,
			SaleProfit:     decimal.Zero,
			IncomeProfit:   decimal.Zero,
			UpdatedAt:      time.Now().UTC(),
		}

		// Validate before creating
		if err := portfolio.Validate(); err != nil {
			return created, err
		}

		if err := s.repo.Create(ctx, portfolio); err != nil {
			// Created concurrently by another instance
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return created, fmt.Errorf("failed to create portfolio of owner %d: %w", ownerID, err)
		}
		created++
	}

	return created, nil
}
