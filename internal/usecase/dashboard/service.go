package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/simaogato/portfolio-ledger/internal/usecase/costbasis"
)

// Holding is the open position of one asset
type Holding struct {
	AssetID     uuid.UUID
	Name        string
	Kind        domain.LotKind
	Quantity    decimal.Decimal // Units acquired minus units disposed
	Cost        decimal.Decimal // FIFO cost of the units still held
	AverageCost decimal.Decimal // Cost / Quantity, zero when nothing is held
}

// Summary is the read model of a portfolio
type Summary struct {
	PortfolioID uuid.UUID
	OwnerID     int64
	Balances    domain.Balances
	Holdings    []Holding
	UpdatedAt   time.Time
}

// DashboardService handles portfolio read operations
type DashboardService struct {
	PortfolioRepo   domain.PortfolioRepository
	AssetRepo       domain.AssetRepository
	TransactionRepo domain.TransactionRepository
	LotRepo         domain.LotRepository
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(
	portfolioRepo domain.PortfolioRepository,
	assetRepo domain.AssetRepository,
	transactionRepo domain.TransactionRepository,
	lotRepo domain.LotRepository,
) *DashboardService {
	return &DashboardService{
		PortfolioRepo:   portfolioRepo,
		AssetRepo:       assetRepo,
		TransactionRepo: transactionRepo,
		LotRepo:         lotRepo,
	}
}

// GetSummary returns the owner's balances and open holdings
// Logic:
//   - Balances: as stored on the portfolio (kept equal to the transaction fold)
//   - Holdings: per asset, lots minus the quantity of non-deleted disposals, FIFO
//   - Assets with nothing left are omitted
func (s *DashboardService) GetSummary(ctx context.Context, ownerID int64) (*Summary, error) {
	portfolio, err := s.PortfolioRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner %d: %w", ownerID, err)
	}

	assets, err := s.AssetRepo.ListByPortfolio(ctx, portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	holdings := make([]Holding, 0, len(assets))
	for _, a := range assets {
		lots, err := s.LotRepo.ListByAsset(ctx, a.ID, a.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list lots of %s: %w", a.Name, err)
		}
		if len(lots) == 0 {
			continue
		}

		txs, err := s.TransactionRepo.ListByAsset(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list transactions of %s: %w", a.Name, err)
		}

		qty, cost := costbasis.OpenPosition(lots, costbasis.DisposedQuantity(txs))
		if !qty.IsPositive() {
			continue
		}

		holdings = append(holdings, Holding{
			AssetID:     a.ID,
			Name:        a.Name,
			Kind:        a.Kind,
			Quantity:    qty,
			Cost:        cost,
			AverageCost: cost.DivRound(qty, costbasis.Precision),
		})
	}

	return &Summary{
		PortfolioID: portfolio.ID,
		OwnerID:     portfolio.OwnerID,
		Balances:    portfolio.Balances(),
		Holdings:    holdings,
		UpdatedAt:   portfolio.UpdatedAt,
	}, nil
}
