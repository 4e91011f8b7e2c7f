package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// Impact computes the balance delta of a single transaction:
//   - no total amount, or a TRANSFER movement: zero
//   - ENTRY with a PROFIT_* type: income profit += total
//   - other ENTRY: applied += total
//   - EXIT: sale profit += total - averageCost*quantity
//
// Total balance moves by the total amount in every non-zero case.
func Impact(tx *domain.Transaction) domain.Balances {
	zero := zeroBalances()
	if tx.TotalAmount == nil || tx.MovementType == domain.MovementTransfer {
		return zero
	}

	amount := *tx.TotalAmount
	delta := zero
	delta.Total = amount

	switch tx.Direction {
	case domain.DirectionEntry:
		if tx.TransactionType.IsProfit() {
			delta.IncomeProfit = amount
		} else {
			delta.Applied = amount
		}
	case domain.DirectionExit:
		avg := decimal.Zero
		if tx.AverageCost != nil {
			avg = *tx.AverageCost
		}
		delta.SaleProfit = amount.Sub(avg.Mul(tx.Quantity))
	}

	return delta
}

// Fold sums the impact of every non-deleted transaction starting from zero
func Fold(txs []*domain.Transaction) domain.Balances {
	balances := zeroBalances()
	for _, tx := range txs {
		if tx.IsDeleted() {
			continue
		}
		balances = balances.Add(Impact(tx))
	}
	return balances
}

func zeroBalances() domain.Balances {
	return domain.Balances{
		Total:        decimal.Zero,
		Applied:      decimal.Zero,
		SaleProfit:   decimal.Zero,
		IncomeProfit: decimal.Zero,
	}
}

// Ledger owns the four portfolio balances
// Callers must hold the owner's write lock; the read-modify-write is not atomic
type Ledger struct {
	TransactionRepo domain.TransactionRepository
	LotRepo         domain.LotRepository
	PortfolioRepo   domain.PortfolioRepository
	now             func() time.Time
}

// NewLedger creates a new Ledger instance
func NewLedger(transactionRepo domain.TransactionRepository, lotRepo domain.LotRepository, portfolioRepo domain.PortfolioRepository) *Ledger {
	return &Ledger{
		TransactionRepo: transactionRepo,
		LotRepo:         lotRepo,
		PortfolioRepo:   portfolioRepo,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// FromRepositories binds a Ledger to a unit of work's repositories
func FromRepositories(repos domain.Repositories) *Ledger {
	return NewLedger(repos.Transactions, repos.Lots, repos.Portfolios)
}

// ApplyTransaction adds the transaction's impact to the portfolio and persists the balances
func (l *Ledger) ApplyTransaction(ctx context.Context, portfolio *domain.Portfolio, tx *domain.Transaction) error {
	if tx.PortfolioID != portfolio.ID {
		return fmt.Errorf("transaction %s does not belong to portfolio %s", tx.ID, portfolio.ID)
	}

	portfolio.SetBalances(portfolio.Balances().Add(Impact(tx)))
	portfolio.UpdatedAt = l.now()

	if err := l.PortfolioRepo.UpdateBalances(ctx, portfolio); err != nil {
		return fmt.Errorf("failed to update portfolio balances: %w", err)
	}
	return nil
}

// RecalculateAll rebuilds every balance from zero over the portfolio's transaction history
func (l *Ledger) RecalculateAll(ctx context.Context, portfolio *domain.Portfolio) error {
	txs, err := l.TransactionRepo.ListByPortfolio(ctx, portfolio.ID)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	portfolio.SetBalances(Fold(txs))
	portfolio.UpdatedAt = l.now()

	if err := l.PortfolioRepo.UpdateBalances(ctx, portfolio); err != nil {
		return fmt.Errorf("failed to update portfolio balances: %w", err)
	}
	return nil
}

// RemoveTransaction soft-deletes a transaction, drops the lot it created and
// rebuilds the balances with a full recompute
func (l *Ledger) RemoveTransaction(ctx context.Context, portfolio *domain.Portfolio, txID uuid.UUID) error {
	tx, err := l.TransactionRepo.GetByID(ctx, txID)
	if err != nil {
		return err
	}
	if tx.PortfolioID != portfolio.ID {
		return domain.ErrTransactionNotFound
	}
	if tx.IsDeleted() {
		return nil
	}

	if err := l.TransactionRepo.MarkDeleted(ctx, txID, l.now()); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tx.IsAcquisition() {
		if err := l.LotRepo.DeleteByTransaction(ctx, txID); err != nil {
			return fmt.Errorf("failed to delete lot: %w", err)
		}
	}

	return l.RecalculateAll(ctx, portfolio)
}
