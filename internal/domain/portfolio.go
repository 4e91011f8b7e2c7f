package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio represents the per-owner aggregate holding the four ledger balances
// Invariant: balances equal the sum of Impact over all non-deleted transactions
type Portfolio struct {
	ID             uuid.UUID
	OwnerID        int64
	TotalBalance   decimal.Decimal
	AppliedBalance decimal.Decimal // Invested
	SaleProfit     decimal.Decimal // Realized on disposals
	IncomeProfit   decimal.Decimal // Dividends, interest and other income
	UpdatedAt      time.Time
}

// Validate ensures the portfolio adheres to domain rules
func (p *Portfolio) Validate() error {
	if p.OwnerID <= 0 {
		return errors.New("portfolio owner id must be positive")
	}
	return nil
}

// Balances is the four-balance vector of a portfolio, also used as a delta
type Balances struct {
	Total        decimal.Decimal
	Applied      decimal.Decimal
	SaleProfit   decimal.Decimal
	IncomeProfit decimal.Decimal
}

// Add returns the component-wise sum of b and o
func (b Balances) Add(o Balances) Balances {
	return Balances{
		Total:        b.Total.Add(o.Total),
		Applied:      b.Applied.Add(o.Applied),
		SaleProfit:   b.SaleProfit.Add(o.SaleProfit),
		IncomeProfit: b.IncomeProfit.Add(o.IncomeProfit),
	}
}

// Equal compares every component with exact decimal equality
func (b Balances) Equal(o Balances) bool {
	return b.Total.Equal(o.Total) &&
		b.Applied.Equal(o.Applied) &&
		b.SaleProfit.Equal(o.SaleProfit) &&
		b.IncomeProfit.Equal(o.IncomeProfit)
}

// IsZero reports whether every component is zero
func (b Balances) IsZero() bool {
	return b.Total.IsZero() && b.Applied.IsZero() && b.SaleProfit.IsZero() && b.IncomeProfit.IsZero()
}

// Balances returns the portfolio's current balances
func (p *Portfolio) Balances() Balances {
	return Balances{
		Total:        p.TotalBalance,
		Applied:      p.AppliedBalance,
		SaleProfit:   p.SaleProfit,
		IncomeProfit: p.IncomeProfit,
	}
}

// SetBalances overwrites the portfolio's balances
func (p *Portfolio) SetBalances(b Balances) {
	p.TotalBalance = b.Total
	p.AppliedBalance = b.Applied
	p.SaleProfit = b.SaleProfit
	p.IncomeProfit = b.IncomeProfit
}
