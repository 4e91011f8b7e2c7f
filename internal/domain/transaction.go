package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType is the canonical classification of a raw movement description
type MovementType string

const (
	MovementCredit        MovementType = "CREDIT"
	MovementDebit         MovementType = "DEBIT"
	MovementTransfer      MovementType = "TRANSFER"
	MovementSubscription  MovementType = "SUBSCRIPTION"
	MovementUpdate        MovementType = "UPDATE"
	MovementBonusInAssets MovementType = "BONUS_IN_ASSETS"
	MovementAmortization  MovementType = "AMORTIZATION"
	MovementUnclassified  MovementType = "UNCLASSIFIED"
)

// TransactionType is the canonical nature of a ledger entry
type TransactionType string

const (
	TransactionTypeTransfer       TransactionType = "TRANSFER"
	TransactionTypeBuy            TransactionType = "BUY"
	TransactionTypeSell           TransactionType = "SELL"
	TransactionTypeProfitIncome   TransactionType = "PROFIT_INCOME"
	TransactionTypeProfitDividend TransactionType = "PROFIT_DIVIDEND"
	TransactionTypeProfitInterest TransactionType = "PROFIT_INTEREST"
	TransactionTypeProfitOther    TransactionType = "PROFIT_OTHER"
	TransactionTypeTax            TransactionType = "TAX"
	TransactionTypeOther          TransactionType = "OTHER"
)

// IsProfit reports whether the type is one of the PROFIT_* income kinds
func (t TransactionType) IsProfit() bool {
	switch t {
	case TransactionTypeProfitIncome, TransactionTypeProfitDividend,
		TransactionTypeProfitInterest, TransactionTypeProfitOther:
		return true
	}
	return false
}

// IsTrade reports whether the type comes from a purchase/sale movement.
// BUY and SELL follow the broker export labels (ENTRY is labelled SELL,
// EXIT is labelled BUY); the custody direction decides the accounting side.
func (t TransactionType) IsTrade() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// Transaction represents a canonical ledger entry attached to a portfolio
// Immutable after creation except for TaxDocumentID and soft deletion
type Transaction struct {
	ID              uuid.UUID
	PortfolioID     uuid.UUID
	AssetID         *uuid.UUID
	InstitutionID   *uuid.UUID
	EventID         *uuid.UUID
	Date            time.Time
	Direction       Direction
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TotalAmount     *decimal.Decimal // nil when the event carried no price or quantity
	AverageCost     *decimal.Decimal // FIFO unit cost, disposals only
	MovementType    MovementType
	TransactionType TransactionType
	TaxDocumentID   *uuid.UUID
	CreatedAt       time.Time
	DeletedAt       *time.Time
}

// IsAcquisition reports whether the transaction brings units of an asset into custody
func (t *Transaction) IsAcquisition() bool {
	return t.Direction == DirectionEntry && t.TransactionType.IsTrade()
}

// IsDisposal reports whether the transaction takes units of an asset out of custody
func (t *Transaction) IsDisposal() bool {
	return t.Direction == DirectionExit && t.TransactionType.IsTrade()
}

// IsDeleted reports whether the transaction was removed from the ledger
func (t *Transaction) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if t.PortfolioID == uuid.Nil {
		return errors.New("transaction must reference a portfolio")
	}
	if !t.Direction.Valid() {
		return errors.New("transaction direction must be ENTRY or EXIT")
	}
	if t.Quantity.IsNegative() {
		return errors.New("transaction quantity cannot be negative")
	}
	if t.UnitPrice.IsNegative() {
		return errors.New("transaction unit price cannot be negative")
	}
	if t.AverageCost != nil && !t.IsDisposal() {
		return errors.New("average cost is only valid on disposals")
	}
	if t.MovementType == "" || t.TransactionType == "" {
		return errors.New("transaction must be classified")
	}
	return nil
}
