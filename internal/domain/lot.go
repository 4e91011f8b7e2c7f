package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotKind separates fixed-income from variable-income acquisitions
type LotKind string

const (
	LotKindFixedIncome    LotKind = "FIXED_INCOME"
	LotKindVariableIncome LotKind = "VARIABLE_INCOME"
)

// LotSubtype refines a LotKind
type LotSubtype string

const (
	// Fixed income
	LotSubtypeCDB       LotSubtype = "CDB"
	LotSubtypeLCI       LotSubtype = "LCI"
	LotSubtypeLCA       LotSubtype = "LCA"
	LotSubtypeDebenture LotSubtype = "DEBENTURE"
	LotSubtypeTreasury  LotSubtype = "TREASURY"

	// Variable income
	LotSubtypeCommon              LotSubtype = "COMMON"
	LotSubtypePreferred           LotSubtype = "PREFERRED"
	LotSubtypePreferredA          LotSubtype = "PREFERRED_A"
	LotSubtypePreferredB          LotSubtype = "PREFERRED_B"
	LotSubtypePreferredC          LotSubtype = "PREFERRED_C"
	LotSubtypePreferredD          LotSubtype = "PREFERRED_D"
	LotSubtypeSubscriptionRight   LotSubtype = "SUBSCRIPTION_RIGHT"
	LotSubtypeSubscriptionReceipt LotSubtype = "SUBSCRIPTION_RECEIPT"
	LotSubtypeREIT                LotSubtype = "REIT"
	LotSubtypeETF                 LotSubtype = "ETF"
	LotSubtypeUnit                LotSubtype = "UNIT"

	LotSubtypeUnknown LotSubtype = "UNKNOWN"
)

// Lot represents one acquisition of an asset, the FIFO input for cost basis.
// Lots are never rewritten to reflect consumption.
type Lot struct {
	ID            uuid.UUID
	AssetID       uuid.UUID
	TransactionID uuid.UUID // Acquisition that created the lot
	PurchaseDate  time.Time
	UnitPrice     decimal.Decimal
	Quantity      decimal.Decimal
	Total         decimal.Decimal // UnitPrice * Quantity
	Kind          LotKind
	Subtype       LotSubtype
	Seq           int64 // Insertion order, breaks purchase date ties
}

// Validate ensures the lot adheres to domain rules
func (l *Lot) Validate() error {
	if l.AssetID == uuid.Nil {
		return errors.New("lot must reference an asset")
	}
	if l.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.New("lot quantity must be positive")
	}
	if l.UnitPrice.IsNegative() {
		return errors.New("lot unit price cannot be negative")
	}
	if l.Kind != LotKindFixedIncome && l.Kind != LotKindVariableIncome {
		return errors.New("lot kind must be FIXED_INCOME or VARIABLE_INCOME")
	}
	if !l.Total.Equal(l.UnitPrice.Mul(l.Quantity)) {
		return errors.New("lot total must equal unit price times quantity")
	}
	return nil
}
