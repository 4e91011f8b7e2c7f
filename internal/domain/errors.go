package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOversell            = errors.New("disposal exceeds available lot quantity")
	ErrPortfolioNotFound   = errors.New("portfolio not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInstitutionNotFound = errors.New("institution not found")
	ErrConflict            = errors.New("entity already exists")
	ErrCategoryUnavailable = errors.New("category classification unavailable")
	ErrInvalidEvent        = errors.New("invalid event")
)

// OversellError reports a disposal that the recorded lots cannot cover
type OversellError struct {
	AssetID   uuid.UUID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("oversell on asset %s: requested %s, available %s", e.AssetID, e.Requested, e.Available)
}

func (e *OversellError) Unwrap() error {
	return ErrOversell
}
