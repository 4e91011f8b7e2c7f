package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetCategory is the answer of the external category classification service
// for ambiguous "11" tickers
type AssetCategory string

const (
	AssetCategoryREIT    AssetCategory = "REIT"
	AssetCategoryETF     AssetCategory = "ETF"
	AssetCategoryUnit    AssetCategory = "UNIT"
	AssetCategoryUnknown AssetCategory = "UNKNOWN"
)

// Asset represents a holding key inside one portfolio
// Name is unique per portfolio
type Asset struct {
	ID          uuid.UUID
	PortfolioID uuid.UUID
	Name        string
	Kind        LotKind
	CreatedAt   time.Time
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("asset name cannot be empty")
	}
	if a.PortfolioID == uuid.Nil {
		return errors.New("asset must reference a portfolio")
	}
	return nil
}

// Institution represents a broker or custodian
type Institution struct {
	ID   uuid.UUID
	Name string
}

// Validate ensures the institution adheres to domain rules
func (i *Institution) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("institution name cannot be empty")
	}
	return nil
}
