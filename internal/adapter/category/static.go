// Package category resolves ambiguous B3 "11" tickers to REIT, ETF or UNIT
package category

import (
	"context"
	"strings"

	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// DefaultCategories is a small well-known set used when no remote service is configured
var DefaultCategories = map[string]domain.AssetCategory{
	"BOVA11": domain.AssetCategoryETF,
	"IVVB11": domain.AssetCategoryETF,
	"SMAL11": domain.AssetCategoryETF,
	"HASH11": domain.AssetCategoryETF,
	"HGLG11": domain.AssetCategoryREIT,
	"KNRI11": domain.AssetCategoryREIT,
	"MXRF11": domain.AssetCategoryREIT,
	"XPML11": domain.AssetCategoryREIT,
	"SAPR11": domain.AssetCategoryUnit,
	"TAEE11": domain.AssetCategoryUnit,
	"KLBN11": domain.AssetCategoryUnit,
	"SANB11": domain.AssetCategoryUnit,
	"BPAC11": domain.AssetCategoryUnit,
}

// Static answers from a fixed table
type Static struct {
	categories map[string]domain.AssetCategory
}

// NewStatic copies the table; keys are matched case-insensitively
func NewStatic(categories map[string]domain.AssetCategory) *Static {
	table := make(map[string]domain.AssetCategory, len(categories))
	for ticker, category := range categories {
		table[strings.ToUpper(strings.TrimSpace(ticker))] = category
	}
	return &Static{categories: table}
}

// Classify returns the known categories; unknown tickers map to UNKNOWN
func (s *Static) Classify(ctx context.Context, tickers []string) (map[string]domain.AssetCategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]domain.AssetCategory, len(tickers))
	for _, t := range tickers {
		category, ok := s.categories[strings.ToUpper(strings.TrimSpace(t))]
		if !ok {
			category = domain.AssetCategoryUnknown
		}
		out[t] = category
	}
	return out, nil
}
