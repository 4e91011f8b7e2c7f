package lot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/simaogato/portfolio-ledger/internal/usecase/ticker"
)

// DefaultCategoryTimeout bounds a single category lookup
const DefaultCategoryTimeout = 3 * time.Second

// CategoryClassifier resolves ambiguous "11" tickers to REIT, ETF or UNIT.
// Tickers missing from the returned map are treated as unknown.
type CategoryClassifier interface {
	Classify(ctx context.Context, tickers []string) (map[string]domain.AssetCategory, error)
}

// PrefixSubtype maps a fixed-income product prefix to its subtype
type PrefixSubtype struct {
	Prefix  string
	Subtype domain.LotSubtype
}

// DefaultFixedIncomePrefixes lists fixed-income prefixes in match order
var DefaultFixedIncomePrefixes = []PrefixSubtype{
	{Prefix: "CDB", Subtype: domain.LotSubtypeCDB},
	{Prefix: "LCI", Subtype: domain.LotSubtypeLCI},
	{Prefix: "LCA", Subtype: domain.LotSubtypeLCA},
	{Prefix: "DEBENTURE", Subtype: domain.LotSubtypeDebenture},
	{Prefix: "TESOURO", Subtype: domain.LotSubtypeTreasury},
}

// variableSuffixes maps the B3 ticker class suffix to a subtype; "11" is resolved separately
var variableSuffixes = map[string]domain.LotSubtype{
	"1":  domain.LotSubtypeSubscriptionRight,
	"2":  domain.LotSubtypeSubscriptionRight,
	"3":  domain.LotSubtypeCommon,
	"4":  domain.LotSubtypePreferred,
	"5":  domain.LotSubtypePreferredA,
	"6":  domain.LotSubtypePreferredB,
	"7":  domain.LotSubtypePreferredC,
	"8":  domain.LotSubtypePreferredD,
	"9":  domain.LotSubtypeSubscriptionReceipt,
	"10": domain.LotSubtypeSubscriptionReceipt,
}

const ambiguousSuffix = "11"

var categorySubtypes = map[domain.AssetCategory]domain.LotSubtype{
	domain.AssetCategoryREIT: domain.LotSubtypeREIT,
	domain.AssetCategoryETF:  domain.LotSubtypeETF,
	domain.AssetCategoryUnit: domain.LotSubtypeUnit,
}

// Input carries the resolved ticker and the acquisition fields a lot is built from
type Input struct {
	AssetID       uuid.UUID
	TransactionID uuid.UUID
	Ticker        string
	Kind          domain.LotKind
	Date          time.Time
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	Subtype       domain.LotSubtype // resolved by Build when empty
}

// Factory creates acquisition lots
type Factory struct {
	Categories CategoryClassifier // may be nil; every "11" ticker is then UNKNOWN
	Timeout    time.Duration
	Prefixes   []PrefixSubtype
	log        zerolog.Logger
}

// NewFactory creates a new Factory with the default prefix table
func NewFactory(categories CategoryClassifier, timeout time.Duration, log zerolog.Logger) *Factory {
	if timeout <= 0 {
		timeout = DefaultCategoryTimeout
	}
	prefixes := make([]PrefixSubtype, len(DefaultFixedIncomePrefixes))
	copy(prefixes, DefaultFixedIncomePrefixes)

	return &Factory{
		Categories: categories,
		Timeout:    timeout,
		Prefixes:   prefixes,
		log:        log.With().Str("component", "lot_factory").Logger(),
	}
}

// Build produces a lot with Total = UnitPrice * Quantity.
// A failing category lookup degrades to UNKNOWN and never fails the build.
func (f *Factory) Build(ctx context.Context, in Input) (*domain.Lot, error) {
	subtype := in.Subtype
	if subtype == "" {
		subtype = f.Subtype(ctx, in.Ticker, in.Kind)
	}

	lot := &domain.Lot{
		ID:            uuid.New(),
		AssetID:       in.AssetID,
		TransactionID: in.TransactionID,
		PurchaseDate:  in.Date,
		UnitPrice:     in.UnitPrice,
		Quantity:      in.Quantity,
		Total:         in.UnitPrice.Mul(in.Quantity),
		Kind:          in.Kind,
		Subtype:       subtype,
	}
	if err := lot.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lot for %s: %w", in.Ticker, err)
	}

	return lot, nil
}

// Subtype classifies a ticker or fixed-income key of the given kind.
// Only ambiguous "11" tickers reach the category classifier.
func (f *Factory) Subtype(ctx context.Context, key string, kind domain.LotKind) domain.LotSubtype {
	if kind == domain.LotKindFixedIncome {
		return f.FixedIncomeSubtype(key)
	}
	return f.VariableIncomeSubtype(ctx, key)
}

// FixedIncomeSubtype classifies a fixed-income asset key by its prefix
func (f *Factory) FixedIncomeSubtype(key string) domain.LotSubtype {
	upper := strings.ToUpper(strings.TrimSpace(key))
	for _, p := range f.Prefixes {
		if strings.HasPrefix(upper, p.Prefix) {
			return p.Subtype
		}
	}
	return domain.LotSubtypeUnknown
}

// VariableIncomeSubtype classifies a ticker by its numeric class suffix
func (f *Factory) VariableIncomeSubtype(ctx context.Context, tick string) domain.LotSubtype {
	suffix := ticker.Suffix(tick)
	if suffix == ambiguousSuffix {
		return f.lookupCategory(ctx, strings.ToUpper(strings.TrimSpace(tick)))
	}
	if subtype, ok := variableSuffixes[suffix]; ok {
		return subtype
	}
	return domain.LotSubtypeUnknown
}

func (f *Factory) lookupCategory(ctx context.Context, tick string) domain.LotSubtype {
	if f.Categories == nil {
		return domain.LotSubtypeUnknown
	}

	lookupCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	categories, err := f.classify(lookupCtx, tick)
	if err != nil {
		f.log.Warn().Err(err).Str("ticker", tick).Msg("Category lookup failed, using UNKNOWN")
		return domain.LotSubtypeUnknown
	}

	if subtype, ok := categorySubtypes[categories[tick]]; ok {
		return subtype
	}
	f.log.Warn().Str("ticker", tick).Msg("Ticker has no known category, using UNKNOWN")
	return domain.LotSubtypeUnknown
}

// classify runs the lookup in a goroutine so a classifier that ignores its
// context still cannot hold the pipeline past the deadline
func (f *Factory) classify(ctx context.Context, tick string) (map[string]domain.AssetCategory, error) {
	type reply struct {
		categories map[string]domain.AssetCategory
		err        error
	}
	done := make(chan reply, 1)

	go func() {
		categories, err := f.Categories.Classify(ctx, []string{tick})
		done <- reply{categories, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errors.Join(domain.ErrCategoryUnavailable, r.err)
		}
		return r.categories, nil
	case <-ctx.Done():
		return nil, errors.Join(domain.ErrCategoryUnavailable, ctx.Err())
	}
}
