package ingest

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
	"github.com/simaogato/portfolio-ledger/internal/usecase/asset"
	"github.com/simaogato/portfolio-ledger/internal/usecase/costbasis"
	"github.com/simaogato/portfolio-ledger/internal/usecase/dedup"
	"github.com/simaogato/portfolio-ledger/internal/usecase/ledger"
	"github.com/simaogato/portfolio-ledger/internal/usecase/lot"
	"github.com/simaogato/portfolio-ledger/internal/usecase/ticker"
	"github.com/simaogato/portfolio-ledger/internal/usecase/txfactory"
)

// DefaultWorkers is the number of owners a batch import processes in parallel
const DefaultWorkers = 4

// Result is the outcome of ingesting one event
type Result struct {
	Event          *domain.Event
	Duplicate      bool
	Transaction    *domain.Transaction // nil for duplicates
	Lot            *domain.Lot         // set for acquisitions
	RealizedProfit *decimal.Decimal    // set for disposals with a cost basis
	Portfolio      *domain.Portfolio   // balances after the event
}

// Service runs the per-event pipeline:
// duplicate check, classification, asset and lot resolution, cost basis, balances.
// Every mutation of one owner's portfolio is serialized; distinct owners run in parallel.
type Service struct {
	Store        domain.Store
	Transactions *txfactory.Factory
	Lots         *lot.Factory
	Workers      int
	locks        *ownerLocks
	log          zerolog.Logger
	now          func() time.Time
}

// NewService creates a new ingest Service instance
func NewService(store domain.Store, transactions *txfactory.Factory, lots *lot.Factory, workers int, log zerolog.Logger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		Store:        store,
		Transactions: transactions,
		Lots:         lots,
		Workers:      workers,
		locks:        newOwnerLocks(),
		log:          log.With().Str("component", "ingest").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Ingest processes a single event atomically.
// A failure at any step leaves the store exactly as it was.
func (s *Service) Ingest(ctx context.Context, event *domain.Event) (*Result, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}

	// Remote category lookups stay outside the owner lock and the unit of work
	subtype := s.lotSubtype(ctx, event)

	unlock := s.locks.lock(event.OwnerID)
	defer unlock()

	return s.ingestLocked(ctx, event, subtype)
}

// lotSubtype resolves the subtype of the lot an acquisition event will open.
// It returns "" for events that open no lot.
func (s *Service) lotSubtype(ctx context.Context, event *domain.Event) domain.LotSubtype {
	_, txType := s.Transactions.Classify(event)
	if event.Direction != domain.DirectionEntry || !txType.IsTrade() || !event.Quantity.IsPositive() {
		return ""
	}
	return s.Lots.Subtype(ctx, ticker.Resolve(event.ProductText), ticker.Kind(event.ProductText))
}

func (s *Service) ingestLocked(ctx context.Context, in *domain.Event, subtype domain.LotSubtype) (*Result, error) {
	var result *Result

	err := s.Store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		// Work on a copy so a rolled back attempt leaves the caller's event untouched
		event := *in
		var err error
		result, err = s.pipeline(ctx, repos, &event, subtype)
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).
			Int64("owner_id", in.OwnerID).
			Str("product", in.ProductText).
			Str("movement", in.MovementText).
			Msg("Event rejected")
		return nil, err
	}

	logEvent := s.log.Info().
		Int64("owner_id", result.Event.OwnerID).
		Str("event_id", result.Event.ID.String()).
		Bool("duplicate", result.Duplicate)
	if result.Transaction != nil {
		logEvent = logEvent.
			Str("transaction_id", result.Transaction.ID.String()).
			Str("type", string(result.Transaction.TransactionType))
	}
	logEvent.Msg("Event ingested")

	return result, nil
}

func (s *Service) pipeline(ctx context.Context, repos domain.Repositories, event *domain.Event, subtype domain.LotSubtype) (*Result, error) {
	portfolio, err := repos.Portfolios.GetByOwner(ctx, event.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("owner %d: %w", event.OwnerID, err)
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = s.now()
	event.ComputeAmount()

	// Step 1: duplicate detection
	check, err := dedup.NewDetector(repos.Events).Mark(ctx, event)
	if err != nil {
		return nil, err
	}

	movement, txType := s.Transactions.Classify(event)
	event.MovementType = movement
	s.reportDataQuality(event, movement, txType)

	if err := repos.Events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to store event: %w", err)
	}

	result := &Result{Event: event, Duplicate: check.IsDuplicate, Portfolio: portfolio}
	if check.IsDuplicate {
		return result, nil
	}

	// Step 2: resolve the aggregates the transaction links to
	resolver := asset.NewResolver(repos.Assets, repos.Institutions)

	refs := txfactory.Refs{PortfolioID: portfolio.ID}
	if strings.TrimSpace(event.InstitutionName) != "" {
		institution, err := resolver.ResolveInstitution(ctx, event.InstitutionName, event.OwnerID)
		if err != nil {
			return nil, err
		}
		refs.InstitutionID = &institution.ID
	}

	key := ticker.Resolve(event.ProductText)
	kind := ticker.Kind(event.ProductText)
	resolved, err := resolver.ResolveAsset(ctx, portfolio.ID, key, kind)
	if err != nil {
		return nil, err
	}
	refs.AssetID = &resolved.ID

	// Step 3: canonical transaction
	tx := s.Transactions.Build(event, refs)

	// Step 4: FIFO cost basis, before anything else is written for the transaction
	if tx.IsDisposal() && tx.Quantity.IsPositive() {
		profit, err := s.costBasis(ctx, repos, resolved, tx)
		if err != nil {
			return nil, err
		}
		result.RealizedProfit = &profit
	}

	if err := repos.Transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}
	result.Transaction = tx

	// Step 5: acquisition lot
	if tx.IsAcquisition() && tx.Quantity.IsPositive() {
		created, err := s.Lots.Build(ctx, lot.Input{
			AssetID:       resolved.ID,
			TransactionID: tx.ID,
			Ticker:        key,
			Kind:          kind,
			Date:          tx.Date,
			Quantity:      tx.Quantity,
			UnitPrice:     tx.UnitPrice,
			Subtype:       subtype,
		})
		if err != nil {
			return nil, err
		}
		if err := repos.Lots.Create(ctx, created); err != nil {
			return nil, fmt.Errorf("failed to store lot: %w", err)
		}
		result.Lot = created
	}

	// Step 6: balances
	if err := ledger.FromRepositories(repos).ApplyTransaction(ctx, portfolio, tx); err != nil {
		return nil, err
	}

	return result, nil
}

// costBasis sets the FIFO average cost on a disposal and returns its realized profit
func (s *Service) costBasis(ctx context.Context, repos domain.Repositories, a *domain.Asset, tx *domain.Transaction) (decimal.Decimal, error) {
	lots, err := repos.Lots.ListByAsset(ctx, a.ID, a.Kind)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load lots: %w", err)
	}
	history, err := repos.Transactions.ListByAsset(ctx, a.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load asset history: %w", err)
	}
	prior := costbasis.DisposedQuantity(history)

	avg, err := costbasis.AverageSaleCost(a.ID, lots, prior, tx.Quantity)
	if err != nil {
		return decimal.Zero, err
	}
	tx.AverageCost = &avg

	saleAmount := decimal.Zero
	if tx.TotalAmount != nil {
		saleAmount = *tx.TotalAmount
	}
	if a.Kind == domain.LotKindFixedIncome {
		return costbasis.RealizedProfit(a.ID, lots, prior, tx.Quantity, saleAmount)
	}
	return saleAmount.Sub(avg.Mul(tx.Quantity)), nil
}

func (s *Service) reportDataQuality(event *domain.Event, movement domain.MovementType, txType domain.TransactionType) {
	if movement == domain.MovementUnclassified {
		s.log.Warn().
			Int64("owner_id", event.OwnerID).
			Str("event_id", event.ID.String()).
			Str("movement", event.MovementText).
			Str("direction", string(event.Direction)).
			Msg("Unclassified movement")
	}
	if txType == domain.TransactionTypeOther {
		s.log.Warn().
			Int64("owner_id", event.OwnerID).
			Str("event_id", event.ID.String()).
			Str("movement", event.MovementText).
			Msg("Movement typed as OTHER")
	}
}

// RemoveTransaction soft-deletes one of the owner's transactions and recomputes the balances
func (s *Service) RemoveTransaction(ctx context.Context, ownerID int64, txID uuid.UUID) (*domain.Portfolio, error) {
	return s.withPortfolio(ctx, ownerID, func(ctx context.Context, repos domain.Repositories, p *domain.Portfolio) error {
		return ledger.FromRepositories(repos).RemoveTransaction(ctx, p, txID)
	})
}

// Recalculate rebuilds the owner's balances from the full transaction history
func (s *Service) Recalculate(ctx context.Context, ownerID int64) (*domain.Portfolio, error) {
	return s.withPortfolio(ctx, ownerID, func(ctx context.Context, repos domain.Repositories, p *domain.Portfolio) error {
		return ledger.FromRepositories(repos).RecalculateAll(ctx, p)
	})
}

// LinkTaxDocument attaches a tax document to one of the owner's transactions
func (s *Service) LinkTaxDocument(ctx context.Context, ownerID int64, txID, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return errors.New("tax document id cannot be empty")
	}
	_, err := s.withPortfolio(ctx, ownerID, func(ctx context.Context, repos domain.Repositories, p *domain.Portfolio) error {
		tx, err := repos.Transactions.GetByID(ctx, txID)
		if err != nil {
			return err
		}
		if tx.PortfolioID != p.ID || tx.IsDeleted() {
			return domain.ErrTransactionNotFound
		}
		return repos.Transactions.SetTaxDocument(ctx, txID, documentID)
	})
	return err
}

func (s *Service) withPortfolio(ctx context.Context, ownerID int64, fn func(ctx context.Context, repos domain.Repositories, p *domain.Portfolio) error) (*domain.Portfolio, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	var portfolio *domain.Portfolio
	err := s.Store.WithinTx(ctx, func(ctx context.Context, repos domain.Repositories) error {
		p, err := repos.Portfolios.GetByOwner(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("owner %d: %w", ownerID, err)
		}
		if err := fn(ctx, repos, p); err != nil {
			return err
		}
		portfolio = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return portfolio, nil
}
