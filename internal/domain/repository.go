package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventRepository defines the interface for imported event persistence
type EventRepository interface {
	// Create stores an event together with its duplicate linkage
	Create(ctx context.Context, event *Event) error

	// ListOriginals returns the non-duplicate events of an owner on the given calendar day
	ListOriginals(ctx context.Context, ownerID int64, day time.Time) ([]*Event, error)
}

// TransactionRepository defines the interface for ledger transaction persistence
type TransactionRepository interface {
	// Create creates a new transaction
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction, deleted or not
	// Returns ErrTransactionNotFound when no row exists
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByPortfolio returns the non-deleted transactions of a portfolio in creation order
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*Transaction, error)

	// ListByAsset returns the non-deleted transactions of an asset in creation order
	ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*Transaction, error)

	// MarkDeleted soft-deletes a transaction
	MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error

	// SetTaxDocument links a tax document, the only permitted update
	SetTaxDocument(ctx context.Context, id uuid.UUID, documentID uuid.UUID) error
}

// LotRepository defines the interface for acquisition lot persistence
type LotRepository interface {
	// Create stores a lot and assigns its insertion sequence
	Create(ctx context.Context, lot *Lot) error

	// ListByAsset returns the lots of an asset with the given kind, in insertion order
	ListByAsset(ctx context.Context, assetID uuid.UUID, kind LotKind) ([]*Lot, error)

	// DeleteByTransaction removes the lot created by an acquisition
	DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error
}

// AssetRepository defines the interface for asset persistence
type AssetRepository interface {
	// FindByName looks an asset up by its key inside a portfolio
	// Returns ErrAssetNotFound when absent
	FindByName(ctx context.Context, portfolioID uuid.UUID, name string) (*Asset, error)

	// Create creates an asset; returns ErrConflict if (portfolio, name) already exists
	Create(ctx context.Context, asset *Asset) error

	// ListByPortfolio returns every asset of a portfolio
	ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*Asset, error)
}

// PortfolioRepository defines the interface for portfolio persistence
type PortfolioRepository interface {
	// GetByOwner returns the owner's portfolio or ErrPortfolioNotFound
	GetByOwner(ctx context.Context, ownerID int64) (*Portfolio, error)

	// Create creates a portfolio; returns ErrConflict if the owner already has one
	Create(ctx context.Context, portfolio *Portfolio) error

	// UpdateBalances persists the four balances
	UpdateBalances(ctx context.Context, portfolio *Portfolio) error
}

// InstitutionRepository defines the interface for institution persistence
type InstitutionRepository interface {
	// FindByName returns ErrInstitutionNotFound when absent
	FindByName(ctx context.Context, name string) (*Institution, error)

	// Create creates an institution; returns ErrConflict if the name is taken
	Create(ctx context.Context, institution *Institution) error

	// LinkOwner records that an owner holds an account at the institution (idempotent)
	LinkOwner(ctx context.Context, institutionID uuid.UUID, ownerID int64) error
}

// Repositories bundles the repositories bound to one unit of work
type Repositories struct {
	Events       EventRepository
	Transactions TransactionRepository
	Lots         LotRepository
	Assets       AssetRepository
	Portfolios   PortfolioRepository
	Institutions InstitutionRepository
}

// UnitOfWork is the atomic persistence boundary
// Everything fn writes through repos is committed together or not at all
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Store exposes read access outside a unit of work plus the unit of work itself
type Store interface {
	UnitOfWork
	Repositories() Repositories
}
