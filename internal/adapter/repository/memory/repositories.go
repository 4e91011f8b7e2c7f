package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// EventRepository implements domain.EventRepository
type EventRepository struct {
	access accessor
}

// Create stores a copy of the event
func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	return r.access(func(st *state) error {
		if _, exists := st.events[event.ID]; exists {
			return domain.ErrConflict
		}
		c := *event
		put(st, st.events, event.ID, &c)
		if !event.IsDuplicate {
			appendIndex(st, st.originalsBy, ownerDay{event.OwnerID, domain.Day(event.Date)}, event.ID)
		}
		return nil
	})
}

// ListOriginals returns the owner's non-duplicate events on the given day
func (r *EventRepository) ListOriginals(ctx context.Context, ownerID int64, day time.Time) ([]*domain.Event, error) {
	var out []*domain.Event
	err := r.access(func(st *state) error {
		for _, id := range st.originalsBy[ownerDay{ownerID, domain.Day(day)}] {
			c := *st.events[id]
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// TransactionRepository implements domain.TransactionRepository
type TransactionRepository struct {
	access accessor
}

// Create stores a copy of the transaction
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	return r.access(func(st *state) error {
		if _, exists := st.transactions[tx.ID]; exists {
			return domain.ErrConflict
		}
		if _, exists := st.portfolios[tx.PortfolioID]; !exists {
			return domain.ErrPortfolioNotFound
		}
		c := *tx
		put(st, st.transactions, tx.ID, &c)
		appendIndex(st, st.txByPortfolio, tx.PortfolioID, tx.ID)
		if tx.AssetID != nil {
			appendIndex(st, st.txByAsset, *tx.AssetID, tx.ID)
		}
		return nil
	})
}

// GetByID retrieves a transaction, deleted or not
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.access(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		c := *tx
		out = &c
		return nil
	})
	return out, err
}

// ListByPortfolio returns the non-deleted transactions of a portfolio in creation order
func (r *TransactionRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Transaction, error) {
	return r.list(func(st *state) []uuid.UUID { return st.txByPortfolio[portfolioID] })
}

// ListByAsset returns the non-deleted transactions of an asset in creation order
func (r *TransactionRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.Transaction, error) {
	return r.list(func(st *state) []uuid.UUID { return st.txByAsset[assetID] })
}

func (r *TransactionRepository) list(index func(st *state) []uuid.UUID) ([]*domain.Transaction, error) {
	out := []*domain.Transaction{}
	err := r.access(func(st *state) error {
		for _, id := range index(st) {
			tx := st.transactions[id]
			if tx.IsDeleted() {
				continue
			}
			c := *tx
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

// MarkDeleted soft-deletes a transaction
func (r *TransactionRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(tx *domain.Transaction) {
		deletedAt := at
		tx.DeletedAt = &deletedAt
	})
}

// SetTaxDocument links a tax document to a transaction
func (r *TransactionRepository) SetTaxDocument(ctx context.Context, id uuid.UUID, documentID uuid.UUID) error {
	return r.update(id, func(tx *domain.Transaction) {
		doc := documentID
		tx.TaxDocumentID = &doc
	})
}

func (r *TransactionRepository) update(id uuid.UUID, apply func(tx *domain.Transaction)) error {
	return r.access(func(st *state) error {
		tx, ok := st.transactions[id]
		if !ok {
			return domain.ErrTransactionNotFound
		}
		c := *tx
		apply(&c)
		put(st, st.transactions, id, &c)
		return nil
	})
}

// LotRepository implements domain.LotRepository
type LotRepository struct {
	access accessor
}

// Create stores a copy of the lot and assigns its insertion sequence
func (r *LotRepository) Create(ctx context.Context, lot *domain.Lot) error {
	if err := lot.Validate(); err != nil {
		return err
	}
	return r.access(func(st *state) error {
		if _, exists := st.lots[lot.ID]; exists {
			return domain.ErrConflict
		}
		if _, exists := st.assets[lot.AssetID]; !exists {
			return domain.ErrAssetNotFound
		}
		prevSeq := st.lotSeq
		st.lotSeq++
		st.onRollback(func() { st.lotSeq = prevSeq })

		lot.Seq = st.lotSeq
		c := *lot
		put(st, st.lots, lot.ID, &c)
		appendIndex(st, st.lotsByAsset, lot.AssetID, lot.ID)
		return nil
	})
}

// ListByAsset returns the asset's lots of one kind in insertion order
func (r *LotRepository) ListByAsset(ctx context.Context, assetID uuid.UUID, kind domain.LotKind) ([]*domain.Lot, error) {
	out := []*domain.Lot{}
	err := r.access(func(st *state) error {
		for _, id := range st.lotsByAsset[assetID] {
			// Deleted lots stay in the index
			lot, ok := st.lots[id]
			if ok && lot.Kind == kind {
				c := *lot
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, err
}

// DeleteByTransaction removes the lot created by an acquisition, if any
func (r *LotRepository) DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	return r.access(func(st *state) error {
		for id, lot := range st.lots {
			if lot.TransactionID == transactionID {
				remove(st, st.lots, id)
			}
		}
		return nil
	})
}

// AssetRepository implements domain.AssetRepository
type AssetRepository struct {
	access accessor
}

// FindByName looks an asset up by its key inside a portfolio
func (r *AssetRepository) FindByName(ctx context.Context, portfolioID uuid.UUID, name string) (*domain.Asset, error) {
	var out *domain.Asset
	err := r.access(func(st *state) error {
		id, ok := st.assetsByName[assetKey{portfolioID, name}]
		if !ok {
			return domain.ErrAssetNotFound
		}
		c := *st.assets[id]
		out = &c
		return nil
	})
	return out, err
}

// Create stores an asset, enforcing (portfolio, name) uniqueness
func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	if err := asset.Validate(); err != nil {
		return err
	}
	return r.access(func(st *state) error {
		key := assetKey{asset.PortfolioID, asset.Name}
		if _, exists := st.assetsByName[key]; exists {
			return domain.ErrConflict
		}
		c := *asset
		put(st, st.assets, asset.ID, &c)
		put(st, st.assetsByName, key, asset.ID)
		return nil
	})
}

// ListByPortfolio returns every asset of a portfolio ordered by name
func (r *AssetRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Asset, error) {
	out := []*domain.Asset{}
	err := r.access(func(st *state) error {
		for _, a := range st.assets {
			if a.PortfolioID == portfolioID {
				c := *a
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// PortfolioRepository implements domain.PortfolioRepository
type PortfolioRepository struct {
	access accessor
}

// GetByOwner returns the owner's portfolio
func (r *PortfolioRepository) GetByOwner(ctx context.Context, ownerID int64) (*domain.Portfolio, error) {
	var out *domain.Portfolio
	err := r.access(func(st *state) error {
		id, ok := st.portfolioByUser[ownerID]
		if !ok {
			return domain.ErrPortfolioNotFound
		}
		c := *st.portfolios[id]
		out = &c
		return nil
	})
	return out, err
}

// Create stores a portfolio; one per owner
func (r *PortfolioRepository) Create(ctx context.Context, portfolio *domain.Portfolio) error {
	if err := portfolio.Validate(); err != nil {
		return err
	}
	return r.access(func(st *state) error {
		if _, exists := st.portfolioByUser[portfolio.OwnerID]; exists {
			return domain.ErrConflict
		}
		c := *portfolio
		put(st, st.portfolios, portfolio.ID, &c)
		put(st, st.portfolioByUser, portfolio.OwnerID, portfolio.ID)
		return nil
	})
}

// UpdateBalances persists the four balances
func (r *PortfolioRepository) UpdateBalances(ctx context.Context, portfolio *domain.Portfolio) error {
	return r.access(func(st *state) error {
		current, ok := st.portfolios[portfolio.ID]
		if !ok {
			return domain.ErrPortfolioNotFound
		}
		c := *current
		c.SetBalances(portfolio.Balances())
		c.UpdatedAt = portfolio.UpdatedAt
		put(st, st.portfolios, portfolio.ID, &c)
		return nil
	})
}

// InstitutionRepository implements domain.InstitutionRepository
type InstitutionRepository struct {
	access accessor
}

// FindByName looks an institution up by name
func (r *InstitutionRepository) FindByName(ctx context.Context, name string) (*domain.Institution, error) {
	var out *domain.Institution
	err := r.access(func(st *state) error {
		id, ok := st.institutionsByName[name]
		if !ok {
			return domain.ErrInstitutionNotFound
		}
		c := *st.institutions[id]
		out = &c
		return nil
	})
	return out, err
}

// Create stores an institution with a unique name
func (r *InstitutionRepository) Create(ctx context.Context, institution *domain.Institution) error {
	if err := institution.Validate(); err != nil {
		return err
	}
	return r.access(func(st *state) error {
		if _, exists := st.institutionsByName[institution.Name]; exists {
			return domain.ErrConflict
		}
		c := *institution
		put(st, st.institutions, institution.ID, &c)
		put(st, st.institutionsByName, institution.Name, institution.ID)
		return nil
	})
}

// LinkOwner records an owner-institution relationship; repeated links are no-ops
func (r *InstitutionRepository) LinkOwner(ctx context.Context, institutionID uuid.UUID, ownerID int64) error {
	return r.access(func(st *state) error {
		if _, ok := st.institutions[institutionID]; !ok {
			return domain.ErrInstitutionNotFound
		}
		owners, ok := st.institutionOwners[institutionID]
		if !ok {
			owners = make(map[int64]struct{})
			put(st, st.institutionOwners, institutionID, owners)
		}
		put(st, owners, ownerID, struct{}{})
		return nil
	})
}
