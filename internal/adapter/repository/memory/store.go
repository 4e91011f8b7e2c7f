// Package memory is an in-process persistence boundary.
// Entities are stored by id in maps; references between them are ids only.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

type assetKey struct {
	portfolioID uuid.UUID
	name        string
}

type ownerDay struct {
	ownerID int64
	day     time.Time
}

// state holds the committed data plus the secondary indexes the repositories
// read through. Stored entities are never mutated in place; updates replace
// the map entry with a fresh copy.
type state struct {
	events      map[uuid.UUID]*domain.Event
	originalsBy map[ownerDay][]uuid.UUID

	transactions  map[uuid.UUID]*domain.Transaction
	txByPortfolio map[uuid.UUID][]uuid.UUID
	txByAsset     map[uuid.UUID][]uuid.UUID

	lots        map[uuid.UUID]*domain.Lot
	lotsByAsset map[uuid.UUID][]uuid.UUID
	lotSeq      int64

	assets       map[uuid.UUID]*domain.Asset
	assetsByName map[assetKey]uuid.UUID

	portfolios      map[uuid.UUID]*domain.Portfolio
	portfolioByUser map[int64]uuid.UUID

	institutions       map[uuid.UUID]*domain.Institution
	institutionsByName map[string]uuid.UUID
	institutionOwners  map[uuid.UUID]map[int64]struct{}

	// undo is non-nil while a unit of work is open
	undo []func()
}

func newState() *state {
	return &state{
		events:             make(map[uuid.UUID]*domain.Event),
		originalsBy:        make(map[ownerDay][]uuid.UUID),
		transactions:       make(map[uuid.UUID]*domain.Transaction),
		txByPortfolio:      make(map[uuid.UUID][]uuid.UUID),
		txByAsset:          make(map[uuid.UUID][]uuid.UUID),
		lots:               make(map[uuid.UUID]*domain.Lot),
		lotsByAsset:        make(map[uuid.UUID][]uuid.UUID),
		assets:             make(map[uuid.UUID]*domain.Asset),
		assetsByName:       make(map[assetKey]uuid.UUID),
		portfolios:         make(map[uuid.UUID]*domain.Portfolio),
		portfolioByUser:    make(map[int64]uuid.UUID),
		institutions:       make(map[uuid.UUID]*domain.Institution),
		institutionsByName: make(map[string]uuid.UUID),
		institutionOwners:  make(map[uuid.UUID]map[int64]struct{}),
	}
}

// onRollback registers the inverse of a write that was just applied
func (s *state) onRollback(fn func()) {
	if s.undo != nil {
		s.undo = append(s.undo, fn)
	}
}

func (s *state) rollback() {
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
}

// put sets m[k] = v and registers the restore of the previous entry
func put[K comparable, V any](s *state, m map[K]V, k K, v V) {
	prev, existed := m[k]
	m[k] = v
	s.onRollback(func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// remove deletes m[k] and registers its reinsertion
func remove[K comparable, V any](s *state, m map[K]V, k K) {
	prev, existed := m[k]
	if !existed {
		return
	}
	delete(m, k)
	s.onRollback(func() { m[k] = prev })
}

// appendIndex appends id to m[k] and registers the matching truncation
func appendIndex[K comparable](s *state, m map[K][]uuid.UUID, k K, id uuid.UUID) {
	prev, existed := m[k]
	m[k] = append(prev, id)
	s.onRollback(func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

// Store implements domain.Store in memory.
// Units of work are serialized. Writes go straight to the committed maps and
// each one records its inverse, so a failing unit is undone in reverse order.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithinTx runs fn as one unit of work and undoes its writes if fn fails
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	st := s.state
	st.undo = make([]func(), 0, 16)
	committed := false
	defer func() {
		if !committed {
			st.rollback()
		}
		st.undo = nil
	}()

	access := func(f func(st *state) error) error { return f(st) }
	if err := fn(ctx, repositories(access)); err != nil {
		return err
	}

	committed = true
	return nil
}

// Repositories returns repositories that read and write the committed state directly.
// They must not be used from inside WithinTx.
func (s *Store) Repositories() domain.Repositories {
	return repositories(func(f func(st *state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return f(s.state)
	})
}

type accessor func(f func(st *state) error) error

func repositories(access accessor) domain.Repositories {
	return domain.Repositories{
		Events:       &EventRepository{access: access},
		Transactions: &TransactionRepository{access: access},
		Lots:         &LotRepository{access: access},
		Assets:       &AssetRepository{access: access},
		Portfolios:   &PortfolioRepository{access: access},
		Institutions: &InstitutionRepository{access: access},
	}
}
