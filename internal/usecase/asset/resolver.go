package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// Resolver finds or lazily creates assets and institutions.
// Lookup-then-create is not atomic by itself: callers serialize per owner, and
// a conflicting insert from another writer is resolved by re-reading the winner.
type Resolver struct {
	AssetRepo       domain.AssetRepository
	InstitutionRepo domain.InstitutionRepository
}

// NewResolver creates a new Resolver instance
func NewResolver(assetRepo domain.AssetRepository, institutionRepo domain.InstitutionRepository) *Resolver {
	return &Resolver{
		AssetRepo:       assetRepo,
		InstitutionRepo: institutionRepo,
	}
}

// ResolveAsset returns the asset named name in the portfolio, creating it on first reference
func (r *Resolver) ResolveAsset(ctx context.Context, portfolioID uuid.UUID, name string, kind domain.LotKind) (*domain.Asset, error) {
	name = strings.TrimSpace(name)

	existing, err := r.AssetRepo.FindByName(ctx, portfolioID, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrAssetNotFound) {
		return nil, fmt.Errorf("failed to look up asset %q: %w", name, err)
	}

	asset := &domain.Asset{
		ID:          uuid.New(),
		PortfolioID: portfolioID,
		Name:        name,
		Kind:        kind,
		CreatedAt:   time.Now().UTC(),
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	if err := r.AssetRepo.Create(ctx, asset); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Another writer created it first; use theirs
			return r.AssetRepo.FindByName(ctx, portfolioID, name)
		}
		return nil, fmt.Errorf("failed to create asset %q: %w", name, err)
	}

	return asset, nil
}

// ResolveInstitution returns the institution with the given name, creating it
// if needed, and links it to the owner
func (r *Resolver) ResolveInstitution(ctx context.Context, name string, ownerID int64) (*domain.Institution, error) {
	name = strings.TrimSpace(name)

	institution, err := r.InstitutionRepo.FindByName(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrInstitutionNotFound) {
			return nil, fmt.Errorf("failed to look up institution %q: %w", name, err)
		}

		institution = &domain.Institution{ID: uuid.New(), Name: name}
		if err := institution.Validate(); err != nil {
			return nil, err
		}
		if err := r.InstitutionRepo.Create(ctx, institution); err != nil {
			if !errors.Is(err, domain.ErrConflict) {
				return nil, fmt.Errorf("failed to create institution %q: %w", name, err)
			}
			if institution, err = r.InstitutionRepo.FindByName(ctx, name); err != nil {
				return nil, fmt.Errorf("failed to re-read institution %q: %w", name, err)
			}
		}
	}

	if err := r.InstitutionRepo.LinkOwner(ctx, institution.ID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to link institution %q to owner %d: %w", name, ownerID, err)
	}

	return institution, nil
}
