package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	q querier
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{q: db}
}

// FindByName looks an asset up by its key inside a portfolio
func (r *assetRepository) FindByName(ctx context.Context, portfolioID uuid.UUID, name string) (*domain.Asset, error) {
	query := `
		SELECT id, portfolio_id, name, kind, created_at
		FROM assets
		WHERE portfolio_id = $1 AND name = $2
	`

	var asset domain.Asset
	err := r.q.QueryRowContext(ctx, query, portfolioID, name).Scan(
		&asset.ID,
		&asset.PortfolioID,
		&asset.Name,
		&asset.Kind,
		&asset.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset by name: %w", err)
	}
	return &asset, nil
}

// Create inserts an asset; (portfolio, name) is unique
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	if err := asset.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO assets (id, portfolio_id, name, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (portfolio_id, name) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		asset.ID,
		asset.PortfolioID,
		asset.Name,
		string(asset.Kind),
		asset.CreatedAt,
	)
	if err != nil {
		return mapInsertError("asset", err)
	}
	return conflictIfUnchanged("asset", result)
}

// ListByPortfolio returns every asset of a portfolio ordered by name
func (r *assetRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Asset, error) {
	query := `
		SELECT id, portfolio_id, name, kind, created_at
		FROM assets
		WHERE portfolio_id = $1
		ORDER BY name
	`

	rows, err := r.q.QueryContext(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := []*domain.Asset{}
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.PortfolioID, &asset.Name, &asset.Kind, &asset.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}
