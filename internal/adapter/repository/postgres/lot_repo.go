package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// lotRepository implements domain.LotRepository
type lotRepository struct {
	q querier
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *DB) domain.LotRepository {
	return &lotRepository{q: db}
}

// Create inserts a lot; the database assigns its sequence
func (r *lotRepository) Create(ctx context.Context, lot *domain.Lot) error {
	if err := lot.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO lots (id, asset_id, transaction_id, purchase_date, unit_price, quantity, total, kind, subtype)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq
	`

	err := r.q.QueryRowContext(ctx, query,
		lot.ID,
		lot.AssetID,
		lot.TransactionID,
		lot.PurchaseDate,
		lot.UnitPrice.String(),
		lot.Quantity.String(),
		lot.Total.String(),
		string(lot.Kind),
		string(lot.Subtype),
	).Scan(&lot.Seq)
	if err != nil {
		return mapInsertError("lot", err)
	}
	return nil
}

// ListByAsset returns the asset's lots of one kind in insertion order
func (r *lotRepository) ListByAsset(ctx context.Context, assetID uuid.UUID, kind domain.LotKind) ([]*domain.Lot, error) {
	query := `
		SELECT id, asset_id, transaction_id, purchase_date, unit_price, quantity, total, kind, subtype, seq
		FROM lots
		WHERE asset_id = $1 AND kind = $2
		ORDER BY seq
	`

	rows, err := r.q.QueryContext(ctx, query, assetID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	lots := []*domain.Lot{}
	for rows.Next() {
		var lot domain.Lot
		var unitPrice, quantity, total string

		if err := rows.Scan(
			&lot.ID,
			&lot.AssetID,
			&lot.TransactionID,
			&lot.PurchaseDate,
			&unitPrice,
			&quantity,
			&total,
			&lot.Kind,
			&lot.Subtype,
			&lot.Seq,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}

		if lot.UnitPrice, err = parseDecimal("unit_price", unitPrice); err != nil {
			return nil, err
		}
		if lot.Quantity, err = parseDecimal("quantity", quantity); err != nil {
			return nil, err
		}
		if lot.Total, err = parseDecimal("total", total); err != nil {
			return nil, err
		}
		lots = append(lots, &lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}
	return lots, nil
}

// DeleteByTransaction removes the lot created by an acquisition, if any
func (r *lotRepository) DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM lots WHERE transaction_id = $1`, transactionID); err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	return nil
}
