package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

const transactionColumns = `
	id, portfolio_id, asset_id, institution_id, event_id, date, direction, quantity, unit_price,
	total_amount, average_cost, movement_type, transaction_type, tax_document_id, created_at, deleted_at
`

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	q querier
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{q: db}
}

// Create inserts a new transaction row
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (id, portfolio_id, asset_id, institution_id, event_id, date, direction,
			quantity, unit_price, total_amount, average_cost, movement_type, transaction_type,
			tax_document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.PortfolioID,
		nullUUID(tx.AssetID),
		nullUUID(tx.InstitutionID),
		nullUUID(tx.EventID),
		tx.Date,
		string(tx.Direction),
		tx.Quantity.String(),
		tx.UnitPrice.String(),
		nullDecimal(tx.TotalAmount),
		nullDecimal(tx.AverageCost),
		string(tx.MovementType),
		string(tx.TransactionType),
		nullUUID(tx.TaxDocumentID),
		tx.CreatedAt,
	)
	if err != nil {
		return mapInsertError("transaction", err)
	}
	return nil
}

// GetByID retrieves a transaction, deleted or not
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ListByPortfolio returns the non-deleted transactions of a portfolio in creation order
func (r *transactionRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE portfolio_id = $1 AND deleted_at IS NULL
		ORDER BY position
	`
	return r.list(ctx, query, portfolioID)
}

// ListByAsset returns the non-deleted transactions of an asset in creation order
func (r *transactionRepository) ListByAsset(ctx context.Context, assetID uuid.UUID) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE asset_id = $1 AND deleted_at IS NULL
		ORDER BY position
	`
	return r.list(ctx, query, assetID)
}

func (r *transactionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []*domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

// MarkDeleted soft-deletes a transaction
func (r *transactionRepository) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, `UPDATE transactions SET deleted_at = $2 WHERE id = $1`, id, at)
}

// SetTaxDocument links a tax document to a transaction
func (r *transactionRepository) SetTaxDocument(ctx context.Context, id uuid.UUID, documentID uuid.UUID) error {
	return r.update(ctx, `UPDATE transactions SET tax_document_id = $2 WHERE id = $1`, id, documentID)
}

func (r *transactionRepository) update(ctx context.Context, query string, id uuid.UUID, value any) error {
	result, err := r.q.ExecContext(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var assetID, institutionID, eventID, taxDocumentID uuid.NullUUID
	var quantity, unitPrice string
	var totalAmount, averageCost sql.NullString
	var deletedAt sql.NullTime

	err := s.Scan(
		&tx.ID,
		&tx.PortfolioID,
		&assetID,
		&institutionID,
		&eventID,
		&tx.Date,
		&tx.Direction,
		&quantity,
		&unitPrice,
		&totalAmount,
		&averageCost,
		&tx.MovementType,
		&tx.TransactionType,
		&taxDocumentID,
		&tx.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.AssetID = uuidPtr(assetID)
	tx.InstitutionID = uuidPtr(institutionID)
	tx.EventID = uuidPtr(eventID)
	tx.TaxDocumentID = uuidPtr(taxDocumentID)
	if deletedAt.Valid {
		at := deletedAt.Time
		tx.DeletedAt = &at
	}

	if tx.Quantity, err = parseDecimal("quantity", quantity); err != nil {
		return nil, err
	}
	if tx.UnitPrice, err = parseDecimal("unit_price", unitPrice); err != nil {
		return nil, err
	}
	if tx.TotalAmount, err = parseNullDecimal("total_amount", totalAmount); err != nil {
		return nil, err
	}
	if tx.AverageCost, err = parseNullDecimal("average_cost", averageCost); err != nil {
		return nil, err
	}

	return &tx, nil
}
