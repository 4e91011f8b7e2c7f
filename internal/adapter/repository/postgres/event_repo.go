package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// eventRepository implements domain.EventRepository
type eventRepository struct {
	q querier
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) domain.EventRepository {
	return &eventRepository{q: db}
}

// Create stores an event together with its duplicate linkage
func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, owner_id, date, direction, movement_text, product_text, institution_name,
			quantity, unit_price, declared_amount, computed_amount, is_duplicate, original_event_id,
			movement_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		event.ID,
		event.OwnerID,
		event.Date,
		string(event.Direction),
		event.MovementText,
		event.ProductText,
		event.InstitutionName,
		event.Quantity.String(),
		event.UnitPrice.String(),
		event.DeclaredAmount.String(),
		event.ComputedAmount.String(),
		event.IsDuplicate,
		nullUUID(event.OriginalEventID),
		string(event.MovementType),
		event.CreatedAt,
	)
	if err != nil {
		return mapInsertError("event", err)
	}
	return nil
}

// ListOriginals returns the owner's non-duplicate events on the given calendar day
func (r *eventRepository) ListOriginals(ctx context.Context, ownerID int64, day time.Time) ([]*domain.Event, error) {
	query := `
		SELECT id, owner_id, date, direction, movement_text, product_text, institution_name,
			quantity, unit_price, declared_amount, computed_amount, is_duplicate, original_event_id,
			movement_type, created_at
		FROM events
		WHERE owner_id = $1 AND NOT is_duplicate AND date >= $2 AND date < $3
		ORDER BY position
	`

	start := domain.Day(day)
	rows, err := r.q.QueryContext(ctx, query, ownerID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func scanEvent(s scanner) (*domain.Event, error) {
	var event domain.Event
	var quantity, unitPrice, declared, computed string
	var original uuid.NullUUID

	err := s.Scan(
		&event.ID,
		&event.OwnerID,
		&event.Date,
		&event.Direction,
		&event.MovementText,
		&event.ProductText,
		&event.InstitutionName,
		&quantity,
		&unitPrice,
		&declared,
		&computed,
		&event.IsDuplicate,
		&original,
		&event.MovementType,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	if event.Quantity, err = parseDecimal("quantity", quantity); err != nil {
		return nil, err
	}
	if event.UnitPrice, err = parseDecimal("unit_price", unitPrice); err != nil {
		return nil, err
	}
	if event.DeclaredAmount, err = parseDecimal("declared_amount", declared); err != nil {
		return nil, err
	}
	if event.ComputedAmount, err = parseDecimal("computed_amount", computed); err != nil {
		return nil, err
	}
	event.OriginalEventID = uuidPtr(original)

	return &event, nil
}
