package txfactory

import (
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// MovementClassifier maps a raw movement description to a MovementType
type MovementClassifier interface {
	Classify(direction domain.Direction, text string) domain.MovementType
}

// TypeClassifier maps a raw movement description to a TransactionType
type TypeClassifier interface {
	Classify(direction domain.Direction, text string) domain.TransactionType
}

// Refs are the resolved aggregates a transaction links to
type Refs struct {
	PortfolioID   uuid.UUID
	AssetID       *uuid.UUID
	InstitutionID *uuid.UUID
}

// Factory assembles canonical transactions from events
type Factory struct {
	Movements MovementClassifier
	Types     TypeClassifier
	now       func() time.Time
}

// NewFactory creates a new Factory instance
func NewFactory(movements MovementClassifier, types TypeClassifier) *Factory {
	return &Factory{
		Movements: movements,
		Types:     types,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Classify runs both classifiers on the event's movement text
func (f *Factory) Classify(event *domain.Event) (domain.MovementType, domain.TransactionType) {
	return f.Movements.Classify(event.Direction, event.MovementText),
		f.Types.Classify(event.Direction, event.MovementText)
}

// Build creates the transaction for a non-duplicate event. It has no side effects.
// TotalAmount is UnitPrice * Quantity, independent of the declared amount, and
// stays nil when the event carried no quantity or no price.
func (f *Factory) Build(event *domain.Event, refs Refs) *domain.Transaction {
	movement, txType := f.Classify(event)

	tx := &domain.Transaction{
		ID:              uuid.New(),
		PortfolioID:     refs.PortfolioID,
		AssetID:         refs.AssetID,
		InstitutionID:   refs.InstitutionID,
		Date:            event.Date,
		Direction:       event.Direction,
		Quantity:        event.Quantity,
		UnitPrice:       event.UnitPrice,
		MovementType:    movement,
		TransactionType: txType,
		CreatedAt:       f.now(),
	}

	if event.ID != uuid.Nil {
		eventID := event.ID
		tx.EventID = &eventID
	}

	if !event.Quantity.IsZero() && !event.UnitPrice.IsZero() {
		total := event.UnitPrice.Mul(event.Quantity)
		tx.TotalAmount = &total
	}

	return tx
}
