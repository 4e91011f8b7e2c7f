package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction represents which way an event moves an asset through the custody account
type Direction string

const (
	DirectionEntry Direction = "ENTRY"
	DirectionExit  Direction = "EXIT"
)

// Valid reports whether d is one of the known directions
func (d Direction) Valid() bool {
	return d == DirectionEntry || d == DirectionExit
}

// Event represents a raw broker-reported record before canonicalization
type Event struct {
	ID              uuid.UUID
	OwnerID         int64
	Date            time.Time
	Direction       Direction
	MovementText    string
	ProductText     string
	InstitutionName string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DeclaredAmount  decimal.Decimal // As reported by the broker, may differ from ComputedAmount by rounding
	ComputedAmount  decimal.Decimal // Quantity * UnitPrice
	IsDuplicate     bool
	OriginalEventID *uuid.UUID   // Set only when IsDuplicate is true
	MovementType    MovementType // Classifier output kept for import-error reporting
	CreatedAt       time.Time
}

// Validate ensures the event carries the fields the pipeline depends on
func (e *Event) Validate() error {
	if e.OwnerID <= 0 {
		return errors.New("event owner id must be positive")
	}
	if !e.Direction.Valid() {
		return errors.New("event direction must be ENTRY or EXIT")
	}
	if e.Date.IsZero() {
		return errors.New("event date cannot be empty")
	}
	if strings.TrimSpace(e.ProductText) == "" {
		return errors.New("event product text cannot be empty")
	}
	if e.Quantity.IsNegative() {
		return errors.New("event quantity cannot be negative")
	}
	if e.UnitPrice.IsNegative() {
		return errors.New("event unit price cannot be negative")
	}
	if e.IsDuplicate && e.OriginalEventID == nil {
		return errors.New("duplicate event must reference its original")
	}
	return nil
}

// ComputeAmount fills ComputedAmount from quantity and unit price.
// DeclaredAmount is left untouched.
func (e *Event) ComputeAmount() {
	e.ComputedAmount = e.UnitPrice.Mul(e.Quantity)
}

// Day truncates a timestamp to its calendar day in UTC.
// The instant is converted first, so the same moment read back in any
// session timezone lands on the same day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
