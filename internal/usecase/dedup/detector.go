package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// Result is the outcome of a duplicate check
type Result struct {
	IsDuplicate bool
	Original    *domain.Event // nil unless IsDuplicate
}

// Detector decides whether an incoming event repeats an earlier one of the same owner
type Detector struct {
	EventRepo domain.EventRepository
}

// NewDetector creates a new Detector instance
func NewDetector(eventRepo domain.EventRepository) *Detector {
	return &Detector{EventRepo: eventRepo}
}

// Check searches the owner's non-duplicate events for one with an identical key:
// date, movement text, product text, institution, quantity, unit price and
// declared amount. Numbers are compared with exact decimal equality.
// Check does not modify the event; see Mark.
func (d *Detector) Check(ctx context.Context, event *domain.Event) (Result, error) {
	candidates, err := d.EventRepo.ListOriginals(ctx, event.OwnerID, domain.Day(event.Date))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list candidate events: %w", err)
	}

	for _, candidate := range candidates {
		// Duplicates never act as originals
		if candidate.IsDuplicate || candidate.ID == event.ID {
			continue
		}
		if SameKey(candidate, event) {
			return Result{IsDuplicate: true, Original: candidate}, nil
		}
	}

	return Result{}, nil
}

// Mark runs Check and records the outcome on the event
func (d *Detector) Mark(ctx context.Context, event *domain.Event) (Result, error) {
	result, err := d.Check(ctx, event)
	if err != nil {
		return Result{}, err
	}

	event.IsDuplicate = result.IsDuplicate
	event.OriginalEventID = nil
	if result.IsDuplicate {
		id := result.Original.ID
		event.OriginalEventID = &id
	}
	return result, nil
}

// SameKey reports whether two events share the duplicate-detection key
func SameKey(a, b *domain.Event) bool {
	return a.OwnerID == b.OwnerID &&
		domain.Day(a.Date).Equal(domain.Day(b.Date)) &&
		strings.TrimSpace(a.MovementText) == strings.TrimSpace(b.MovementText) &&
		strings.TrimSpace(a.ProductText) == strings.TrimSpace(b.ProductText) &&
		strings.TrimSpace(a.InstitutionName) == strings.TrimSpace(b.InstitutionName) &&
		a.Quantity.Equal(b.Quantity) &&
		a.UnitPrice.Equal(b.UnitPrice) &&
		a.DeclaredAmount.Equal(b.DeclaredAmount)
}
