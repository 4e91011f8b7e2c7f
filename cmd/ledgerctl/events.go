package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// eventRecord is one row of an import file.
// Decimals may be JSON strings or numbers; date is YYYY-MM-DD or RFC3339.
type eventRecord struct {
	OwnerID        int64           `json:"owner_id"`
	Date           string          `json:"date"`
	Direction      string          `json:"direction"`
	Movement       string          `json:"movement"`
	Product        string          `json:"product"`
	Institution    string          `json:"institution"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DeclaredAmount decimal.Decimal `json:"declared_amount"`
}

func decodeEvents(data []byte) ([]*domain.Event, error) {
	var records []eventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	events := make([]*domain.Event, 0, len(records))
	for i, r := range records {
		date, err := parseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, &domain.Event{
			OwnerID:         r.OwnerID,
			Date:            date,
			Direction:       domain.Direction(strings.ToUpper(strings.TrimSpace(r.Direction))),
			MovementText:    r.Movement,
			ProductText:     r.Product,
			InstitutionName: r.Institution,
			Quantity:        r.Quantity,
			UnitPrice:       r.UnitPrice,
			DeclaredAmount:  r.DeclaredAmount,
		})
	}
	return events, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}
