package grpc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/simaogato/portfolio-ledger/internal/usecase/dashboard"
	"github.com/simaogato/portfolio-ledger/internal/usecase/ingest"
)

// Decimals travel as strings so no precision is lost to float64.
// Dates are RFC3339 or YYYY-MM-DD.

func field(s *structpb.Struct, key string) *structpb.Value {
	if s == nil {
		return nil
	}
	return s.GetFields()[key]
}

func getString(s *structpb.Struct, key string) string {
	return field(s, key).GetStringValue()
}

func getOwnerID(s *structpb.Struct) (int64, error) {
	v := field(s, "owner_id")
	switch v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := v.GetNumberValue()
		if n != math.Trunc(n) || n <= 0 || n > 1<<53 {
			return 0, fmt.Errorf("invalid owner_id: %v", n)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		var id int64
		if _, err := fmt.Sscan(v.GetStringValue(), &id); err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid owner_id: %q", v.GetStringValue())
		}
		return id, nil
	default:
		return 0, fmt.Errorf("owner_id is required")
	}
}

func getUUID(s *structpb.Struct, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(getString(s, key))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return id, nil
}

// getDecimal reads a decimal field; absent fields are zero
func getDecimal(s *structpb.Struct, key string) (decimal.Decimal, error) {
	v := field(s, key)
	switch v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return decimal.Zero, nil
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(v.GetNumberValue()), nil
	case *structpb.Value_StringValue:
		raw := strings.TrimSpace(v.GetStringValue())
		if raw == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s format: %w", key, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("invalid %s format", key)
	}
}

func getDate(s *structpb.Struct, key string) (time.Time, error) {
	raw := strings.TrimSpace(getString(s, key))
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %q", key, raw)
	}
	return t, nil
}

// eventFromStruct decodes an IngestEvent request
func eventFromStruct(s *structpb.Struct) (*domain.Event, error) {
	ownerID, err := getOwnerID(s)
	if err != nil {
		return nil, err
	}
	date, err := getDate(s, "date")
	if err != nil {
		return nil, err
	}
	quantity, err := getDecimal(s, "quantity")
	if err != nil {
		return nil, err
	}
	unitPrice, err := getDecimal(s, "unit_price")
	if err != nil {
		return nil, err
	}
	declared, err := getDecimal(s, "declared_amount")
	if err != nil {
		return nil, err
	}

	return &domain.Event{
		OwnerID:         ownerID,
		Date:            date,
		Direction:       domain.Direction(strings.ToUpper(strings.TrimSpace(getString(s, "direction")))),
		MovementText:    getString(s, "movement"),
		ProductText:     getString(s, "product"),
		InstitutionName: getString(s, "institution"),
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DeclaredAmount:  declared,
	}, nil
}

func decimalValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func uuidValue(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func balancesToMap(b domain.Balances) map[string]any {
	return map[string]any{
		"total_balance":   b.Total.String(),
		"applied_balance": b.Applied.String(),
		"sale_profit":     b.SaleProfit.String(),
		"income_profit":   b.IncomeProfit.String(),
	}
}

func portfolioToMap(p *domain.Portfolio) map[string]any {
	m := balancesToMap(p.Balances())
	m["id"] = p.ID.String()
	m["owner_id"] = p.OwnerID
	m["updated_at"] = p.UpdatedAt.Format(time.RFC3339)
	return m
}

func transactionToMap(tx *domain.Transaction) map[string]any {
	return map[string]any{
		"id":               tx.ID.String(),
		"asset_id":         uuidValue(tx.AssetID),
		"institution_id":   uuidValue(tx.InstitutionID),
		"date":             tx.Date.Format(time.RFC3339),
		"direction":        string(tx.Direction),
		"quantity":         tx.Quantity.String(),
		"unit_price":       tx.UnitPrice.String(),
		"total_amount":     decimalValue(tx.TotalAmount),
		"average_cost":     decimalValue(tx.AverageCost),
		"movement_type":    string(tx.MovementType),
		"transaction_type": string(tx.TransactionType),
	}
}

func lotToMap(l *domain.Lot) map[string]any {
	return map[string]any{
		"id":         l.ID.String(),
		"asset_id":   l.AssetID.String(),
		"quantity":   l.Quantity.String(),
		"unit_price": l.UnitPrice.String(),
		"total":      l.Total.String(),
		"kind":       string(l.Kind),
		"subtype":    string(l.Subtype),
	}
}

func resultToMap(r *ingest.Result) map[string]any {
	m := map[string]any{
		"event_id":          r.Event.ID.String(),
		"duplicate":         r.Duplicate,
		"original_event_id": uuidValue(r.Event.OriginalEventID),
		"movement_type":     string(r.Event.MovementType),
		"realized_profit":   decimalValue(r.RealizedProfit),
		"transaction":       nil,
		"lot":               nil,
	}
	if r.Transaction != nil {
		m["transaction"] = transactionToMap(r.Transaction)
	}
	if r.Lot != nil {
		m["lot"] = lotToMap(r.Lot)
	}
	if r.Portfolio != nil {
		m["portfolio"] = portfolioToMap(r.Portfolio)
	}
	return m
}

func batchToMap(b *ingest.BatchResult) map[string]any {
	results := make([]any, len(b.Results))
	for i, r := range b.Results {
		if r != nil {
			results[i] = resultToMap(r)
		}
	}

	failures := make([]any, 0, len(b.Failures))
	for _, f := range b.Failures {
		failures = append(failures, map[string]any{
			"index":    f.Index,
			"owner_id": f.OwnerID,
			"error":    f.Err.Error(),
		})
	}

	return map[string]any{
		"ingested":   b.Ingested,
		"duplicates": b.Duplicates,
		"results":    results,
		"failures":   failures,
	}
}

func summaryToMap(s *dashboard.Summary) map[string]any {
	holdings := make([]any, 0, len(s.Holdings))
	for _, h := range s.Holdings {
		holdings = append(holdings, map[string]any{
			"asset_id":     h.AssetID.String(),
			"name":         h.Name,
			"kind":         string(h.Kind),
			"quantity":     h.Quantity.String(),
			"cost":         h.Cost.String(),
			"average_cost": h.AverageCost.String(),
		})
	}

	m := balancesToMap(s.Balances)
	m["id"] = s.PortfolioID.String()
	m["owner_id"] = s.OwnerID
	m["updated_at"] = s.UpdatedAt.Format(time.RFC3339)
	m["holdings"] = holdings
	return m
}
