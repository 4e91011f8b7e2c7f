package costbasis

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/portfolio-ledger/internal/domain"
)

// Precision is the number of decimal places of an average cost
const Precision int32 = 4

// SortFIFO orders lots by purchase date, ties broken by insertion sequence.
// The input slice is not modified.
func SortFIFO(lots []*domain.Lot) []*domain.Lot {
	sorted := make([]*domain.Lot, len(lots))
	copy(sorted, lots)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].PurchaseDate.Equal(sorted[j].PurchaseDate) {
			return sorted[i].PurchaseDate.Before(sorted[j].PurchaseDate)
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	return sorted
}

// Available returns the lot quantity not yet attributed to earlier disposals
func Available(lots []*domain.Lot, priorDisposed decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		total = total.Add(lot.Quantity)
	}
	return total.Sub(priorDisposed)
}

// AverageSaleCost returns the FIFO weighted unit cost of selling soldQty units.
// Logic:
//  1. Sort lots by purchase date (ties by insertion order)
//  2. Skip priorDisposed units, which earlier disposals already consumed
//  3. Consume min(lot remainder, sale remainder) per lot, accumulating cost
//  4. Divide total cost by soldQty, half-up to Precision places
//
// Lots are never modified; every call re-walks the full history.
// Returns *domain.OversellError when the remaining lots cannot cover soldQty.
func AverageSaleCost(assetID uuid.UUID, lots []*domain.Lot, priorDisposed, soldQty decimal.Decimal) (decimal.Decimal, error) {
	if soldQty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.New("sold quantity must be positive")
	}
	if priorDisposed.IsNegative() {
		return decimal.Zero, errors.New("prior disposed quantity cannot be negative")
	}

	available := Available(lots, priorDisposed)
	if available.LessThan(soldQty) {
		return decimal.Zero, &domain.OversellError{
			AssetID:   assetID,
			Requested: soldQty,
			Available: decimal.Max(available, decimal.Zero),
		}
	}

	skip := priorDisposed
	remaining := soldQty
	totalCost := decimal.Zero

	for _, lot := range SortFIFO(lots) {
		if remaining.IsZero() {
			break
		}

		lotRemaining := lot.Quantity
		if skip.IsPositive() {
			consumed := decimal.Min(skip, lotRemaining)
			skip = skip.Sub(consumed)
			lotRemaining = lotRemaining.Sub(consumed)
		}
		if !lotRemaining.IsPositive() {
			continue
		}

		take := decimal.Min(lotRemaining, remaining)
		totalCost = totalCost.Add(take.Mul(lot.UnitPrice))
		remaining = remaining.Sub(take)
	}

	// Safety check: the availability test above guarantees full coverage
	if !remaining.IsZero() {
		return decimal.Zero, &domain.OversellError{AssetID: assetID, Requested: soldQty, Available: soldQty.Sub(remaining)}
	}

	return totalCost.DivRound(soldQty, Precision), nil
}

// RealizedProfit is the fixed-income variant: saleAmount - averageCost*soldQty
func RealizedProfit(assetID uuid.UUID, lots []*domain.Lot, priorDisposed, soldQty, saleAmount decimal.Decimal) (decimal.Decimal, error) {
	avg, err := AverageSaleCost(assetID, lots, priorDisposed, soldQty)
	if err != nil {
		return decimal.Zero, err
	}
	return saleAmount.Sub(avg.Mul(soldQty)), nil
}

// DisposedQuantity sums the quantity of the non-deleted disposals in txs
func DisposedQuantity(txs []*domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.IsDeleted() || !tx.IsDisposal() {
			continue
		}
		total = total.Add(tx.Quantity)
	}
	return total
}

// OpenPosition returns the units still held and their FIFO cost after
// priorDisposed units have left the oldest lots
func OpenPosition(lots []*domain.Lot, priorDisposed decimal.Decimal) (quantity, cost decimal.Decimal) {
	quantity, cost = decimal.Zero, decimal.Zero
	skip := priorDisposed

	for _, lot := range SortFIFO(lots) {
		remaining := lot.Quantity
		if skip.IsPositive() {
			consumed := decimal.Min(skip, remaining)
			skip = skip.Sub(consumed)
			remaining = remaining.Sub(consumed)
		}
		if !remaining.IsPositive() {
			continue
		}
		quantity = quantity.Add(remaining)
		cost = cost.Add(remaining.Mul(lot.UnitPrice))
	}
	return quantity, cost
}
