package costbasis

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d1 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newLot(date time.Time, qty, price string, seq int64) *domain.Lot {
	q, p := dec(qty), dec(price)
	return &domain.Lot{
		ID:           uuid.New(),
		PurchaseDate: date,
		Quantity:     q,
		UnitPrice:    p,
		Total:        q.Mul(p),
		Kind:         domain.LotKindVariableIncome,
		Seq:          seq,
	}
}

// twoLots returns the lots out of order to exercise the sort
func twoLots() []*domain.Lot {
	return []*domain.Lot{
		newLot(d2, "10", "2.00", 2),
		newLot(d1, "10", "1.00", 1),
	}
}

func TestAverageSaleCost(t *testing.T) {
	tests := []struct {
		name          string
		priorDisposed string
		sold          string
		want          string
	}{
		{"Consumes first lot then part of the second", "0", "15", "1.3333"},
		{"Only first lot", "0", "10", "1"},
		{"Entire history", "0", "20", "1.5"},
		{"After an earlier disposal of 15", "15", "5", "2"},
		{"Earlier disposal inside the first lot", "4", "8", "1.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AverageSaleCost(uuid.New(), twoLots(), dec(tt.priorDisposed), dec(tt.sold))

			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestAverageSaleCost_PrecisionIsFourPlaces(t *testing.T) {
	got, err := AverageSaleCost(uuid.New(), twoLots(), decimal.Zero, dec("15"))

	require.NoError(t, err)
	assert.Equal(t, "1.3333", got.StringFixed(Precision))
}

func TestAverageSaleCost_RoundsHalfUp(t *testing.T) {
	lots := []*domain.Lot{
		newLot(d1, "1", "0.00005", 1),
		newLot(d2, "1", "0", 2),
	}

	// 0.00005 / 1 rounds up to 0.0001
	got, err := AverageSaleCost(uuid.New(), lots, decimal.Zero, dec("1"))

	require.NoError(t, err)
	assert.True(t, dec("0.0001").Equal(got), "got %s", got)
}

func TestAverageSaleCost_Oversell(t *testing.T) {
	assetID := uuid.New()

	_, err := AverageSaleCost(assetID, twoLots(), decimal.Zero, dec("25"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOversell))

	var oversell *domain.OversellError
	require.True(t, errors.As(err, &oversell))
	assert.Equal(t, assetID, oversell.AssetID)
	assert.True(t, dec("25").Equal(oversell.Requested))
	assert.True(t, dec("20").Equal(oversell.Available))
}

func TestAverageSaleCost_SequentialDisposals(t *testing.T) {
	lots := twoLots()
	assetID := uuid.New()

	first, err := AverageSaleCost(assetID, lots, decimal.Zero, dec("15"))
	require.NoError(t, err)
	assert.True(t, dec("1.3333").Equal(first))

	second, err := AverageSaleCost(assetID, lots, dec("15"), dec("5"))
	require.NoError(t, err)
	assert.True(t, dec("2").Equal(second))

	_, err = AverageSaleCost(assetID, lots, dec("20"), dec("1"))
	assert.True(t, errors.Is(err, domain.ErrOversell))
}

func TestAverageSaleCost_DoesNotMutateLots(t *testing.T) {
	lots := twoLots()

	_, err := AverageSaleCost(uuid.New(), lots, dec("3"), dec("15"))
	require.NoError(t, err)

	assert.True(t, dec("10").Equal(lots[0].Quantity))
	assert.True(t, dec("10").Equal(lots[1].Quantity))
	assert.Equal(t, d2, lots[0].PurchaseDate, "input order preserved")
}

func TestAverageSaleCost_TieBrokenBySequence(t *testing.T) {
	lots := []*domain.Lot{
		newLot(d1, "5", "3.00", 2),
		newLot(d1, "5", "1.00", 1),
	}

	got, err := AverageSaleCost(uuid.New(), lots, decimal.Zero, dec("5"))

	require.NoError(t, err)
	assert.True(t, dec("1").Equal(got))
}

func TestAverageSaleCost_InvalidQuantity(t *testing.T) {
	_, err := AverageSaleCost(uuid.New(), twoLots(), decimal.Zero, decimal.Zero)
	assert.Error(t, err)

	_, err = AverageSaleCost(uuid.New(), twoLots(), dec("-1"), dec("1"))
	assert.Error(t, err)
}

func TestAverageSaleCost_NoLots(t *testing.T) {
	_, err := AverageSaleCost(uuid.New(), nil, decimal.Zero, dec("1"))

	assert.True(t, errors.Is(err, domain.ErrOversell))
}

func TestRealizedProfit(t *testing.T) {
	// avg cost 1.3333 * 15 = 19.9995
	got, err := RealizedProfit(uuid.New(), twoLots(), decimal.Zero, dec("15"), dec("30"))

	require.NoError(t, err)
	assert.True(t, dec("10.0005").Equal(got), "got %s", got)
}

func TestDisposedQuantity(t *testing.T) {
	deletedAt := time.Now()
	txs := []*domain.Transaction{
		{Direction: domain.DirectionExit, TransactionType: domain.TransactionTypeBuy, Quantity: dec("5")},
		{Direction: domain.DirectionExit, TransactionType: domain.TransactionTypeBuy, Quantity: dec("3"), DeletedAt: &deletedAt},
		{Direction: domain.DirectionEntry, TransactionType: domain.TransactionTypeSell, Quantity: dec("10")},
		{Direction: domain.DirectionExit, TransactionType: domain.TransactionTypeTax, Quantity: dec("1")},
		{Direction: domain.DirectionExit, TransactionType: domain.TransactionTypeBuy, Quantity: dec("2")},
	}

	assert.True(t, dec("7").Equal(DisposedQuantity(txs)))
}

func TestOpenPosition(t *testing.T) {
	tests := []struct {
		name          string
		priorDisposed string
		wantQty       string
		wantCost      string
	}{
		{"Nothing sold", "0", "20", "30"},
		{"Part of the first lot sold", "4", "16", "26"},
		{"First lot and part of the second sold", "15", "5", "10"},
		{"Everything sold", "20", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, cost := OpenPosition(twoLots(), dec(tt.priorDisposed))
			assert.True(t, dec(tt.wantQty).Equal(qty), "qty %s", qty)
			assert.True(t, dec(tt.wantCost).Equal(cost), "cost %s", cost)
		})
	}
}
