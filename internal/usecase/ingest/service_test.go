package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/portfolio-ledger/internal/adapter/category"
	"github.com/simaogato/portfolio-ledger/internal/adapter/repository/memory"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/simaogato/portfolio-ledger/internal/logger"
	"github.com/simaogato/portfolio-ledger/internal/usecase/classifier"
	"github.com/simaogato/portfolio-ledger/internal/usecase/ledger"
	"github.com/simaogato/portfolio-ledger/internal/usecase/lot"
	"github.com/simaogato/portfolio-ledger/internal/usecase/txfactory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T, owners ...int64) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for _, owner := range owners {
		require.NoError(t, store.Repositories().Portfolios.Create(context.Background(), &domain.Portfolio{ID: uuid.New(), OwnerID: owner}))
	}

	transactions := txfactory.NewFactory(
		classifier.NewMovementClassifier(classifier.DefaultMovementTable()),
		classifier.NewTransactionTypeClassifier(classifier.DefaultTypeTable()),
	)
	lots := lot.NewFactory(category.NewStatic(category.DefaultCategories), time.Second, zerolog.Nop())

	return NewService(store, transactions, lots, 4, zerolog.Nop()), store
}

func event(owner int64, day int, dir domain.Direction, movement, product, qty, price string) *domain.Event {
	q, p := dec(qty), dec(price)
	return &domain.Event{
		OwnerID:         owner,
		Date:            time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Direction:       dir,
		MovementText:    movement,
		ProductText:     product,
		InstitutionName: "XP INVESTIMENTOS",
		Quantity:        q,
		UnitPrice:       p,
		DeclaredAmount:  q.Mul(p).Round(2),
	}
}

func buy(owner int64, day int, product, qty, price string) *domain.Event {
	return event(owner, day, domain.DirectionEntry, "Compra / Venda", product, qty, price)
}

func sell(owner int64, day int, product, qty, price string) *domain.Event {
	return event(owner, day, domain.DirectionExit, "Compra / Venda", product, qty, price)
}

func portfolioOf(t *testing.T, store *memory.Store, owner int64) *domain.Portfolio {
	t.Helper()
	p, err := store.Repositories().Portfolios.GetByOwner(context.Background(), owner)
	require.NoError(t, err)
	return p
}

func assertBalances(t *testing.T, want domain.Balances, p *domain.Portfolio) {
	t.Helper()
	assert.True(t, want.Equal(p.Balances()), "want %+v, got %+v", want, p.Balances())
}

func TestIngest_Dividend(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	e := event(1, 29, domain.DirectionEntry, "Dividendo", "ITSA4 - ITAUSA S.A.", "19", "0.059")
	e.DeclaredAmount = dec("1.12")

	result, err := svc.Ingest(ctx, e)

	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "1.121", result.Event.ComputedAmount.String())
	assert.Equal(t, "1.12", result.Event.DeclaredAmount.String())
	require.NotNil(t, result.Transaction)
	assert.Equal(t, "1.121", result.Transaction.TotalAmount.String())
	assert.Equal(t, domain.TransactionTypeProfitDividend, result.Transaction.TransactionType)
	assert.Equal(t, domain.MovementCredit, result.Transaction.MovementType)
	assert.Nil(t, result.Lot)

	p := portfolioOf(t, store, 1)
	assert.Equal(t, "1.121", p.IncomeProfit.String())
	assert.Equal(t, "1.121", p.TotalBalance.String())
	assert.True(t, p.AppliedBalance.IsZero())
	assert.True(t, p.SaleProfit.IsZero())

	asset, err := store.Repositories().Assets.FindByName(ctx, p.ID, "ITSA4")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, *result.Transaction.AssetID)

	institution, err := store.Repositories().Institutions.FindByName(ctx, "XP INVESTIMENTOS")
	require.NoError(t, err)
	assert.Equal(t, institution.ID, *result.Transaction.InstitutionID)
}

func TestIngest_DuplicateShortCircuits(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	first, err := svc.Ingest(ctx, buy(1, 10, "ITSA4 - ITAUSA", "10", "9.50"))
	require.NoError(t, err)
	before := portfolioOf(t, store, 1).Balances()

	second, err := svc.Ingest(ctx, buy(1, 10, "ITSA4 - ITAUSA", "10", "9.5"))
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Nil(t, second.Transaction)
	require.NotNil(t, second.Event.OriginalEventID)
	assert.Equal(t, first.Event.ID, *second.Event.OriginalEventID)
	assert.True(t, before.Equal(portfolioOf(t, store, 1).Balances()))

	txs, err := store.Repositories().Transactions.ListByPortfolio(ctx, portfolioOf(t, store, 1).ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	// The duplicate is stored, but never offered as an original
	originals, err := store.Repositories().Events.ListOriginals(ctx, 1, first.Event.Date)
	require.NoError(t, err)
	assert.Len(t, originals, 1)
}

func TestIngest_FIFOSales(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	for _, e := range []*domain.Event{
		buy(1, 1, "ITSA4 - ITAUSA", "10", "1.00"),
		buy(1, 2, "ITSA4 - ITAUSA", "10", "2.00"),
	} {
		result, err := svc.Ingest(ctx, e)
		require.NoError(t, err)
		require.NotNil(t, result.Lot)
		assert.Equal(t, domain.LotSubtypePreferred, result.Lot.Subtype)
		assert.Equal(t, domain.TransactionTypeSell, result.Transaction.TransactionType)
	}

	first, err := svc.Ingest(ctx, sell(1, 3, "ITSA4 - ITAUSA", "15", "3.00"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeBuy, first.Transaction.TransactionType)
	require.NotNil(t, first.Transaction.AverageCost)
	assert.Equal(t, "1.3333", first.Transaction.AverageCost.String())
	require.NotNil(t, first.RealizedProfit)
	assert.True(t, dec("25.0005").Equal(*first.RealizedProfit))
	assert.Nil(t, first.Lot)

	assertBalances(t, domain.Balances{
		Total:      dec("75"),
		Applied:    dec("30"),
		SaleProfit: dec("25.0005"),
	}, portfolioOf(t, store, 1))

	second, err := svc.Ingest(ctx, sell(1, 4, "ITSA4 - ITAUSA", "5", "3.00"))
	require.NoError(t, err)
	assert.True(t, dec("2").Equal(*second.Transaction.AverageCost))

	before := portfolioOf(t, store, 1).Balances()

	_, err = svc.Ingest(ctx, sell(1, 5, "ITSA4 - ITAUSA", "1", "3.00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOversell))

	var oversell *domain.OversellError
	require.True(t, errors.As(err, &oversell))
	assert.True(t, oversell.Available.IsZero())

	// Nothing of the failed event was kept
	assert.True(t, before.Equal(portfolioOf(t, store, 1).Balances()))
	originals, err := store.Repositories().Events.ListOriginals(ctx, 1, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, originals)
}

func TestIngest_OversellOnFirstSale(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	_, err := svc.Ingest(ctx, buy(1, 1, "BBAS3 - BANCO DO BRASIL", "10", "1.00"))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, buy(1, 2, "BBAS3 - BANCO DO BRASIL", "10", "2.00"))
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, sell(1, 3, "BBAS3 - BANCO DO BRASIL", "25", "3.00"))

	assert.True(t, errors.Is(err, domain.ErrOversell))
	assertBalances(t, domain.Balances{Total: dec("30"), Applied: dec("30")}, portfolioOf(t, store, 1))
}

func TestIngest_FixedIncomeRedemption(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	product := "CDB - CDBC247FRL8 - MERCADO CREDITO"
	purchase, err := svc.Ingest(ctx, buy(1, 1, product, "2", "1000"))
	require.NoError(t, err)
	require.NotNil(t, purchase.Lot)
	assert.Equal(t, domain.LotKindFixedIncome, purchase.Lot.Kind)
	assert.Equal(t, domain.LotSubtypeCDB, purchase.Lot.Subtype)

	redemption, err := svc.Ingest(ctx, sell(1, 20, product, "1", "1100"))
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(*redemption.RealizedProfit))

	p := portfolioOf(t, store, 1)
	asset, err := store.Repositories().Assets.FindByName(ctx, p.ID, "CDB - CDBC247FRL8")
	require.NoError(t, err)
	assert.Equal(t, domain.LotKindFixedIncome, asset.Kind)
	assert.True(t, dec("100").Equal(p.SaleProfit))
}

func TestIngest_AmbiguousTickerUsesCategory(t *testing.T) {
	svc, _ := newService(t, 1)

	result, err := svc.Ingest(context.Background(), buy(1, 1, "SAPR11 - Empresa XYZ", "3", "25.10"))

	require.NoError(t, err)
	require.NotNil(t, result.Lot)
	assert.Equal(t, domain.LotSubtypeUnit, result.Lot.Subtype)
}

func TestIngest_TransferDoesNotMoveBalances(t *testing.T) {
	svc, store := newService(t, 1)

	result, err := svc.Ingest(context.Background(),
		event(1, 1, domain.DirectionEntry, "Transferência - Liquidação", "ITSA4 - ITAUSA", "100", "9.00"))

	require.NoError(t, err)
	assert.Equal(t, domain.MovementTransfer, result.Transaction.MovementType)
	assert.Equal(t, domain.TransactionTypeTransfer, result.Transaction.TransactionType)
	assert.True(t, portfolioOf(t, store, 1).Balances().IsZero())
}

func TestIngest_UnclassifiedMovementIsKept(t *testing.T) {
	svc, _ := newService(t, 1)

	result, err := svc.Ingest(context.Background(),
		event(1, 1, domain.DirectionEntry, "Evento Misterioso", "ITSA4 - ITAUSA", "1", "1"))

	require.NoError(t, err)
	assert.Equal(t, domain.MovementUnclassified, result.Event.MovementType)
	assert.Equal(t, domain.TransactionTypeOther, result.Transaction.TransactionType)
}

func TestIngest_MissingPortfolio(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	e := buy(42, 1, "ITSA4 - ITAUSA", "1", "1")
	_, err := svc.Ingest(ctx, e)

	assert.True(t, errors.Is(err, domain.ErrPortfolioNotFound))
	originals, err := store.Repositories().Events.ListOriginals(ctx, 42, e.Date)
	require.NoError(t, err)
	assert.Empty(t, originals)
}

func TestIngest_InvalidEvent(t *testing.T) {
	svc, _ := newService(t, 1)

	e := buy(1, 1, "   ", "1", "1")
	_, err := svc.Ingest(context.Background(), e)

	assert.True(t, errors.Is(err, domain.ErrInvalidEvent))
}

func TestIngest_CallerEventUntouched(t *testing.T) {
	svc, _ := newService(t, 1)
	e := buy(1, 1, "ITSA4 - ITAUSA", "1", "1")

	_, err := svc.Ingest(context.Background(), e)

	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, e.ID)
	assert.False(t, e.IsDuplicate)
}

func TestRecalculate_MatchesIncremental(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	events := []*domain.Event{
		buy(1, 1, "ITSA4 - ITAUSA", "10", "1.00"),
		buy(1, 2, "ITSA4 - ITAUSA", "10", "2.00"),
		event(1, 3, domain.DirectionEntry, "Dividendo", "ITSA4 - ITAUSA", "19", "0.059"),
		sell(1, 4, "ITSA4 - ITAUSA", "15", "3.00"),
		event(1, 5, domain.DirectionEntry, "Juros Sobre Capital Próprio", "ITSA4 - ITAUSA", "20", "0.0137"),
		event(1, 6, domain.DirectionExit, "Transferência", "ITSA4 - ITAUSA", "5", "3.00"),
		event(1, 7, domain.DirectionExit, "Taxa de Custódia", "ITSA4 - ITAUSA", "1", "0.50"),
	}
	for _, e := range events {
		_, err := svc.Ingest(ctx, e)
		require.NoError(t, err)
	}
	incremental := portfolioOf(t, store, 1).Balances()

	recalculated, err := svc.Recalculate(ctx, 1)

	require.NoError(t, err)
	assert.True(t, incremental.Equal(recalculated.Balances()), "incremental %+v, recalculated %+v", incremental, recalculated.Balances())
	assert.True(t, incremental.Equal(portfolioOf(t, store, 1).Balances()))
}

func TestRemoveTransaction(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	first, err := svc.Ingest(ctx, buy(1, 1, "ITSA4 - ITAUSA", "10", "1.00"))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, buy(1, 2, "ITSA4 - ITAUSA", "10", "2.00"))
	require.NoError(t, err)

	p, err := svc.RemoveTransaction(ctx, 1, first.Transaction.ID)
	require.NoError(t, err)
	assertBalances(t, domain.Balances{Total: dec("20"), Applied: dec("20")}, p)

	lots, err := store.Repositories().Lots.ListByAsset(ctx, *first.Transaction.AssetID, domain.LotKindVariableIncome)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.True(t, dec("2").Equal(lots[0].UnitPrice))

	// Remaining lot alone cannot cover 15 units
	_, err = svc.Ingest(ctx, sell(1, 3, "ITSA4 - ITAUSA", "15", "3.00"))
	assert.True(t, errors.Is(err, domain.ErrOversell))

	txs, err := store.Repositories().Transactions.ListByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ledger.Fold(txs).Equal(portfolioOf(t, store, 1).Balances()))
}

func TestRemoveTransaction_OtherOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, 1, 2)

	result, err := svc.Ingest(ctx, buy(1, 1, "ITSA4 - ITAUSA", "10", "1.00"))
	require.NoError(t, err)

	_, err = svc.RemoveTransaction(ctx, 2, result.Transaction.ID)

	assert.True(t, errors.Is(err, domain.ErrTransactionNotFound))
}

func TestLinkTaxDocument(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1, 2)

	result, err := svc.Ingest(ctx, buy(1, 1, "ITSA4 - ITAUSA", "10", "1.00"))
	require.NoError(t, err)

	docID := uuid.New()
	require.NoError(t, svc.LinkTaxDocument(ctx, 1, result.Transaction.ID, docID))

	tx, err := store.Repositories().Transactions.GetByID(ctx, result.Transaction.ID)
	require.NoError(t, err)
	require.NotNil(t, tx.TaxDocumentID)
	assert.Equal(t, docID, *tx.TaxDocumentID)

	assert.True(t, errors.Is(svc.LinkTaxDocument(ctx, 2, result.Transaction.ID, docID), domain.ErrTransactionNotFound))
	assert.Error(t, svc.LinkTaxDocument(ctx, 1, result.Transaction.ID, uuid.Nil))
}

func TestImportBatch(t *testing.T) {
	ctx := context.Background()
	owners := []int64{1, 2, 3, 4, 5, 6}
	svc, store := newService(t, owners...)

	var events []*domain.Event
	for _, owner := range owners {
		events = append(events,
			buy(owner, 1, "ITSA4 - ITAUSA", "10", "1.00"),
			buy(owner, 2, "ITSA4 - ITAUSA", "10", "2.00"),
			sell(owner, 3, "ITSA4 - ITAUSA", "15", "3.00"),
			sell(owner, 4, "ITSA4 - ITAUSA", "10", "3.00"), // oversell
			buy(owner, 1, "ITSA4 - ITAUSA", "10", "1.00"),  // duplicate
		)
	}
	events = append(events, buy(99, 1, "ITSA4 - ITAUSA", "1", "1"), nil)

	batch, err := svc.ImportBatch(ctx, events)

	require.NoError(t, err)
	assert.Equal(t, 3*len(owners), batch.Ingested)
	assert.Equal(t, len(owners), batch.Duplicates)
	require.Len(t, batch.Failures, len(owners)+2)

	for i := 1; i < len(batch.Failures); i++ {
		assert.Less(t, batch.Failures[i-1].Index, batch.Failures[i].Index)
	}
	for _, f := range batch.Failures[:len(owners)] {
		assert.True(t, errors.Is(f.Err, domain.ErrOversell), "index %d: %v", f.Index, f.Err)
		assert.Nil(t, batch.Results[f.Index])
	}
	assert.True(t, errors.Is(batch.Failures[len(owners)].Err, domain.ErrPortfolioNotFound))
	assert.True(t, errors.Is(batch.Failures[len(owners)+1].Err, domain.ErrInvalidEvent))

	for _, owner := range owners {
		assertBalances(t, domain.Balances{
			Total:      dec("75"),
			Applied:    dec("30"),
			SaleProfit: dec("25.0005"),
		}, portfolioOf(t, store, owner))
	}
	assert.Equal(t, 0, svc.locks.size())
}

func TestIngest_ConcurrentSameOwner(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, 1)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Ingest(ctx, buy(1, 1, fmt.Sprintf("ABCD%d - X", 3+i%2), "1", fmt.Sprintf("%d", i+1)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	p := portfolioOf(t, store, 1)
	assets, err := store.Repositories().Assets.ListByPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, assets, 2)

	// 1 + 2 + ... + 20
	assert.True(t, dec("210").Equal(p.AppliedBalance))
	assert.Equal(t, 0, svc.locks.size())
}

// readingClassifier reads the store while classifying, which only succeeds
// when no unit of work is holding it
type readingClassifier struct {
	store *memory.Store
}

func (c *readingClassifier) Classify(ctx context.Context, tickers []string) (map[string]domain.AssetCategory, error) {
	if _, err := c.store.Repositories().Portfolios.GetByOwner(ctx, 1); err != nil {
		return nil, err
	}
	out := make(map[string]domain.AssetCategory, len(tickers))
	for _, t := range tickers {
		out[t] = domain.AssetCategoryUnit
	}
	return out, nil
}

func TestIngest_CategoryLookupOutsideUnitOfWork(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Repositories().Portfolios.Create(ctx, &domain.Portfolio{ID: uuid.New(), OwnerID: 1}))

	transactions := txfactory.NewFactory(
		classifier.NewMovementClassifier(classifier.DefaultMovementTable()),
		classifier.NewTransactionTypeClassifier(classifier.DefaultTypeTable()),
	)
	lots := lot.NewFactory(&readingClassifier{store: store}, 500*time.Millisecond, zerolog.Nop())
	svc := NewService(store, transactions, lots, 1, zerolog.Nop())

	result, err := svc.Ingest(ctx, buy(1, 1, "TAEE11 - TAESA UNT", "2", "35.00"))

	require.NoError(t, err)
	require.NotNil(t, result.Lot)
	assert.Equal(t, domain.LotSubtypeUnit, result.Lot.Subtype)
}

func TestIngest_DataQualityWarnings(t *testing.T) {
	svc, _ := newService(t, 1)
	var buf bytes.Buffer
	svc.log = logger.New(logger.Config{Level: "warn", Output: &buf})
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_, err := svc.Ingest(context.Background(),
		event(1, 1, domain.DirectionEntry, "Evento Misterioso", "ITSA4 - ITAUSA", "1", "1"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"message":"Unclassified movement"`)
	assert.Contains(t, out, `"message":"Movement typed as OTHER"`)
	assert.NotContains(t, out, `"level":"debug"`)
}
