package asset

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/simaogato/portfolio-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAssetRepository is a mock implementation of AssetRepository for testing
type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) FindByName(ctx context.Context, portfolioID uuid.UUID, name string) (*domain.Asset, error) {
	args := m.Called(ctx, portfolioID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}

func (m *MockAssetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	args := m.Called(ctx, asset)
	return args.Error(0)
}

func (m *MockAssetRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*domain.Asset, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Asset), args.Error(1)
}

// MockInstitutionRepository is a mock implementation of InstitutionRepository for testing
type MockInstitutionRepository struct {
	mock.Mock
}

func (m *MockInstitutionRepository) FindByName(ctx context.Context, name string) (*domain.Institution, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Institution), args.Error(1)
}

func (m *MockInstitutionRepository) Create(ctx context.Context, institution *domain.Institution) error {
	args := m.Called(ctx, institution)
	return args.Error(0)
}

func (m *MockInstitutionRepository) LinkOwner(ctx context.Context, institutionID uuid.UUID, ownerID int64) error {
	args := m.Called(ctx, institutionID, ownerID)
	return args.Error(0)
}

func TestResolveAsset_Existing(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	resolver := NewResolver(assetRepo, new(MockInstitutionRepository))

	portfolioID := uuid.New()
	existing := &domain.Asset{ID: uuid.New(), PortfolioID: portfolioID, Name: "ITSA4"}
	assetRepo.On("FindByName", ctx, portfolioID, "ITSA4").Return(existing, nil)

	got, err := resolver.ResolveAsset(ctx, portfolioID, " ITSA4 ", domain.LotKindVariableIncome)

	require.NoError(t, err)
	assert.Equal(t, existing, got)
	assetRepo.AssertNotCalled(t, "Create")
}

func TestResolveAsset_CreatesOnFirstReference(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	resolver := NewResolver(assetRepo, new(MockInstitutionRepository))

	portfolioID := uuid.New()
	assetRepo.On("FindByName", ctx, portfolioID, "SAPR11").Return(nil, domain.ErrAssetNotFound)
	assetRepo.On("Create", ctx, mock.MatchedBy(func(a *domain.Asset) bool {
		return a.Name == "SAPR11" && a.PortfolioID == portfolioID && a.Kind == domain.LotKindVariableIncome
	})).Return(nil)

	got, err := resolver.ResolveAsset(ctx, portfolioID, "SAPR11", domain.LotKindVariableIncome)

	require.NoError(t, err)
	assert.Equal(t, "SAPR11", got.Name)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assetRepo.AssertExpectations(t)
}

func TestResolveAsset_ConflictReReads(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	resolver := NewResolver(assetRepo, new(MockInstitutionRepository))

	portfolioID := uuid.New()
	winner := &domain.Asset{ID: uuid.New(), PortfolioID: portfolioID, Name: "BBAS3"}
	assetRepo.On("FindByName", ctx, portfolioID, "BBAS3").Return(nil, domain.ErrAssetNotFound).Once()
	assetRepo.On("Create", ctx, mock.Anything).Return(domain.ErrConflict)
	assetRepo.On("FindByName", ctx, portfolioID, "BBAS3").Return(winner, nil).Once()

	got, err := resolver.ResolveAsset(ctx, portfolioID, "BBAS3", domain.LotKindVariableIncome)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
}

func TestResolveAsset_EmptyName(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	resolver := NewResolver(assetRepo, new(MockInstitutionRepository))

	portfolioID := uuid.New()
	assetRepo.On("FindByName", ctx, portfolioID, "").Return(nil, domain.ErrAssetNotFound)

	_, err := resolver.ResolveAsset(ctx, portfolioID, "  ", domain.LotKindVariableIncome)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "asset name cannot be empty")
	assetRepo.AssertNotCalled(t, "Create")
}

func TestResolveAsset_LookupFailure(t *testing.T) {
	ctx := context.Background()
	assetRepo := new(MockAssetRepository)
	resolver := NewResolver(assetRepo, new(MockInstitutionRepository))

	portfolioID := uuid.New()
	assetRepo.On("FindByName", ctx, portfolioID, "ITSA4").Return(nil, errors.New("db down"))

	_, err := resolver.ResolveAsset(ctx, portfolioID, "ITSA4", domain.LotKindVariableIncome)

	assert.Error(t, err)
	assetRepo.AssertNotCalled(t, "Create")
}

func TestResolveInstitution_CreatesAndLinks(t *testing.T) {
	ctx := context.Background()
	institutionRepo := new(MockInstitutionRepository)
	resolver := NewResolver(new(MockAssetRepository), institutionRepo)

	institutionRepo.On("FindByName", ctx, "XP INVESTIMENTOS").Return(nil, domain.ErrInstitutionNotFound)
	institutionRepo.On("Create", ctx, mock.AnythingOfType("*domain.Institution")).Return(nil)
	institutionRepo.On("LinkOwner", ctx, mock.AnythingOfType("uuid.UUID"), int64(7)).Return(nil)

	got, err := resolver.ResolveInstitution(ctx, "XP INVESTIMENTOS", 7)

	require.NoError(t, err)
	assert.Equal(t, "XP INVESTIMENTOS", got.Name)
	institutionRepo.AssertExpectations(t)
}

func TestResolveInstitution_ExistingIsLinked(t *testing.T) {
	ctx := context.Background()
	institutionRepo := new(MockInstitutionRepository)
	resolver := NewResolver(new(MockAssetRepository), institutionRepo)

	existing := &domain.Institution{ID: uuid.New(), Name: "X"}
	institutionRepo.On("FindByName", ctx, "X").Return(existing, nil)
	institutionRepo.On("LinkOwner", ctx, existing.ID, int64(1)).Return(nil)

	got, err := resolver.ResolveInstitution(ctx, "X", 1)

	require.NoError(t, err)
	assert.Equal(t, existing, got)
	institutionRepo.AssertNotCalled(t, "Create")
}
