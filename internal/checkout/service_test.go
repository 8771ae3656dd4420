package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
)

type fakeRunner struct {
	rolledBack bool
}

func (f *fakeRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := fn(nil); err != nil {
		f.rolledBack = true
		return err
	}
	return nil
}

type fakeStore struct {
	products  map[uuid.UUID]*models.Product
	builds    map[uuid.UUID]*models.Build
	items     map[uuid.UUID][]models.BuildItem
	movements []models.StockMovement
}

func newFakeStore(products ...*models.Product) *fakeStore {
	store := &fakeStore{
		products: make(map[uuid.UUID]*models.Product),
		builds:   make(map[uuid.UUID]*models.Build),
		items:    make(map[uuid.UUID][]models.BuildItem),
	}
	for _, product := range products {
		store.products[product.ID] = product
	}
	return store
}

func (f *fakeStore) LockProducts(_ context.Context, _ *gorm.DB, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			out = append(out, *product)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveProduct(_ context.Context, _ *gorm.DB, product *models.Product) error {
	f.products[product.ID] = product
	return nil
}

func (f *fakeStore) FindDraftForUpdate(_ context.Context, _ *gorm.DB, userID uuid.UUID) (*models.Build, error) {
	for _, build := range f.builds {
		if build.UserID == userID && build.Status == enums.BuildStatusDraft && !build.IsArchived {
			return build, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeStore) CreateBuild(_ context.Context, _ *gorm.DB, build *models.Build) error {
	build.ID = uuid.New()
	f.builds[build.ID] = build
	return nil
}

func (f *fakeStore) SaveBuild(_ context.Context, _ *gorm.DB, build *models.Build) error {
	f.builds[build.ID] = build
	return nil
}

func (f *fakeStore) ReplaceItems(_ context.Context, _ *gorm.DB, buildID uuid.UUID, items []models.BuildItem) error {
	f.items[buildID] = items
	return nil
}

func (f *fakeStore) ReloadBuild(_ context.Context, _ *gorm.DB, id uuid.UUID) (*models.Build, error) {
	build, ok := f.builds[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	loaded := *build
	loaded.Items = f.items[id]
	for i := range loaded.Items {
		if product, ok := f.products[loaded.Items[i].ProductID]; ok {
			loaded.Items[i].Product = product
		}
	}
	return &loaded, nil
}

func (f *fakeStore) CreateMovement(_ context.Context, _ *gorm.DB, movement *models.StockMovement) error {
	f.movements = append(f.movements, *movement)
	return nil
}

func testProduct(name string, price string, quantity int) *models.Product {
	return &models.Product{
		ID:       uuid.New(),
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
		Category: enums.ProductCategoryGPU,
	}
}

func newTestService(store *fakeStore) (*service, *fakeRunner) {
	runner := &fakeRunner{}
	return &service{runner: runner, store: store}, runner
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	return typed.Code()
}

func TestExecuteHappyPath(t *testing.T) {
	gpu := testProduct("RTX 5080", "999.99", 5)
	ram := testProduct("32GB DDR5", "149.50", 10)
	store := newFakeStore(gpu, ram)
	svc, _ := newTestService(store)
	userID := uuid.New()

	dto, err := svc.Execute(context.Background(), userID, []ItemInput{
		{ProductID: gpu.ID, Quantity: 1},
		{ProductID: ram.ID, Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.BuildStatusCheckedOut.String(), dto.Status)
	assert.Equal(t, userID, dto.UserID)
	assert.True(t, dto.TotalPrice.Equal(decimal.RequireFromString("1298.99")))
	assert.Len(t, dto.Items, 2)

	assert.Equal(t, 4, store.products[gpu.ID].Quantity)
	assert.Equal(t, 8, store.products[ram.ID].Quantity)

	require.Len(t, store.movements, 2)
	for _, movement := range store.movements {
		assert.Equal(t, enums.StockReasonCheckout, movement.Reason)
		assert.Negative(t, movement.QuantityChange)
		require.NotNil(t, movement.BuildID)
		assert.Equal(t, dto.ID, *movement.BuildID)
		require.NotNil(t, movement.ChangedByID)
		assert.Equal(t, userID, *movement.ChangedByID)
	}
}

func TestExecuteMergesDuplicateLines(t *testing.T) {
	gpu := testProduct("RTX 5080", "999.99", 5)
	store := newFakeStore(gpu)
	svc, _ := newTestService(store)

	dto, err := svc.Execute(context.Background(), uuid.New(), []ItemInput{
		{ProductID: gpu.ID, Quantity: 1},
		{ProductID: gpu.ID, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, dto.Items, 1)
	assert.Equal(t, 3, dto.Items[0].Quantity)
	assert.Equal(t, 2, store.products[gpu.ID].Quantity)
}

func TestExecuteSnapshotsPrice(t *testing.T) {
	gpu := testProduct("RTX 5080", "999.99", 5)
	store := newFakeStore(gpu)
	svc, _ := newTestService(store)

	dto, err := svc.Execute(context.Background(), uuid.New(), []ItemInput{{ProductID: gpu.ID, Quantity: 1}})
	require.NoError(t, err)

	// A later catalog price change must not rewrite the snapshot.
	gpu.Price = decimal.RequireFromString("1099.99")
	assert.True(t, dto.Items[0].PriceAtTime.Equal(decimal.RequireFromString("999.99")))
}

func TestExecuteInsufficientStock(t *testing.T) {
	gpu := testProduct("RTX 5080", "999.99", 1)
	store := newFakeStore(gpu)
	svc, runner := newTestService(store)

	_, err := svc.Execute(context.Background(), uuid.New(), []ItemInput{{ProductID: gpu.ID, Quantity: 3}})
	assert.Equal(t, pkgerrors.CodeConflict, errCode(t, err))
	assert.True(t, runner.rolledBack)
	assert.Equal(t, 1, store.products[gpu.ID].Quantity)
	assert.Empty(t, store.movements)
}

func TestExecuteSequentialCheckoutsExhaustStock(t *testing.T) {
	gpu := testProduct("RTX 5080", "999.99", 3)
	store := newFakeStore(gpu)
	svc, _ := newTestService(store)

	first, err := svc.Execute(context.Background(), uuid.New(), []ItemInput{{ProductID: gpu.ID, Quantity: 2}})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, store.products[gpu.ID].Quantity)

	// The second buyer sees post-decrement stock and cannot oversell.
	_, err = svc.Execute(context.Background(), uuid.New(), []ItemInput{{ProductID: gpu.ID, Quantity: 2}})
	assert.Equal(t, pkgerrors.CodeConflict, errCode(t, err))
	assert.Equal(t, 1, store.products[gpu.ID].Quantity)
}

func TestExecuteArchivedAndMissingProducts(t *testing.T) {
	archived := testProduct("Old PSU", "49.99", 5)
	archived.IsArchived = true
	store := newFakeStore(archived)
	svc, _ := newTestService(store)

	_, err := svc.Execute(context.Background(), uuid.New(), []ItemInput{
		{ProductID: archived.ID, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	})
	require.Equal(t, pkgerrors.CodeConflict, errCode(t, err))

	details, ok := pkgerrors.As(err).Details().([]string)
	require.True(t, ok)
	assert.Len(t, details, 2)
}

func TestExecuteValidation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.Execute(ctx, uuid.New(), nil)
	assert.Equal(t, pkgerrors.CodeValidation, errCode(t, err))

	_, err = svc.Execute(ctx, uuid.New(), []ItemInput{{ProductID: uuid.New(), Quantity: 0}})
	assert.Equal(t, pkgerrors.CodeValidation, errCode(t, err))

	_, err = svc.Execute(ctx, uuid.New(), []ItemInput{{Quantity: 1}})
	assert.Equal(t, pkgerrors.CodeValidation, errCode(t, err))
}

func TestExecuteReusesDraftAndReplacesItems(t *testing.T) {
	gpu := testProduct("RTX 5080", "999.99", 5)
	store := newFakeStore(gpu)
	userID := uuid.New()

	draft := &models.Build{ID: uuid.New(), UserID: userID, Status: enums.BuildStatusDraft}
	store.builds[draft.ID] = draft
	store.items[draft.ID] = []models.BuildItem{{BuildID: draft.ID, ProductID: uuid.New(), Quantity: 9}}

	svc, _ := newTestService(store)
	dto, err := svc.Execute(context.Background(), userID, []ItemInput{{ProductID: gpu.ID, Quantity: 1}})
	require.NoError(t, err)

	assert.Equal(t, draft.ID, dto.ID)
	require.Len(t, store.items[draft.ID], 1)
	assert.Equal(t, gpu.ID, store.items[draft.ID][0].ProductID)
	assert.Equal(t, enums.BuildStatusCheckedOut, store.builds[draft.ID].Status)
}
