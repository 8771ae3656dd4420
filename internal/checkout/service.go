package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/builds"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/products"
	"github.com/rigbuilderhq/rigbuilder-backend/internal/stock"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/metrics"
)

// ItemInput is one requested product line.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// Service turns a cart into a checked-out build.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, items []ItemInput) (*builds.BuildDTO, error)
}

// txRunner runs a function inside a database transaction. *db.Client
// satisfies it.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// checkoutStore is the transactional persistence surface Execute needs. Every
// method takes the transaction explicitly so the whole checkout shares one.
type checkoutStore interface {
	LockProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error)
	SaveProduct(ctx context.Context, tx *gorm.DB, product *models.Product) error
	FindDraftForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Build, error)
	CreateBuild(ctx context.Context, tx *gorm.DB, build *models.Build) error
	SaveBuild(ctx context.Context, tx *gorm.DB, build *models.Build) error
	ReplaceItems(ctx context.Context, tx *gorm.DB, buildID uuid.UUID, items []models.BuildItem) error
	ReloadBuild(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Build, error)
	CreateMovement(ctx context.Context, tx *gorm.DB, movement *models.StockMovement) error
}

type service struct {
	runner  txRunner
	store   checkoutStore
	metrics *metrics.APIMetrics
}

// NewService wires a checkout service over the shared repositories.
func NewService(runner txRunner, productRepo *products.Repository, buildRepo *builds.Repository, stockRepo stock.Repository, apiMetrics *metrics.APIMetrics) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if buildRepo == nil {
		return nil, fmt.Errorf("build repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	store := &repoStore{products: productRepo, builds: buildRepo, stock: stockRepo}
	return &service{runner: runner, store: store, metrics: apiMetrics}, nil
}

// Execute validates the cart, locks the affected products, snapshots prices,
// decrements stock, and flips the draft to checked_out, all in one
// transaction.
func (s *service) Execute(ctx context.Context, userID uuid.UUID, items []ItemInput) (*builds.BuildDTO, error) {
	requested, err := mergeItems(items)
	if err != nil {
		s.metrics.IncCheckoutFailure("validation")
		return nil, err
	}

	var result *models.Build
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		build, txErr := s.checkout(ctx, tx, userID, requested)
		if txErr != nil {
			return txErr
		}
		result = build
		return nil
	})
	if err != nil {
		s.metrics.IncCheckoutFailure(failureReason(err))
		return nil, err
	}

	s.metrics.IncCheckoutSuccess()
	return builds.NewBuildDTO(result), nil
}

func (s *service) checkout(ctx context.Context, tx *gorm.DB, userID uuid.UUID, requested []ItemInput) (*models.Build, error) {
	ids := make([]uuid.UUID, 0, len(requested))
	for _, item := range requested {
		ids = append(ids, item.ProductID)
	}

	// Rows come back locked in ascending id order so concurrent checkouts
	// touching overlapping products cannot deadlock.
	locked, err := s.store.LockProducts(ctx, tx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: lock products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(locked))
	for i := range locked {
		byID[locked[i].ID] = &locked[i]
	}

	var problems []string
	for _, item := range requested {
		product, ok := byID[item.ProductID]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("product %s: not found", item.ProductID))
		case product.IsArchived:
			problems = append(problems, fmt.Sprintf("%s: archived", product.Name))
		case product.Quantity < item.Quantity:
			problems = append(problems, fmt.Sprintf("%s: only %d in stock, %d requested", product.Name, product.Quantity, item.Quantity))
		}
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout blocked").WithDetails(problems)
	}

	build, err := s.store.FindDraftForUpdate(ctx, tx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load draft build")
		}
		build = &models.Build{UserID: userID, Status: enums.BuildStatusDraft}
		if err := s.store.CreateBuild(ctx, tx, build); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create draft build")
		}
	}

	total := decimal.Zero
	lines := make([]models.BuildItem, 0, len(requested))
	for _, item := range requested {
		product := byID[item.ProductID]
		lines = append(lines, models.BuildItem{
			BuildID:     build.ID,
			ProductID:   product.ID,
			Quantity:    item.Quantity,
			PriceAtTime: product.Price,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if err := s.store.ReplaceItems(ctx, tx, build.ID, lines); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: write build items")
	}

	actorID := userID
	for _, item := range requested {
		product := byID[item.ProductID]
		product.Quantity -= item.Quantity
		if err := s.store.SaveProduct(ctx, tx, product); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
		}
		movement := &models.StockMovement{
			ProductID:      product.ID,
			BuildID:        &build.ID,
			ChangedByID:    &actorID,
			QuantityChange: -item.Quantity,
			Reason:         enums.StockReasonCheckout,
		}
		if err := s.store.CreateMovement(ctx, tx, movement); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: record stock movement")
		}
	}

	build.TotalPrice = total
	build.Status = enums.BuildStatusCheckedOut
	if err := s.store.SaveBuild(ctx, tx, build); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: finalize build")
	}

	reloaded, err := s.store.ReloadBuild(ctx, tx, build.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: reload build")
	}
	return reloaded, nil
}

// mergeItems validates quantities and collapses duplicate product ids into a
// single line, returning the result sorted by product id.
func mergeItems(items []ItemInput) ([]ItemInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	merged := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for product %s must be positive", item.ProductID))
		}
		merged[item.ProductID] += item.Quantity
	}

	out := make([]ItemInput, 0, len(merged))
	for id, quantity := range merged {
		out = append(out, ItemInput{ProductID: id, Quantity: quantity})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}

func failureReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation:
		return "validation"
	case pkgerrors.CodeConflict:
		return "conflict"
	case pkgerrors.CodeDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// repoStore adapts the shared repositories to the transactional surface.
type repoStore struct {
	products *products.Repository
	builds   *builds.Repository
	stock    stock.Repository
}

func (r *repoStore) LockProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error) {
	return r.products.WithTx(tx).ListByIDsForUpdate(ctx, ids)
}

func (r *repoStore) SaveProduct(ctx context.Context, tx *gorm.DB, product *models.Product) error {
	return r.products.WithTx(tx).Save(ctx, product)
}

func (r *repoStore) FindDraftForUpdate(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Build, error) {
	return r.builds.WithTx(tx).FindDraftForUpdate(ctx, userID)
}

func (r *repoStore) CreateBuild(ctx context.Context, tx *gorm.DB, build *models.Build) error {
	return r.builds.WithTx(tx).Create(ctx, build)
}

func (r *repoStore) SaveBuild(ctx context.Context, tx *gorm.DB, build *models.Build) error {
	return r.builds.WithTx(tx).Save(ctx, build)
}

func (r *repoStore) ReplaceItems(ctx context.Context, tx *gorm.DB, buildID uuid.UUID, items []models.BuildItem) error {
	return r.builds.WithTx(tx).ReplaceItems(ctx, buildID, items)
}

func (r *repoStore) ReloadBuild(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Build, error) {
	return r.builds.WithTx(tx).FindByID(ctx, id)
}

func (r *repoStore) CreateMovement(ctx context.Context, tx *gorm.DB, movement *models.StockMovement) error {
	return r.stock.WithTx(tx).Create(ctx, movement)
}
