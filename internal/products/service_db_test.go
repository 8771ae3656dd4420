package products

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db/models"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
)

func newDBTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})
	return &service{repo: NewRepository(tx)}, tx
}

func TestServiceDeleteRequiresConfirmation(t *testing.T) {
	svc, tx := newDBTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, tx, enums.ProductCategoryGPU, "Deletable GPU", 3)

	err := svc.Delete(ctx, product.ID, "delete")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad confirmation, got %v", err)
	}
}

func TestServiceDeleteArchivedFirst(t *testing.T) {
	svc, tx := newDBTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, tx, enums.ProductCategoryGPU, "Active GPU", 3)

	err := svc.Delete(ctx, product.ID, DeleteConfirmation)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for active product, got %v", err)
	}

	if err := svc.Archive(ctx, product.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := svc.Delete(ctx, product.ID, DeleteConfirmation); err != nil {
		t.Fatalf("delete archived product: %v", err)
	}
	if _, err := svc.Get(ctx, product.ID); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestServiceDeleteBlockedByHistory(t *testing.T) {
	svc, tx := newDBTestService(t)
	ctx := context.Background()

	product := mustCreateProduct(t, tx, enums.ProductCategoryRAM, "Moved RAM", 8)
	if err := svc.Archive(ctx, product.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	movement := &models.StockMovement{
		ID:             uuid.New(),
		ProductID:      product.ID,
		QuantityChange: 8,
		Reason:         enums.StockReasonRestock,
	}
	if err := tx.Create(movement).Error; err != nil {
		t.Fatalf("create movement: %v", err)
	}

	err := svc.Delete(ctx, product.ID, DeleteConfirmation)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for referenced product, got %v", err)
	}
	if !strings.Contains(typed.Message(), "stock-movement history") {
		t.Fatalf("expected the specific guard reason, got %q", typed.Message())
	}
}

func TestServiceBulkDeleteMixesChangedAndBlocked(t *testing.T) {
	svc, tx := newDBTestService(t)
	ctx := context.Background()

	clean := mustCreateProduct(t, tx, enums.ProductCategoryCPU, "Clean CPU", 2)
	active := mustCreateProduct(t, tx, enums.ProductCategoryCPU, "Still Active CPU", 2)
	if err := svc.Archive(ctx, clean.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if _, err := svc.BulkDelete(ctx, []uuid.UUID{clean.ID, active.ID}, "nope"); pkgerrors.As(err) == nil {
		t.Fatalf("expected the whole bulk call rejected on bad confirmation, got %v", err)
	}

	result, err := svc.BulkDelete(ctx, []uuid.UUID{clean.ID, active.ID}, DeleteConfirmation)
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if result.Changed != 1 || result.Blocked != 1 {
		t.Fatalf("expected 1 changed / 1 blocked, got %+v", result)
	}
	if len(result.Reasons) != 1 || !strings.Contains(result.Reasons[0], "archived before deletion") {
		t.Fatalf("expected the archived-first reason, got %v", result.Reasons)
	}
}
