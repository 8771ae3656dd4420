package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/rigbuilderhq/rigbuilder-backend/internal/products"
	"github.com/rigbuilderhq/rigbuilder-backend/pkg/db"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
)

func newValidationService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(nil), products.NewRepository(nil), db.NewFromConn(nil))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestAdjustRejectsZeroDelta(t *testing.T) {
	svc := newValidationService(t)

	_, err := svc.Adjust(context.Background(), AdjustInput{ProductID: uuid.New(), Delta: 0})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRestockRejectsNonPositiveQuantity(t *testing.T) {
	svc := newValidationService(t)

	for _, qty := range []int{0, -3} {
		_, err := svc.Restock(context.Background(), RestockInput{ProductID: uuid.New(), Quantity: qty})
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("quantity %d: expected validation error, got %v", qty, err)
		}
	}
}

func TestMutateRequiresProductID(t *testing.T) {
	svc := newValidationService(t)

	_, err := svc.Adjust(context.Background(), AdjustInput{Delta: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	if _, err := NewService(nil, products.NewRepository(nil), db.NewFromConn(nil)); err == nil {
		t.Fatal("expected error for nil stock repository")
	}
	if _, err := NewService(NewRepository(nil), nil, db.NewFromConn(nil)); err == nil {
		t.Fatal("expected error for nil product repository")
	}
	if _, err := NewService(NewRepository(nil), products.NewRepository(nil), nil); err == nil {
		t.Fatal("expected error for nil db client")
	}
}
