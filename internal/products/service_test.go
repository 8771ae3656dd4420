package products

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/enums"
	pkgerrors "github.com/rigbuilderhq/rigbuilder-backend/pkg/errors"
)

func TestNormalizeIdentity(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ryzen 7 5800X", "ryzen 7 5800x"},
		{"  Ryzen   7  5800X  ", "ryzen 7 5800x"},
		{"RYZEN\t7\n5800X", "ryzen 7 5800x"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := normalizeIdentity(tc.in); got != tc.want {
			t.Errorf("normalizeIdentity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSameIdentity(t *testing.T) {
	normName := normalizeIdentity("Ryzen 7 5800X")
	normDesc := normalizeIdentity("8-core CPU")

	if !sameIdentity(normName, normDesc, "ryzen  7 5800x", "8-CORE   cpu") {
		t.Fatal("expected whitespace/case variants to collide")
	}
	if sameIdentity(normName, normDesc, "Ryzen 7 5800X", "different description") {
		t.Fatal("different descriptions must not collide")
	}
}

func TestCollapse(t *testing.T) {
	if got := collapse("  GeForce   RTX  4070 "); got != "GeForce RTX 4070" {
		t.Fatalf("collapse preserved case but not spacing: %q", got)
	}
}

func TestValidateProductFields(t *testing.T) {
	valid := func() (string, decimal.Decimal, int, enums.ProductCategory) {
		return "Ryzen 7", decimal.NewFromFloat(299.99), 5, enums.ProductCategoryCPU
	}

	name, price, qty, category := valid()
	if err := validateProductFields(name, price, qty, category); err != nil {
		t.Fatalf("expected valid fields, got %v", err)
	}

	if err := validateProductFields("", price, qty, category); errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}
	if err := validateProductFields(name, decimal.Zero, qty, category); errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
	if err := validateProductFields(name, decimal.NewFromInt(-1), qty, category); errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
	if err := validateProductFields(name, price, -1, category); errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}
	if err := validateProductFields(name, price, qty, "floppy"); errCode(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown category, got %v", err)
	}
}

func errCode(err error) pkgerrors.Code {
	typed := pkgerrors.As(err)
	if typed == nil {
		return ""
	}
	return typed.Code()
}
