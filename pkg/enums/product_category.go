package enums

import "fmt"

// ProductCategory represents the PC part categories supported by the catalog.
type ProductCategory string

const (
	ProductCategoryRAM         ProductCategory = "ram"
	ProductCategoryMotherboard ProductCategory = "motherboard"
	ProductCategoryCPU         ProductCategory = "cpu"
	ProductCategoryGPU         ProductCategory = "gpu"
	ProductCategoryStorage     ProductCategory = "storage"
	ProductCategoryPSU         ProductCategory = "psu"
	ProductCategoryCase        ProductCategory = "case"
)

var validProductCategories = []ProductCategory{
	ProductCategoryRAM,
	ProductCategoryMotherboard,
	ProductCategoryCPU,
	ProductCategoryGPU,
	ProductCategoryStorage,
	ProductCategoryPSU,
	ProductCategoryCase,
}

// ProductCategories returns every category in display order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
