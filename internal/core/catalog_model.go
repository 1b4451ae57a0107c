package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups catalog items for browsing and filtering.
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CatalogItem is a stocked product. Prices are in USD.
// SalePrice may be below CostPrice; the resulting profit is simply negative.
type CatalogItem struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	StockActual  int             `json:"stock_actual"`
	StockMinimo  int             `json:"stock_minimo"`
	CategoryID   *int            `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"` // joined from categories
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Margin returns SalePrice - CostPrice for one unit.
func (c CatalogItem) Margin() decimal.Decimal {
	return c.SalePrice.Sub(c.CostPrice)
}

// CatalogFilter narrows a product listing. Zero values mean "no filter".
type CatalogFilter struct {
	CategoryID *int
	Search     string
}

// ProductInput holds the editable fields of a catalog item.
type ProductInput struct {
	Name        string
	Description string
	CostPrice   decimal.Decimal
	SalePrice   decimal.Decimal
	StockActual int
	StockMinimo int
	CategoryID  *int
}

// Validate checks required fields and non-negative numbers.
func (p ProductInput) Validate() error {
	if p.Name == "" {
		return invalid("name", "is required")
	}
	if err := checkMoney("cost_price", p.CostPrice); err != nil {
		return err
	}
	if err := checkMoney("sale_price", p.SalePrice); err != nil {
		return err
	}
	if p.StockActual < 0 {
		return invalid("stock_actual", "cannot be negative, got %d", p.StockActual)
	}
	if p.StockMinimo < 0 {
		return invalid("stock_minimo", "cannot be negative, got %d", p.StockMinimo)
	}
	return nil
}

// SanitizeCatalogItem clamps malformed price and stock values to zero so
// that downstream arithmetic never sees a negative figure. It returns one
// warning per clamped field for the caller to log.
func SanitizeCatalogItem(item CatalogItem) (CatalogItem, []string) {
	var warnings []string
	if item.CostPrice.IsNegative() {
		warnings = append(warnings, "negative cost_price "+item.CostPrice.String()+" treated as 0")
		item.CostPrice = decimal.Zero
	}
	if item.SalePrice.IsNegative() {
		warnings = append(warnings, "negative sale_price "+item.SalePrice.String()+" treated as 0")
		item.SalePrice = decimal.Zero
	}
	if item.StockActual < 0 {
		warnings = append(warnings, "negative stock_actual treated as 0")
		item.StockActual = 0
	}
	if item.StockMinimo < 0 {
		warnings = append(warnings, "negative stock_minimo treated as 0")
		item.StockMinimo = 0
	}
	return item, warnings
}
