package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRequest is the input for creating a category.
type CategoryRequest struct {
	Name        string
	Description string
}

// ProductRequest is the input for creating or replacing a catalog item.
type ProductRequest struct {
	Name        string
	Description string
	CostPrice   decimal.Decimal
	SalePrice   decimal.Decimal
	StockActual int
	StockMinimo int
	CategoryID  *int
}

// DraftHeaderRequest replaces the header of a draft. Counterparty is the
// customer of a sale or the supplier of a purchase.
type DraftHeaderRequest struct {
	Date          time.Time
	Counterparty  string
	PaymentMethod string
	TradeIn       string
	Notes         string
}

// LineRequest adds a catalog item to a draft or quote.
type LineRequest struct {
	ProductID    int
	Quantity     int
	SerialNumber string           // sales only
	UnitCost     *decimal.Decimal // purchases only; nil means the catalog cost price
}

// LineUpdateRequest edits one draft line. Nil fields are left as they are.
type LineUpdateRequest struct {
	Quantity     *int
	SerialNumber *string
	UnitCost     *decimal.Decimal
}

// QuoteRequest prices lines without storing anything.
type QuoteRequest struct {
	Kind  string // "sale" or "purchase"
	Lines []LineRequest
}

// ConvertRequest converts a USD amount to local currency. A positive
// OverrideRate is used instead of the current rate and is never stored.
type ConvertRequest struct {
	AmountUSD    decimal.Decimal
	OverrideRate *decimal.Decimal
}

// CreateSaleRequest records a sale in one call, without a stored draft.
type CreateSaleRequest struct {
	Header DraftHeaderRequest
	Lines  []LineRequest
}

// CreatePurchaseRequest records a purchase in one call, without a stored draft.
type CreatePurchaseRequest struct {
	Header DraftHeaderRequest
	Lines  []LineRequest
}

// SaleUpdateRequest edits the header of a stored sale.
type SaleUpdateRequest struct {
	Date          *time.Time
	CustomerName  *string
	PaymentMethod *string
	TradeIn       *string
	Notes         *string
}

// PurchaseUpdateRequest edits the header of a stored purchase.
type PurchaseUpdateRequest struct {
	Date         *time.Time
	SupplierName *string
	Notes        *string
}

// ExpenseRequest is the input for creating or replacing a fixed expense.
type ExpenseRequest struct {
	Name   string
	Amount decimal.Decimal
}
