package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a persisted sale document.
// ExchangeRate is the local-currency rate in effect when the sale was
// submitted; local figures are always derived from it, never from the
// current rate.
type Sale struct {
	ID            int             `json:"id"`
	Date          time.Time       `json:"date"`
	CustomerName  string          `json:"customer_name"`
	PaymentMethod string          `json:"payment_method"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	TradeIn       string          `json:"trade_in,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Items         []LineItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TotalLocal returns the sale total in local currency at the stored rate.
func (s Sale) TotalLocal() decimal.Decimal { return ToLocal(s.Total, s.ExchangeRate) }

// ProfitLocal returns the sale profit in local currency at the stored rate.
func (s Sale) ProfitLocal() decimal.Decimal { return ToLocal(s.TotalProfit, s.ExchangeRate) }

// Purchase is a persisted purchase document. Purchases carry no profit.
type Purchase struct {
	ID           int             `json:"id"`
	Date         time.Time       `json:"date"`
	SupplierName string          `json:"supplier_name"`
	Notes        string          `json:"notes,omitempty"`
	Items        []LineItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SaleInput is the payload for creating a sale. Items must already be
// computed by ComputeLine; the store recomputes totals with Aggregate.
type SaleInput struct {
	Date          time.Time
	CustomerName  string
	PaymentMethod string
	ExchangeRate  decimal.Decimal
	TradeIn       string
	Notes         string
	Items         []LineItem
}

// Validate enforces the required fields of a sale.
// Every sale line must carry a serial number.
func (in SaleInput) Validate() error {
	if in.Date.IsZero() {
		return invalid("date", "is required")
	}
	if in.CustomerName == "" {
		return invalid("customer_name", "is required")
	}
	if in.PaymentMethod == "" {
		return invalid("payment_method", "is required")
	}
	if !in.ExchangeRate.IsPositive() {
		return invalid("exchange_rate", "must be > 0, got %s", in.ExchangeRate)
	}
	if len(in.Items) == 0 {
		return invalid("items", "sale must have at least one line")
	}
	for i, l := range in.Items {
		if l.Quantity < 1 {
			return invalid("items", "line %d: quantity must be a positive integer, got %d", i+1, l.Quantity)
		}
		if l.SerialNumber == "" {
			return invalid("items", "line %d: serial number is required for %s", i+1, l.ProductName)
		}
	}
	return nil
}

// PurchaseInput is the payload for creating a purchase.
type PurchaseInput struct {
	Date         time.Time
	SupplierName string
	Notes        string
	Items        []LineItem
}

// Validate enforces the required fields of a purchase.
func (in PurchaseInput) Validate() error {
	if in.Date.IsZero() {
		return invalid("date", "is required")
	}
	if in.SupplierName == "" {
		return invalid("supplier_name", "is required")
	}
	if len(in.Items) == 0 {
		return invalid("items", "purchase must have at least one line")
	}
	for i, l := range in.Items {
		if l.Quantity < 1 {
			return invalid("items", "line %d: quantity must be a positive integer, got %d", i+1, l.Quantity)
		}
		if err := checkMoney("items", l.UnitCost); err != nil {
			return invalid("items", "line %d: unit cost %s must be non-negative with at most %d decimal places", i+1, l.UnitCost, MoneyPlaces)
		}
	}
	return nil
}

// SaleHeaderUpdate changes header fields of a submitted sale. Nil fields are
// left as they are. Lines cannot be edited after submission.
type SaleHeaderUpdate struct {
	Date          *time.Time
	CustomerName  *string
	PaymentMethod *string
	TradeIn       *string
	Notes         *string
}

// Validate rejects updates that would blank a required field.
func (u SaleHeaderUpdate) Validate() error {
	if u.Date != nil && u.Date.IsZero() {
		return invalid("date", "cannot be empty")
	}
	if u.CustomerName != nil && *u.CustomerName == "" {
		return invalid("customer_name", "cannot be empty")
	}
	if u.PaymentMethod != nil && *u.PaymentMethod == "" {
		return invalid("payment_method", "cannot be empty")
	}
	return nil
}

// PurchaseHeaderUpdate changes header fields of a submitted purchase.
type PurchaseHeaderUpdate struct {
	Date         *time.Time
	SupplierName *string
	Notes        *string
}

// Validate rejects updates that would blank a required field.
func (u PurchaseHeaderUpdate) Validate() error {
	if u.Date != nil && u.Date.IsZero() {
		return invalid("date", "cannot be empty")
	}
	if u.SupplierName != nil && *u.SupplierName == "" {
		return invalid("supplier_name", "cannot be empty")
	}
	return nil
}

// ListQuery selects one page of a transaction listing.
// Page is 1-indexed; PageSize 0 returns every row; an empty Search matches all.
type ListQuery struct {
	Page     int
	PageSize int
	Search   string
}

// Normalize clamps Page to at least 1 and PageSize to [0, MaxPageSize].
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 0 {
		q.PageSize = 0
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Offset returns the row offset of the page.
func (q ListQuery) Offset() int {
	if q.PageSize == 0 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// MaxPageSize caps a single page.
const MaxPageSize = 500

// Page is one page of results plus the unpaged total count.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
}

// FixedExpense is a recurring monthly cost in USD.
type FixedExpense struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// ExpenseInput holds the editable fields of a fixed expense.
type ExpenseInput struct {
	Name   string
	Amount decimal.Decimal
}

// Validate checks the name and a non-negative amount.
func (in ExpenseInput) Validate() error {
	if in.Name == "" {
		return invalid("name", "is required")
	}
	if err := checkMoney("amount", in.Amount); err != nil {
		return err
	}
	return nil
}
