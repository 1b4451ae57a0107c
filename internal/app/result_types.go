package app

import (
	"time"

	"github.com/shopspring/decimal"

	"inventory-console/internal/core"
	"inventory-console/internal/fx"
)

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// CategoryListResult is returned by ListCategories.
type CategoryListResult struct {
	Categories []core.Category `json:"categories"`
}

// ProductListResult is returned by ListProducts and ListLowStock.
type ProductListResult struct {
	Products []core.CatalogItem `json:"products"`
}

// RateResult is the current exchange rate with its provenance.
type RateResult struct {
	fx.Quote
	LocalCurrency string `json:"local_currency"`
}

// ConversionResult is returned by ConvertAmount. Source is "override" when
// the caller supplied a what-if rate.
type ConversionResult struct {
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	Rate          decimal.Decimal `json:"rate"`
	AmountLocal   decimal.Decimal `json:"amount_local"`
	LocalCurrency string          `json:"local_currency"`
	Source        string          `json:"source"`
	Warning       string          `json:"warning,omitempty"`
}

// LocalTotals are document totals converted at a given rate.
type LocalTotals struct {
	Rate        decimal.Decimal `json:"rate"`
	Total       decimal.Decimal `json:"total"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Currency    string          `json:"currency"`
	Warning     string          `json:"warning,omitempty"`
}

// DraftResult is the state of a draft after any draft operation. Local is
// set for sale drafts, at the current exchange rate.
type DraftResult struct {
	ID     string            `json:"id"`
	Kind   core.DocumentKind `json:"kind"`
	Header core.DraftHeader  `json:"header"`
	Lines  []core.LineItem   `json:"lines"`
	Totals core.Totals       `json:"totals"`
	Local  *LocalTotals      `json:"local,omitempty"`
}

// QuoteResult is returned by QuoteLines.
type QuoteResult struct {
	Kind   core.DocumentKind `json:"kind"`
	Lines  []core.LineItem   `json:"lines"`
	Totals core.Totals       `json:"totals"`
	Local  *LocalTotals      `json:"local,omitempty"`
}

// SaleView is a stored sale with its local figures at its own rate.
type SaleView struct {
	core.Sale
	TotalLocal  decimal.Decimal `json:"total_local"`
	ProfitLocal decimal.Decimal `json:"profit_local"`
}

// SaleListResult is returned by ListSales.
type SaleListResult struct {
	Items      []SaleView `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

// PurchaseListResult is returned by ListPurchases.
type PurchaseListResult = core.Page[core.Purchase]

// SubmitResult is returned when a draft is stored. Exactly one of Sale and
// Purchase is set.
type SubmitResult struct {
	Sale     *SaleView      `json:"sale,omitempty"`
	Purchase *core.Purchase `json:"purchase,omitempty"`
}

// ExpenseListResult is returned by ListExpenses.
type ExpenseListResult struct {
	Expenses []core.FixedExpense `json:"expenses"`
	Total    decimal.Decimal     `json:"total"`
}

// DashboardResult combines the period aggregates with net profit and stock alerts.
// Source is "server" for SQL aggregates or "client" when they were rebuilt
// from the sale list after the aggregate query failed.
type DashboardResult struct {
	RefDate        time.Time          `json:"ref_date"`
	Weekly         core.PeriodSummary `json:"weekly"`
	Monthly        core.PeriodSummary `json:"monthly"`
	FixedExpenses  decimal.Decimal    `json:"fixed_expenses"`
	NetProfitUSD   decimal.Decimal    `json:"net_profit_usd"`
	NetProfitLocal decimal.Decimal    `json:"net_profit_local"`
	Rate           RateResult         `json:"rate"`
	LowStock       []core.CatalogItem `json:"low_stock"`
	LowStockCount  int                `json:"low_stock_count"`
	Source         string             `json:"source"`
	Warnings       []string           `json:"warnings,omitempty"`
}

// PeriodReportResult is returned by GetPeriodReport.
type PeriodReportResult struct {
	Period  core.Period        `json:"period"`
	From    time.Time          `json:"from"`
	To      time.Time          `json:"to"`
	Summary core.PeriodSummary `json:"summary"`
	Sales   []SaleView         `json:"sales"`
}
