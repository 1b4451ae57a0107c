package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-console/internal/core"
)

// ErrInvalidCredentials is returned by AuthenticateUser for an unknown user
// or a wrong password. The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrDraftNotFound is returned for an unknown or expired draft id. It
// matches core.ErrNotFound.
var ErrDraftNotFound = fmt.Errorf("draft expired or unknown: %w", core.ErrNotFound)

// ErrDraftSubmitting is returned when a draft is edited, discarded or
// submitted while another submission of it is in flight.
var ErrDraftSubmitting = errors.New("draft is already being submitted")

// ApplicationService is the single interface the CLI and web adapters call.
// It decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
type ApplicationService interface {
	// ── Auth ──

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)
	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
	// CreateUser hashes password and stores a new console user.
	CreateUser(ctx context.Context, username, email, password, role string) (*UserResult, error)

	// ── Catalog ──

	ListCategories(ctx context.Context) (*CategoryListResult, error)
	CreateCategory(ctx context.Context, req CategoryRequest) (*core.Category, error)
	DeleteCategory(ctx context.Context, id int) error
	ListProducts(ctx context.Context, filter core.CatalogFilter) (*ProductListResult, error)
	// ListLowStock returns the products at or below their minimum stock.
	ListLowStock(ctx context.Context) (*ProductListResult, error)
	GetProduct(ctx context.Context, id int) (*core.CatalogItem, error)
	CreateProduct(ctx context.Context, req ProductRequest) (*core.CatalogItem, error)
	UpdateProduct(ctx context.Context, id int, req ProductRequest) (*core.CatalogItem, error)
	DeleteProduct(ctx context.Context, id int) error

	// ── Drafts ──
	// Every draft mutation either applies fully or leaves the draft as it was.

	CreateDraft(ctx context.Context, kind string) (*DraftResult, error)
	GetDraft(ctx context.Context, id string) (*DraftResult, error)
	SetDraftHeader(ctx context.Context, id string, req DraftHeaderRequest) (*DraftResult, error)
	AddDraftLine(ctx context.Context, id string, req LineRequest) (*DraftResult, error)
	UpdateDraftLine(ctx context.Context, id string, index int, req LineUpdateRequest) (*DraftResult, error)
	RemoveDraftLine(ctx context.Context, id string, index int) (*DraftResult, error)
	DiscardDraft(ctx context.Context, id string) error
	// SubmitDraft revalidates stock against a fresh catalog read and stores the
	// document. On failure the draft is kept unchanged; on success it is discarded.
	SubmitDraft(ctx context.Context, id string) (*SubmitResult, error)

	// QuoteLines prices lines against the current catalog without storing anything.
	QuoteLines(ctx context.Context, req QuoteRequest) (*QuoteResult, error)

	// ── Exchange rate ──

	// GetExchangeRate returns the current rate. It never fails: a stale or
	// fallback rate carries a warning instead.
	GetExchangeRate(ctx context.Context) *RateResult
	// RefreshExchangeRate fetches the rate from its source now.
	RefreshExchangeRate(ctx context.Context) *RateResult
	ConvertAmount(ctx context.Context, req ConvertRequest) (*ConversionResult, error)

	// ── Sales ──

	ListSales(ctx context.Context, q core.ListQuery) (*SaleListResult, error)
	GetSale(ctx context.Context, id int) (*SaleView, error)
	CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleView, error)
	UpdateSale(ctx context.Context, id int, req SaleUpdateRequest) (*SaleView, error)
	DeleteSale(ctx context.Context, id int) error

	// ── Purchases ──

	ListPurchases(ctx context.Context, q core.ListQuery) (*PurchaseListResult, error)
	GetPurchase(ctx context.Context, id int) (*core.Purchase, error)
	CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*core.Purchase, error)
	UpdatePurchase(ctx context.Context, id int, req PurchaseUpdateRequest) (*core.Purchase, error)
	DeletePurchase(ctx context.Context, id int) error

	// ── Fixed expenses ──

	ListExpenses(ctx context.Context) (*ExpenseListResult, error)
	CreateExpense(ctx context.Context, req ExpenseRequest) (*core.FixedExpense, error)
	UpdateExpense(ctx context.Context, id int, req ExpenseRequest) (*core.FixedExpense, error)
	DeleteExpense(ctx context.Context, id int) error

	// ── Reports ──

	// GetDashboard returns weekly and monthly figures ending at ref.
	GetDashboard(ctx context.Context, ref time.Time) (*DashboardResult, error)
	// GetPeriodReport lists and summarizes the sales of one period ending at ref.
	GetPeriodReport(ctx context.Context, period string, ref time.Time) (*PeriodReportResult, error)
}
