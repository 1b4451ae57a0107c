package app

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"inventory-console/internal/core"
	"inventory-console/internal/fx"
)

// RateQuoter is the exchange-rate dependency. *fx.RateProvider satisfies it.
type RateQuoter interface {
	Current(ctx context.Context) fx.Quote
	Refresh(ctx context.Context) fx.Quote
}

// Stores groups the persistence services the application depends on.
type Stores struct {
	Catalog   core.CatalogService
	Sales     core.SaleService
	Purchases core.PurchaseService
	Expenses  core.ExpenseService
	Dashboard core.DashboardService
	Users     core.UserService
}

// NewStores wires every PostgreSQL-backed store to one pool.
func NewStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Catalog:   core.NewCatalogService(pool),
		Sales:     core.NewSaleService(pool),
		Purchases: core.NewPurchaseService(pool),
		Expenses:  core.NewExpenseService(pool),
		Dashboard: core.NewDashboardService(pool),
		Users:     core.NewUserService(pool),
	}
}

// Options holds the tunables of the application service.
type Options struct {
	LocalCurrency     string
	DraftTTL          time.Duration
	DashboardCacheTTL time.Duration
}

type appService struct {
	catalog   core.CatalogService
	sales     core.SaleService
	purchases core.PurchaseService
	expenses  core.ExpenseService
	dashboard core.DashboardService
	users     core.UserService
	rates     RateQuoter

	localCurrency string
	drafts        *draftStore
	dashCache     *cache.Cache
	now           func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(stores Stores, rates RateQuoter, opts Options) ApplicationService {
	return newAppService(stores, rates, opts)
}

func newAppService(stores Stores, rates RateQuoter, opts Options) *appService {
	if opts.LocalCurrency == "" {
		opts.LocalCurrency = "ARS"
	}
	if opts.DashboardCacheTTL <= 0 {
		opts.DashboardCacheTTL = time.Minute
	}
	return &appService{
		catalog:       stores.Catalog,
		sales:         stores.Sales,
		purchases:     stores.Purchases,
		expenses:      stores.Expenses,
		dashboard:     stores.Dashboard,
		users:         stores.Users,
		rates:         rates,
		localCurrency: opts.LocalCurrency,
		drafts:        newDraftStore(opts.DraftTTL),
		dashCache:     cache.New(opts.DashboardCacheTTL, 2*opts.DashboardCacheTTL),
		now:           time.Now,
	}
}

// ── Auth ─────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

func (s *appService) CreateUser(ctx context.Context, username, email, password, role string) (*UserResult, error) {
	if len(password) < 8 {
		return nil, &core.ValidationError{Field: "password", Message: "must be at least 8 characters"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, cleanText(username), cleanText(email), string(hash), role)
	if err != nil {
		return nil, err
	}
	return &UserResult{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

// ── Catalog ──────────────────────────────────────────────────────────────────

func (s *appService) ListCategories(ctx context.Context) (*CategoryListResult, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &CategoryListResult{Categories: categories}, nil
}

func (s *appService) CreateCategory(ctx context.Context, req CategoryRequest) (*core.Category, error) {
	return s.catalog.CreateCategory(ctx, cleanText(req.Name), cleanText(req.Description))
}

func (s *appService) DeleteCategory(ctx context.Context, id int) error {
	return s.catalog.DeleteCategory(ctx, id)
}

func (s *appService) ListProducts(ctx context.Context, filter core.CatalogFilter) (*ProductListResult, error) {
	products, err := s.catalog.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) ListLowStock(ctx context.Context) (*ProductListResult, error) {
	products, err := s.catalog.ListProducts(ctx, core.CatalogFilter{})
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: core.LowStock(products)}, nil
}

func (s *appService) GetProduct(ctx context.Context, id int) (*core.CatalogItem, error) {
	return s.catalog.GetProduct(ctx, id)
}

func (s *appService) CreateProduct(ctx context.Context, req ProductRequest) (*core.CatalogItem, error) {
	p, err := s.catalog.CreateProduct(ctx, productInput(req))
	if err == nil {
		s.invalidateDashboard()
	}
	return p, err
}

func (s *appService) UpdateProduct(ctx context.Context, id int, req ProductRequest) (*core.CatalogItem, error) {
	p, err := s.catalog.UpdateProduct(ctx, id, productInput(req))
	if err == nil {
		s.invalidateDashboard()
	}
	return p, err
}

func (s *appService) DeleteProduct(ctx context.Context, id int) error {
	err := s.catalog.DeleteProduct(ctx, id)
	if err == nil {
		s.invalidateDashboard()
	}
	return err
}

func productInput(req ProductRequest) core.ProductInput {
	return core.ProductInput{
		Name:        cleanText(req.Name),
		Description: cleanText(req.Description),
		CostPrice:   req.CostPrice,
		SalePrice:   req.SalePrice,
		StockActual: req.StockActual,
		StockMinimo: req.StockMinimo,
		CategoryID:  req.CategoryID,
	}
}

// ── Exchange rate ────────────────────────────────────────────────────────────

func (s *appService) GetExchangeRate(ctx context.Context) *RateResult {
	return &RateResult{Quote: s.rates.Current(ctx), LocalCurrency: s.localCurrency}
}

func (s *appService) RefreshExchangeRate(ctx context.Context) *RateResult {
	return &RateResult{Quote: s.rates.Refresh(ctx), LocalCurrency: s.localCurrency}
}

func (s *appService) ConvertAmount(ctx context.Context, req ConvertRequest) (*ConversionResult, error) {
	res := &ConversionResult{AmountUSD: req.AmountUSD, LocalCurrency: s.localCurrency}
	if req.OverrideRate != nil {
		if !req.OverrideRate.IsPositive() {
			return nil, &core.ValidationError{Field: "rate", Message: "override rate must be > 0"}
		}
		res.Rate = *req.OverrideRate
		res.Source = "override"
	} else {
		q := s.rates.Current(ctx)
		res.Rate = q.Rate
		res.Source = string(q.Source)
		res.Warning = q.Warning
	}
	res.AmountLocal = core.ToLocal(req.AmountUSD, res.Rate)
	return res, nil
}

// localTotals converts totals at the current rate.
func (s *appService) localTotals(ctx context.Context, t core.Totals) *LocalTotals {
	q := s.rates.Current(ctx)
	return &LocalTotals{
		Rate:        q.Rate,
		Total:       core.ToLocal(t.Total, q.Rate),
		TotalProfit: core.ToLocal(t.TotalProfit, q.Rate),
		Currency:    s.localCurrency,
		Warning:     q.Warning,
	}
}

func (s *appService) invalidateDashboard() {
	s.dashCache.Flush()
}
