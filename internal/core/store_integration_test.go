package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"inventory-console/internal/core"
	"inventory-console/migrations"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database; every table is truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}
	if err := migrations.Up(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE sale_items, sales, purchase_items, purchases, products, categories, fixed_expenses, users
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		pool.Close()
		t.Fatalf("Failed to reset test database: %v", err)
	}
	return pool
}

func seedProduct(t *testing.T, catalog core.CatalogService, name, cost, price string, stock, min int) *core.CatalogItem {
	t.Helper()
	p, err := catalog.CreateProduct(context.Background(), core.ProductInput{
		Name: name, CostPrice: dec(cost), SalePrice: dec(price), StockActual: stock, StockMinimo: min,
	})
	if err != nil {
		t.Fatalf("CreateProduct %s failed: %v", name, err)
	}
	return p
}

func saleLine(t *testing.T, item *core.CatalogItem, qty int, serial string) core.LineItem {
	t.Helper()
	l, err := core.ComputeLine(*item, qty, core.KindSale)
	if err != nil {
		t.Fatalf("ComputeLine failed: %v", err)
	}
	l.SerialNumber = serial
	return l
}

func TestCatalog_CategoriesAndFilter(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool)

	phones, err := catalog.CreateCategory(ctx, "Phones", "")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if _, err := catalog.CreateCategory(ctx, "Phones", ""); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected duplicate category to be a validation error, got %v", err)
	}

	_, err = catalog.CreateProduct(ctx, core.ProductInput{Name: "Phone X", CostPrice: dec("100"), SalePrice: dec("150"), StockActual: 5, CategoryID: &phones.ID})
	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	seedProduct(t, catalog, "USB cable", "2", "5", 40, 10)

	byCat, err := catalog.ListProducts(ctx, core.CatalogFilter{CategoryID: &phones.ID})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(byCat) != 1 || byCat[0].CategoryName != "Phones" {
		t.Errorf("Expected only Phone X in Phones, got %+v", byCat)
	}

	bySearch, _ := catalog.ListProducts(ctx, core.CatalogFilter{Search: "usb"})
	if len(bySearch) != 1 || bySearch[0].Name != "USB cable" {
		t.Errorf("Expected search to find the cable, got %+v", bySearch)
	}

	missing := 9999
	_, err = catalog.CreateProduct(ctx, core.ProductInput{Name: "Orphan", CategoryID: &missing})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected unknown category to be a validation error, got %v", err)
	}

	if _, err := catalog.GetProduct(ctx, 424242); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestSale_CreateDecrementsStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool)
	sales := core.NewSaleService(pool)

	phone := seedProduct(t, catalog, "Phone X", "100", "150", 5, 1)
	cover := seedProduct(t, catalog, "Case", "50", "80", 10, 2)

	sale, err := sales.Create(ctx, core.SaleInput{
		Date:          day("2024-05-15"),
		CustomerName:  "Ana",
		PaymentMethod: "cash",
		ExchangeRate:  dec("1000"),
		Items:         []core.LineItem{saleLine(t, phone, 2, "SN-1"), saleLine(t, cover, 1, "SN-2")},
	})
	if err != nil {
		t.Fatalf("Create sale failed: %v", err)
	}
	if !sale.Total.Equal(dec("380")) || !sale.TotalProfit.Equal(dec("130")) {
		t.Errorf("Expected totals 380/130, got %s/%s", sale.Total, sale.TotalProfit)
	}
	if !sale.TotalLocal().Equal(dec("380000")) {
		t.Errorf("Expected local total 380000, got %s", sale.TotalLocal())
	}
	if len(sale.Items) != 2 || sale.Items[0].SerialNumber != "SN-1" {
		t.Errorf("Expected 2 lines in order, got %+v", sale.Items)
	}

	after, _ := catalog.GetProduct(ctx, phone.ID)
	if after.StockActual != 3 {
		t.Errorf("Expected stock 3 after selling 2, got %d", after.StockActual)
	}

	// Catalog edits never change an existing sale.
	_, err = catalog.UpdateProduct(ctx, phone.ID, core.ProductInput{Name: "Phone X", CostPrice: dec("100"), SalePrice: dec("999"), StockActual: 3})
	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	reloaded, _ := sales.Get(ctx, sale.ID)
	if !reloaded.Items[0].UnitPrice.Equal(dec("150")) {
		t.Errorf("Expected snapshot price 150, got %s", reloaded.Items[0].UnitPrice)
	}

	if err := sales.Delete(ctx, sale.ID); err != nil {
		t.Fatalf("Delete sale failed: %v", err)
	}
	restored, _ := catalog.GetProduct(ctx, phone.ID)
	if restored.StockActual != 5 {
		t.Errorf("Expected stock restored to 5, got %d", restored.StockActual)
	}
	if _, err := sales.Get(ctx, sale.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected deleted sale to be not found, got %v", err)
	}
}

func TestSale_CreateRejectsStaleStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool)
	sales := core.NewSaleService(pool)

	phone := seedProduct(t, catalog, "Phone X", "100", "150", 5, 1)
	line := saleLine(t, phone, 4, "SN-1")

	// Another session sells 3 units after the line was drafted.
	if _, err := pool.Exec(ctx, "UPDATE products SET stock_actual = 2 WHERE id = $1", phone.ID); err != nil {
		t.Fatalf("Failed to adjust stock: %v", err)
	}

	_, err := sales.Create(ctx, core.SaleInput{
		Date: day("2024-05-15"), CustomerName: "Ana", PaymentMethod: "cash",
		ExchangeRate: dec("1000"), Items: []core.LineItem{line},
	})
	var se *core.StockExceededError
	if !errors.As(err, &se) || se.Available != 2 || se.Requested != 4 {
		t.Fatalf("Expected stock exceeded 4 > 2, got %v", err)
	}

	page, _ := sales.List(ctx, core.ListQuery{})
	if page.TotalCount != 0 {
		t.Errorf("Expected no sale stored, got %d", page.TotalCount)
	}
	still, _ := catalog.GetProduct(ctx, phone.ID)
	if still.StockActual != 2 {
		t.Errorf("Expected stock untouched at 2, got %d", still.StockActual)
	}
}

func TestSale_ListPagingAndSearch(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool)
	sales := core.NewSaleService(pool)

	phone := seedProduct(t, catalog, "Phone X", "100", "150", 50, 1)
	dates := []string{"2024-05-10", "2024-05-11", "2024-05-12"}
	for i, customer := range []string{"Ana", "Bruno", "Carla"} {
		_, err := sales.Create(ctx, core.SaleInput{
			Date: day(dates[i]), CustomerName: customer, PaymentMethod: "card",
			ExchangeRate: dec("1000"), Items: []core.LineItem{saleLine(t, phone, 1, "SN-"+customer)},
		})
		if err != nil {
			t.Fatalf("Create sale for %s failed: %v", customer, err)
		}
	}

	page, err := sales.List(ctx, core.ListQuery{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.TotalCount != 3 || len(page.Items) != 1 || page.Items[0].CustomerName != "Ana" {
		t.Errorf("Expected page 2 to hold the oldest sale (Ana) of 3, got %+v", page)
	}

	found, _ := sales.List(ctx, core.ListQuery{Search: "sn-bru"})
	if found.TotalCount != 1 || found.Items[0].CustomerName != "Bruno" {
		t.Errorf("Expected serial search to find Bruno, got %+v", found)
	}

	name := "Bruna"
	updated, err := sales.Update(ctx, found.Items[0].ID, core.SaleHeaderUpdate{CustomerName: &name})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.CustomerName != "Bruna" || updated.PaymentMethod != "card" {
		t.Errorf("Expected only the customer to change, got %+v", updated)
	}
}

func TestPurchase_StockRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool)
	purchases := core.NewPurchaseService(pool)

	phone := seedProduct(t, catalog, "Phone X", "100", "150", 1, 1)
	line, _ := core.ComputePurchaseLine(*phone, 10, dec("95"))

	p, err := purchases.Create(ctx, core.PurchaseInput{Date: day("2024-05-15"), SupplierName: "Acme", Items: []core.LineItem{line}})
	if err != nil {
		t.Fatalf("Create purchase failed: %v", err)
	}
	if !p.Total.Equal(dec("950")) {
		t.Errorf("Expected total 950, got %s", p.Total)
	}
	after, _ := catalog.GetProduct(ctx, phone.ID)
	if after.StockActual != 11 {
		t.Errorf("Expected stock 11, got %d", after.StockActual)
	}

	// Sell most of it, then delete the purchase: stock floors at zero.
	if _, err := pool.Exec(ctx, "UPDATE products SET stock_actual = 4 WHERE id = $1", phone.ID); err != nil {
		t.Fatalf("Failed to adjust stock: %v", err)
	}
	if err := purchases.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete purchase failed: %v", err)
	}
	final, _ := catalog.GetProduct(ctx, phone.ID)
	if final.StockActual != 0 {
		t.Errorf("Expected stock floored at 0, got %d", final.StockActual)
	}
}

func TestDashboard_StatsAndExpenses(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	catalog := core.NewCatalogService(pool)
	sales := core.NewSaleService(pool)
	expenses := core.NewExpenseService(pool)
	dashboard := core.NewDashboardService(pool)

	phone := seedProduct(t, catalog, "Phone X", "100", "150", 10, 3)
	seedProduct(t, catalog, "Charger", "5", "12", 3, 3)

	for _, d := range []string{"2024-05-01", "2024-05-12", "2024-05-13", "2024-05-15"} {
		_, err := sales.Create(ctx, core.SaleInput{
			Date: day(d), CustomerName: "Ana", PaymentMethod: "cash",
			ExchangeRate: dec("1000"), Items: []core.LineItem{saleLine(t, phone, 1, "SN-"+d)},
		})
		if err != nil {
			t.Fatalf("Create sale %s failed: %v", d, err)
		}
	}

	stats, err := dashboard.Stats(ctx, day("2024-05-15"))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Weekly.Count != 2 || !stats.Weekly.TotalUSD.Equal(dec("300")) {
		t.Errorf("Expected weekly 2 sales / 300, got %+v", stats.Weekly)
	}
	if stats.Monthly.Count != 4 || !stats.Monthly.TotalProfitUSD.Equal(dec("200")) {
		t.Errorf("Expected monthly 4 sales / profit 200, got %+v", stats.Monthly)
	}
	if !stats.Monthly.ProfitLocal.Equal(dec("200000")) {
		t.Errorf("Expected monthly local profit 200000, got %s", stats.Monthly.ProfitLocal)
	}
	// Phone X has 6 left against a minimum of 3; only the charger is low.
	if stats.LowStockCount != 1 {
		t.Errorf("Expected 1 low-stock product, got %d", stats.LowStockCount)
	}

	between, _ := sales.ListBetween(ctx, core.WindowStart(core.PeriodWeekly, day("2024-05-15")), day("2024-05-15"))
	client := core.Summarize(between)
	if client.Count != stats.Weekly.Count || !client.TotalUSD.Equal(stats.Weekly.TotalUSD) {
		t.Errorf("Expected in-memory summary to match SQL: %+v vs %+v", client, stats.Weekly)
	}

	if _, err := expenses.Create(ctx, core.ExpenseInput{Name: "Rent", Amount: dec("150")}); err != nil {
		t.Fatalf("Create expense failed: %v", err)
	}
	all, _ := expenses.List(ctx)
	if net := core.NetProfit(stats.Monthly.TotalProfitUSD, all); !net.Equal(dec("50")) {
		t.Errorf("Expected net profit 50, got %s", net)
	}
	if err := expenses.Delete(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}
