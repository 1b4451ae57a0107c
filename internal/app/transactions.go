package app

import (
	"context"

	"inventory-console/internal/core"
)

func saleView(sale core.Sale) SaleView {
	return SaleView{Sale: sale, TotalLocal: sale.TotalLocal(), ProfitLocal: sale.ProfitLocal()}
}

func saleViews(sales []core.Sale) []SaleView {
	views := make([]SaleView, len(sales))
	for i, sale := range sales {
		views[i] = saleView(sale)
	}
	return views
}

// ── Sales ────────────────────────────────────────────────────────────────────

func (s *appService) ListSales(ctx context.Context, q core.ListQuery) (*SaleListResult, error) {
	q.Search = cleanText(q.Search)
	page, err := s.sales.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SaleListResult{
		Items:      saleViews(page.Items),
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
	}, nil
}

func (s *appService) GetSale(ctx context.Context, id int) (*SaleView, error) {
	sale, err := s.sales.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := saleView(*sale)
	return &v, nil
}

func (s *appService) CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleView, error) {
	d, err := s.buildDraft(ctx, core.KindSale, req.Header, req.Lines)
	if err != nil {
		return nil, err
	}
	res, err := s.submit(ctx, d)
	if err != nil {
		return nil, err
	}
	return res.Sale, nil
}

func (s *appService) UpdateSale(ctx context.Context, id int, req SaleUpdateRequest) (*SaleView, error) {
	sale, err := s.sales.Update(ctx, id, core.SaleHeaderUpdate{
		Date:          req.Date,
		CustomerName:  cleanOptional(req.CustomerName),
		PaymentMethod: cleanOptional(req.PaymentMethod),
		TradeIn:       cleanOptional(req.TradeIn),
		Notes:         cleanOptional(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard()
	v := saleView(*sale)
	return &v, nil
}

func (s *appService) DeleteSale(ctx context.Context, id int) error {
	if err := s.sales.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard()
	return nil
}

// ── Purchases ────────────────────────────────────────────────────────────────

func (s *appService) ListPurchases(ctx context.Context, q core.ListQuery) (*PurchaseListResult, error) {
	q.Search = cleanText(q.Search)
	page, err := s.purchases.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *appService) GetPurchase(ctx context.Context, id int) (*core.Purchase, error) {
	return s.purchases.Get(ctx, id)
}

func (s *appService) CreatePurchase(ctx context.Context, req CreatePurchaseRequest) (*core.Purchase, error) {
	d, err := s.buildDraft(ctx, core.KindPurchase, req.Header, req.Lines)
	if err != nil {
		return nil, err
	}
	res, err := s.submit(ctx, d)
	if err != nil {
		return nil, err
	}
	return res.Purchase, nil
}

func (s *appService) UpdatePurchase(ctx context.Context, id int, req PurchaseUpdateRequest) (*core.Purchase, error) {
	return s.purchases.Update(ctx, id, core.PurchaseHeaderUpdate{
		Date:         req.Date,
		SupplierName: cleanOptional(req.SupplierName),
		Notes:        cleanOptional(req.Notes),
	})
}

func (s *appService) DeletePurchase(ctx context.Context, id int) error {
	if err := s.purchases.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard()
	return nil
}

// ── Fixed expenses ───────────────────────────────────────────────────────────

func (s *appService) ListExpenses(ctx context.Context) (*ExpenseListResult, error) {
	expenses, err := s.expenses.List(ctx)
	if err != nil {
		return nil, err
	}
	return &ExpenseListResult{Expenses: expenses, Total: core.SumExpenses(expenses)}, nil
}

func (s *appService) CreateExpense(ctx context.Context, req ExpenseRequest) (*core.FixedExpense, error) {
	e, err := s.expenses.Create(ctx, core.ExpenseInput{Name: cleanText(req.Name), Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard()
	return e, nil
}

func (s *appService) UpdateExpense(ctx context.Context, id int, req ExpenseRequest) (*core.FixedExpense, error) {
	e, err := s.expenses.Update(ctx, id, core.ExpenseInput{Name: cleanText(req.Name), Amount: req.Amount})
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard()
	return e, nil
}

func (s *appService) DeleteExpense(ctx context.Context, id int) error {
	if err := s.expenses.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard()
	return nil
}
