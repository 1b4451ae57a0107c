package app

import (
	"context"
	"time"

	"inventory-console/internal/core"
	"inventory-console/internal/logger"
)

const (
	sourceServer = "server"
	sourceClient = "client"
)

func (s *appService) GetDashboard(ctx context.Context, ref time.Time) (*DashboardResult, error) {
	key := ref.Format("2006-01-02")
	if v, ok := s.dashCache.Get(key); ok {
		cached := *v.(*DashboardResult)
		return &cached, nil
	}

	res := &DashboardResult{RefDate: ref, Source: sourceServer}
	stats, err := s.dashboard.Stats(ctx, ref)
	if err != nil {
		logger.FromContext(ctx).Warn("dashboard aggregate query failed, rebuilding from sale list", "error", err)
		if stats, err = s.clientStats(ctx, ref); err != nil {
			return nil, err
		}
		res.Source = sourceClient
		res.Warnings = append(res.Warnings, "server aggregates unavailable; figures rebuilt from the sale list")
	}
	res.Weekly = stats.Weekly
	res.Monthly = stats.Monthly

	products, err := s.catalog.ListProducts(ctx, core.CatalogFilter{})
	if err != nil {
		return nil, err
	}
	res.LowStock = core.LowStock(products)
	res.LowStockCount = len(res.LowStock)

	expenses, err := s.expenses.List(ctx)
	if err != nil {
		return nil, err
	}
	res.FixedExpenses = core.SumExpenses(expenses)
	res.NetProfitUSD = core.NetProfit(res.Monthly.TotalProfitUSD, expenses)

	res.Rate = *s.GetExchangeRate(ctx)
	res.NetProfitLocal = core.ToLocal(res.NetProfitUSD, res.Rate.Rate)
	if res.Rate.Warning != "" {
		res.Warnings = append(res.Warnings, res.Rate.Warning)
	}

	if res.Source == sourceServer {
		s.dashCache.SetDefault(key, res)
		cached := *res
		return &cached, nil
	}
	return res, nil
}

// clientStats rebuilds the period summaries from the stored sale headers.
func (s *appService) clientStats(ctx context.Context, ref time.Time) (*core.DashboardStats, error) {
	from := core.WindowStart(core.PeriodMonthly, ref)
	if week := core.WindowStart(core.PeriodWeekly, ref); week.Before(from) {
		from = week
	}
	sales, err := s.sales.ListBetween(ctx, from, ref)
	if err != nil {
		return nil, err
	}
	return &core.DashboardStats{
		RefDate: ref,
		Weekly:  core.Summarize(core.FilterByPeriod(sales, core.PeriodWeekly, ref)),
		Monthly: core.Summarize(core.FilterByPeriod(sales, core.PeriodMonthly, ref)),
	}, nil
}

func (s *appService) GetPeriodReport(ctx context.Context, period string, ref time.Time) (*PeriodReportResult, error) {
	p, err := core.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	from := core.WindowStart(p, ref)
	sales, err := s.sales.ListBetween(ctx, from, ref)
	if err != nil {
		return nil, err
	}
	inWindow := core.FilterByPeriod(sales, p, ref)
	return &PeriodReportResult{
		Period:  p,
		From:    from,
		To:      ref,
		Summary: core.Summarize(inWindow),
		Sales:   saleViews(inWindow),
	}, nil
}
