package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardStats is the server-side aggregate behind the dashboard.
type DashboardStats struct {
	RefDate       time.Time     `json:"ref_date"`
	Weekly        PeriodSummary `json:"weekly"`
	Monthly       PeriodSummary `json:"monthly"`
	LowStockCount int           `json:"low_stock_count"`
}

// DashboardService computes dashboard figures with SQL aggregates. Its
// results are authoritative; the in-memory aggregators are only a fallback.
type DashboardService interface {
	Stats(ctx context.Context, ref time.Time) (*DashboardStats, error)
}

type dashboardService struct {
	pool *pgxpool.Pool
}

// NewDashboardService constructs a DashboardService backed by PostgreSQL.
func NewDashboardService(pool *pgxpool.Pool) DashboardService {
	return &dashboardService{pool: pool}
}

func (s *dashboardService) Stats(ctx context.Context, ref time.Time) (*DashboardStats, error) {
	stats := &DashboardStats{RefDate: ref}

	var err error
	if stats.Weekly, err = s.summarize(ctx, PeriodWeekly, ref); err != nil {
		return nil, err
	}
	if stats.Monthly, err = s.summarize(ctx, PeriodMonthly, ref); err != nil {
		return nil, err
	}

	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM products WHERE stock_actual <= stock_minimo",
	).Scan(&stats.LowStockCount); err != nil {
		return nil, unavailable("count low-stock products", err)
	}
	return stats, nil
}

// summarize aggregates stored sale totals between the period start and ref,
// both inclusive. Local figures use each sale's own exchange rate.
func (s *dashboardService) summarize(ctx context.Context, period Period, ref time.Time) (PeriodSummary, error) {
	var sum PeriodSummary
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total), 0),
		       COALESCE(SUM(total_profit), 0),
		       COALESCE(SUM(total * exchange_rate), 0),
		       COALESCE(SUM(total_profit * exchange_rate), 0)
		FROM sales
		WHERE sale_date BETWEEN $1::date AND $2::date
	`, WindowStart(period, ref).Format("2006-01-02"), ref.Format("2006-01-02")).Scan(
		&sum.Count, &sum.TotalUSD, &sum.TotalProfitUSD, &sum.TotalLocal, &sum.ProfitLocal,
	)
	if err != nil {
		return sum, unavailable("aggregate "+string(period)+" sales", err)
	}
	return sum, nil
}
