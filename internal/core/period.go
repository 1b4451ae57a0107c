package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period selects a reporting window ending at a reference date.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// ParsePeriod accepts "weekly" or "monthly".
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	}
	return "", invalid("period", "must be %q or %q, got %q", PeriodWeekly, PeriodMonthly, s)
}

// WindowStart returns midnight of the first day of the period containing ref,
// in ref's location. Weeks start on Monday; a Monday ref starts its own week.
func WindowStart(period Period, ref time.Time) time.Time {
	y, m, d := ref.Date()
	switch period {
	case PeriodMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
	default:
		back := (int(ref.Weekday()) + 6) % 7 // Monday=0 … Sunday=6
		return time.Date(y, m, d-back, 0, 0, 0, 0, ref.Location())
	}
}

// civilDay collapses a timestamp to its calendar day in its own location.
// Sale dates are stored as calendar dates, so window membership compares
// days rather than instants.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// InWindow reports whether date falls on a day in [WindowStart(period, ref), ref].
func InWindow(date time.Time, period Period, ref time.Time) bool {
	day := civilDay(date)
	return day >= civilDay(WindowStart(period, ref)) && day <= civilDay(ref)
}

// FilterByPeriod returns the sales dated inside the period ending at ref,
// preserving input order.
func FilterByPeriod(sales []Sale, period Period, ref time.Time) []Sale {
	out := make([]Sale, 0, len(sales))
	for _, s := range sales {
		if InWindow(s.Date, period, ref) {
			out = append(out, s)
		}
	}
	return out
}

// PeriodSummary aggregates stored sale totals over a window.
// Local figures use each sale's own stored exchange rate.
type PeriodSummary struct {
	Count          int             `json:"count"`
	TotalUSD       decimal.Decimal `json:"total_usd"`
	TotalProfitUSD decimal.Decimal `json:"total_profit_usd"`
	TotalLocal     decimal.Decimal `json:"total_local"`
	ProfitLocal    decimal.Decimal `json:"profit_local"`
}

// Summarize sums the already-stored Total and TotalProfit of each sale. It
// does not recompute from line items.
func Summarize(sales []Sale) PeriodSummary {
	sum := PeriodSummary{
		TotalUSD:       decimal.Zero,
		TotalProfitUSD: decimal.Zero,
		TotalLocal:     decimal.Zero,
		ProfitLocal:    decimal.Zero,
	}
	for _, s := range sales {
		sum.Count++
		sum.TotalUSD = sum.TotalUSD.Add(s.Total)
		sum.TotalProfitUSD = sum.TotalProfitUSD.Add(s.TotalProfit)
		sum.TotalLocal = sum.TotalLocal.Add(s.TotalLocal())
		sum.ProfitLocal = sum.ProfitLocal.Add(s.ProfitLocal())
	}
	return sum
}

// LowStock returns the items whose stock is at or below their minimum.
func LowStock(items []CatalogItem) []CatalogItem {
	out := make([]CatalogItem, 0)
	for _, it := range items {
		if it.StockActual <= it.StockMinimo {
			out = append(out, it)
		}
	}
	return out
}

// NetProfit subtracts every fixed expense from a monthly profit figure.
// A nil or empty expense list subtracts nothing.
func NetProfit(monthlyProfit decimal.Decimal, expenses []FixedExpense) decimal.Decimal {
	net := monthlyProfit
	for _, e := range expenses {
		net = net.Sub(e.Amount)
	}
	return net
}

// SumExpenses totals the fixed expense amounts.
func SumExpenses(expenses []FixedExpense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
