package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"inventory-console/internal/app"
)

const dateLayout = "2006-01-02"

var errUsage = errors.New("usage")

// Run executes a one-shot CLI command and exits the process on failure.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	if err := Exec(ctx, svc, args, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// Exec runs one subcommand and writes its report to out.
func Exec(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: app <rate|convert|low-stock|dashboard|period|expenses>", errUsage)
	}

	switch args[0] {
	case "rate":
		printRate(out, svc.RefreshExchangeRate(ctx))
		return nil

	case "convert":
		if len(args) < 2 {
			return fmt.Errorf("%w: app convert <usd> [rate]", errUsage)
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		req := app.ConvertRequest{AmountUSD: amount}
		if len(args) > 2 {
			rate, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid rate %q: %w", args[2], err)
			}
			req.OverrideRate = &rate
		}
		result, err := svc.ConvertAmount(ctx, req)
		if err != nil {
			return fmt.Errorf("convert: %w", err)
		}
		fmt.Fprintf(out, "%s USD = %s %s (rate %s, %s)\n",
			result.AmountUSD.StringFixed(2), result.AmountLocal.StringFixed(2),
			result.LocalCurrency, result.Rate.String(), result.Source)
		if result.Warning != "" {
			fmt.Fprintln(out, "warning:", result.Warning)
		}
		return nil

	case "low-stock", "low":
		result, err := svc.ListLowStock(ctx)
		if err != nil {
			return fmt.Errorf("low stock: %w", err)
		}
		printLowStock(out, result)
		return nil

	case "dashboard", "dash":
		ref, err := refDate(args, 1)
		if err != nil {
			return err
		}
		result, err := svc.GetDashboard(ctx, ref)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		printDashboard(out, result)
		return nil

	case "period":
		if len(args) < 2 {
			return fmt.Errorf("%w: app period weekly|monthly [YYYY-MM-DD]", errUsage)
		}
		ref, err := refDate(args, 2)
		if err != nil {
			return err
		}
		result, err := svc.GetPeriodReport(ctx, args[1], ref)
		if err != nil {
			return fmt.Errorf("period report: %w", err)
		}
		printPeriod(out, result)
		return nil

	case "expenses":
		result, err := svc.ListExpenses(ctx)
		if err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		printExpenses(out, result)
		return nil
	}
	return fmt.Errorf("unknown command: %s\nAvailable: rate, convert, low-stock, dashboard, period, expenses", args[0])
}

// refDate reads an optional YYYY-MM-DD argument at position i, defaulting to today.
func refDate(args []string, i int) (time.Time, error) {
	if len(args) <= i {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	t, err := time.ParseInLocation(dateLayout, args[i], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD, got %q", args[i])
	}
	return t, nil
}

func printRate(out io.Writer, r *app.RateResult) {
	fmt.Fprintf(out, "1 USD = %s %s (%s)\n", r.Rate.String(), r.LocalCurrency, r.Source)
	if r.Warning != "" {
		fmt.Fprintln(out, "warning:", r.Warning)
	}
}

func printLowStock(out io.Writer, result *app.ProductListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-58s\n", "LOW STOCK")
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-6s %-34s %8s %8s\n", "ID", "NAME", "STOCK", "MIN")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, p := range result.Products {
		fmt.Fprintf(out, "  %-6d %-34s %8d %8d\n", p.ID, truncate(p.Name, 34), p.StockActual, p.StockMinimo)
	}
	if len(result.Products) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printDashboard(out io.Writer, d *app.DashboardResult) {
	cur := d.Rate.LocalCurrency
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  DASHBOARD  %s  (source: %s)\n", d.RefDate.Format(dateLayout), d.Source)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-10s %6s %14s %14s %14s\n", "PERIOD", "SALES", "TOTAL USD", "PROFIT USD", "TOTAL "+cur)
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-10s %6d %14s %14s %14s\n", "week", d.Weekly.Count,
		d.Weekly.TotalUSD.StringFixed(2), d.Weekly.TotalProfitUSD.StringFixed(2), d.Weekly.TotalLocal.StringFixed(2))
	fmt.Fprintf(out, "  %-10s %6d %14s %14s %14s\n", "month", d.Monthly.Count,
		d.Monthly.TotalUSD.StringFixed(2), d.Monthly.TotalProfitUSD.StringFixed(2), d.Monthly.TotalLocal.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  Fixed expenses : %s USD\n", d.FixedExpenses.StringFixed(2))
	fmt.Fprintf(out, "  Net profit     : %s USD / %s %s\n", d.NetProfitUSD.StringFixed(2), d.NetProfitLocal.StringFixed(2), cur)
	fmt.Fprintf(out, "  Rate           : %s (%s)\n", d.Rate.Rate.String(), d.Rate.Source)
	fmt.Fprintf(out, "  Low stock      : %d item(s)\n", d.LowStockCount)
	for _, w := range d.Warnings {
		fmt.Fprintln(out, "  warning:", w)
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printPeriod(out io.Writer, p *app.PeriodReportResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %s  %s .. %s\n", strings.ToUpper(string(p.Period)), p.From.Format(dateLayout), p.To.Format(dateLayout))
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-6s %-12s %-20s %10s %10s\n", "ID", "DATE", "CUSTOMER", "TOTAL", "PROFIT")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, s := range p.Sales {
		fmt.Fprintf(out, "  %-6d %-12s %-20s %10s %10s\n", s.ID, s.Date.Format(dateLayout),
			truncate(s.CustomerName, 20), s.Total.StringFixed(2), s.TotalProfit.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %d sale(s)  total %s USD  profit %s USD\n",
		p.Summary.Count, p.Summary.TotalUSD.StringFixed(2), p.Summary.TotalProfitUSD.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 62))
}

func printExpenses(out io.Writer, result *app.ExpenseListResult) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %-6s %-38s %14s\n", "ID", "NAME", "AMOUNT USD")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, e := range result.Expenses {
		fmt.Fprintf(out, "  %-6d %-38s %14s\n", e.ID, truncate(e.Name, 38), e.Amount.StringFixed(2))
	}
	fmt.Fprintln(out, strings.Repeat("-", 62))
	fmt.Fprintf(out, "  %-45s %14s\n", "TOTAL", result.Total.StringFixed(2))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
