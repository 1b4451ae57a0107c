// Package fx supplies the USD to local-currency exchange rate.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource fetches the current exchange rate, in local units per USD.
type RateSource interface {
	FetchCurrent(ctx context.Context) (decimal.Decimal, error)
}

// DolarAPISource reads a dolarapi.com style quote:
//
//	{"moneda":"USD","casa":"blue","compra":1180,"venta":1200,"fechaActualizacion":"..."}
//
// Field selects "compra" (buy) or "venta" (sell).
type DolarAPISource struct {
	URL   string
	Field string
	http  *http.Client
}

// NewDolarAPISource returns a source that gives up after timeout.
func NewDolarAPISource(url, field string, timeout time.Duration) *DolarAPISource {
	return &DolarAPISource{URL: url, Field: field, http: &http.Client{Timeout: timeout}}
}

type dolarQuote struct {
	Compra *decimal.Decimal `json:"compra"`
	Venta  *decimal.Decimal `json:"venta"`
}

func (s *DolarAPISource) FetchCurrent(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "inventory-console/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate source http %d", resp.StatusCode)
	}

	var q dolarQuote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate: %w", err)
	}

	var rate *decimal.Decimal
	switch s.Field {
	case "compra":
		rate = q.Compra
	case "venta", "":
		rate = q.Venta
	default:
		return decimal.Zero, fmt.Errorf("unknown rate field %q", s.Field)
	}
	if rate == nil {
		return decimal.Zero, fmt.Errorf("rate field %q missing", withDefault(s.Field, "venta"))
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid rate %s", rate)
	}
	return *rate, nil
}

// StaticSource always returns the same rate. It backs offline setups and tests.
type StaticSource struct {
	Rate decimal.Decimal
}

func (s StaticSource) FetchCurrent(context.Context) (decimal.Decimal, error) {
	if !s.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid rate %s", s.Rate)
	}
	return s.Rate, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
