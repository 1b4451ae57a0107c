package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes sale documents from purchase documents.
type DocumentKind string

const (
	KindSale     DocumentKind = "sale"
	KindPurchase DocumentKind = "purchase"
)

// ParseDocumentKind accepts "sale" or "purchase".
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case KindSale, KindPurchase:
		return DocumentKind(s), nil
	}
	return "", invalid("kind", "must be %q or %q, got %q", KindSale, KindPurchase, s)
}

// LineItem is one product row of a sale or purchase.
//
// UnitCost and UnitPrice are snapshots taken when the line was computed, so
// later catalog edits never change an existing line. ProductID is a lookup
// key only.
type LineItem struct {
	ID           int             `json:"id,omitempty"`
	ProductID    int             `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	UnitPrice    decimal.Decimal `json:"unit_price"` // sales only
	SerialNumber string          `json:"serial_number,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Profit       decimal.Decimal `json:"profit"` // sales only, zero for purchases
}

// ComputeLine prices quantity units of item.
//
// For sales the subtotal is SalePrice × quantity and the profit is
// (SalePrice − CostPrice) × quantity; a quantity above the item's current
// stock returns a *StockExceededError. For purchases the subtotal is
// CostPrice × quantity and no profit or stock check applies.
func ComputeLine(item CatalogItem, quantity int, kind DocumentKind) (LineItem, error) {
	switch kind {
	case KindSale:
		return computeSaleLine(item, quantity)
	case KindPurchase:
		return ComputePurchaseLine(item, quantity, item.CostPrice)
	default:
		return LineItem{}, fmt.Errorf("unknown document kind %q", kind)
	}
}

func computeSaleLine(item CatalogItem, quantity int) (LineItem, error) {
	if quantity < 1 {
		return LineItem{}, invalid("quantity", "must be a positive integer, got %d", quantity)
	}
	if quantity > item.StockActual {
		return LineItem{}, &StockExceededError{
			ProductID: item.ID,
			ItemName:  item.Name,
			Available: item.StockActual,
			Requested: quantity,
		}
	}
	q := decimal.NewFromInt(int64(quantity))
	return LineItem{
		ProductID:   item.ID,
		ProductName: item.Name,
		Quantity:    quantity,
		UnitCost:    item.CostPrice,
		UnitPrice:   item.SalePrice,
		Subtotal:    item.SalePrice.Mul(q),
		Profit:      item.Margin().Mul(q),
	}, nil
}

// ComputePurchaseLine prices a purchase line at an explicit unit cost, which
// may differ from the catalog's current cost price.
func ComputePurchaseLine(item CatalogItem, quantity int, unitCost decimal.Decimal) (LineItem, error) {
	if quantity < 1 {
		return LineItem{}, invalid("quantity", "must be a positive integer, got %d", quantity)
	}
	if err := checkMoney("unit_cost", unitCost); err != nil {
		return LineItem{}, err
	}
	return LineItem{
		ProductID:   item.ID,
		ProductName: item.Name,
		Quantity:    quantity,
		UnitCost:    unitCost,
		Subtotal:    unitCost.Mul(decimal.NewFromInt(int64(quantity))),
		Profit:      decimal.Zero,
	}, nil
}

// MoneyPlaces is the number of decimal places stored for USD amounts.
const MoneyPlaces = 2

// checkMoney rejects negative amounts and amounts with more decimal places
// than are stored, so that subtotal = unit × quantity survives persistence.
func checkMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid(field, "cannot be negative, got %s", d)
	}
	if !d.Equal(d.Round(MoneyPlaces)) {
		return invalid(field, "at most %d decimal places allowed, got %s", MoneyPlaces, d)
	}
	return nil
}

// Recompute re-derives Subtotal and Profit from the line's own snapshots.
// Stores call it so a persisted line always satisfies
// subtotal = unit price × quantity regardless of what the client sent.
func (l LineItem) Recompute(kind DocumentKind) LineItem {
	q := decimal.NewFromInt(int64(l.Quantity))
	if kind == KindSale {
		l.Subtotal = l.UnitPrice.Mul(q)
		l.Profit = l.UnitPrice.Sub(l.UnitCost).Mul(q)
		return l
	}
	l.UnitPrice = decimal.Zero
	l.Subtotal = l.UnitCost.Mul(q)
	l.Profit = decimal.Zero
	return l
}

// Totals are the derived document-level figures. They are never edited
// directly, only recomputed from lines.
type Totals struct {
	Total       decimal.Decimal `json:"total"`
	TotalProfit decimal.Decimal `json:"total_profit"`
}

// Aggregate sums line subtotals and profits in order. An empty slice yields
// zero totals.
func Aggregate(lines []LineItem) Totals {
	t := Totals{Total: decimal.Zero, TotalProfit: decimal.Zero}
	for _, l := range lines {
		t.Total = t.Total.Add(l.Subtotal)
		t.TotalProfit = t.TotalProfit.Add(l.Profit)
	}
	return t
}

// ToLocal converts a USD amount to local currency units. A zero rate gives zero.
func ToLocal(amountUSD, rate decimal.Decimal) decimal.Decimal {
	return amountUSD.Mul(rate)
}
