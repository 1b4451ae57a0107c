package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DraftHeader holds the document-level fields of a draft. Counterparty is
// the customer for sales and the supplier for purchases. PaymentMethod and
// TradeIn only apply to sales.
type DraftHeader struct {
	Date          time.Time `json:"date"`
	Counterparty  string    `json:"counterparty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	TradeIn       string    `json:"trade_in,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// Draft is a sale or purchase being composed. Every mutating method either
// applies fully or returns an error and leaves the draft untouched.
// A Draft is owned by one session and is not safe for concurrent use.
type Draft struct {
	Kind   DocumentKind `json:"kind"`
	Header DraftHeader  `json:"header"`
	Lines  []LineItem   `json:"lines"`
}

// NewDraft returns an empty draft of the given kind.
func NewDraft(kind DocumentKind) *Draft {
	return &Draft{Kind: kind, Lines: []LineItem{}}
}

// Clone returns a deep copy of the draft.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Lines = append([]LineItem(nil), d.Lines...)
	return &c
}

// Totals recomputes the document totals from the current lines.
func (d *Draft) Totals() Totals {
	return Aggregate(d.Lines)
}

// AddItem appends a line for quantity units of item. For sales the stock
// check covers every line of the draft for the same product, and serial is
// stored on the new line.
func (d *Draft) AddItem(item CatalogItem, quantity int, serial string) error {
	line, err := d.computeLine(item, quantity, -1)
	if err != nil {
		return err
	}
	if d.Kind == KindSale {
		line.SerialNumber = serial
	}
	d.Lines = append(d.Lines, line)
	return nil
}

// UpdateQuantity changes the quantity of line index. item supplies the
// current stock; the line keeps the prices captured when it was added.
func (d *Draft) UpdateQuantity(index int, item CatalogItem, quantity int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	old := d.Lines[index]
	if item.ID != old.ProductID {
		return invalid("product_id", "line %d holds product %d, not %d", index+1, old.ProductID, item.ID)
	}

	snap := item
	snap.Name = old.ProductName
	snap.CostPrice = old.UnitCost
	snap.SalePrice = old.UnitPrice

	var line LineItem
	var err error
	if d.Kind == KindPurchase {
		line, err = ComputePurchaseLine(snap, quantity, old.UnitCost)
	} else {
		line, err = d.computeLine(snap, quantity, index)
	}
	if err != nil {
		return err
	}
	line.ID = old.ID
	line.SerialNumber = old.SerialNumber
	d.Lines[index] = line
	return nil
}

// SetSerial sets the serial number of a sale line.
func (d *Draft) SetSerial(index int, serial string) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if d.Kind != KindSale {
		return invalid("serial_number", "only sale lines carry a serial number")
	}
	d.Lines[index].SerialNumber = serial
	return nil
}

// SetUnitCost re-prices a purchase line at a negotiated unit cost.
func (d *Draft) SetUnitCost(index int, unitCost decimal.Decimal) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if d.Kind != KindPurchase {
		return invalid("unit_cost", "only purchase lines accept a unit cost")
	}
	old := d.Lines[index]
	line, err := ComputePurchaseLine(CatalogItem{ID: old.ProductID, Name: old.ProductName}, old.Quantity, unitCost)
	if err != nil {
		return err
	}
	line.ID = old.ID
	d.Lines[index] = line
	return nil
}

// RemoveLine deletes line index, keeping the order of the remaining lines.
func (d *Draft) RemoveLine(index int) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Lines = append(d.Lines[:index:index], d.Lines[index+1:]...)
	return nil
}

// RevalidateStock re-runs the sale stock check against a fresh catalog
// read, keyed by product id. It is a no-op for purchases.
func (d *Draft) RevalidateStock(catalog map[int]CatalogItem) error {
	if d.Kind != KindSale {
		return nil
	}
	wanted := make(map[int]int)
	var order []int
	for _, l := range d.Lines {
		if _, seen := wanted[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		wanted[l.ProductID] += l.Quantity
	}
	for _, id := range order {
		item, ok := catalog[id]
		if !ok {
			return notFound("product", id)
		}
		if wanted[id] > item.StockActual {
			return &StockExceededError{
				ProductID: id,
				ItemName:  item.Name,
				Available: item.StockActual,
				Requested: wanted[id],
			}
		}
	}
	return nil
}

// Validate checks that the draft is ready to submit.
func (d *Draft) Validate() error {
	if d.Kind == KindSale {
		_, err := d.SaleInput(decimal.NewFromInt(1))
		return err
	}
	_, err := d.PurchaseInput()
	return err
}

// SaleInput assembles the creation payload of a sale draft, stamping the
// exchange rate snapshot.
func (d *Draft) SaleInput(rate decimal.Decimal) (SaleInput, error) {
	if d.Kind != KindSale {
		return SaleInput{}, invalid("kind", "draft is a %s, not a sale", d.Kind)
	}
	in := SaleInput{
		Date:          d.Header.Date,
		CustomerName:  d.Header.Counterparty,
		PaymentMethod: d.Header.PaymentMethod,
		ExchangeRate:  rate,
		TradeIn:       d.Header.TradeIn,
		Notes:         d.Header.Notes,
		Items:         append([]LineItem(nil), d.Lines...),
	}
	if err := in.Validate(); err != nil {
		return SaleInput{}, err
	}
	return in, nil
}

// PurchaseInput assembles the creation payload of a purchase draft.
func (d *Draft) PurchaseInput() (PurchaseInput, error) {
	if d.Kind != KindPurchase {
		return PurchaseInput{}, invalid("kind", "draft is a %s, not a purchase", d.Kind)
	}
	in := PurchaseInput{
		Date:         d.Header.Date,
		SupplierName: d.Header.Counterparty,
		Notes:        d.Header.Notes,
		Items:        append([]LineItem(nil), d.Lines...),
	}
	if err := in.Validate(); err != nil {
		return PurchaseInput{}, err
	}
	return in, nil
}

// computeLine prices a new or replacement line. For sales the stock
// available to it excludes units already drafted on other lines (skip is
// the index being replaced, or -1).
func (d *Draft) computeLine(item CatalogItem, quantity, skip int) (LineItem, error) {
	if d.Kind == KindSale {
		drafted := 0
		for i, l := range d.Lines {
			if i != skip && l.ProductID == item.ID {
				drafted += l.Quantity
			}
		}
		item.StockActual -= drafted
		if item.StockActual < 0 {
			item.StockActual = 0
		}
	}
	return ComputeLine(item, quantity, d.Kind)
}

func (d *Draft) checkIndex(index int) error {
	if index < 0 || index >= len(d.Lines) {
		return invalid("line", "index %d out of range (draft has %d lines)", index, len(d.Lines))
	}
	return nil
}
