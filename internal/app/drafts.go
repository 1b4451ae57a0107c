package app

import (
	"context"
	"fmt"
	"time"

	"inventory-console/internal/core"
	"inventory-console/internal/logger"
)

func (s *appService) CreateDraft(ctx context.Context, kind string) (*DraftResult, error) {
	k, err := core.ParseDocumentKind(kind)
	if err != nil {
		return nil, err
	}
	id, d := s.drafts.create(k, core.DraftHeader{Date: s.today()})
	return s.draftResult(ctx, id, d), nil
}

func (s *appService) GetDraft(ctx context.Context, id string) (*DraftResult, error) {
	d, ok := s.drafts.get(id)
	if !ok {
		return nil, ErrDraftNotFound
	}
	return s.draftResult(ctx, id, d), nil
}

func (s *appService) SetDraftHeader(ctx context.Context, id string, req DraftHeaderRequest) (*DraftResult, error) {
	return s.mutateDraft(ctx, id, func(d *core.Draft) error {
		d.Header = s.header(req)
		return nil
	})
}

func (s *appService) AddDraftLine(ctx context.Context, id string, req LineRequest) (*DraftResult, error) {
	if _, ok := s.drafts.get(id); !ok {
		return nil, ErrDraftNotFound
	}
	item, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, id, func(d *core.Draft) error {
		return addLine(d, *item, req)
	})
}

func (s *appService) UpdateDraftLine(ctx context.Context, id string, index int, req LineUpdateRequest) (*DraftResult, error) {
	current, ok := s.drafts.get(id)
	if !ok {
		return nil, ErrDraftNotFound
	}
	var item *core.CatalogItem
	if req.Quantity != nil && index >= 0 && index < len(current.Lines) {
		var err error
		if item, err = s.catalog.GetProduct(ctx, current.Lines[index].ProductID); err != nil {
			return nil, err
		}
	}
	return s.mutateDraft(ctx, id, func(d *core.Draft) error {
		if req.Quantity != nil {
			if item == nil {
				return &core.ValidationError{Field: "line", Message: "line index out of range"}
			}
			if err := d.UpdateQuantity(index, *item, *req.Quantity); err != nil {
				return err
			}
		}
		if req.SerialNumber != nil {
			if err := d.SetSerial(index, cleanText(*req.SerialNumber)); err != nil {
				return err
			}
		}
		if req.UnitCost != nil {
			if err := d.SetUnitCost(index, *req.UnitCost); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *appService) RemoveDraftLine(ctx context.Context, id string, index int) (*DraftResult, error) {
	return s.mutateDraft(ctx, id, func(d *core.Draft) error {
		return d.RemoveLine(index)
	})
}

func (s *appService) DiscardDraft(ctx context.Context, id string) error {
	return s.drafts.delete(id)
}

func (s *appService) SubmitDraft(ctx context.Context, id string) (*SubmitResult, error) {
	d, err := s.drafts.claim(id)
	if err != nil {
		return nil, err
	}
	res, err := s.submit(ctx, d)
	s.drafts.finish(id, err == nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *appService) QuoteLines(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	kind, err := core.ParseDocumentKind(req.Kind)
	if err != nil {
		return nil, err
	}
	d, err := s.buildDraft(ctx, kind, DraftHeaderRequest{}, req.Lines)
	if err != nil {
		return nil, err
	}
	res := &QuoteResult{Kind: kind, Lines: d.Lines, Totals: d.Totals()}
	if kind == core.KindSale {
		res.Local = s.localTotals(ctx, res.Totals)
	}
	return res, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// mutateDraft applies fn to a copy of the stored draft and stores the copy
// only if fn succeeds.
func (s *appService) mutateDraft(ctx context.Context, id string, fn func(*core.Draft) error) (*DraftResult, error) {
	d, err := s.drafts.update(id, fn)
	if err != nil {
		return nil, err
	}
	return s.draftResult(ctx, id, d), nil
}

func (s *appService) draftResult(ctx context.Context, id string, d *core.Draft) *DraftResult {
	res := &DraftResult{ID: id, Kind: d.Kind, Header: d.Header, Lines: d.Lines, Totals: d.Totals()}
	if d.Kind == core.KindSale {
		res.Local = s.localTotals(ctx, res.Totals)
	}
	return res
}

func (s *appService) header(req DraftHeaderRequest) core.DraftHeader {
	date := req.Date
	if date.IsZero() {
		date = s.today()
	}
	return core.DraftHeader{
		Date:          date,
		Counterparty:  cleanText(req.Counterparty),
		PaymentMethod: cleanText(req.PaymentMethod),
		TradeIn:       cleanText(req.TradeIn),
		Notes:         cleanText(req.Notes),
	}
}

func (s *appService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.now().Location())
}

func addLine(d *core.Draft, item core.CatalogItem, req LineRequest) error {
	if err := d.AddItem(item, req.Quantity, cleanText(req.SerialNumber)); err != nil {
		return err
	}
	if req.UnitCost != nil {
		return d.SetUnitCost(len(d.Lines)-1, *req.UnitCost)
	}
	return nil
}

// buildDraft composes a draft from request lines against one fresh catalog read.
func (s *appService) buildDraft(ctx context.Context, kind core.DocumentKind, hdr DraftHeaderRequest, lines []LineRequest) (*core.Draft, error) {
	ids := make([]int, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	catalog, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	d := core.NewDraft(kind)
	d.Header = s.header(hdr)
	for i, l := range lines {
		item, ok := catalog[l.ProductID]
		if !ok {
			return nil, &core.ValidationError{Field: "product_id", Message: fmt.Sprintf("line %d: product %d does not exist", i+1, l.ProductID)}
		}
		if err := addLine(d, item, l); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// submit stores d as a sale or purchase. Sales are first checked against a
// fresh catalog read and stamped with the current exchange rate; the store
// re-checks stock under row locks.
func (s *appService) submit(ctx context.Context, d *core.Draft) (*SubmitResult, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if d.Kind == core.KindPurchase {
		in, err := d.PurchaseInput()
		if err != nil {
			return nil, err
		}
		p, err := s.purchases.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		s.invalidateDashboard()
		return &SubmitResult{Purchase: p}, nil
	}

	ids := make([]int, 0, len(d.Lines))
	for _, l := range d.Lines {
		ids = append(ids, l.ProductID)
	}
	fresh, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := d.RevalidateStock(fresh); err != nil {
		return nil, err
	}

	q := s.rates.Current(ctx)
	if q.Warning != "" {
		logger.FromContext(ctx).Warn("sale stamped with non-live exchange rate", "rate", q.Rate.String(), "source", q.Source)
	}
	in, err := d.SaleInput(q.Rate)
	if err != nil {
		return nil, err
	}
	sale, err := s.sales.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard()
	v := saleView(*sale)
	return &SubmitResult{Sale: &v}, nil
}
