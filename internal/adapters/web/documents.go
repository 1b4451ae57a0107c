package web

import (
	"net/http"
	"time"

	"inventory-console/internal/app"
	"inventory-console/internal/core"
)

// listQuery reads ?page=&page_size=&q= into a ListQuery.
func listQuery(w http.ResponseWriter, r *http.Request) (core.ListQuery, bool) {
	page, ok := queryInt(w, r, "page")
	if !ok {
		return core.ListQuery{}, false
	}
	size, ok := queryInt(w, r, "page_size")
	if !ok {
		return core.ListQuery{}, false
	}
	q := core.ListQuery{Page: 1, PageSize: 50, Search: r.URL.Query().Get("q")}
	if page != nil {
		q.Page = *page
	}
	if size != nil {
		q.PageSize = *size
	}
	return q, true
}

// optionalDate parses an optional YYYY-MM-DD header field.
func optionalDate(w http.ResponseWriter, r *http.Request, s *string) (*time.Time, bool) {
	if s == nil {
		return nil, true
	}
	if *s == "" {
		writeError(w, r, "date cannot be empty", "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	t, ok := parseDate(w, r, *s)
	if !ok {
		return nil, false
	}
	return &t, true
}

// ── Sales ────────────────────────────────────────────────────────────────────

// apiListSales handles GET /api/sales?page=&page_size=&q=. page_size=0 returns every sale.
func (h *Handler) apiListSales(w http.ResponseWriter, r *http.Request) {
	q, ok := listQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListSales(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiGetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sale)
}

// apiCreateSale handles POST /api/sales: header fields plus lines, stored in one step.
func (h *Handler) apiCreateSale(w http.ResponseWriter, r *http.Request) {
	var body struct {
		headerBody
		Lines []lineBody `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	hdr, ok := body.header(w, r)
	if !ok {
		return
	}
	sale, err := h.svc.CreateSale(r.Context(), app.CreateSaleRequest{Header: hdr, Lines: lineRequests(body.Lines)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, sale)
}

func (h *Handler) apiUpdateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Date          *string `json:"date"`
		CustomerName  *string `json:"customer_name"`
		PaymentMethod *string `json:"payment_method"`
		TradeIn       *string `json:"trade_in"`
		Notes         *string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	date, ok := optionalDate(w, r, body.Date)
	if !ok {
		return
	}
	sale, err := h.svc.UpdateSale(r.Context(), id, app.SaleUpdateRequest{
		Date:          date,
		CustomerName:  body.CustomerName,
		PaymentMethod: body.PaymentMethod,
		TradeIn:       body.TradeIn,
		Notes:         body.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, sale)
}

func (h *Handler) apiDeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Purchases ────────────────────────────────────────────────────────────────

func (h *Handler) apiListPurchases(w http.ResponseWriter, r *http.Request) {
	q, ok := listQuery(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListPurchases(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiGetPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetPurchase(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) apiCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var body struct {
		headerBody
		Lines []lineBody `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	hdr, ok := body.header(w, r)
	if !ok {
		return
	}
	p, err := h.svc.CreatePurchase(r.Context(), app.CreatePurchaseRequest{Header: hdr, Lines: lineRequests(body.Lines)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

func (h *Handler) apiUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Date         *string `json:"date"`
		SupplierName *string `json:"supplier_name"`
		Notes        *string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	date, ok := optionalDate(w, r, body.Date)
	if !ok {
		return
	}
	p, err := h.svc.UpdatePurchase(r.Context(), id, app.PurchaseUpdateRequest{
		Date:         date,
		SupplierName: body.SupplierName,
		Notes:        body.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) apiDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePurchase(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
