package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"inventory-console/internal/app"
)

const dateLayout = "2006-01-02"

// headerBody is the document header as sent by clients. Counterparty may
// also be given as customer_name or supplier_name.
type headerBody struct {
	Date          string `json:"date"`
	Counterparty  string `json:"counterparty"`
	CustomerName  string `json:"customer_name"`
	SupplierName  string `json:"supplier_name"`
	PaymentMethod string `json:"payment_method"`
	TradeIn       string `json:"trade_in"`
	Notes         string `json:"notes"`
}

type lineBody struct {
	ProductID    int              `json:"product_id"`
	Quantity     int              `json:"quantity"`
	SerialNumber string           `json:"serial_number"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
}

func (b lineBody) request() app.LineRequest {
	return app.LineRequest{
		ProductID:    b.ProductID,
		Quantity:     b.Quantity,
		SerialNumber: b.SerialNumber,
		UnitCost:     b.UnitCost,
	}
}

func lineRequests(lines []lineBody) []app.LineRequest {
	out := make([]app.LineRequest, len(lines))
	for i, l := range lines {
		out[i] = l.request()
	}
	return out
}

// header converts the body, writing 400 for a malformed date.
func (b headerBody) header(w http.ResponseWriter, r *http.Request) (app.DraftHeaderRequest, bool) {
	date, ok := parseDate(w, r, b.Date)
	if !ok {
		return app.DraftHeaderRequest{}, false
	}
	counterparty := b.Counterparty
	if counterparty == "" {
		counterparty = b.CustomerName
	}
	if counterparty == "" {
		counterparty = b.SupplierName
	}
	return app.DraftHeaderRequest{
		Date:          date,
		Counterparty:  counterparty,
		PaymentMethod: b.PaymentMethod,
		TradeIn:       b.TradeIn,
		Notes:         b.Notes,
	}, true
}

// parseDate parses YYYY-MM-DD; an empty string yields the zero time.
func parseDate(w http.ResponseWriter, r *http.Request, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		writeError(w, r, "date must be YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}

// apiCreateDraft handles POST /api/drafts with {"kind": "sale"|"purchase"}.
func (h *Handler) apiCreateDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind string `json:"kind"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	d, err := h.svc.CreateDraft(r.Context(), body.Kind)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, d)
}

func (h *Handler) apiGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, d)
}

func (h *Handler) apiDiscardDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DiscardDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) apiSetDraftHeader(w http.ResponseWriter, r *http.Request) {
	var body headerBody
	if !decodeJSON(w, r, &body) {
		return
	}
	hdr, ok := body.header(w, r)
	if !ok {
		return
	}
	d, err := h.svc.SetDraftHeader(r.Context(), chi.URLParam(r, "id"), hdr)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, d)
}

func (h *Handler) apiAddDraftLine(w http.ResponseWriter, r *http.Request) {
	var body lineBody
	if !decodeJSON(w, r, &body) {
		return
	}
	d, err := h.svc.AddDraftLine(r.Context(), chi.URLParam(r, "id"), body.request())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, d)
}

// apiUpdateDraftLine handles PATCH /api/drafts/{id}/lines/{index}. index is 0-based.
func (h *Handler) apiUpdateDraftLine(w http.ResponseWriter, r *http.Request) {
	index, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	var body struct {
		Quantity     *int             `json:"quantity"`
		SerialNumber *string          `json:"serial_number"`
		UnitCost     *decimal.Decimal `json:"unit_cost"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	d, err := h.svc.UpdateDraftLine(r.Context(), chi.URLParam(r, "id"), index, app.LineUpdateRequest{
		Quantity:     body.Quantity,
		SerialNumber: body.SerialNumber,
		UnitCost:     body.UnitCost,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, d)
}

func (h *Handler) apiRemoveDraftLine(w http.ResponseWriter, r *http.Request) {
	index, ok := pathInt(w, r, "index")
	if !ok {
		return
	}
	d, err := h.svc.RemoveDraftLine(r.Context(), chi.URLParam(r, "id"), index)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, d)
}

func (h *Handler) apiSubmitDraft(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.SubmitDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// apiQuote handles POST /api/quote. Nothing is stored.
func (h *Handler) apiQuote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind  string     `json:"kind"`
		Lines []lineBody `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.QuoteLines(r.Context(), app.QuoteRequest{Kind: body.Kind, Lines: lineRequests(body.Lines)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
