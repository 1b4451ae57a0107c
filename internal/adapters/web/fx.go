package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"inventory-console/internal/app"
)

// apiGetRate handles GET /api/exchange-rate. Always 200: a failed fetch
// yields the cached or fallback rate with a warning.
func (h *Handler) apiGetRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.GetExchangeRate(r.Context()))
}

func (h *Handler) apiRefreshRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.RefreshExchangeRate(r.Context()))
}

// apiConvert handles GET /api/exchange-rate/convert?amount=&rate=.
// rate is an optional what-if override and is not stored.
func (h *Handler) apiConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		writeError(w, r, "amount must be a decimal number", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	req := app.ConvertRequest{AmountUSD: amount}
	if s := q.Get("rate"); s != "" {
		rate, err := decimal.NewFromString(s)
		if err != nil {
			writeError(w, r, "rate must be a decimal number", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		req.OverrideRate = &rate
	}
	result, err := h.svc.ConvertAmount(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
