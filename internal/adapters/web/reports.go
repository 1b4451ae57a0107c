package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"inventory-console/internal/app"
)

// apiDashboard handles GET /api/dashboard?date=YYYY-MM-DD (default today).
func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.refDate(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetDashboard(r.Context(), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPeriodReport handles GET /api/reports/period?period=weekly|monthly&date=.
func (h *Handler) apiPeriodReport(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.refDate(w, r)
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "monthly"
	}
	result, err := h.svc.GetPeriodReport(r.Context(), period, ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// ── Fixed expenses ───────────────────────────────────────────────────────────

type expenseBody struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

func (b expenseBody) request() app.ExpenseRequest {
	return app.ExpenseRequest{Name: b.Name, Amount: b.Amount}
}

func (h *Handler) apiListExpenses(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListExpenses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiCreateExpense(w http.ResponseWriter, r *http.Request) {
	var body expenseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	e, err := h.svc.CreateExpense(r.Context(), body.request())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, e)
}

func (h *Handler) apiUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body expenseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	e, err := h.svc.UpdateExpense(r.Context(), id, body.request())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, e)
}

func (h *Handler) apiDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteExpense(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
