package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"inventory-console/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	now       func() time.Time
}

// NewHandler creates and wires the chi router with all routes. limiter may
// be nil to disable rate limiting.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, limiter *rate.Limiter) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))
	r.Use(RateLimit(limiter))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public API) ─────────────────────────────────────────────────────
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/api/auth/me", h.me)

		// ── Catalog ───────────────────────────────────────────────────────────
		r.Get("/api/categories", h.apiListCategories)
		r.Post("/api/categories", h.apiCreateCategory)
		r.Delete("/api/categories/{id}", h.apiDeleteCategory)

		r.Get("/api/products", h.apiListProducts)
		r.Post("/api/products", h.apiCreateProduct)
		r.Get("/api/products/low-stock", h.apiLowStock)
		r.Get("/api/products/{id}", h.apiGetProduct)
		r.Put("/api/products/{id}", h.apiUpdateProduct)
		r.Delete("/api/products/{id}", h.apiDeleteProduct)

		// ── Drafts and quotes ─────────────────────────────────────────────────
		r.Post("/api/drafts", h.apiCreateDraft)
		r.Get("/api/drafts/{id}", h.apiGetDraft)
		r.Delete("/api/drafts/{id}", h.apiDiscardDraft)
		r.Put("/api/drafts/{id}/header", h.apiSetDraftHeader)
		r.Post("/api/drafts/{id}/lines", h.apiAddDraftLine)
		r.Patch("/api/drafts/{id}/lines/{index}", h.apiUpdateDraftLine)
		r.Delete("/api/drafts/{id}/lines/{index}", h.apiRemoveDraftLine)
		r.Post("/api/drafts/{id}/submit", h.apiSubmitDraft)
		r.Post("/api/quote", h.apiQuote)

		// ── Sales ─────────────────────────────────────────────────────────────
		r.Get("/api/sales", h.apiListSales)
		r.Post("/api/sales", h.apiCreateSale)
		r.Get("/api/sales/{id}", h.apiGetSale)
		r.Patch("/api/sales/{id}", h.apiUpdateSale)
		r.Delete("/api/sales/{id}", h.apiDeleteSale)

		// ── Purchases ─────────────────────────────────────────────────────────
		r.Get("/api/purchases", h.apiListPurchases)
		r.Post("/api/purchases", h.apiCreatePurchase)
		r.Get("/api/purchases/{id}", h.apiGetPurchase)
		r.Patch("/api/purchases/{id}", h.apiUpdatePurchase)
		r.Delete("/api/purchases/{id}", h.apiDeletePurchase)

		// ── Fixed expenses ────────────────────────────────────────────────────
		r.Get("/api/expenses", h.apiListExpenses)
		r.Post("/api/expenses", h.apiCreateExpense)
		r.Put("/api/expenses/{id}", h.apiUpdateExpense)
		r.Delete("/api/expenses/{id}", h.apiDeleteExpense)

		// ── Exchange rate ─────────────────────────────────────────────────────
		r.Get("/api/exchange-rate", h.apiGetRate)
		r.Post("/api/exchange-rate/refresh", h.apiRefreshRate)
		r.Get("/api/exchange-rate/convert", h.apiConvert)

		// ── Reports ───────────────────────────────────────────────────────────
		r.Get("/api/dashboard", h.apiDashboard)
		r.Get("/api/reports/period", h.apiPeriodReport)
	})

	h.router = r
	return r
}

// health returns service status and whether the exchange rate is live.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status     string `json:"status"`
		RateSource string `json:"rate_source"`
	}
	q := h.svc.GetExchangeRate(r.Context())
	writeJSON(w, response{Status: "ok", RateSource: string(q.Source)})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathInt parses an integer URL parameter, writing 400 on failure.
func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// queryInt parses an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &v, true
}

// refDate reads the ?date=YYYY-MM-DD reference date, defaulting to today.
func (h *Handler) refDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	s := r.URL.Query().Get("date")
	if s == "" {
		y, m, d := h.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), true
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		writeError(w, r, "date must be YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}
