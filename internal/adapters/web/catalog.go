package web

import (
	"net/http"

	"github.com/shopspring/decimal"

	"inventory-console/internal/app"
	"inventory-console/internal/core"
)

type productBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	StockActual int             `json:"stock_actual"`
	StockMinimo int             `json:"stock_minimo"`
	CategoryID  *int            `json:"category_id"`
}

func (b productBody) request() app.ProductRequest {
	return app.ProductRequest{
		Name:        b.Name,
		Description: b.Description,
		CostPrice:   b.CostPrice,
		SalePrice:   b.SalePrice,
		StockActual: b.StockActual,
		StockMinimo: b.StockMinimo,
		CategoryID:  b.CategoryID,
	}
}

// ── Categories ───────────────────────────────────────────────────────────────

func (h *Handler) apiListCategories(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), app.CategoryRequest{Name: body.Name, Description: body.Description})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

func (h *Handler) apiDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Products ─────────────────────────────────────────────────────────────────

// apiListProducts handles GET /api/products?category_id=&q=.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryInt(w, r, "category_id")
	if !ok {
		return
	}
	result, err := h.svc.ListProducts(r.Context(), core.CatalogFilter{
		CategoryID: categoryID,
		Search:     r.URL.Query().Get("q"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiLowStock(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListLowStock(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), body.request())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

func (h *Handler) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var body productBody
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := h.svc.UpdateProduct(r.Context(), id, body.request())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
