package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-console/internal/app"
	"inventory-console/internal/core"
	"inventory-console/internal/logger"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// stockDetails tells the client which item ran short and by how much.
type stockDetails struct {
	ProductID int    `json:"product_id"`
	ItemName  string `json:"item_name"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

type fieldDetails struct {
	Field string `json:"field"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
		Details:   details,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps an application error to its HTTP status.
//
//	StockExceededError       → 409 STOCK_EXCEEDED
//	ErrDraftSubmitting       → 409 DRAFT_SUBMITTING
//	ErrValidation            → 400 VALIDATION_ERROR
//	ErrNotFound              → 404 NOT_FOUND
//	ErrUnavailable           → 503 UNAVAILABLE
//	anything else            → 500 INTERNAL_ERROR
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var stock *core.StockExceededError
	var field *core.ValidationError
	log := logger.FromContext(r.Context())

	switch {
	case errors.As(err, &stock):
		writeErrorDetails(w, r, stock.Error(), "STOCK_EXCEEDED", http.StatusConflict, stockDetails{
			ProductID: stock.ProductID,
			ItemName:  stock.ItemName,
			Available: stock.Available,
			Requested: stock.Requested,
		})
	case errors.Is(err, app.ErrDraftSubmitting):
		writeError(w, r, err.Error(), "DRAFT_SUBMITTING", http.StatusConflict)
	case errors.As(err, &field):
		writeErrorDetails(w, r, field.Error(), "VALIDATION_ERROR", http.StatusBadRequest, fieldDetails{Field: field.Field})
	case errors.Is(err, core.ErrValidation):
		writeError(w, r, err.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
	case errors.Is(err, app.ErrDraftNotFound), errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrUnavailable):
		log.Error("backing store unavailable", "error", err)
		writeError(w, r, "service temporarily unavailable, please retry", "UNAVAILABLE", http.StatusServiceUnavailable)
	default:
		log.Error("request failed", "error", err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus writes a JSON response with the given status.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
