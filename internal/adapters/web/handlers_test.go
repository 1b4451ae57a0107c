package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"inventory-console/internal/app"
	"inventory-console/internal/core"
	"inventory-console/internal/fx"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

// fakeService implements only what the tests call; anything else panics
// through the nil embedded interface.
type fakeService struct {
	app.ApplicationService

	createSaleErr error
	convertReq    app.ConvertRequest
	dashboardRef  time.Time
	lineIndex     int
}

func (f *fakeService) AuthenticateUser(_ context.Context, username, password string) (*app.UserSession, error) {
	if username == "admin" && password == "correct-horse" {
		return &app.UserSession{UserID: 7, Username: "admin", Role: "admin"}, nil
	}
	return nil, app.ErrInvalidCredentials
}

func (f *fakeService) GetUser(_ context.Context, userID int) (*app.UserResult, error) {
	return &app.UserResult{UserID: userID, Username: "admin", Role: "admin"}, nil
}

func (f *fakeService) GetExchangeRate(context.Context) *app.RateResult {
	return &app.RateResult{Quote: fx.Quote{Rate: decimal.NewFromInt(1000), Source: fx.OriginLive}, LocalCurrency: "ARS"}
}

func (f *fakeService) ConvertAmount(_ context.Context, req app.ConvertRequest) (*app.ConversionResult, error) {
	f.convertReq = req
	rate := decimal.NewFromInt(1000)
	if req.OverrideRate != nil {
		rate = *req.OverrideRate
	}
	return &app.ConversionResult{AmountUSD: req.AmountUSD, Rate: rate, AmountLocal: req.AmountUSD.Mul(rate), LocalCurrency: "ARS"}, nil
}

func (f *fakeService) CreateSale(context.Context, app.CreateSaleRequest) (*app.SaleView, error) {
	if f.createSaleErr != nil {
		return nil, f.createSaleErr
	}
	return &app.SaleView{Sale: core.Sale{ID: 1}}, nil
}

func (f *fakeService) GetSale(_ context.Context, id int) (*app.SaleView, error) {
	return nil, fmt.Errorf("sale %d: %w", id, core.ErrNotFound)
}

func (f *fakeService) GetDashboard(_ context.Context, ref time.Time) (*app.DashboardResult, error) {
	f.dashboardRef = ref
	return &app.DashboardResult{RefDate: ref}, nil
}

func (f *fakeService) RemoveDraftLine(_ context.Context, id string, index int) (*app.DraftResult, error) {
	f.lineIndex = index
	if id != "d1" {
		return nil, app.ErrDraftNotFound
	}
	return &app.DraftResult{ID: id}, nil
}

func newTestServer(t *testing.T, svc app.ApplicationService, limiter *rate.Limiter) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHandler(svc, "", testSecret, limiter))
	t.Cleanup(srv.Close)
	return srv
}

// authCookieFor signs a session cookie the way login does.
func authCookieFor(t *testing.T) *http.Cookie {
	t.Helper()
	h := &Handler{jwtSecret: testSecret, now: time.Now}
	signed, err := h.signToken(&app.UserSession{UserID: 7, Username: "admin", Role: "admin"})
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	return &http.Cookie{Name: authCookie, Value: signed}
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var out errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil)
	resp := do(t, srv, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil)

	resp := do(t, srv, http.MethodGet, "/api/dashboard", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no cookie: status = %d, want 401", resp.StatusCode)
	}

	bad := &http.Cookie{Name: authCookie, Value: "not-a-jwt"}
	resp = do(t, srv, http.MethodGet, "/api/dashboard", "", bad)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad cookie: status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil)

	resp := do(t, srv, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"wrong"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodPost, "/api/auth/login", `{"username":"admin","password":"correct-horse"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status = %d, want 200", resp.StatusCode)
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == authCookie {
			session = c
		}
	}
	if session == nil || session.Value == "" {
		t.Fatal("login did not set the auth cookie")
	}

	resp = do(t, srv, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: authCookie, Value: session.Value})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status = %d, want 200", resp.StatusCode)
	}
	var user app.UserResult
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatal(err)
	}
	if user.UserID != 7 {
		t.Errorf("me user_id = %d, want 7", user.UserID)
	}
}

func TestCreateSaleStockExceeded(t *testing.T) {
	svc := &fakeService{createSaleErr: &core.StockExceededError{ProductID: 3, ItemName: "iPhone 13", Available: 1, Requested: 2}}
	srv := newTestServer(t, svc, nil)

	body := `{"customer_name":"Ana","date":"2024-05-13","lines":[{"product_id":3,"quantity":2,"serial_number":"SN1"}]}`
	resp := do(t, srv, http.MethodPost, "/api/sales", body, authCookieFor(t))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	var out struct {
		Code    string       `json:"code"`
		Details stockDetails `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Code != "STOCK_EXCEEDED" || out.Details.ItemName != "iPhone 13" || out.Details.Available != 1 {
		t.Errorf("body = %+v", out)
	}
}

func TestCreateSaleCreated(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil)
	resp := do(t, srv, http.MethodPost, "/api/sales", `{"lines":[]}`, authCookieFor(t))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestBadDateRejected(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil)
	resp := do(t, srv, http.MethodPost, "/api/sales", `{"date":"13/05/2024","lines":[]}`, authCookieFor(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetSaleNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil)
	resp := do(t, srv, http.MethodGet, "/api/sales/99", "", authCookieFor(t))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if got := decodeError(t, resp); got.Code != "NOT_FOUND" || got.RequestID == "" {
		t.Errorf("body = %+v", got)
	}
}

func TestConvertParsesOverride(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantRate   string
	}{
		{"current rate", "amount=300", http.StatusOK, ""},
		{"override", "amount=300&rate=1200.5", http.StatusOK, "1200.5"},
		{"missing amount", "", http.StatusBadRequest, ""},
		{"bad rate", "amount=300&rate=abc", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			srv := newTestServer(t, svc, nil)
			resp := do(t, srv, http.MethodGet, "/api/exchange-rate/convert?"+tt.query, "", authCookieFor(t))
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if tt.wantRate == "" {
				if svc.convertReq.OverrideRate != nil {
					t.Errorf("override = %s, want none", svc.convertReq.OverrideRate)
				}
				return
			}
			if svc.convertReq.OverrideRate == nil || svc.convertReq.OverrideRate.String() != tt.wantRate {
				t.Errorf("override = %v, want %s", svc.convertReq.OverrideRate, tt.wantRate)
			}
		})
	}
}

func TestDashboardRefDate(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc, nil)

	resp := do(t, srv, http.MethodGet, "/api/dashboard?date=2024-05-15", "", authCookieFor(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := svc.dashboardRef.Format(dateLayout); got != "2024-05-15" {
		t.Errorf("ref date = %s, want 2024-05-15", got)
	}

	resp = do(t, srv, http.MethodGet, "/api/dashboard?date=yesterday", "", authCookieFor(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date: status = %d, want 400", resp.StatusCode)
	}
}

func TestRemoveDraftLine(t *testing.T) {
	svc := &fakeService{}
	srv := newTestServer(t, svc, nil)

	resp := do(t, srv, http.MethodDelete, "/api/drafts/d1/lines/2", "", authCookieFor(t))
	if resp.StatusCode != http.StatusOK || svc.lineIndex != 2 {
		t.Fatalf("status = %d index = %d", resp.StatusCode, svc.lineIndex)
	}

	resp = do(t, srv, http.MethodDelete, "/api/drafts/gone/lines/0", "", authCookieFor(t))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expired draft: status = %d, want 404", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodDelete, "/api/drafts/d1/lines/x", "", authCookieFor(t))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad index: status = %d, want 400", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	// A zero refill rate with burst 2 admits exactly two requests.
	srv := newTestServer(t, &fakeService{}, rate.NewLimiter(0, 2))

	for i := 0; i < 2; i++ {
		if resp := do(t, srv, http.MethodGet, "/api/health", "", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, resp.StatusCode)
		}
	}
	resp := do(t, srv, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if got := decodeError(t, resp); got.Code != "RATE_LIMITED" {
		t.Errorf("code = %q", got.Code)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"stock", &core.StockExceededError{ItemName: "x", Available: 0, Requested: 1}, http.StatusConflict, "STOCK_EXCEEDED"},
		{"field", fmt.Errorf("create: %w", &core.ValidationError{Field: "quantity", Message: "must be at least 1"}), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"validation", fmt.Errorf("bad: %w", core.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", fmt.Errorf("product 4: %w", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"draft", app.ErrDraftNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"draft in flight", app.ErrDraftSubmitting, http.StatusConflict, "DRAFT_SUBMITTING"},
		{"unavailable", fmt.Errorf("list sales: %w", core.ErrUnavailable), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			writeServiceError(rec, req, tt.err)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}
