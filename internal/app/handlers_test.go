package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ak/oms/internal/app/middleware"
	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/domain/services"
	"github.com/ak/oms/internal/infrastructure/config"
	"github.com/ak/oms/internal/infrastructure/export"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/ak/oms/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	app      *Application
	orders   *MockOrderService
	products *MockProductService
	exports  *MockExportService
	store    *stubStore
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "oms", Env: "test"},
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			Issuer:           "oms",
			AccessTokenTTL:   time.Hour,
			RefreshThreshold: 10 * time.Minute,
		},
		Source:   config.SourceConfig{Driver: "mongodb"},
		Delivery: config.DeliveryConfig{ExcludedWeekdays: []string{"sunday"}},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"https://admin.example.com"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Authorization"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orders:   &MockOrderService{},
		products: &MockProductService{},
		exports:  &MockExportService{},
		store:    &stubStore{},
	}
	svc := &Services{
		Orders: env.orders,
		Customers: &MockCustomerService{Customers: []models.Customer{
			{NormalizedPhone: "0912345678", Name: "王小明", OrderCount: 2},
		}},
		Products: env.products,
		Auth: &MockAuthService{
			Admins: map[string]*models.Admin{
				"alice": {ID: "a1", Username: "alice", Name: "Alice", Role: models.AdminRoleAdmin, Active: true},
				"sam":   {ID: "s1", Username: "sam", Name: "Sam", Role: models.AdminRoleStaff, Active: true},
			},
			Passwords: map[string]string{"alice": "wonderland", "sam": "staffpass"},
		},
		Exports: env.exports,
	}
	env.app = New(testConfig(), logger.NewNop(), svc, metrics.NewRegistry(), env.store)
	return env
}

func (e *testEnv) token(role models.AdminRole) string {
	token, _, err := middleware.GenerateToken(e.app.jwt, &models.Admin{ID: "a1", Username: "alice", Role: role})
	if err != nil {
		panic(err)
	}
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.app.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, w.Body.String())
	}
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in %s", w.Body.String())
	}
	return errObj["code"].(string)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv()

	if w := env.do(http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health = %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/ready", "", nil); w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}

	env.store.err = errors.New("no primary")
	if w := env.do(http.MethodGet, "/ready", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with store down = %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv()
	env.do(http.MethodGet, "/health", "", nil)

	w := env.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "oms_http_requests_total") {
		t.Error("request counter missing from /metrics")
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv()
	for _, path := range []string{"/api/v1/orders", "/api/v1/customers", "/api/v1/products", "/api/v1/orders/duplicates", "/api/v1/auth/me"} {
		if w := env.do(http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token = %d, want 401", path, w.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{name: "valid", body: LoginRequest{Username: "alice", Password: "wonderland"}, wantStatus: http.StatusOK},
		{name: "wrongPassword", body: LoginRequest{Username: "alice", Password: "x"}, wantStatus: http.StatusUnauthorized, wantCode: "INVALID_CREDENTIALS"},
		{name: "missingFields", body: map[string]string{"username": "alice"}, wantStatus: http.StatusBadRequest, wantCode: "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/auth/login", "", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Errorf("code = %q, want %q", got, tt.wantCode)
				}
				return
			}

			data := decode(t, w)["data"].(map[string]any)
			token, _ := data["token"].(string)
			claims, err := middleware.ValidateToken(token, "test-secret")
			if err != nil {
				t.Fatalf("issued token does not validate: %v", err)
			}
			if claims.AdminID != "a1" || claims.Role != "admin" || claims.Subject != "a1" || claims.Issuer != "oms" {
				t.Errorf("claims = %+v", claims)
			}
		})
	}
}

func TestLoginIdentityProviderDown(t *testing.T) {
	env := newTestEnv()
	env.app.services.Auth = &MockAuthService{Err: fmt.Errorf("%w: connection refused", services.ErrIdentityProvider)}

	w := env.do(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "a", Password: "b"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestMeAndRefresh(t *testing.T) {
	env := newTestEnv()
	token := env.token(models.AdminRoleStaff)

	w := env.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me = %d", w.Code)
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["role"] != "staff" || data["refresh_recommended"] != false {
		t.Errorf("me = %v", data)
	}

	// a token inside the refresh threshold is flagged
	env.app.jwt.AccessTokenTTL = 5 * time.Minute
	short := env.token(models.AdminRoleStaff)
	data = decode(t, env.do(http.MethodGet, "/api/v1/auth/me", short, nil))["data"].(map[string]any)
	if data["refresh_recommended"] != true {
		t.Errorf("refresh_recommended = %v for a token expiring in 5m", data["refresh_recommended"])
	}

	env.app.jwt.AccessTokenTTL = time.Hour
	w = env.do(http.MethodPost, "/api/v1/auth/refresh", short, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh = %d", w.Code)
	}
	fresh := decode(t, w)["data"].(map[string]any)["token"].(string)
	claims, err := middleware.ValidateToken(fresh, "test-secret")
	if err != nil {
		t.Fatalf("refreshed token: %v", err)
	}
	// role comes from the stored account, not the old token
	if claims.AdminID != "a1" || claims.Role != "admin" {
		t.Errorf("refreshed claims = %+v", claims)
	}
	if time.Until(claims.ExpiresAt.Time) < 50*time.Minute {
		t.Errorf("refreshed token expires at %v, want about an hour out", claims.ExpiresAt.Time)
	}
}

func TestRefreshRejectsRevokedAccount(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(auth *MockAuthService)
	}{
		{name: "disabled", mutate: func(auth *MockAuthService) { auth.Admins["alice"].Active = false }},
		{name: "deleted", mutate: func(auth *MockAuthService) { delete(auth.Admins, "alice") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			token := env.token(models.AdminRoleAdmin)
			tt.mutate(env.app.services.Auth.(*MockAuthService))

			w := env.do(http.MethodPost, "/api/v1/auth/refresh", token, nil)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("refresh = %d, want 401", w.Code)
			}
			if code := errorCode(t, w); code != "ACCOUNT_REVOKED" {
				t.Errorf("code = %s", code)
			}
		})
	}
}

func TestListOrdersFilters(t *testing.T) {
	env := newTestEnv()
	var got repositories.OrderFilter
	env.orders.ListFunc = func(ctx context.Context, filter repositories.OrderFilter) ([]*models.Order, int64, error) {
		got = filter
		return []*models.Order{{ID: "1"}}, 41, nil
	}
	token := env.token(models.AdminRoleStaff)

	w := env.do(http.MethodGet, "/api/v1/orders?status="+url.QueryEscape("已確認")+"&payment_status=unpaid&delivery_method=home_delivery&q=0912&from=2026-10-01&to=2026-10-15&page=2&limit=20", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if got.Status != models.OrderStatusConfirmed || got.PaymentStatus != models.PaymentStatusUnpaid || got.DeliveryMethod != models.DeliveryMethodHome {
		t.Errorf("filter enums = %+v", got)
	}
	if got.Query != "0912" || got.Page != 2 || got.Limit != 20 {
		t.Errorf("filter paging = %+v", got)
	}
	if got.From == nil || got.To == nil || got.To.Day() != 15 || got.To.Hour() != 23 {
		t.Errorf("window = %v..%v, want whole days", got.From, got.To)
	}

	meta := decode(t, w)["meta"].(map[string]any)
	if meta["total"].(float64) != 41 || meta["total_pages"].(float64) != 3 {
		t.Errorf("meta = %v", meta)
	}

	tests := []struct {
		name  string
		query string
	}{
		{name: "unknownStatus", query: "status=lost"},
		{name: "badDate", query: "from=yesterday"},
		{name: "reversedWindow", query: "from=2026-10-15&to=2026-10-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodGet, "/api/v1/orders?"+tt.query, token, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv()
	token := env.token(models.AdminRoleStaff)

	w := env.do(http.MethodPost, "/api/v1/orders", token, map[string]any{
		"customer_name":   "王小明",
		"customer_phone":  "0912345678",
		"items":           "雞胸肉 x2, 牛肉 x1",
		"delivery_method": "store_pickup",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	data := decode(t, w)["data"].(map[string]any)
	if data["created_by"] != "a1" {
		t.Errorf("created_by = %v, want the token's admin", data["created_by"])
	}

	env.orders.CreateFunc = func(ctx context.Context, req services.CreateOrderRequest, adminID string) (*models.Order, error) {
		return nil, fmt.Errorf("%w: address is required for home delivery", services.ErrValidation)
	}
	w = env.do(http.MethodPost, "/api/v1/orders", token, map[string]any{"customer_name": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	errObj := decode(t, w)["error"].(map[string]any)
	if errObj["message"] != "address is required for home delivery" {
		t.Errorf("message = %v", errObj["message"])
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv()
	token := env.token(models.AdminRoleStaff)

	w := env.do(http.MethodPatch, "/api/v1/orders/o1/status", token, UpdateOrderStatusRequest{Status: "已出貨"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if decode(t, w)["data"].(map[string]any)["status"] != "shipped" {
		t.Error("display label was not translated to its tag")
	}

	if w := env.do(http.MethodPatch, "/api/v1/orders/o1/status", token, UpdateOrderStatusRequest{Status: "teleported"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", w.Code)
	}

	env.orders.UpdateStatusFunc = func(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
		return nil, fmt.Errorf("%w: pending to completed", services.ErrInvalidTransition)
	}
	w = env.do(http.MethodPatch, "/api/v1/orders/o1/status", token, UpdateOrderStatusRequest{Status: "completed"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "INVALID_TRANSITION" {
		t.Errorf("invalid transition = %d %s", w.Code, w.Body.String())
	}
}

func TestGetOrderNotFound(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodGet, "/api/v1/orders/missing", env.token(models.AdminRoleStaff), nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "NOT_FOUND" {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestFindDuplicates(t *testing.T) {
	env := newTestEnv()
	token := env.token(models.AdminRoleStaff)

	var window repositories.TimeWindow
	env.orders.FindDuplicatesFunc = func(ctx context.Context, w repositories.TimeWindow) ([]models.DuplicateGroup, error) {
		window = w
		return []models.DuplicateGroup{{
			NormalizedPhone: "0912345678",
			Phone:           "0912-345-678",
			Orders:          []*models.Order{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		}}, nil
	}

	w := env.do(http.MethodGet, "/api/v1/orders/duplicates?from=2026-10-01", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if window.From == nil || window.To != nil {
		t.Errorf("window = %+v", window)
	}

	data := decode(t, w)["data"].(map[string]any)
	if data["group_count"].(float64) != 1 || data["order_count"].(float64) != 3 {
		t.Errorf("counts = %v", data)
	}
	group := data["groups"].([]any)[0].(map[string]any)
	if group["normalized_phone"] != "0912345678" || group["count"].(float64) != 3 {
		t.Errorf("group = %v", group)
	}

	// no duplicates is an empty list, not null
	env.orders.FindDuplicatesFunc = nil
	data = decode(t, env.do(http.MethodGet, "/api/v1/orders/duplicates", token, nil))["data"].(map[string]any)
	if groups, ok := data["groups"].([]any); !ok || len(groups) != 0 {
		t.Errorf("groups = %v, want []", data["groups"])
	}
}

func TestFindDuplicatesSourceDown(t *testing.T) {
	env := newTestEnv()
	env.orders.FindDuplicatesFunc = func(ctx context.Context, w repositories.TimeWindow) ([]models.DuplicateGroup, error) {
		return nil, fmt.Errorf("%w: timeout", services.ErrSourceUnavailable)
	}

	w := env.do(http.MethodGet, "/api/v1/orders/duplicates", env.token(models.AdminRoleStaff), nil)
	if w.Code != http.StatusBadGateway || errorCode(t, w) != "SOURCE_ERROR" {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestRefreshOrders(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/api/v1/orders/refresh", env.token(models.AdminRoleStaff), nil)
	if w.Code != http.StatusOK || env.orders.Invalidated != 1 {
		t.Errorf("status = %d invalidated = %d", w.Code, env.orders.Invalidated)
	}
}

func TestListCustomers(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodGet, "/api/v1/customers?q="+url.QueryEscape("王"), env.token(models.AdminRoleStaff), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if len(body["data"].([]any)) != 1 || body["meta"].(map[string]any)["total"].(float64) != 1 {
		t.Errorf("body = %v", body)
	}
}

func TestProductRoleGuards(t *testing.T) {
	env := newTestEnv()
	staff := env.token(models.AdminRoleStaff)
	admin := env.token(models.AdminRoleAdmin)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
	}{
		{name: "staffCanList", method: http.MethodGet, path: "/api/v1/products", token: staff, wantStatus: http.StatusOK},
		{name: "staffCanCreate", method: http.MethodPost, path: "/api/v1/products", token: staff, body: services.ProductRequest{SKU: "A", Name: "B"}, wantStatus: http.StatusCreated},
		{name: "staffCannotDelete", method: http.MethodDelete, path: "/api/v1/products/p1", token: staff, wantStatus: http.StatusForbidden},
		{name: "staffCannotAdjust", method: http.MethodPost, path: "/api/v1/products/p1/stock", token: staff, body: services.StockAdjustment{Delta: 1}, wantStatus: http.StatusForbidden},
		{name: "adminCanDelete", method: http.MethodDelete, path: "/api/v1/products/p1", token: admin, wantStatus: http.StatusOK},
		{name: "adminCanAdjust", method: http.MethodPost, path: "/api/v1/products/p1/stock", token: admin, body: services.StockAdjustment{Delta: 3}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAdjustStockInsufficient(t *testing.T) {
	env := newTestEnv()
	env.products.AdjustStockFunc = func(ctx context.Context, id string, req services.StockAdjustment, adminID string) (*models.Product, error) {
		return nil, services.ErrInsufficientStock
	}

	w := env.do(http.MethodPost, "/api/v1/products/p1/stock", env.token(models.AdminRoleAdmin), services.StockAdjustment{Delta: -100})
	if w.Code != http.StatusConflict || errorCode(t, w) != "INSUFFICIENT_STOCK" {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestExportManifest(t *testing.T) {
	env := newTestEnv()
	token := env.token(models.AdminRoleStaff)

	w := env.do(http.MethodGet, "/api/v1/exports/manifest?courier=HCT&date=2026-10-20", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="hct-20261020-01234567.csv"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if env.exports.LastRequest.Courier != export.CourierHCT || env.exports.LastRequest.Date == nil {
		t.Errorf("request = %+v", env.exports.LastRequest)
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "unknownCourier", query: "courier=dhl", wantStatus: http.StatusBadRequest},
		{name: "badStatus", query: "courier=tcat&status=lost", wantStatus: http.StatusBadRequest},
		{name: "badDate", query: "courier=tcat&date=20261020", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(http.MethodGet, "/api/v1/exports/manifest?"+tt.query, token, nil); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}

	env.exports.ManifestFunc = func(ctx context.Context, req services.ManifestRequest, w io.Writer) (export.Result, error) {
		io.WriteString(w, "partial")
		return export.Result{}, fmt.Errorf("%w: timeout", services.ErrSourceUnavailable)
	}
	w = env.do(http.MethodGet, "/api/v1/exports/manifest?courier=tcat", token, nil)
	if w.Code != http.StatusBadGateway || strings.Contains(w.Body.String(), "partial") {
		t.Errorf("failed export = %d %q", w.Code, w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	env.app.Router().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "https://admin.example.com" {
		t.Errorf("preflight = %d %v", w.Code, w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	env.app.Router().ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin was allowed")
	}
}

func TestDeliveryDays(t *testing.T) {
	days := deliveryDays([]time.Weekday{time.Sunday})
	if len(days) != 6 || days[0] != "monday" {
		t.Errorf("deliveryDays() = %v", days)
	}
}
