package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluewater-shop/storefront/internal/authz"
	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/constants"
	handlershared "github.com/bluewater-shop/storefront/internal/http/handlers/shared"
	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": getRequestID(c),
			"ctx_id":     logger.RequestID(c.Request.Context()),
		})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(constants.HeaderRequestID, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(constants.HeaderRequestID) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(constants.HeaderRequestID))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" || resp["ctx_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %v", resp)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(constants.HeaderRequestID)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func statusCodeOf(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func newAdminTestRouter(tokens *service.AdminTokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/admin", AdminJWTAuthMiddleware(tokens))
	group.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "subject": handlershared.GetAdminClaims(c).Subject})
	})
	group.GET("/tenants/:tenant_id/ping", TenantScopeMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})
	return r
}

func TestAdminJWTAuthMiddlewareMissingSecret(t *testing.T) {
	r := newAdminTestRouter(service.NewAdminTokenService(config.JWTConfig{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer abc")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if code := statusCodeOf(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestAdminJWTAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	r := newAdminTestRouter(service.NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if code := statusCodeOf(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestTenantScopeMiddleware(t *testing.T) {
	tokens := service.NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret"})
	r := newAdminTestRouter(tokens)
	token, _, err := tokens.Issue("ops", constants.AdminRoleTenant, "t1")
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	call := func(path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return statusCodeOf(t, w)
	}
	if code := call("/admin/tenants/t1/ping"); code != 0 {
		t.Fatalf("own tenant want 0 got %d", code)
	}
	if code := call("/admin/tenants/t2/ping"); code != 403 {
		t.Fatalf("other tenant want 403 got %d", code)
	}
}

func TestAdminRBACMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := service.NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret"})
	authzService, err := authz.NewService()
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	r := gin.New()
	group := r.Group("/api/v1/admin", AdminJWTAuthMiddleware(tokens), AdminRBACMiddleware(authzService))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) }
	group.GET("/tenants/:tenant_id/gateways", ok)
	group.POST("/tenants/:tenant_id/webhook-events/:id/replay", ok)

	call := func(role, tenantID, method, path string) int {
		token, _, err := tokens.Issue("ops", role, tenantID)
		if err != nil {
			t.Fatalf("issue token failed: %v", err)
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return statusCodeOf(t, w)
	}

	if code := call(constants.AdminRoleTenant, "t1", http.MethodGet, "/api/v1/admin/tenants/t1/gateways"); code != 0 {
		t.Fatalf("tenant listing want 0 got %d", code)
	}
	if code := call(constants.AdminRoleTenant, "t1", http.MethodPost, "/api/v1/admin/tenants/t1/webhook-events/1/replay"); code != 403 {
		t.Fatalf("tenant replay want 403 got %d", code)
	}
	if code := call(constants.AdminRolePlatform, "", http.MethodPost, "/api/v1/admin/tenants/t1/webhook-events/1/replay"); code != 0 {
		t.Fatalf("platform replay want 0 got %d", code)
	}
}
