package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sela-fruits/sela-store/internal/authz"
	"github.com/sela-fruits/sela-store/internal/config"
	handlershared "github.com/sela-fruits/sela-store/internal/http/handlers/shared"
	"github.com/sela-fruits/sela-store/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
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
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func decodeStatusCode(t *testing.T, body []byte) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp.StatusCode
}

func TestOptionalUserJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "user-secret"

	r := gin.New()
	r.Use(OptionalUserJWTMiddleware(secret))
	r.GET("/orders/x", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint(handlershared.UserIDKey)})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/x", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user_id":0`) {
		t.Fatalf("guest request should pass without user, got %d %s", w.Code, w.Body.String())
	}

	token, err := service.GenerateUserJWT(secret, 42, "amina@example.com", time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/orders/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user_id":42`) {
		t.Fatalf("token user should be attached, got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/orders/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token want 401 got %d", w.Code)
	}
	if got := decodeStatusCode(t, w.Body.Bytes()); got != http.StatusUnauthorized {
		t.Fatalf("status_code want 401 got %d", got)
	}
}

func TestUserJWTAuthMiddlewareRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(UserJWTAuthMiddleware("user-secret"))
	r.GET("/me/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me/orders", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token want 401 got %d", w.Code)
	}

	// a staff token is signed with another secret
	staffToken, err := service.GenerateStaffJWT("staff-secret", 1, "owner", time.Hour)
	if err != nil {
		t.Fatalf("generate staff token failed: %v", err)
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me/orders", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token want 401 got %d", w.Code)
	}
}

func TestStaffJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	token, err := service.GenerateStaffJWT("staff-secret", 1, "owner", time.Hour)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	r := gin.New()
	r.Use(StaffJWTAuthMiddleware(""))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", w.Code)
	}
}

func setupRBACRouter(t *testing.T, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	r := gin.New()
	admin := r.Group("/api/v1/admin")
	admin.Use(StaffJWTAuthMiddleware(secret), StaffRBACMiddleware(authzService))
	admin.PATCH("/orders/:id/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	admin.POST("/flash-sales", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestStaffRBACMiddleware(t *testing.T) {
	const secret = "staff-secret"
	r := setupRBACRouter(t, secret)

	cases := []struct {
		role   string
		method string
		path   string
		want   int
	}{
		{"dispatcher", http.MethodPatch, "/api/v1/admin/orders/SELA-AAAA-BBBB-CCCC/status", http.StatusOK},
		{"dispatcher", http.MethodPost, "/api/v1/admin/flash-sales", http.StatusForbidden},
		{"merchandiser", http.MethodPost, "/api/v1/admin/flash-sales", http.StatusOK},
		{"merchandiser", http.MethodPatch, "/api/v1/admin/orders/SELA-AAAA-BBBB-CCCC/status", http.StatusForbidden},
		{"owner", http.MethodPost, "/api/v1/admin/flash-sales", http.StatusOK},
		{"owner", http.MethodPatch, "/api/v1/admin/orders/SELA-AAAA-BBBB-CCCC/status", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.role+"_"+tc.method, func(t *testing.T) {
			token, err := service.GenerateStaffJWT(secret, 7, tc.role, time.Hour)
			if err != nil {
				t.Fatalf("generate token failed: %v", err)
			}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("%s %s as %s want %d got %d", tc.method, tc.path, tc.role, tc.want, w.Code)
			}
		})
	}
}

func TestBuildCORSConfig(t *testing.T) {
	cfg := buildCORSConfig(config.CORSConfig{AllowedOrigins: []string{"*"}})
	if !cfg.AllowAllOrigins {
		t.Fatalf("wildcard without credentials should allow all origins")
	}

	cfg = buildCORSConfig(config.CORSConfig{
		AllowedOrigins:   []string{"https://shop.example.com"},
		AllowCredentials: true,
	})
	if cfg.AllowAllOrigins || cfg.AllowOriginFunc == nil {
		t.Fatalf("allow-list should use an origin func")
	}
	if !cfg.AllowOriginFunc("https://shop.example.com") {
		t.Fatalf("listed origin should be allowed")
	}
	if cfg.AllowOriginFunc("https://evil.example.com") {
		t.Fatalf("unlisted origin should be rejected")
	}
}
