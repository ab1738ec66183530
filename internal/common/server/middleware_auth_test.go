package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/FindOutRent/FindOutRent/internal/common/auth"
	"github.com/FindOutRent/FindOutRent/internal/common/config"
	"github.com/gin-gonic/gin"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		Enabled:        true,
		JWTSecret:      "test-secret",
		Issuer:         "findoutrent",
		Audience:       "findoutrent-web",
		AccessTTLMin:   5,
		RefreshTTLHour: 1,
		PublicPaths:    []string{"/api/login"},
		RBAC: map[string][]string{
			"/api/dealer/bookings": {"dealer"},
		},
	}
}

func newTestRouter(t *testing.T, cfg config.AuthConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuth(cfg, nil), RBAC(cfg))

	r.POST("/api/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/api/profile", func(c *gin.Context) {
		ai, ok := AuthFromContext(c)
		if !ok {
			t.Errorf("missing auth info in context")
		}
		c.JSON(http.StatusOK, gin.H{"subject": ai.Subject, "role": ai.Role})
	})
	r.GET("/api/dealer/bookings", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthPublicPathSkipsToken(t *testing.T) {
	r := newTestRouter(t, testAuthCfg())
	if w := do(r, http.MethodPost, "/api/login", ""); w.Code != http.StatusOK {
		t.Fatalf("public path must not require a token, got %d", w.Code)
	}
}

func TestJWTAuthRejectsMissingAndBadToken(t *testing.T) {
	r := newTestRouter(t, testAuthCfg())
	if w := do(r, http.MethodGet, "/api/profile", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/profile", "not-a-jwt"); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", w.Code)
	}
}

func TestJWTAuthAcceptsAccessTokenOnly(t *testing.T) {
	cfg := testAuthCfg()
	r := newTestRouter(t, cfg)

	pair, err := auth.IssueTokens(cfg, "acc-1", "customer")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if w := do(r, http.MethodGet, "/api/profile", pair.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("access token: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	// refresh token 不能当 access 用
	if w := do(r, http.MethodGet, "/api/profile", pair.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token on API: expected 401, got %d", w.Code)
	}
}

func TestRBACRoleCheck(t *testing.T) {
	cfg := testAuthCfg()
	r := newTestRouter(t, cfg)

	dealer, err := auth.IssueTokens(cfg, "dealer-1", "dealer")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	customer, err := auth.IssueTokens(cfg, "cust-1", "customer")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	if w := do(r, http.MethodGet, "/api/dealer/bookings", dealer.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("dealer on dealer route: expected 200, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/dealer/bookings", customer.AccessToken); w.Code != http.StatusForbidden {
		t.Fatalf("customer on dealer route: expected 403, got %d", w.Code)
	}
	// 未配置 RBAC 的路径对任意已认证角色放行
	if w := do(r, http.MethodGet, "/api/profile", customer.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("unrestricted route: expected 200, got %d", w.Code)
	}
}

// 媒体文件要能被浏览器直接拉取（<img> 标签带不了 Bearer token），
// /media/* 前缀条目必须对无 token 请求放行。
func TestMediaPrefixServedWithoutToken(t *testing.T) {
	cfg := testAuthCfg()
	cfg.PublicPaths = append(cfg.PublicPaths, "/media/*")

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "vehicles"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vehicles", "a.jpg"), []byte("jpeg-bytes"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuth(cfg, nil), RBAC(cfg))
	r.Static("/media", dir)

	if w := do(r, http.MethodGet, "/media/vehicles/a.jpg", ""); w.Code != http.StatusOK {
		t.Fatalf("tokenless media fetch: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	// 前缀放行不能外溢到 API 路径
	if w := do(r, http.MethodGet, "/api/profile", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("API path must still require a token, got %d", w.Code)
	}
}

func TestAuthDisabledLetsEverythingThrough(t *testing.T) {
	cfg := testAuthCfg()
	cfg.Enabled = false

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuth(cfg, nil), RBAC(cfg))
	r.GET("/api/profile", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	if w := do(r, http.MethodGet, "/api/profile", ""); w.Code != http.StatusOK {
		t.Fatalf("auth disabled: expected 200, got %d", w.Code)
	}
}
