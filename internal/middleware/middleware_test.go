package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Request ID
// ---------------------------------------------------------------------------

func TestRequestID_Generated(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		id, _ := c.Get(RequestIDKey)
		c.String(http.StatusOK, "%v", id)
	})

	w := performRequest(r, nil)
	echoed := w.Header().Get(RequestIDHeader)
	if echoed == "" {
		t.Fatal("expected a generated request id header")
	}
	if w.Body.String() != echoed {
		t.Errorf("context id %q does not match header %q", w.Body.String(), echoed)
	}
}

func TestRequestID_InboundReused(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := performRequest(r, map[string]string{RequestIDHeader: "upstream-42"})
	if got := w.Header().Get(RequestIDHeader); got != "upstream-42" {
		t.Errorf("request id = %s, want upstream-42", got)
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestRateLimiter_BurstExhaustion(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         3,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("ip:10.0.0.1") {
			t.Fatalf("request %d within burst should be allowed", i+1)
		}
	}
	if rl.Allow("ip:10.0.0.1") {
		t.Error("request beyond burst should be rejected")
	}
	// A different client has its own bucket.
	if !rl.Allow("ip:10.0.0.2") {
		t.Error("distinct client must not share the exhausted bucket")
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	r := gin.New()
	r.Use(RateLimitMiddleware(rl))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := performRequest(r, nil); w.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", w.Code)
	}
	w := performRequest(r, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %s, want 60", w.Header().Get("Retry-After"))
	}
}

func TestAuthRateLimitConfig_Defaults(t *testing.T) {
	cfg := AuthRateLimitConfig(0, 0)
	if cfg.RequestsPerMinute != 10 || cfg.BurstSize != 5 {
		t.Errorf("defaults = (%d, %d), want (10, 5)", cfg.RequestsPerMinute, cfg.BurstSize)
	}
	cfg = AuthRateLimitConfig(30, 8)
	if cfg.RequestsPerMinute != 30 || cfg.BurstSize != 8 {
		t.Errorf("configured = (%d, %d), want (30, 8)", cfg.RequestsPerMinute, cfg.BurstSize)
	}
}

// ---------------------------------------------------------------------------
// Security headers
// ---------------------------------------------------------------------------

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(APISecurityHeadersConfig()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := performRequest(r, nil)
	want := map[string]string{
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":           "no-referrer",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
}
