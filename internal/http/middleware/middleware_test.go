package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// captureLogs swaps the global logger for a buffer for the duration of the
// test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID_Generated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("no request id assigned")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "rid-123")
	w := serve(r, req)
	if got := w.Header().Get(requestIDHeader); got != "rid-123" {
		t.Fatalf("request id = %q; want rid-123", got)
	}
}

func TestRecovery_PanicBecomes500Envelope(t *testing.T) {
	captureLogs(t)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"internal_error"`) {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestRedactingLogger_ScrubsSensitiveValues(t *testing.T) {
	buf := captureLogs(t)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/hook", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet,
		"/hook?to=%2B15550001234&session=0f8fad5b-d9cb-469f-a165-70867728950e", nil)
	req.Header.Set("Signature", "t=1,v1=deadbeef")
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-Api-Key", "sk_live_123")
	req.Header.Set("X-Callback", "+1 555 000 1234")
	serve(r, req)

	out := buf.String()
	for _, leaked := range []string{"15550001234", "70867728950e", "deadbeef", "secret-token", "sk_live_123", "555 000 1234"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q:\n%s", leaked, out)
		}
	}
	for _, marker := range []string{"[REDACTED:phone]", "[REDACTED:id]", "[REDACTED]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("marker %q missing:\n%s", marker, out)
		}
	}
}

func TestRedactingLogger_AttachesRequestLogger(t *testing.T) {
	captureLogs(t)
	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}))
	var attached bool
	r.GET("/", func(c *gin.Context) {
		_, attached = c.Get("logger")
		c.Status(http.StatusOK)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if !attached {
		t.Fatalf("request-scoped logger not attached")
	}
}

func TestSecurityHeaders_HSTSOnlyOverTLS(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS emitted for plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = serve(r, req)
	if got := w.Header().Get("Strict-Transport-Security"); !strings.Contains(got, "max-age=3600") {
		t.Fatalf("HSTS = %q", got)
	}
}

func TestRateLimiter_PerSourceAddress(t *testing.T) {
	r := gin.New()
	rl := NewRateLimiter(0.5, 1, KeyByIP())
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return serve(r, req)
	}

	if w := hit("10.0.0.1:1000"); w.Code != http.StatusOK {
		t.Fatalf("first request: %d", w.Code)
	}
	w := hit("10.0.0.1:1000")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("burst exceeded: status = %d; want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("429 without Retry-After")
	}
	if !strings.Contains(w.Body.String(), `"code":"too_many_requests"`) {
		t.Fatalf("limit body = %q", w.Body.String())
	}

	// A different source gets its own bucket.
	if w := hit("10.0.0.2:1000"); w.Code != http.StatusOK {
		t.Fatalf("second source limited: %d", w.Code)
	}
}
