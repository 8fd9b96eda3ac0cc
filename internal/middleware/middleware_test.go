package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"payout-service/internal/redis"
	"payout-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubLimiter) AllowCreate(context.Context, string) (*redis.RateLimitResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &redis.RateLimitResult{Allowed: s.allowed, Limit: 1}, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(), ErrorHandler(logger.NewNop()))
	r.POST("/", append(handlers, func(c *gin.Context) {
		if id, ok := c.Request.Context().Value(logger.RequestIdKey).(string); !ok || id == "" {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusCreated)
	})...)
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusCreated || w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id, got %d %q", w.Code, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("expected incoming request id to be kept")
	}
}

func TestCreateRateLimitMiddleware(t *testing.T) {
	denied := &stubLimiter{allowed: false}
	w := httptest.NewRecorder()
	newRouter(CreateRateLimitMiddleware(denied, nil)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusTooManyRequests || w.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("expected 429 with headers, got %d", w.Code)
	}

	broken := &stubLimiter{err: errors.New("redis down")}
	w = httptest.NewRecorder()
	newRouter(CreateRateLimitMiddleware(broken, logger.NewNop())).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected limiter outage to let the request through, got %d", w.Code)
	}
}

func TestErrorHandlerWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()), Recovery(logger.NewNop()))
	r.GET("/err", func(c *gin.Context) { _ = c.Error(errors.New("boom")) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	for _, path := range []string{"/err", "/panic"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, w.Code)
		}
	}
}
