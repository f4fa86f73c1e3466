package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"write": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	handler := limiter.Middleware("write")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/products", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRateLimiterSeparatesKeys(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"read":  {RequestsPerMinute: 60, Burst: 1},
		"write": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	read := limiter.Middleware("read")(okHandler())
	write := limiter.Middleware("write")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	res := httptest.NewRecorder()
	read.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected read to succeed, got %d", res.Code)
	}

	writeReq := httptest.NewRequest(http.MethodPost, "/v1/products", nil)
	res = httptest.NewRecorder()
	write.ServeHTTP(res, writeReq)
	if res.Code != http.StatusOK {
		t.Fatalf("expected write bucket to be independent, got %d", res.Code)
	}
}

func TestRateLimiterAppliesRouteTokens(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"write": {
			RequestsPerMinute: 300,
			Burst:             5,
			Tokens:            map[string]int{"POST /v1/products/0/image": 3},
		},
	}, nil)
	frozen := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return frozen }
	handler := limiter.Middleware("write")(okHandler())

	upload := httptest.NewRequest(http.MethodPost, "/v1/products/0/image", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, upload)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first upload to succeed, got %d", res.Code)
	}
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, upload)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second upload to exceed burst, got %d", res.Code)
	}

	cheap := httptest.NewRequest(http.MethodPost, "/v1/refresh", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, cheap)
	if res.Code != http.StatusOK {
		t.Fatalf("expected default-cost request to succeed, got %d", res.Code)
	}
}

func TestRateLimiterPrefersSubjectOverIP(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"write": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	handler := limiter.Middleware("write")(okHandler())

	for _, subject := range []string{"alice", "bob"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/products", nil)
		req = req.WithContext(context.WithValue(req.Context(), ContextKeySubject, subject))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected %s to have their own bucket, got %d", subject, res.Code)
		}
	}
}

func TestRateLimiterUnknownKeyPassesThrough(t *testing.T) {
	limiter := NewRateLimiter(nil, nil)
	handler := limiter.Middleware("missing")(okHandler())
	for i := 0; i < 3; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", res.Code)
		}
	}
}
