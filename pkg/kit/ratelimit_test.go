package kit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiter_Window(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := NewIPRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/favorites/toggle", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if call("") != 200 || call("") != 200 {
		t.Fatalf("first two calls should pass")
	}
	if code := call(""); code != http.StatusTooManyRequests {
		t.Fatalf("third call status=%d", code)
	}
	if code := call("203.0.113.9, 10.0.0.1"); code != 200 {
		t.Fatalf("other client status=%d", code)
	}

	now = now.Add(61 * time.Second)
	if code := call(""); code != 200 {
		t.Fatalf("after window status=%d", code)
	}
}

func TestIPRateLimiter_Disabled(t *testing.T) {
	l := NewIPRateLimiter(0, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d status=%d", i, rec.Code)
		}
	}
}
