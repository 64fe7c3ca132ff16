package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, Burst: 3})
	defer l.Stop()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if !l.AllowAt("a", now) {
			t.Fatalf("request %d rejected inside burst", i)
		}
	}
	if l.AllowAt("a", now) {
		t.Fatal("request over burst allowed")
	}
	if !l.AllowAt("b", now) {
		t.Fatal("other client throttled")
	}
	if !l.AllowAt("a", now.Add(time.Second)) {
		t.Fatal("token not refilled after one second")
	}
	if got := l.GetMetrics().Rejected; got != 1 {
		t.Fatalf("rejected = %d, want 1", got)
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 10, IdleTimeout: time.Minute})
	defer l.Stop()

	now := time.Now()
	l.AllowAt("old", now.Add(-2*time.Minute))
	l.AllowAt("new", now)
	l.evictIdle(now)

	if got := l.ActiveClients(); got != 1 {
		t.Fatalf("active clients = %d, want 1", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, Burst: 1})
	defer l.Stop()

	h := l.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		name string
		want int
	}{
		{"first", http.StatusNoContent},
		{"second", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
				t.Fatal("missing Retry-After")
			}
		})
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}
