package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bilancio/internal/auth"
	"bilancio/internal/core"
	"bilancio/internal/dashboard"
	"bilancio/internal/ledger/memory"
	"bilancio/internal/log"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "http-test-secret"

var testNow = time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC)

type summarizerFunc func(ctx context.Context, ownerID string) (core.FinancialSummary, error)

func (f summarizerFunc) Summary(ctx context.Context, ownerID string) (core.FinancialSummary, error) {
	return f(ctx, ownerID)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, dash Summarizer, opts Options) *Server {
	t.Helper()
	v, err := auth.NewVerifier(testSecret, "")
	require.NoError(t, err)
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard})
	}
	srv, err := NewServer(dash, v, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	tok, err := auth.Mint(testSecret, "", subject, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(srv *Server, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestDashboard_ReturnsSummaryJSON(t *testing.T) {
	store := memory.New()
	owner := core.NewOwnerID()
	store.Put(core.Income, core.Record{
		ID: "inc-1", OwnerID: owner, Amount: decimal.RequireFromString("1200.50"),
		Label: "Salary", Icon: "💼", Date: testNow.Add(-48 * time.Hour),
	})
	store.Put(core.Expense, core.Record{
		ID: "exp-1", OwnerID: owner, Amount: decimal.RequireFromString("200.25"),
		Label: "Rent", Icon: "🏠", Date: testNow.Add(-24 * time.Hour),
	})
	svc := dashboard.NewService(store, dashboard.Options{Clock: func() time.Time { return testNow }})
	srv := newTestServer(t, svc, Options{})

	rec := do(srv, http.MethodGet, "/dashboard", bearer(t, owner.String()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, k := range []string{"totalBalance", "totalIncome", "totalExpense", "last30DaysExpenses", "last60DaysIncome", "recentTransactions"} {
		assert.Contains(t, body, k)
	}
	assert.Equal(t, 1000.25, body["totalBalance"])
	assert.Equal(t, 1200.5, body["totalIncome"])
	assert.Equal(t, 200.25, body["totalExpense"])

	recent := body["recentTransactions"].([]any)
	require.Len(t, recent, 2)
	first := recent[0].(map[string]any)
	assert.Equal(t, "exp-1", first["_id"])
	assert.Equal(t, "expense", first["type"])
	assert.Equal(t, "Rent", first["category"])
	assert.Equal(t, owner.String(), first["userId"])
	assert.NotContains(t, first, "source")
	second := recent[1].(map[string]any)
	assert.Equal(t, "income", second["type"])
	assert.Equal(t, "Salary", second["source"])

	win := body["last60DaysIncome"].(map[string]any)
	assert.Equal(t, 1200.5, win["total"])
	assert.Len(t, win["transactions"], 1)
	assert.NotContains(t, win["transactions"].([]any)[0], "type")
}

func TestDashboard_EmptyOwnerUsesEmptyArrays(t *testing.T) {
	svc := dashboard.NewService(memory.New(), dashboard.Options{})
	srv := newTestServer(t, svc, Options{})

	rec := do(srv, http.MethodGet, "/dashboard", bearer(t, core.NewOwnerID().String()))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"recentTransactions":[]`)
	assert.Contains(t, body, `"last30DaysExpenses":{"total":0,"transactions":[]}`)
	assert.Contains(t, body, `"totalBalance":0`)
}

func TestDashboard_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"malformed identity", fmt.Errorf("wrap: %w", core.ErrInvalidIdentifier), http.StatusBadRequest, "Invalid user ID"},
		{"store down", fmt.Errorf("sum income: %w: %w", core.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusInternalServerError, "Server Error"},
		{"panic", core.ErrUnexpected, http.StatusInternalServerError, "Server Error"},
		{"timeout", context.DeadlineExceeded, http.StatusInternalServerError, "Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := summarizerFunc(func(context.Context, string) (core.FinancialSummary, error) {
				return core.FinancialSummary{}, tt.err
			})
			srv := newTestServer(t, dash, Options{})

			rec := do(srv, http.MethodGet, "/dashboard", bearer(t, core.NewOwnerID().String()))
			assert.Equal(t, tt.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
			assert.NotContains(t, rec.Body.String(), "dial tcp")
		})
	}
}

func TestDashboard_MalformedSubjectIs400(t *testing.T) {
	svc := dashboard.NewService(memory.New(), dashboard.Options{})
	srv := newTestServer(t, svc, Options{})

	rec := do(srv, http.MethodGet, "/dashboard", bearer(t, "64f0c2a1b2c3d4e5f6a7b8c9"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid user ID"}`, rec.Body.String())
}

func TestDashboard_Unauthenticated(t *testing.T) {
	called := false
	dash := summarizerFunc(func(context.Context, string) (core.FinancialSummary, error) {
		called = true
		return core.FinancialSummary{}, nil
	})
	srv := newTestServer(t, dash, Options{})

	for _, authz := range []string{"", "Bearer nope", "Token abc"} {
		rec := do(srv, http.MethodGet, "/dashboard", authz)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, authz)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	}
	assert.False(t, called)
}

func TestDashboard_UnauthenticatedLogsUnderAuthComponent(t *testing.T) {
	var buf bytes.Buffer
	srv := newTestServer(t, summarizerFunc(func(context.Context, string) (core.FinancialSummary, error) {
		return core.FinancialSummary{}, nil
	}), Options{Logger: log.New(log.Config{Output: &buf})})

	rec := do(srv, http.MethodGet, "/dashboard", "Bearer nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "Request rejected by authentication") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Contains(t, line, "component=auth")
	assert.Equal(t, 1, strings.Count(line, "component="))
}

func TestDashboard_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, dashboard.NewService(memory.New(), dashboard.Options{}), Options{})

	rec := do(srv, http.MethodPost, "/dashboard", bearer(t, core.NewOwnerID().String()))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}

func TestDashboard_TimeoutReachesSummarizer(t *testing.T) {
	dash := summarizerFunc(func(ctx context.Context, _ string) (core.FinancialSummary, error) {
		<-ctx.Done()
		return core.FinancialSummary{}, ctx.Err()
	})
	srv := newTestServer(t, dash, Options{DashboardTimeout: 20 * time.Millisecond})

	rec := do(srv, http.MethodGet, "/dashboard", bearer(t, core.NewOwnerID().String()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboard_RateLimited(t *testing.T) {
	srv := newTestServer(t, dashboard.NewService(memory.New(), dashboard.Options{}), Options{RateLimitPerMinute: 1})
	authz := bearer(t, core.NewOwnerID().String())

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/dashboard", authz).Code)
	rec := do(srv, http.MethodGet, "/dashboard", authz)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHealthAndReady(t *testing.T) {
	healthy := true
	ready := pingerFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db locked")
	})
	srv := newTestServer(t, dashboard.NewService(memory.New(), dashboard.Options{}), Options{Ready: ready})

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/readyz", "").Code)

	healthy = false
	rec := do(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "db locked"))

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/nope", "").Code)
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	v, err := auth.NewVerifier(testSecret, "")
	require.NoError(t, err)
	_, err = NewServer(nil, v, Options{})
	assert.Error(t, err)
	_, err = NewServer(summarizerFunc(nil), nil, Options{})
	assert.Error(t, err)
}
