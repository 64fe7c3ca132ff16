package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestVerify(t *testing.T) {
	v, err := NewVerifier(secret, "bilancio")
	require.NoError(t, err)

	good, err := Mint(secret, "bilancio", "owner-1", time.Hour)
	require.NoError(t, err)
	expired, err := Mint(secret, "bilancio", "owner-1", -time.Hour)
	require.NoError(t, err)
	otherIssuer, err := Mint(secret, "someone-else", "owner-1", time.Hour)
	require.NoError(t, err)
	wrongKey, err := Mint("other-secret", "bilancio", "owner-1", time.Hour)
	require.NoError(t, err)
	noSubject, err := Mint(secret, "bilancio", "", time.Hour)
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "owner-1", Issuer: "bilancio"}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject: "owner-1", Issuer: "bilancio", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantSub string
		wantErr bool
	}{
		{"valid", good, "owner-1", false},
		{"expired", expired, "", true},
		{"issuer mismatch", otherIssuer, "", true},
		{"wrong key", wrongKey, "", true},
		{"no subject", noSubject, "", true},
		{"no expiry", noExp, "", true},
		{"unexpected algorithm", hs512, "", true},
		{"garbage", "not.a.jwt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := v.Verify(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, sub)
		})
	}
}

func TestNewVerifier_EmptySecret(t *testing.T) {
	_, err := NewVerifier("", "")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = Mint("", "", "x", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestMiddleware(t *testing.T) {
	v, err := NewVerifier(secret, "")
	require.NoError(t, err)
	token, err := Mint(secret, "", "not-a-uuid", time.Hour)
	require.NoError(t, err)

	var gotSub string
	var gotErr error
	h := v.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub, _ = SubjectFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		status int
		err    error
	}{
		{"missing header", "", http.StatusUnauthorized, ErrMissingToken},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ErrMissingToken},
		{"bad token", "Bearer abc", http.StatusUnauthorized, ErrInvalidToken},
		{"malformed subject passes through", "bearer " + token, http.StatusOK, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSub, gotErr = "", nil
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.err != nil {
				assert.ErrorIs(t, gotErr, tt.err)
				return
			}
			assert.Equal(t, "not-a-uuid", gotSub)
		})
	}
}
