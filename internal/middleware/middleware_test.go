package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

const secret = "test-secret"

func signedToken(t *testing.T, key string, scopes ...string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scopes: scopes,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetUserID(r.Context())))
}

func serve(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	h := Auth(secret)(http.HandlerFunc(okHandler))

	rec := serve(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing authorization header"}`, rec.Body.String())

	rec = serve(h, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, "Bearer "+signedToken(t, "other-secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, "Bearer "+signedToken(t, secret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "operator-1", rec.Body.String())
}

func TestAuthDisabled(t *testing.T) {
	h := Auth("")(RequireScope("", ScopeSessionsAdmin)(http.HandlerFunc(okHandler)))

	rec := serve(h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireScope(t *testing.T) {
	h := Auth(secret)(RequireScope(secret, ScopeReservationsRead)(http.HandlerFunc(okHandler)))

	rec := serve(h, "Bearer "+signedToken(t, secret, ScopeMessagesWrite))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(h, "Bearer "+signedToken(t, secret, ScopeMessagesWrite, ScopeReservationsRead))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingCorrelationID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logging(logger.NewNop()))
	r.Get("/rooms/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetCorrelationID(r.Context())))
	})

	req := httptest.NewRequest(http.MethodGet, "/rooms/1", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "corr-1", rec.Body.String())
	assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/1", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, rec.Header().Get("X-Correlation-ID"), rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(h, "").Code)
	}
	rec := serve(h, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := serve(SecurityHeaders(http.HandlerFunc(okHandler)), "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestValidation(t *testing.T) {
	assert.NoError(t, ValidateMessageText("merhaba"))
	assert.Error(t, ValidateMessageText("  "))
	assert.Error(t, ValidateMessageText(string(make([]byte, maxMessageLength+1))))
	assert.Error(t, ValidateMessageText("\xff"))

	assert.NoError(t, ValidateSessionID("web:chat-1"))
	assert.Error(t, ValidateSessionID("chat-1"))
	assert.Error(t, ValidateSessionID("web:"))

	assert.NoError(t, ValidateReference("RSV-000001"))
	assert.Error(t, ValidateReference(" "))
}
