package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientAPIKey_PrefersXAPIKeyHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	r.Header.Set("x-api-key", "from-header")
	r.Header.Set("Authorization", "Bearer from-bearer")
	assert.Equal(t, "from-header", clientAPIKey(r))
}

func TestClientAPIKey_FallsBackToBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	r.Header.Set("Authorization", "Bearer from-bearer")
	assert.Equal(t, "from-bearer", clientAPIKey(r))
}

func TestClientAPIKey_EmptyWhenNeitherPresent(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	assert.Equal(t, "", clientAPIKey(r))
}

func TestAuthMiddleware_NoopWhenRequiredIsEmpty(t *testing.T) {
	called := false
	mw := authMiddleware("")
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	r := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_RejectsWrongKey(t *testing.T) {
	mw := authMiddleware("expected-key")
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	r := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	r.Header.Set("x-api-key", "wrong-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
