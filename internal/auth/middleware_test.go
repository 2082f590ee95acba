package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/tarea-editor/internal/auth/jwt"
)

type seen struct {
	token    string
	operator string
	claims   bool
}

func capture(out *seen) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out.token = TokenFromContext(r.Context())
		out.operator, _ = OperatorFromContext(r.Context())
		_, out.claims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"].(string)
}

func TestRequireOperatorMissingToken(t *testing.T) {
	var got seen
	h := RequireOperator(nil, zerolog.Nop())(capture(&got))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_required", errorCode(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/x", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOperatorForwardsOpaqueToken(t *testing.T) {
	var got seen
	h := RequireOperator(nil, zerolog.Nop())(capture(&got))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/x", nil)
	req.Header.Set("Authorization", "Bearer opaque-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "opaque-123", got.token)
	assert.True(t, strings.HasPrefix(got.operator, "token:"))
	assert.Len(t, got.operator, len("token:")+12)
	assert.False(t, got.claims)

	// Same token, same operator.
	first := got.operator
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, first, got.operator)
}

func TestRequireOperatorVerifies(t *testing.T) {
	manager := jwt.NewManager(jwt.TokenConfig{Secret: []byte("s3cret")})
	var got seen
	h := RequireOperator(manager, zerolog.Nop())(capture(&got))

	token, err := manager.GenerateToken("op-1", "ana@example.com", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/x?access_token="+token, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ana@example.com", got.operator)
	assert.True(t, got.claims)

	expired := jwt.NewManager(jwt.TokenConfig{Secret: []byte("s3cret"), TTL: -time.Minute})
	stale, err := expired.GenerateToken("op-1", "ana@example.com", "admin")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/x", nil)
	req.Header.Set("Authorization", "Bearer "+stale)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_expired", errorCode(t, rec))
}
