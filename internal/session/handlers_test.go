package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/tarea-editor/internal/auth"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
)

type stubWatcher struct {
	mu      sync.Mutex
	watched map[string]string
}

func (w *stubWatcher) Watch(_ context.Context, taskID, owner string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched == nil {
		w.watched = map[string]string{}
	}
	if _, ok := w.watched[taskID]; ok {
		return false
	}
	w.watched[taskID] = owner
	return true
}

// asOperator stands in for auth.RequireOperator; the X-Operator header picks the caller.
func asOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := r.Header.Get("X-Operator")
		if op == "" {
			op = "ana"
		}
		ctx := auth.WithOperator(auth.WithToken(r.Context(), "tok"), op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type apiClient struct {
	t   *testing.T
	mux *http.ServeMux
	env *testEnv
}

func newAPI(t *testing.T) *apiClient {
	env := newTestEnv()
	mux := http.NewServeMux()
	NewHTTPHandlers(env.manager, &stubWatcher{}, zerolog.Nop()).Routes(mux, asOperator)
	return &apiClient{t: t, mux: mux, env: env}
}

func (c *apiClient) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.mux.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) editor.View {
	t.Helper()
	var view editor.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (c *apiClient) open() string {
	rec := c.do(http.MethodPost, "/v1/sessions", map[string]any{"tarea_id": 42})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeView(c.t, rec).SessionID
}

func TestOpenSessionValidation(t *testing.T) {
	api := newAPI(t)

	rec := api.do(http.MethodPost, "/v1/sessions", map[string]any{"tarea_id": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := errorCode(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, "tarea_id", body["field"])

	rec = api.do(http.MethodPost, "/v1/sessions", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = errorCode(t, rec)
	assert.Equal(t, "missing_field", body["error"])
	assert.Equal(t, "tarea_id", body["field"])

	rec = api.do(http.MethodPost, "/v1/sessions", map[string]any{"tarea_id": 2147483648})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPost, "/v1/sessions", map[string]any{"tarea_id": 42, "version": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := api.open()
	rec = api.do(http.MethodGet, "/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, 1, view.Document.Version)
	assert.Equal(t, editor.ModeStructured, view.Mode)
}

func TestSessionOwnership(t *testing.T) {
	api := newAPI(t)
	id := api.open()

	rec := api.do(http.MethodGet, "/v1/sessions/"+id, nil, "X-Operator", "luis")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/v1/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", errorCode(t, rec)["error"])
}

func TestBlockEditingFlow(t *testing.T) {
	api := newAPI(t)
	id := api.open()
	base := "/v1/sessions/" + id

	rec := api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "true_false"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "ordering"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "essay"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_block_type", errorCode(t, rec)["error"])

	text := "¿Es verdad?"
	rec = api.do(http.MethodPost, base+"/commands", map[string]any{"op": "set_question_text", "block": 0, "text": text})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var applied struct {
		Changed bool        `json:"changed"`
		Session editor.View `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &applied))
	assert.True(t, applied.Changed)
	assert.True(t, applied.Session.Dirty)
	assert.Equal(t, text, applied.Session.Blocks[0].Preview)

	rec = api.do(http.MethodPost, base+"/commands", map[string]any{"op": "add_option", "block": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "wrong_block_type", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPost, base+"/commands", map[string]any{"op": "explode", "block": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_command", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPost, base+"/commands", map[string]any{"op": "set_item", "block": 9, "text": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "block_index_out_of_range", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPut, base+"/blocks/order", map[string]any{"order": []int{1, 0}})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	assert.Equal(t, "ordering", string(view.Document.Questions[0].Type()))

	rec = api.do(http.MethodPut, base+"/blocks/order", map[string]any{"order": []int{0, 0}})
	assert.Equal(t, "invalid_permutation", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPost, base+"/blocks/1/duplicate", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodDelete, base+"/blocks/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeView(t, rec).Document.Questions, 2)

	rec = api.do(http.MethodDelete, base+"/blocks/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveAndVersions(t *testing.T) {
	api := newAPI(t)
	id := api.open()
	base := "/v1/sessions/" + id

	rec := api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "single_choice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, base+"/save", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := errorCode(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, "stem_required", body["details"].(map[string]any)["rule"])

	rec = api.do(http.MethodPost, base+"/commands", map[string]any{"op": "set_question_text", "block": 0, "text": "¿Qué oyes?"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeView(t, rec)
	assert.False(t, view.Dirty)
	assert.Equal(t, []int{1}, view.Versions)

	rec = api.do(http.MethodPost, base+"/instructions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = api.do(http.MethodPut, base+"/instructions", map[string]any{"es": " Escucha ", "zh": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Escucha", decodeView(t, rec).Document.Instructions.ES)

	rec = api.do(http.MethodPost, base+"/versions/1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "unsaved_changes", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPost, base+"/versions/1", map[string]any{"confirm": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", decodeView(t, rec).Document.Instructions.ES)

	rec = api.do(http.MethodPost, base+"/versions/0", nil)
	assert.Equal(t, "invalid_version", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPost, base+"/versions/2147483648", map[string]any{"confirm": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body = errorCode(t, rec)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, "version", body["field"])

	rec = api.do(http.MethodDelete, base+"/versions/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	assert.Empty(t, view.Versions)
	assert.Empty(t, view.Document.Questions)
}

func TestRawModeFlow(t *testing.T) {
	api := newAPI(t)
	id := api.open()
	base := "/v1/sessions/" + id

	rec := api.do(http.MethodPut, base+"/raw", map[string]any{"text": "{}"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "wrong_mode", errorCode(t, rec)["error"])

	rec = api.do(http.MethodPost, base+"/mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, editor.ModeRaw, decodeView(t, rec).Mode)

	rec = api.do(http.MethodPut, base+"/raw", map[string]any{"text": `{"version": 1, "questions": [{"type": "essay"}]}`})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, base+"/mode", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := errorCode(t, rec)
	assert.Equal(t, "parse_failed", body["error"])
	assert.EqualValues(t, 0, body["details"].(map[string]any)["index"])

	rec = api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "true_false"})
	assert.Equal(t, "wrong_mode", errorCode(t, rec)["error"])
}

func TestCloseSession(t *testing.T) {
	api := newAPI(t)
	id := api.open()
	base := "/v1/sessions/" + id

	rec := api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "matching"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodDelete, base+"?confirm=true", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatchAudio(t *testing.T) {
	api := newAPI(t)

	rec := api.do(http.MethodPost, "/v1/audio/processing/task-7/watch", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "operator:ana", body["topic"])

	rec = api.do(http.MethodPost, "/v1/audio/processing/task-7/watch", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_watching", errorCode(t, rec)["error"])
}

func TestDeleteVersionConfirmInBody(t *testing.T) {
	api := newAPI(t)
	id := api.open()
	base := "/v1/sessions/" + id

	rec := api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "true_false"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = api.do(http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(http.MethodPost, base+"/blocks", map[string]any{"type": "ordering"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodDelete, base+"/versions/1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = api.do(http.MethodDelete, base+"/versions/1?confirm=true", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodDelete, base+"/versions/1", map[string]any{"confirm": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeView(t, rec).Versions)
}
