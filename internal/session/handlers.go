package session

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/tarea-editor/internal/auth"
	"github.com/gokatarajesh/tarea-editor/internal/document"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
	httperrors "github.com/gokatarajesh/tarea-editor/pkg/http/errors"
)

// Watcher starts audio processing watches. *backend.ProcessingWatcher implements it.
type Watcher interface {
	Watch(ctx context.Context, taskID, owner string) bool
}

// HTTPHandlers exposes editor sessions over REST. Every route expects the operator
// set by auth.RequireOperator.
type HTTPHandlers struct {
	manager  *Manager
	watcher  Watcher
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewHTTPHandlers(manager *Manager, watcher Watcher, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		manager:  manager,
		watcher:  watcher,
		validate: newValidator(),
		logger:   logger.With().Str("component", "session_http").Logger(),
	}
}

// Routes registers the REST endpoints on mux, each wrapped by protect.
func (h *HTTPHandlers) Routes(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}
	handle("POST /v1/sessions", h.Open)
	handle("GET /v1/sessions/{id}", h.Get)
	handle("DELETE /v1/sessions/{id}", h.Close)
	handle("POST /v1/sessions/{id}/commands", h.Apply)
	handle("POST /v1/sessions/{id}/blocks", h.AddBlock)
	handle("PUT /v1/sessions/{id}/blocks/order", h.ReorderBlocks)
	handle("DELETE /v1/sessions/{id}/blocks/{index}", h.DeleteBlock)
	handle("POST /v1/sessions/{id}/blocks/{index}/duplicate", h.DuplicateBlock)
	handle("PUT /v1/sessions/{id}/selection", h.SelectBlock)
	handle("PUT /v1/sessions/{id}/instructions", h.SetInstructions)
	handle("POST /v1/sessions/{id}/mode", h.ToggleMode)
	handle("PUT /v1/sessions/{id}/raw", h.SetRawText)
	handle("POST /v1/sessions/{id}/versions/{version}", h.LoadVersion)
	handle("DELETE /v1/sessions/{id}/versions/{version}", h.DeleteVersion)
	handle("POST /v1/sessions/{id}/save", h.Save)
	handle("POST /v1/audio/processing/{task}/watch", h.WatchAudio)
}

func operatorOf(r *http.Request) string {
	op, _ := auth.OperatorFromContext(r.Context())
	return op
}

// session resolves the {id} path value for the calling operator.
func (h *HTTPHandlers) session(r *http.Request) (*editor.Session, error) {
	return h.manager.Get(r.Context(), r.PathValue("id"), operatorOf(r))
}

func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.ParseInt(r.PathValue(name), 10, 32)
	if err != nil {
		return 0, &requestError{field: name, message: name + " must be an integer"}
	}
	return int(n), nil
}

// Open handles POST /v1/sessions
func (h *HTTPHandlers) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeBody(r, h.validate, &req, false); err != nil {
		respondError(w, err)
		return
	}
	s, err := h.manager.Open(r.Context(), operatorOf(r), req.TareaID, req.Version)
	if err != nil {
		h.logger.Warn().Err(err).Int("tarea_id", req.TareaID).Msg("open session failed")
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, s.Snapshot())
}

// Get handles GET /v1/sessions/{id}
func (h *HTTPHandlers) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// Close handles DELETE /v1/sessions/{id}?confirm=true
func (h *HTTPHandlers) Close(w http.ResponseWriter, r *http.Request) {
	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.manager.Close(r.Context(), r.PathValue("id"), operatorOf(r), confirm); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Apply handles POST /v1/sessions/{id}/commands
func (h *HTTPHandlers) Apply(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req commandRequest
	if err := decodeBody(r, h.validate, &req, false); err != nil {
		respondError(w, err)
		return
	}
	if !editor.KnownOp(editor.Op(req.Op)) {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidCommand, "Unknown command "+strconv.Quote(req.Op))
		return
	}

	changed, err := h.manager.Apply(r.Context(), s, req.command())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"changed": changed,
		"session": s.Snapshot(),
	})
}

// AddBlock handles POST /v1/sessions/{id}/blocks
func (h *HTTPHandlers) AddBlock(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req addBlockRequest
	if err := decodeBody(r, h.validate, &req, false); err != nil {
		respondError(w, err)
		return
	}
	index, err := s.AddBlock(document.BlockType(req.Type))
	if err != nil {
		respondError(w, err)
		return
	}
	h.manager.Changed(r.Context(), s)
	respondJSON(w, http.StatusCreated, map[string]any{
		"index":   index,
		"session": s.Snapshot(),
	})
}

// DeleteBlock handles DELETE /v1/sessions/{id}/blocks/{index}
func (h *HTTPHandlers) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.DeleteBlock(index); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// DuplicateBlock handles POST /v1/sessions/{id}/blocks/{index}/duplicate
func (h *HTTPHandlers) DuplicateBlock(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, err)
		return
	}
	copyIndex, err := s.DuplicateBlock(index)
	if err != nil {
		respondError(w, err)
		return
	}
	h.manager.Changed(r.Context(), s)
	respondJSON(w, http.StatusCreated, map[string]any{
		"index":   copyIndex,
		"session": s.Snapshot(),
	})
}

// ReorderBlocks handles PUT /v1/sessions/{id}/blocks/order
func (h *HTTPHandlers) ReorderBlocks(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req reorderRequest
	if err := decodeBody(r, h.validate, &req, false); err != nil {
		respondError(w, err)
		return
	}
	if err := s.ReorderBlocks(req.Order); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// SelectBlock handles PUT /v1/sessions/{id}/selection
func (h *HTTPHandlers) SelectBlock(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req selectRequest
	if err := decodeBody(r, h.validate, &req, false); err != nil {
		respondError(w, err)
		return
	}
	if err := s.SelectBlock(req.Index); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// SetInstructions handles PUT /v1/sessions/{id}/instructions
func (h *HTTPHandlers) SetInstructions(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req instructionsRequest
	if err := decodeBody(r, h.validate, &req, false); err != nil {
		respondError(w, err)
		return
	}
	if err := s.SetInstructions(req.ES, req.ZH); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// ToggleMode handles POST /v1/sessions/{id}/mode
func (h *HTTPHandlers) ToggleMode(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := s.ToggleMode(); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// SetRawText handles PUT /v1/sessions/{id}/raw
func (h *HTTPHandlers) SetRawText(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req rawRequest
	if err := decodeBody(r, h.validate, &req, false); err != nil {
		respondError(w, err)
		return
	}
	if err := s.SetRawText(req.Text); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// LoadVersion handles POST /v1/sessions/{id}/versions/{version}
func (h *HTTPHandlers) LoadVersion(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	version, err := pathInt(r, "version")
	if err != nil {
		respondError(w, err)
		return
	}
	var req confirmRequest
	if err := decodeBody(r, h.validate, &req, true); err != nil {
		respondError(w, err)
		return
	}
	if err := s.LoadVersion(r.Context(), version, req.Confirm); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// DeleteVersion handles DELETE /v1/sessions/{id}/versions/{version} with an optional
// {"confirm": true} body.
func (h *HTTPHandlers) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	version, err := pathInt(r, "version")
	if err != nil {
		respondError(w, err)
		return
	}
	var req confirmRequest
	if err := decodeBody(r, h.validate, &req, true); err != nil {
		respondError(w, err)
		return
	}
	if err := s.DeleteVersion(r.Context(), version, req.Confirm); err != nil {
		respondError(w, err)
		return
	}
	h.changed(w, r, s)
}

// Save handles POST /v1/sessions/{id}/save
func (h *HTTPHandlers) Save(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.manager.Save(r.Context(), s); err != nil {
		h.logger.Info().Err(err).Str("session_id", s.ID()).Msg("save refused")
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// WatchAudio handles POST /v1/audio/processing/{task}/watch
func (h *HTTPHandlers) WatchAudio(w http.ResponseWriter, r *http.Request) {
	req := watchRequest{TaskID: r.PathValue("task")}
	if err := validateStruct(h.validate, &req); err != nil {
		respondError(w, err)
		return
	}
	if !h.watcher.Watch(r.Context(), req.TaskID, operatorOf(r)) {
		httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyWatching, "Task "+req.TaskID+" is already being watched")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"task_id": req.TaskID,
		"topic":   OperatorTopic(operatorOf(r)),
	})
}

// changed publishes the new state and answers with it.
func (h *HTTPHandlers) changed(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	h.manager.Changed(r.Context(), s)
	respondJSON(w, http.StatusOK, s.Snapshot())
}
