package editor

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/tarea-editor/internal/document"
)

// View is a read-only projection of a session for rendering.
type View struct {
	SessionID string             `json:"session_id"`
	TareaID   int                `json:"tarea_id"`
	Operator  string             `json:"operator"`
	Versions  []int              `json:"versions"`
	Mode      Mode               `json:"mode"`
	Raw       string             `json:"raw,omitempty"`
	Selected  int                `json:"selected"`
	Dirty     bool               `json:"dirty"`
	Closed    bool               `json:"closed"`
	Document  document.Document  `json:"document"`
	Blocks    []document.Summary `json:"blocks"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Snapshot returns a deep copy of the session state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.doc.Clone()
	return View{
		SessionID: s.id,
		TareaID:   s.tareaID,
		Operator:  s.operator,
		Versions:  slices.Clone(s.versions),
		Mode:      s.mode,
		Raw:       s.raw,
		Selected:  s.selected,
		Dirty:     s.dirty,
		Closed:    s.closed,
		Document:  doc,
		Blocks:    document.Summaries(doc),
		UpdatedAt: s.updatedAt,
	}
}

// Draft is the persisted form of an open session, used to survive restarts.
type Draft struct {
	SessionID string            `json:"session_id"`
	TareaID   int               `json:"tarea_id"`
	Operator  string            `json:"operator"`
	Versions  []int             `json:"versions"`
	Mode      Mode              `json:"mode"`
	Raw       string            `json:"raw"`
	Selected  int               `json:"selected"`
	Dirty     bool              `json:"dirty"`
	Document  document.Document `json:"document"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Draft captures the session state.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Draft{
		SessionID: s.id,
		TareaID:   s.tareaID,
		Operator:  s.operator,
		Versions:  slices.Clone(s.versions),
		Mode:      s.mode,
		Raw:       s.raw,
		Selected:  s.selected,
		Dirty:     s.dirty,
		Document:  s.doc.Clone(),
		UpdatedAt: s.updatedAt,
	}
}

// RestoreSession rebuilds a session from a draft without touching the store.
func RestoreSession(d Draft, store Store, notifier Notifier, logger zerolog.Logger) *Session {
	s := NewSession(d.SessionID, d.TareaID, d.Operator, store, notifier, logger)
	s.doc = d.Document.Clone()
	if s.doc.Questions == nil {
		s.doc.Questions = []document.Block{}
	}
	if d.Versions != nil {
		s.versions = slices.Clone(d.Versions)
	}
	if d.Mode == ModeRaw {
		s.mode = ModeRaw
	}
	s.raw = d.Raw
	s.selected = d.Selected
	if s.selected < NoSelection || s.selected >= len(s.doc.Questions) {
		s.selected = NoSelection
	}
	s.dirty = d.Dirty
	if !d.UpdatedAt.IsZero() {
		s.updatedAt = d.UpdatedAt
	}
	return s
}
