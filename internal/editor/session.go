package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/tarea-editor/internal/document"
)

// Mode is the active editing view of a session.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeRaw        Mode = "raw"
)

// NoSelection is the selected index when no block is selected.
const NoSelection = -1

// Session is one open editor for one tarea. It owns its document exclusively and
// serialises every operation, including the network-bound ones, on a single mutex.
type Session struct {
	id       string
	tareaID  int
	operator string
	store    Store
	notifier Notifier
	logger   zerolog.Logger

	mu        sync.Mutex
	versions  []int
	doc       document.Document
	mode      Mode
	raw       string
	selected  int
	dirty     bool
	closed    bool
	updatedAt time.Time
}

// NewSession creates a session holding an empty version 1 document. Call Open to load
// the latest stored version.
func NewSession(id string, tareaID int, operator string, store Store, notifier Notifier, logger zerolog.Logger) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Session{
		id:        id,
		tareaID:   tareaID,
		operator:  operator,
		store:     store,
		notifier:  notifier,
		logger:    logger.With().Str("component", "editor").Str("session_id", id).Int("tarea_id", tareaID).Logger(),
		doc:       document.NewDocument(1),
		mode:      ModeStructured,
		selected:  NoSelection,
		versions:  []int{},
		updatedAt: time.Now().UTC(),
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) TareaID() int     { return s.tareaID }
func (s *Session) Operator() string { return s.operator }

// Open fetches the version list and loads the highest version. An empty list yields an
// empty document at version 1.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.open(ctx)
}

func (s *Session) open(ctx context.Context) error {
	versions, err := s.store.ListVersions(ctx, s.tareaID)
	if err != nil {
		if errors.Is(err, ErrAuthExpired) {
			return err
		}
		s.logger.Error().Err(err).Msg("list versions failed")
		s.notify(ctx, LevelError, fmt.Sprintf("Could not load the version list: %v", err))
		s.reset(document.NewDocument(1), []int{})
		return nil
	}

	versions = slices.Clone(versions)
	slices.Sort(versions)
	versions = slices.Compact(versions)
	if len(versions) == 0 {
		s.reset(document.NewDocument(1), versions)
		return nil
	}
	return s.load(ctx, versions[len(versions)-1], versions)
}

// load fetches one version. Not found is an empty state, not an error.
func (s *Session) load(ctx context.Context, version int, versions []int) error {
	doc, err := s.store.GetDocument(ctx, s.tareaID, version)
	switch {
	case err == nil:
		if doc.Version < 1 {
			doc.Version = version
		}
		if doc.Questions == nil {
			doc.Questions = []document.Block{}
		}
	case errors.Is(err, ErrNotFound):
		doc = document.NewDocument(version)
	case errors.Is(err, ErrAuthExpired):
		return err
	default:
		s.logger.Error().Err(err).Int("version", version).Msg("load version failed")
		s.notify(ctx, LevelError, fmt.Sprintf("Could not load version %d: %v", version, err))
		doc = document.NewDocument(1)
	}
	s.reset(doc, versions)
	return nil
}

func (s *Session) reset(doc document.Document, versions []int) {
	s.doc = doc
	s.versions = versions
	s.selected = NoSelection
	s.dirty = false
	if s.mode == ModeRaw {
		s.raw = marshalRaw(doc)
	} else {
		s.raw = ""
	}
	s.touch()
}

// LoadVersion replaces the document with a stored version. Unsaved changes are only
// discarded when confirm is set.
func (s *Session) LoadVersion(ctx context.Context, version int, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if version < 1 {
		return ErrInvalidVersion
	}
	if s.dirty && !confirm {
		return ErrUnsavedChanges
	}
	return s.load(ctx, version, s.versions)
}

// ToggleMode switches between the structured and raw views. Leaving raw mode parses
// the text first; on a parse error nothing changes and the *document.ParseError is returned.
func (s *Session) ToggleMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	switch s.mode {
	case ModeStructured:
		s.raw = marshalRaw(s.doc)
		s.mode = ModeRaw
	case ModeRaw:
		doc, err := document.Parse([]byte(s.raw))
		if err != nil {
			return err
		}
		s.doc = doc
		s.mode = ModeStructured
		s.selected = NoSelection
	}
	s.touch()
	return nil
}

// SetRawText replaces the raw text. Only valid in raw mode.
func (s *Session) SetRawText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeRaw); err != nil {
		return err
	}
	if s.raw != text {
		s.raw = text
		s.markDirty()
	}
	return nil
}

// AddBlock appends a fresh block of type t, selects it and returns its index.
func (s *Session) AddBlock(t document.BlockType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeStructured); err != nil {
		return 0, err
	}
	b, err := document.NewBlock(t)
	if err != nil {
		return 0, err
	}
	s.doc.Questions = append(s.doc.Questions, b)
	s.selected = len(s.doc.Questions) - 1
	s.markDirty()
	return s.selected, nil
}

// DeleteBlock removes block i. The selection keeps pointing at the same block, or
// clears when the selected block is the one removed.
func (s *Session) DeleteBlock(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeStructured); err != nil {
		return err
	}
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.doc.Questions = slices.Delete(s.doc.Questions, i, i+1)
	switch {
	case s.selected == i:
		s.selected = NoSelection
	case s.selected > i:
		s.selected--
	}
	s.markDirty()
	return nil
}

// DuplicateBlock inserts a deep copy of block i right after it and selects the copy.
func (s *Session) DuplicateBlock(i int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeStructured); err != nil {
		return 0, err
	}
	if err := s.checkIndex(i); err != nil {
		return 0, err
	}
	s.doc.Questions = slices.Insert(s.doc.Questions, i+1, document.Clone(s.doc.Questions[i]))
	s.selected = i + 1
	s.markDirty()
	return s.selected, nil
}

// ReorderBlocks rearranges the blocks so that new position j holds the block previously
// at perm[j]. perm must be a permutation of every current index.
func (s *Session) ReorderBlocks(perm []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeStructured); err != nil {
		return err
	}
	n := len(s.doc.Questions)
	if len(perm) != n {
		return fmt.Errorf("%w: got %d indices for %d blocks", ErrInvalidPermutation, len(perm), n)
	}
	seen := make([]bool, n)
	for _, p := range perm {
		if p < 0 || p >= n || seen[p] {
			return fmt.Errorf("%w: %v", ErrInvalidPermutation, perm)
		}
		seen[p] = true
	}

	reordered := make([]document.Block, n)
	selected := NoSelection
	for j, p := range perm {
		reordered[j] = s.doc.Questions[p]
		if p == s.selected {
			selected = j
		}
	}
	s.doc.Questions = reordered
	s.selected = selected
	s.markDirty()
	return nil
}

// SelectBlock selects block i, or clears the selection with NoSelection.
func (s *Session) SelectBlock(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeStructured); err != nil {
		return err
	}
	if i != NoSelection {
		if err := s.checkIndex(i); err != nil {
			return err
		}
	}
	s.selected = i
	s.touch()
	return nil
}

// SetInstructions replaces both instruction texts, trimmed.
func (s *Session) SetInstructions(es, zh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeStructured); err != nil {
		return err
	}
	next := document.Instructions{ES: strings.TrimSpace(es), ZH: strings.TrimSpace(zh)}
	if s.doc.Instructions != next {
		s.doc.Instructions = next
		s.markDirty()
	}
	return nil
}

// Apply runs a typed block command and reports whether the document changed.
// Refused edits (floors, unknown keys, out-of-range indices) return false and leave
// the dirty flag alone.
func (s *Session) Apply(cmd Command) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(ModeStructured); err != nil {
		return false, err
	}
	if err := s.checkIndex(cmd.Block); err != nil {
		return false, err
	}
	changed, err := applyCommand(s.doc.Questions[cmd.Block], cmd)
	if err != nil {
		return false, err
	}
	if changed {
		s.markDirty()
	}
	return changed, nil
}

// Save stores the document under its own version as a full replace. In raw mode the
// text is parsed first. Parse and validation errors abort without any write; on a
// backend failure the session stays dirty and keeps every local edit.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	doc := s.doc
	if s.mode == ModeRaw {
		parsed, err := document.Parse([]byte(s.raw))
		if err != nil {
			return err
		}
		doc = parsed
	}
	if err := document.Validate(doc); err != nil {
		return err
	}

	if err := s.store.PutDocument(ctx, s.tareaID, doc); err != nil {
		if errors.Is(err, ErrAuthExpired) {
			return err
		}
		s.logger.Error().Err(err).Int("version", doc.Version).Msg("save failed")
		s.notify(ctx, LevelError, fmt.Sprintf("Could not save version %d: %v", doc.Version, err))
		return fmt.Errorf("save version %d: %w", doc.Version, err)
	}

	if s.mode == ModeRaw {
		s.doc = doc
		s.selected = NoSelection
	}
	s.dirty = false
	s.refreshVersions(ctx, doc.Version)
	s.touch()
	s.logger.Info().Int("version", doc.Version).Int("questions", len(doc.Questions)).Msg("document saved")
	s.notify(ctx, LevelSuccess, fmt.Sprintf("Version %d saved", doc.Version))
	return nil
}

func (s *Session) refreshVersions(ctx context.Context, saved int) {
	versions, err := s.store.ListVersions(ctx, s.tareaID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("refresh versions failed")
		versions = slices.Clone(s.versions)
	}
	if !slices.Contains(versions, saved) {
		versions = append(versions, saved)
	}
	slices.Sort(versions)
	s.versions = slices.Compact(versions)
}

// DeleteVersion removes a stored version and re-opens the session on the latest
// remaining one. Unsaved changes are only discarded when confirm is set.
func (s *Session) DeleteVersion(ctx context.Context, version int, confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if version < 1 {
		return ErrInvalidVersion
	}
	if s.dirty && !confirm {
		return ErrUnsavedChanges
	}

	if err := s.store.DeleteDocument(ctx, s.tareaID, version); err != nil {
		if errors.Is(err, ErrAuthExpired) {
			return err
		}
		s.logger.Error().Err(err).Int("version", version).Msg("delete version failed")
		s.notify(ctx, LevelError, fmt.Sprintf("Could not delete version %d: %v", version, err))
		return fmt.Errorf("delete version %d: %w", version, err)
	}
	s.logger.Info().Int("version", version).Msg("version deleted")
	s.notify(ctx, LevelSuccess, fmt.Sprintf("Version %d deleted", version))
	return s.open(ctx)
}

// Close ends the session. While dirty it refuses unless confirm is set.
func (s *Session) Close(confirm bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.dirty && !confirm {
		return ErrUnsavedChanges
	}
	s.closed = true
	s.touch()
	return nil
}

// UpdatedAt is the time of the last change or selection.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Dirty reports whether the session has unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) writable(mode Mode) error {
	if s.closed {
		return ErrClosed
	}
	if s.mode != mode {
		return fmt.Errorf("%w: session is in %s mode", ErrWrongMode, s.mode)
	}
	return nil
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.doc.Questions) {
		return fmt.Errorf("%w: %d (have %d)", ErrBlockIndex, i, len(s.doc.Questions))
	}
	return nil
}

func (s *Session) markDirty() {
	s.dirty = true
	s.touch()
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}

func (s *Session) notify(ctx context.Context, level Level, msg string) {
	s.notifier.Notify(ctx, s.id, Notification{Level: level, Message: msg})
}

func marshalRaw(doc document.Document) string {
	data, err := document.Marshal(doc)
	if err != nil {
		// Blocks are built only from this package's types, so encoding cannot fail.
		return ""
	}
	return string(data)
}
