package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/tarea-editor/internal/backend"
	"github.com/gokatarajesh/tarea-editor/internal/document"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
	"github.com/gokatarajesh/tarea-editor/internal/metrics"
	ws "github.com/gokatarajesh/tarea-editor/pkg/http/ws"
)

// ManagerOptions wires the collaborators of a Manager. Snapshots defaults to
// NopSnapshots.
type ManagerOptions struct {
	Store     editor.Store
	Snapshots SnapshotStore
	Publisher Publisher
	Metrics   *metrics.Metrics
}

// Manager opens, looks up and closes editor sessions, and after every change
// publishes the new state and stores a draft snapshot.
type Manager struct {
	store     editor.Store
	registry  *Registry
	snapshots SnapshotStore
	publisher Publisher
	notifier  editor.Notifier
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	newID     func() string
}

func NewManager(opts ManagerOptions, logger zerolog.Logger) *Manager {
	if opts.Snapshots == nil {
		opts.Snapshots = NopSnapshots{}
	}
	return &Manager{
		store:     opts.Store,
		registry:  NewRegistry(),
		snapshots: opts.Snapshots,
		publisher: opts.Publisher,
		notifier:  NewHubNotifier(opts.Publisher, logger),
		metrics:   opts.Metrics,
		logger:    logger.With().Str("component", "session_manager").Logger(),
		newID:     uuid.NewString,
	}
}

// Open starts a session on tareaID. With a nil version the latest stored version is
// loaded.
func (m *Manager) Open(ctx context.Context, operator string, tareaID int, version *int) (*editor.Session, error) {
	s := editor.NewSession(m.newID(), tareaID, operator, m.store, m.notifier, m.logger)
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	if version != nil {
		if err := s.LoadVersion(ctx, *version, false); err != nil {
			return nil, err
		}
	}

	m.registry.Put(s)
	m.metrics.SessionOpened()
	m.logger.Info().Str("session_id", s.ID()).Int("tarea_id", tareaID).Str("operator", operator).Msg("session opened")
	m.Changed(ctx, s)
	return s, nil
}

// Get returns an open session owned by operator. Sessions missing from memory are
// restored from their draft snapshot.
func (m *Manager) Get(ctx context.Context, id, operator string) (*editor.Session, error) {
	s, err := m.registry.Get(id, operator)
	if !errors.Is(err, ErrSessionNotFound) {
		return s, err
	}

	draft, err := m.snapshots.Load(ctx, id)
	if errors.Is(err, ErrNoSnapshot) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("snapshot load failed")
		return nil, ErrSessionNotFound
	}
	if draft.Operator != operator {
		return nil, ErrForbidden
	}

	restored := editor.RestoreSession(draft, m.store, m.notifier, m.logger)
	s, inserted := m.registry.GetOrPut(restored)
	if inserted {
		m.metrics.SessionOpened()
		m.logger.Info().Str("session_id", id).Msg("session restored from snapshot")
	}
	return s, nil
}

// Changed publishes the session state to its subscribers and refreshes the snapshot.
func (m *Manager) Changed(ctx context.Context, s *editor.Session) {
	msg, err := ws.NewMessage(ws.TypeSessionState, s.Snapshot())
	if err == nil {
		_ = m.publisher.Publish(SessionTopic(s.ID()), msg)
	} else {
		m.logger.Error().Err(err).Msg("encode session state")
	}

	if err := m.snapshots.Save(ctx, s.Draft()); err != nil {
		m.logger.Warn().Err(err).Str("session_id", s.ID()).Msg("snapshot save failed")
	}
}

// Apply runs a block command and records the outcome.
func (m *Manager) Apply(ctx context.Context, s *editor.Session, cmd editor.Command) (bool, error) {
	changed, err := s.Apply(cmd)
	switch {
	case err != nil:
		m.metrics.Command(string(cmd.Op), metrics.ResultRejected)
		return false, err
	case !changed:
		m.metrics.Command(string(cmd.Op), metrics.ResultNoop)
	default:
		m.metrics.Command(string(cmd.Op), metrics.ResultOK)
		m.Changed(ctx, s)
	}
	return changed, nil
}

// Save stores the session document and records the outcome.
func (m *Manager) Save(ctx context.Context, s *editor.Session) error {
	err := s.Save(ctx)

	var verr *document.ValidationError
	var perr *document.ParseError
	switch {
	case err == nil:
		m.metrics.Save(metrics.ResultOK)
	case errors.As(err, &verr):
		m.metrics.Save(metrics.ResultInvalid)
		m.metrics.ValidationFailure(verr.Rule)
	case errors.As(err, &perr):
		m.metrics.Save(metrics.ResultInvalid)
	default:
		m.metrics.Save(metrics.ResultFailed)
	}
	m.Changed(ctx, s)
	return err
}

// Close ends the session, drops its snapshot and disconnects its subscribers.
func (m *Manager) Close(ctx context.Context, id, operator string, confirm bool) error {
	s, err := m.Get(ctx, id, operator)
	if err != nil {
		return err
	}
	if err := s.Close(confirm); err != nil {
		return err
	}

	if m.registry.Delete(id) {
		m.metrics.SessionClosed()
	}
	if err := m.snapshots.Delete(ctx, id); err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("snapshot delete failed")
	}
	if msg, err := ws.NewMessage(ws.TypeSessionClosed, ws.SessionClosedPayload{SessionID: id}); err == nil {
		_ = m.publisher.Publish(SessionTopic(id), msg)
	}
	m.publisher.CloseTopic(SessionTopic(id))
	m.logger.Info().Str("session_id", id).Msg("session closed")
	return nil
}

// AudioDone tells the operator how an audio processing task ended.
func (m *Manager) AudioDone(o backend.WatchOutcome) {
	payload := ws.AudioProcessingPayload{
		TaskID: o.TaskID,
		Status: o.Status.Status,
		Error:  o.Status.Error,
		Polls:  o.Polls,
	}
	if o.Err != nil {
		payload.Status = "ERROR"
		payload.Error = o.Err.Error()
	}
	msg, err := ws.NewMessage(ws.TypeAudioProcessing, payload)
	if err != nil {
		m.logger.Error().Err(err).Msg("encode audio processing result")
		return
	}
	if err := m.publisher.Publish(OperatorTopic(o.Owner), msg); err != nil {
		m.logger.Warn().Err(err).Str("task_id", o.TaskID).Msg("publish audio processing result failed")
	}
}

// EvictIdle drops sessions untouched since before from memory and returns how many
// went. Without a persistent snapshot store a dirty session is kept, since evicting it
// would lose its edits.
func (m *Manager) EvictIdle(ctx context.Context, before time.Time) int {
	_, volatile := m.snapshots.(NopSnapshots)
	evicted := 0
	for _, s := range m.registry.All() {
		dropped := m.registry.DeleteIf(s.ID(), func(cur *editor.Session) bool {
			if !cur.UpdatedAt().Before(before) {
				return false
			}
			return !volatile || !cur.Dirty()
		})
		if !dropped {
			continue
		}
		// Out of the registry the draft can no longer change through this process.
		if !volatile {
			if err := m.snapshots.Save(ctx, s.Draft()); err != nil {
				m.logger.Warn().Err(err).Str("session_id", s.ID()).Msg("snapshot before eviction failed")
				m.registry.GetOrPut(s)
				continue
			}
		}
		m.metrics.SessionClosed()
		evicted++
	}
	return evicted
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	return m.registry.Len()
}
