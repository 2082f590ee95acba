package backend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Terminal statuses of an audio processing task.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// ErrPollLimit ends a watch that never reached a terminal status.
var ErrPollLimit = errors.New("audio processing did not finish in time")

// ProcessingStatus is the state of one audio transcoding task.
type ProcessingStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s ProcessingStatus) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailure
}

// StatusSource fetches task state. *Client implements it.
type StatusSource interface {
	ProcessingStatus(ctx context.Context, taskID string) (ProcessingStatus, error)
}

// WatchOutcome is reported once per watch when polling stops for any reason other
// than shutdown.
type WatchOutcome struct {
	TaskID string
	Owner  string
	Status ProcessingStatus
	Err    error
	Polls  int
}

// WatcherOptions configures a ProcessingWatcher.
type WatcherOptions struct {
	Interval time.Duration // default: 4 seconds
	MaxPolls int           // default: 150
	OnDone   func(WatchOutcome)
}

// ProcessingWatcher polls audio tasks at a fixed interval until they reach a terminal
// status. One task is watched at most once at a time; the first poll error ends the
// watch without retrying.
type ProcessingWatcher struct {
	source   StatusSource
	interval time.Duration
	maxPolls int
	onDone   func(WatchOutcome)
	logger   zerolog.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

func NewProcessingWatcher(source StatusSource, opts WatcherOptions, logger zerolog.Logger) *ProcessingWatcher {
	if opts.Interval <= 0 {
		opts.Interval = 4 * time.Second
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = 150
	}
	if opts.OnDone == nil {
		opts.OnDone = func(WatchOutcome) {}
	}
	return &ProcessingWatcher{
		source:   source,
		interval: opts.Interval,
		maxPolls: opts.MaxPolls,
		onDone:   opts.OnDone,
		logger:   logger.With().Str("component", "audio_processing_watcher").Logger(),
		active:   make(map[string]context.CancelFunc),
	}
}

// Watch starts polling taskID on behalf of owner and returns false when the task is
// already being watched. Values of ctx (the bearer token) are kept, its cancellation is not.
func (w *ProcessingWatcher) Watch(ctx context.Context, taskID, owner string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.active[taskID]; busy {
		return false
	}

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.active[taskID] = cancel
	w.wg.Add(1)
	go w.poll(pollCtx, taskID, owner)
	return true
}

// Active returns the number of tasks being watched.
func (w *ProcessingWatcher) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

// Shutdown stops every watch and waits for the pollers to exit.
func (w *ProcessingWatcher) Shutdown() {
	w.mu.Lock()
	for _, cancel := range w.active {
		cancel()
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *ProcessingWatcher) poll(ctx context.Context, taskID, owner string) {
	defer w.wg.Done()
	defer w.forget(taskID)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := w.source.ProcessingStatus(ctx, taskID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn().Err(err).Str("task_id", taskID).Msg("processing status poll failed")
			w.onDone(WatchOutcome{TaskID: taskID, Owner: owner, Err: err, Polls: polls})
			return
		case st.Terminal():
			w.logger.Info().Str("task_id", taskID).Str("status", st.Status).Int("polls", polls).Msg("audio processing finished")
			w.onDone(WatchOutcome{TaskID: taskID, Owner: owner, Status: st, Polls: polls})
			return
		case polls >= w.maxPolls:
			w.onDone(WatchOutcome{TaskID: taskID, Owner: owner, Status: st, Err: ErrPollLimit, Polls: polls})
			return
		}
	}
}

func (w *ProcessingWatcher) forget(taskID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cancel, ok := w.active[taskID]; ok {
		cancel()
		delete(w.active, taskID)
	}
}
