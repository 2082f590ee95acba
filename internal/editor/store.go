package editor

import (
	"context"
	"errors"

	"github.com/gokatarajesh/tarea-editor/internal/document"
)

var (
	// ErrNotFound is returned by a Store when the requested version does not exist.
	ErrNotFound = errors.New("document version not found")
	// ErrAuthExpired is returned by a Store when the operator credential was rejected.
	ErrAuthExpired = errors.New("operator credential expired")

	ErrUnsavedChanges     = errors.New("session has unsaved changes")
	ErrWrongMode          = errors.New("operation not available in the active mode")
	ErrBlockIndex         = errors.New("block index out of range")
	ErrWrongBlockType     = errors.New("command does not apply to this block type")
	ErrInvalidCommand     = errors.New("invalid command")
	ErrInvalidPermutation = errors.New("invalid block permutation")
	ErrInvalidVersion     = errors.New("version must be a positive integer")
	ErrClosed             = errors.New("session is closed")
)

// Store is the persistence boundary holding every stored version of a tarea's
// question document. The operator credential travels in ctx.
type Store interface {
	ListVersions(ctx context.Context, tareaID int) ([]int, error)
	GetDocument(ctx context.Context, tareaID, version int) (document.Document, error)
	PutDocument(ctx context.Context, tareaID int, doc document.Document) error
	DeleteDocument(ctx context.Context, tareaID, version int) error
}

// Level is the severity of an operator notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message for the operator (a toast).
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier delivers notifications to whoever is driving a session.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, n Notification)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, Notification) {}
