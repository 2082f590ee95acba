package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/tarea-editor/internal/auth"
	"github.com/gokatarajesh/tarea-editor/internal/document"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
)

type documentStore interface {
	ListDocumentVersions(ctx context.Context, tareaID int32) ([]int32, error)
	GetDocumentPayload(ctx context.Context, tareaID, version int32) ([]byte, error)
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error
	DeleteDocument(ctx context.Context, tareaID, version int32) (int64, error)
}

// DocumentRepository keeps question documents in Postgres, one row per tarea version.
type DocumentRepository struct {
	store documentStore
	now   func() time.Time
}

func NewDocumentRepository(store documentStore) *DocumentRepository {
	return &DocumentRepository{store: store, now: time.Now}
}

var _ editor.Store = (*DocumentRepository)(nil)

func (r *DocumentRepository) ListVersions(ctx context.Context, tareaID int) ([]int, error) {
	rows, err := r.store.ListDocumentVersions(ctx, int32(tareaID))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	versions := make([]int, 0, len(rows))
	for _, v := range rows {
		versions = append(versions, int(v))
	}
	return versions, nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, tareaID, version int) (document.Document, error) {
	payload, err := r.store.GetDocumentPayload(ctx, int32(tareaID), int32(version))
	if errors.Is(err, pgx.ErrNoRows) {
		return document.Document{}, editor.ErrNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("get document: %w", err)
	}
	doc, err := document.Decode(payload)
	if err != nil {
		return document.Document{}, fmt.Errorf("decode stored document: %w", err)
	}
	// The row key wins over whatever version the payload carries.
	doc.Version = version
	return doc, nil
}

// PutDocument upserts the row for doc.Version and records the operator from ctx.
func (r *DocumentRepository) PutDocument(ctx context.Context, tareaID int, doc document.Document) error {
	if doc.Version < 1 {
		return editor.ErrInvalidVersion
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	operator, _ := auth.OperatorFromContext(ctx)
	err = r.store.UpsertDocument(ctx, UpsertDocumentParams{
		TareaID:   int32(tareaID),
		Version:   int32(doc.Version),
		Payload:   payload,
		UpdatedBy: operator,
		UpdatedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteDocument(ctx context.Context, tareaID, version int) error {
	n, err := r.store.DeleteDocument(ctx, int32(tareaID), int32(version))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return editor.ErrNotFound
	}
	return nil
}
