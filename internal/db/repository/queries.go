package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the document statements against a pgx connection.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const listDocumentVersions = `
SELECT version FROM tarea_question_documents
WHERE tarea_id = $1
ORDER BY version`

func (q *Queries) ListDocumentVersions(ctx context.Context, tareaID int32) ([]int32, error) {
	rows, err := q.db.Query(ctx, listDocumentVersions, tareaID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int32])
}

const getDocumentPayload = `
SELECT payload FROM tarea_question_documents
WHERE tarea_id = $1 AND version = $2`

func (q *Queries) GetDocumentPayload(ctx context.Context, tareaID, version int32) ([]byte, error) {
	var payload []byte
	err := q.db.QueryRow(ctx, getDocumentPayload, tareaID, version).Scan(&payload)
	return payload, err
}

// UpsertDocumentParams are the columns written by UpsertDocument.
type UpsertDocumentParams struct {
	TareaID   int32
	Version   int32
	Payload   []byte
	UpdatedBy string
	UpdatedAt time.Time
}

const upsertDocument = `
INSERT INTO tarea_question_documents (tarea_id, version, payload, updated_by, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tarea_id, version) DO UPDATE
SET payload = EXCLUDED.payload,
    updated_by = EXCLUDED.updated_by,
    updated_at = EXCLUDED.updated_at`

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocument, arg.TareaID, arg.Version, arg.Payload, arg.UpdatedBy, arg.UpdatedAt)
	return err
}

const deleteDocument = `
DELETE FROM tarea_question_documents
WHERE tarea_id = $1 AND version = $2`

// DeleteDocument returns the number of removed rows.
func (q *Queries) DeleteDocument(ctx context.Context, tareaID, version int32) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDocument, tareaID, version)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
