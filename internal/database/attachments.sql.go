package database

import (
	"context"

	"github.com/google/uuid"
)

const getAttachmentsBySession = `-- name: GetAttachmentsBySession :many
SELECT id, session_id, kind, original_filename, mime, size_bytes, object_key, created_at FROM attachments WHERE session_id=$1 AND kind=$2 ORDER BY created_at
`

type GetAttachmentsBySessionParams struct {
	SessionID uuid.UUID
	Kind      string
}

func (q *Queries) GetAttachmentsBySession(ctx context.Context, arg GetAttachmentsBySessionParams) ([]Attachment, error) {
	rows, err := q.db.QueryContext(ctx, getAttachmentsBySession, arg.SessionID, arg.Kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Attachment
	for rows.Next() {
		var i Attachment
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.Kind,
			&i.OriginalFilename,
			&i.Mime,
			&i.SizeBytes,
			&i.ObjectKey,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
