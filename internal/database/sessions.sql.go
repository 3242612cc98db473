package database

import (
	"context"

	"github.com/google/uuid"
)

const getInterviewSession = `-- name: GetInterviewSession :one
SELECT id, user_id, name, role_id, jd_title, jd_content, extra_requirements, transcript, step, status, created_at, updated_at FROM interview_sessions WHERE id=$1
`

func (q *Queries) GetInterviewSession(ctx context.Context, id uuid.UUID) (InterviewSession, error) {
	row := q.db.QueryRowContext(ctx, getInterviewSession, id)
	var i InterviewSession
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.RoleID,
		&i.JdTitle,
		&i.JdContent,
		&i.ExtraRequirements,
		&i.Transcript,
		&i.Step,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateSessionProgress = `-- name: UpdateSessionProgress :exec
UPDATE interview_sessions
SET status=$1, step=$2, updated_at=CURRENT_TIMESTAMP
WHERE id=$3
`

type UpdateSessionProgressParams struct {
	Status string
	Step   string
	ID     uuid.UUID
}

func (q *Queries) UpdateSessionProgress(ctx context.Context, arg UpdateSessionProgressParams) error {
	_, err := q.db.ExecContext(ctx, updateSessionProgress, arg.Status, arg.Step, arg.ID)
	return err
}
