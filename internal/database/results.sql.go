package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const getInterviewResult = `-- name: GetInterviewResult :one
SELECT id, session_id, questions, evaluation, created_at, updated_at FROM interview_results WHERE session_id=$1
`

func (q *Queries) GetInterviewResult(ctx context.Context, sessionID uuid.UUID) (InterviewResult, error) {
	row := q.db.QueryRowContext(ctx, getInterviewResult, sessionID)
	var i InterviewResult
	err := row.Scan(
		&i.ID,
		&i.SessionID,
		&i.Questions,
		&i.Evaluation,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertQuestions = `-- name: UpsertQuestions :exec
INSERT INTO interview_results (
questions, session_id)
VALUES ( $1, $2)
ON CONFLICT (session_id)
DO UPDATE SET
    questions = EXCLUDED.questions,
    evaluation = 'null',
    updated_at = CURRENT_TIMESTAMP
`

type UpsertQuestionsParams struct {
	Questions json.RawMessage
	SessionID uuid.UUID
}

// UpsertQuestions stores a question set and clears any evaluation made
// against the previous one.
func (q *Queries) UpsertQuestions(ctx context.Context, arg UpsertQuestionsParams) error {
	_, err := q.db.ExecContext(ctx, upsertQuestions, arg.Questions, arg.SessionID)
	return err
}

const upsertEvaluation = `-- name: UpsertEvaluation :exec
UPDATE interview_results
SET evaluation = $1,
    updated_at = CURRENT_TIMESTAMP
WHERE session_id = $2
`

type UpsertEvaluationParams struct {
	Evaluation json.RawMessage
	SessionID  uuid.UUID
}

func (q *Queries) UpsertEvaluation(ctx context.Context, arg UpsertEvaluationParams) error {
	_, err := q.db.ExecContext(ctx, upsertEvaluation, arg.Evaluation, arg.SessionID)
	return err
}
