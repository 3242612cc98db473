package main

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/muhammadolammi/interviewworker/internal/interview"
	"github.com/muhammadolammi/interviewworker/internal/llm"
	"github.com/muhammadolammi/interviewworker/internal/roles"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

type R2Config struct {
	AccountID string
	Bucket    string
	AccessKey string
	SecretKey string
}

// WorkerConfig is shared by every consumer in the pool.
type WorkerConfig struct {
	DB          sessionStore
	Objects     objectFetcher
	Generator   *generator
	Roles       *roles.Catalog
	RABBITMQUrl string
	RabbitConn  *amqp.Connection
	Logger      *zap.Logger
}

type JobKind string

const (
	JobQuestions  JobKind = "questions"
	JobEvaluation JobKind = "evaluation"
)

// InterviewJob is the queue message asking for one model call on a session.
type InterviewJob struct {
	SessionID uuid.UUID      `json:"session_id"`
	Kind      JobKind        `json:"kind"`
	Mode      interview.Mode `json:"mode"`
	Feedback  string         `json:"feedback"`
}

const (
	statusProcessing = "processing"
	statusStreaming  = "streaming"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// SessionUpdate is published on every status change and every new partial
// result of a running job.
type SessionUpdate struct {
	SessionID uuid.UUID       `json:"session_id"`
	Kind      JobKind         `json:"kind,omitempty"`
	Status    string          `json:"status"`
	Step      interview.Step  `json:"step,omitempty"`
	Message   string          `json:"message,omitempty"`
	Partial   json.RawMessage `json:"partial,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// questionInput is everything the question prompt is built from.
type questionInput struct {
	Role              roles.Role
	JD                string
	ExtraRequirements string
	Feedback          string
	Mode              interview.Mode
	Previous          []interview.Question
	Resumes           []llm.Attachment
}

// evaluationInput is everything the evaluation prompt is built from.
type evaluationInput struct {
	Role       roles.Role
	JD         string
	Questions  []interview.Question
	Transcript string
	Feedback   string
	Mode       interview.Mode
	Previous   *interview.Evaluation
	Files      []llm.Attachment
}
