package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type InterviewSession struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Name              string
	RoleID            string
	JdTitle           string
	JdContent         string
	ExtraRequirements string
	Transcript        string
	Step              string
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Attachment struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	Kind             string
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	ObjectKey        string
	CreatedAt        time.Time
}

type InterviewResult struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Questions  json.RawMessage
	Evaluation json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
