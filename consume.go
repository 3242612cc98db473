package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/muhammadolammi/interviewworker/internal/database"
	"github.com/muhammadolammi/interviewworker/internal/interview"
	"github.com/muhammadolammi/interviewworker/internal/llm"
	"github.com/muhammadolammi/interviewworker/internal/roles"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	jobsQueue = "interview_jobs"

	attachmentResume     = "resume"
	attachmentTranscript = "transcript"
)

var retryBackoff = 500 * time.Millisecond

// retry retries a function up to `attempts` times with linear backoff.
// It gives up early once ctx is done.
func retry[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("gave up after %d of %d attempts: %w (last error: %v)", i+1, attempts, ctx.Err(), lastErr)
		case <-time.After(retryBackoff * time.Duration(i+1)):
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

type sessionStore interface {
	GetInterviewSession(ctx context.Context, id uuid.UUID) (database.InterviewSession, error)
	GetAttachmentsBySession(ctx context.Context, arg database.GetAttachmentsBySessionParams) ([]database.Attachment, error)
	UpdateSessionProgress(ctx context.Context, arg database.UpdateSessionProgressParams) error
	GetInterviewResult(ctx context.Context, sessionID uuid.UUID) (database.InterviewResult, error)
	UpsertQuestions(ctx context.Context, arg database.UpsertQuestionsParams) error
	UpsertEvaluation(ctx context.Context, arg database.UpsertEvaluationParams) error
}

type objectFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

type updatePublisher interface {
	Publish(update SessionUpdate) error
}

// interviewer processes jobs for one consumer.
type interviewer struct {
	db        sessionStore
	objects   objectFetcher
	publisher updatePublisher
	gen       *generator
	roles     *roles.Catalog
	logger    *zap.Logger
}

func (wc *WorkerConfig) newInterviewer(pub updatePublisher) *interviewer {
	return &interviewer{
		db:        wc.DB,
		objects:   wc.Objects,
		publisher: pub,
		gen:       wc.Generator,
		roles:     wc.Roles,
		logger:    wc.Logger,
	}
}

func (iv *interviewer) publish(job InterviewJob, status string, step interview.Step, message string, partial json.RawMessage) {
	err := iv.publisher.Publish(SessionUpdate{
		SessionID: job.SessionID,
		Kind:      job.Kind,
		Status:    status,
		Step:      step,
		Message:   message,
		Partial:   partial,
		Timestamp: time.Now(),
	})
	if err != nil {
		iv.logger.Warn("failed to publish update", zap.String("session_id", job.SessionID.String()), zap.Error(err))
	}
}

func (iv *interviewer) setProgress(ctx context.Context, id uuid.UUID, status string, step interview.Step) error {
	_, err := retry(ctx, 3, func() (any, error) {
		return nil, iv.db.UpdateSessionProgress(ctx, database.UpdateSessionProgressParams{
			Status: status,
			Step:   string(step),
			ID:     id,
		})
	})
	return err
}

// handle runs one job. The session moves to the busy step for the call and
// returns to the step it started from when the call fails.
func (iv *interviewer) handle(ctx context.Context, job InterviewJob) error {
	if job.Mode == "" {
		job.Mode = interview.ModeGenerate
	}
	if !job.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", job.Mode)
	}

	sess, err := iv.db.GetInterviewSession(ctx, job.SessionID)
	if err != nil {
		return fmt.Errorf("error getting session %v: %w", job.SessionID, err)
	}
	from := interview.Step(sess.Step)
	if from == "" {
		from = interview.StepSetup
	}

	var ev interview.Event
	switch job.Kind {
	case JobQuestions:
		ev = interview.EventGenerate
	case JobEvaluation:
		ev = interview.EventEvaluate
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
	busy, err := interview.Transition(from, ev)
	if err != nil {
		iv.publish(job, statusFailed, from, err.Error(), nil)
		return err
	}

	role, err := iv.roles.Find(sess.RoleID)
	if err != nil {
		iv.publish(job, statusFailed, from, err.Error(), nil)
		return err
	}

	if err := iv.setProgress(ctx, sess.ID, statusProcessing, busy); err != nil {
		return fmt.Errorf("failed to update session progress: %w", err)
	}
	iv.publish(job, statusProcessing, busy, fmt.Sprintf("%s started", job.Kind), nil)

	sink := progress{
		partial: func(partial json.RawMessage) {
			iv.publish(job, statusStreaming, busy, "", partial)
		},
		// Subscribers drop the partial they hold when they see this.
		restart: func(attempt int) {
			iv.publish(job, statusProcessing, busy, fmt.Sprintf("retrying %s (attempt %d)", job.Kind, attempt), nil)
		},
	}

	var result json.RawMessage
	switch job.Kind {
	case JobQuestions:
		result, err = iv.runQuestions(ctx, sess, job, role, sink)
	case JobEvaluation:
		result, err = iv.runEvaluation(ctx, sess, job, role, sink)
	}
	if err != nil {
		if perr := iv.setProgress(ctx, sess.ID, statusFailed, from); perr != nil {
			iv.logger.Error("failed to restore session step", zap.String("session_id", sess.ID.String()), zap.Error(perr))
		}
		iv.publish(job, statusFailed, from, err.Error(), nil)
		return err
	}

	done, err := interview.Transition(busy, doneEvent(job.Kind))
	if err != nil {
		return err
	}
	if err := iv.setProgress(ctx, sess.ID, statusCompleted, done); err != nil {
		return fmt.Errorf("failed to update session progress: %w", err)
	}
	iv.publish(job, statusCompleted, done, fmt.Sprintf("%s completed", job.Kind), result)
	return nil
}

func doneEvent(kind JobKind) interview.Event {
	if kind == JobEvaluation {
		return interview.EventEvaluated
	}
	return interview.EventGenerated
}

func (iv *interviewer) runQuestions(ctx context.Context, sess database.InterviewSession, job InterviewJob, role roles.Role, sink progress) (json.RawMessage, error) {
	resumes, err := iv.attachments(ctx, sess.ID, attachmentResume)
	if err != nil {
		return nil, err
	}
	if len(resumes) == 0 {
		return nil, errors.New("no resume uploaded for session")
	}

	in := questionInput{
		Role:              role,
		JD:                sess.JdContent,
		ExtraRequirements: sess.ExtraRequirements,
		Feedback:          job.Feedback,
		Mode:              job.Mode,
		Resumes:           resumes,
	}
	if job.Mode == interview.ModeContinue {
		stored, err := iv.storedResult(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		if err := unmarshalStored(stored.Questions, &in.Previous); err != nil {
			return nil, fmt.Errorf("stored questions: %w", err)
		}
	}

	questions, err := iv.gen.generateQuestions(ctx, in, sink)
	if err != nil {
		return nil, err
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal questions: %w", err)
	}
	_, err = retry(ctx, 3, func() (any, error) {
		return nil, iv.db.UpsertQuestions(ctx, database.UpsertQuestionsParams{
			Questions: questionsJSON,
			SessionID: sess.ID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save questions after retries: %w", err)
	}
	iv.logger.Info("questions generated",
		zap.String("session_id", sess.ID.String()),
		zap.Int("count", len(questions)),
		zap.String("mode", string(job.Mode)),
	)
	return questionsJSON, nil
}

func (iv *interviewer) runEvaluation(ctx context.Context, sess database.InterviewSession, job InterviewJob, role roles.Role, sink progress) (json.RawMessage, error) {
	stored, err := iv.storedResult(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	in := evaluationInput{
		Role:       role,
		JD:         sess.JdContent,
		Transcript: sess.Transcript,
		Feedback:   job.Feedback,
		Mode:       job.Mode,
	}
	if err := unmarshalStored(stored.Questions, &in.Questions); err != nil {
		return nil, fmt.Errorf("stored questions: %w", err)
	}
	if len(in.Questions) == 0 {
		return nil, interview.ErrNoQuestions
	}

	in.Files, err = iv.attachments(ctx, sess.ID, attachmentTranscript)
	if err != nil {
		return nil, err
	}
	if sess.Transcript == "" && len(in.Files) == 0 {
		return nil, errors.New("no interview transcript provided")
	}

	if job.Mode == interview.ModeContinue {
		var prev *interview.Evaluation
		if err := unmarshalStored(stored.Evaluation, &prev); err != nil {
			return nil, fmt.Errorf("stored evaluation: %w", err)
		}
		in.Previous = prev
	}

	evaluation, err := iv.gen.evaluate(ctx, in, sink)
	if err != nil {
		return nil, err
	}

	evaluationJSON, err := json.Marshal(evaluation)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluation: %w", err)
	}
	_, err = retry(ctx, 3, func() (any, error) {
		return nil, iv.db.UpsertEvaluation(ctx, database.UpsertEvaluationParams{
			Evaluation: evaluationJSON,
			SessionID:  sess.ID,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save evaluation after retries: %w", err)
	}
	iv.logger.Info("candidate evaluated",
		zap.String("session_id", sess.ID.String()),
		zap.String("recommendation", string(evaluation.HiringRecommendation)),
		zap.String("mode", string(job.Mode)),
	)
	return evaluationJSON, nil
}

func (iv *interviewer) storedResult(ctx context.Context, id uuid.UUID) (database.InterviewResult, error) {
	res, err := iv.db.GetInterviewResult(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return database.InterviewResult{}, nil
	}
	if err != nil {
		return database.InterviewResult{}, fmt.Errorf("error getting stored result: %w", err)
	}
	return res, nil
}

func unmarshalStored(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// attachments downloads and prepares every file of the given kind.
func (iv *interviewer) attachments(ctx context.Context, sessionID uuid.UUID, kind string) ([]llm.Attachment, error) {
	rows, err := iv.db.GetAttachmentsBySession(ctx, database.GetAttachmentsBySessionParams{
		SessionID: sessionID,
		Kind:      kind,
	})
	if err != nil {
		return nil, fmt.Errorf("error getting %s files for session %v: %w", kind, sessionID, err)
	}

	out := make([]llm.Attachment, 0, len(rows))
	for _, row := range rows {
		data, err := retry(ctx, 3, func() ([]byte, error) {
			return iv.objects.Fetch(ctx, row.ObjectKey)
		})
		if err != nil {
			return nil, fmt.Errorf("file download error for %s: %w", row.OriginalFilename, err)
		}
		a, err := loadAttachment(row.OriginalFilename, row.Mime, data)
		if err != nil {
			return nil, fmt.Errorf("text extraction error: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func worker(id int, workerConfig *WorkerConfig, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := workerConfig.Logger.With(zap.Int("worker", id+1))

	//    to consume message on the queue
	conn, err := amqp.Dial(workerConfig.RABBITMQUrl)
	if err != nil {
		logger.Fatal("error dialling rabbitmq", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("error connecting to rabbitmq channel", zap.Error(err))
	}
	defer ch.Close()
	_, err = ch.QueueDeclare(
		jobsQueue, // queue name
		true,      // durable (survives broker restarts)
		false,     // auto-delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		logger.Fatal("failed to declare queue", zap.Error(err))
	}

	msgs, err := ch.Consume(
		jobsQueue, // queue name
		"",        // consumer tag
		true,      // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		logger.Fatal("error consuming rabbitmq message", zap.Error(err))
	}

	pub, err := newAMQPPublisher(workerConfig.RabbitConn)
	if err != nil {
		logger.Fatal("error opening publish channel", zap.Error(err))
	}
	defer pub.Close()
	iv := workerConfig.newInterviewer(pub)
	iv.logger = logger

	for msg := range msgs {
		job := InterviewJob{}
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			logger.Error("error unmarshalling message body", zap.Error(err))
			continue
		}
		logger.Info("processing job",
			zap.String("session_id", job.SessionID.String()),
			zap.String("kind", string(job.Kind)),
		)
		if err := iv.handle(context.Background(), job); err != nil {
			logger.Error("job failed",
				zap.String("session_id", job.SessionID.String()),
				zap.String("kind", string(job.Kind)),
				zap.Error(err),
			)
		}
	}
}

// StartConsumerWorkerPool starts n consumers and blocks until they exit.
func (wc *WorkerConfig) StartConsumerWorkerPool(n int) error {
	ch, err := wc.RabbitConn.Channel()
	if err != nil {
		return fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	if err := declareUpdatesExchange(ch); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare %s exchange: %w", sessionUpdatesExchange, err)
	}
	ch.Close()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go worker(i, wc, &wg)
	}
	wg.Wait()
	return nil
}
