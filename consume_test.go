package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/muhammadolammi/interviewworker/internal/database"
	"github.com/muhammadolammi/interviewworker/internal/interview"
	"github.com/muhammadolammi/interviewworker/internal/roles"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]database.InterviewSession
	attachments []database.Attachment
	results     map[uuid.UUID]database.InterviewResult
	progress    []database.UpdateSessionProgressParams
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[uuid.UUID]database.InterviewSession{},
		results:  map[uuid.UUID]database.InterviewResult{},
	}
}

func (s *fakeStore) GetInterviewSession(_ context.Context, id uuid.UUID) (database.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return database.InterviewSession{}, sql.ErrNoRows
	}
	return sess, nil
}

func (s *fakeStore) GetAttachmentsBySession(_ context.Context, arg database.GetAttachmentsBySessionParams) ([]database.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Attachment
	for _, a := range s.attachments {
		if a.SessionID == arg.SessionID && a.Kind == arg.Kind {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateSessionProgress(_ context.Context, arg database.UpdateSessionProgressParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, arg)
	sess := s.sessions[arg.ID]
	sess.Status, sess.Step = arg.Status, arg.Step
	s.sessions[arg.ID] = sess
	return nil
}

func (s *fakeStore) GetInterviewResult(_ context.Context, id uuid.UUID) (database.InterviewResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	if !ok {
		return database.InterviewResult{}, sql.ErrNoRows
	}
	return res, nil
}

func (s *fakeStore) UpsertQuestions(_ context.Context, arg database.UpsertQuestionsParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[arg.SessionID] = database.InterviewResult{
		SessionID:  arg.SessionID,
		Questions:  arg.Questions,
		Evaluation: json.RawMessage("null"),
	}
	return nil
}

func (s *fakeStore) UpsertEvaluation(_ context.Context, arg database.UpsertEvaluationParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[arg.SessionID]
	if !ok {
		return fmt.Errorf("no result row for %s", arg.SessionID)
	}
	res.Evaluation = arg.Evaluation
	s.results[arg.SessionID] = res
	return nil
}

type fakeObjects map[string][]byte

func (f fakeObjects) Fetch(_ context.Context, key string) ([]byte, error) {
	data, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return data, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	updates []SessionUpdate
}

func (p *fakePublisher) Publish(u SessionUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
	return nil
}

func (p *fakePublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.updates))
	for _, u := range p.updates {
		out = append(out, u.Status)
	}
	return out
}

type harness struct {
	store    *fakeStore
	objects  fakeObjects
	pub      *fakePublisher
	provider *fakeProvider
	iv       *interviewer
	session  database.InterviewSession
}

func newHarness(t *testing.T, step interview.Step, replies ...string) *harness {
	t.Helper()
	noBackoff(t)
	h := &harness{
		store:    newFakeStore(),
		objects:  fakeObjects{},
		pub:      &fakePublisher{},
		provider: &fakeProvider{replies: replies, chunk: 9},
	}
	h.session = database.InterviewSession{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		RoleID:    "cto",
		JdContent: "Backend Systems Architect: Go and Kubernetes.",
		Step:      string(step),
		Status:    "pending",
	}
	h.store.sessions[h.session.ID] = h.session

	wc := &WorkerConfig{
		DB:        h.store,
		Objects:   h.objects,
		Generator: newGenerator(h.provider, "m", zap.NewNop()),
		Roles:     roles.Default(),
		Logger:    zap.NewNop(),
	}
	h.iv = wc.newInterviewer(h.pub)
	return h
}

func (h *harness) addFile(kind, name, mime, content string) {
	key := "uploads/" + h.session.ID.String() + "/" + name
	h.objects[key] = []byte(content)
	h.store.attachments = append(h.store.attachments, database.Attachment{
		ID:               uuid.New(),
		SessionID:        h.session.ID,
		Kind:             kind,
		OriginalFilename: name,
		Mime:             mime,
		SizeBytes:        int64(len(content)),
		ObjectKey:        key,
	})
}

func (h *harness) steps() []string {
	var out []string
	for _, p := range h.store.progress {
		out = append(out, p.Status+":"+p.Step)
	}
	return out
}

func TestHandleQuestionsJob(t *testing.T) {
	h := newHarness(t, interview.StepSetup,
		mustMarshal(t, []interview.Question{sampleQuestion("q1"), sampleQuestion("q2")}))
	h.addFile(attachmentResume, "cv.txt", mimePlain, "Ten years of Go at scale.")

	err := h.iv.handle(context.Background(), InterviewJob{SessionID: h.session.ID, Kind: JobQuestions})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	want := []string{"processing:ANALYZING", "completed:QUESTIONS"}
	if got := h.steps(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("progress = %v, want %v", got, want)
	}

	var stored []interview.Question
	if err := json.Unmarshal(h.store.results[h.session.ID].Questions, &stored); err != nil {
		t.Fatalf("stored questions: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored questions, got %d", len(stored))
	}

	statuses := h.pub.statuses()
	if statuses[0] != statusProcessing || statuses[len(statuses)-1] != statusCompleted {
		t.Fatalf("unexpected update sequence %v", statuses)
	}
	streaming := 0
	for _, s := range statuses {
		if s == statusStreaming {
			streaming++
		}
	}
	if streaming == 0 {
		t.Fatalf("expected streaming updates, got %v", statuses)
	}
	last := h.pub.updates[len(h.pub.updates)-1]
	if last.Step != interview.StepQuestions || len(last.Partial) == 0 {
		t.Fatalf("completed update should carry the step and result: %#v", last)
	}

	req := h.provider.requests[0]
	cto, _ := roles.Default().Find("cto")
	if req.System != cto.Prompts.Question {
		t.Fatalf("expected the session's role prompt")
	}
	if len(req.Attachments) != 1 || req.Attachments[0].Text != "Ten years of Go at scale." {
		t.Fatalf("unexpected attachments %#v", req.Attachments)
	}
}

func TestHandleQuestionsRequiresResume(t *testing.T) {
	h := newHarness(t, interview.StepSetup, "[]")

	err := h.iv.handle(context.Background(), InterviewJob{SessionID: h.session.ID, Kind: JobQuestions})
	if err == nil || !strings.Contains(err.Error(), "no resume") {
		t.Fatalf("expected missing resume error, got %v", err)
	}
	if h.provider.calls() != 0 {
		t.Fatalf("model should not be called without a resume")
	}
	if got := h.store.sessions[h.session.ID].Step; got != string(interview.StepSetup) {
		t.Fatalf("expected step to fall back to SETUP, got %s", got)
	}
}

func TestHandleEvaluationFailureRestoresStep(t *testing.T) {
	h := newHarness(t, interview.StepTranscriptUpload, "The candidate was great overall")
	h.store.results[h.session.ID] = database.InterviewResult{
		SessionID:  h.session.ID,
		Questions:  json.RawMessage(mustMarshal(t, []interview.Question{sampleQuestion("q1")})),
		Evaluation: json.RawMessage("null"),
	}
	h.addFile(attachmentTranscript, "interview.txt", mimePlain, "Q: hi\nA: hello")

	err := h.iv.handle(context.Background(), InterviewJob{SessionID: h.session.ID, Kind: JobEvaluation})
	if !errors.Is(err, ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
	want := []string{"processing:EVALUATING", "failed:TRANSCRIPT_UPLOAD"}
	if got := h.steps(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("progress = %v, want %v", got, want)
	}
	statuses := h.pub.statuses()
	if statuses[len(statuses)-1] != statusFailed {
		t.Fatalf("expected a failed update last, got %v", statuses)
	}
	if string(h.store.results[h.session.ID].Evaluation) != "null" {
		t.Fatalf("failed evaluation must not be stored")
	}
}

func TestHandleEvaluationJob(t *testing.T) {
	h := newHarness(t, interview.StepQuestions, mustMarshal(t, sampleEvaluation()))
	h.session.Transcript = "Interviewer: tell me about sharding.\nCandidate: consistent hashing..."
	h.store.sessions[h.session.ID] = h.session
	h.store.results[h.session.ID] = database.InterviewResult{
		SessionID:  h.session.ID,
		Questions:  json.RawMessage(mustMarshal(t, []interview.Question{sampleQuestion("q1")})),
		Evaluation: json.RawMessage("null"),
	}

	err := h.iv.handle(context.Background(), InterviewJob{SessionID: h.session.ID, Kind: JobEvaluation})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := []string{"processing:EVALUATING", "completed:RESULTS"}
	if got := h.steps(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("progress = %v, want %v", got, want)
	}
	var e interview.Evaluation
	if err := json.Unmarshal(h.store.results[h.session.ID].Evaluation, &e); err != nil {
		t.Fatalf("stored evaluation: %v", err)
	}
	if e.HiringRecommendation != interview.RecommendHire {
		t.Fatalf("unexpected stored evaluation %#v", e)
	}
	if !strings.Contains(h.provider.requests[0].Prompt, "consistent hashing") {
		t.Fatalf("prompt should carry the transcript")
	}
}

func TestHandleEvaluationRequiresQuestions(t *testing.T) {
	h := newHarness(t, interview.StepQuestions, "{}")
	h.session.Transcript = "t"
	h.store.sessions[h.session.ID] = h.session

	err := h.iv.handle(context.Background(), InterviewJob{SessionID: h.session.ID, Kind: JobEvaluation})
	if !errors.Is(err, interview.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if got := h.store.sessions[h.session.ID].Step; got != string(interview.StepQuestions) {
		t.Fatalf("expected step to stay QUESTIONS, got %s", got)
	}
}

func TestHandleRejectsIllegalTransition(t *testing.T) {
	h := newHarness(t, interview.StepAnalyzing, "[]")

	err := h.iv.handle(context.Background(), InterviewJob{SessionID: h.session.ID, Kind: JobQuestions})
	if !errors.Is(err, interview.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if len(h.store.progress) != 0 {
		t.Fatalf("session must not move: %v", h.steps())
	}
	if h.pub.statuses()[0] != statusFailed {
		t.Fatalf("expected a failed update")
	}
}

func TestHandleRejectsBadJobs(t *testing.T) {
	h := newHarness(t, interview.StepSetup, "[]")
	tests := []struct {
		name string
		job  InterviewJob
	}{
		{"unknown kind", InterviewJob{SessionID: h.session.ID, Kind: "summary"}},
		{"unknown mode", InterviewJob{SessionID: h.session.ID, Kind: JobQuestions, Mode: "append"}},
		{"unknown session", InterviewJob{SessionID: uuid.New(), Kind: JobQuestions}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.iv.handle(context.Background(), tt.job); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
	if h.provider.calls() != 0 {
		t.Fatalf("model should not be called for rejected jobs")
	}
}

func TestRetry(t *testing.T) {
	noBackoff(t)
	calls := 0
	ctx := context.Background()
	got, err := retry(ctx, 3, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil || got != 42 || calls != 3 {
		t.Fatalf("retry = %d, %v after %d calls", got, err, calls)
	}

	_, err = retry(ctx, 2, func() (int, error) { return 0, sql.ErrConnDone })
	if !errors.Is(err, sql.ErrConnDone) || !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRetryStopsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retry(ctx, 5, func() (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no further attempts after cancel, got %d calls", calls)
	}
}

func TestHandleRetryAnnouncesRestart(t *testing.T) {
	bad := sampleQuestion("q1")
	bad.Difficulty = "Trivial"
	h := newHarness(t, interview.StepSetup,
		mustMarshal(t, []interview.Question{bad}),
		mustMarshal(t, []interview.Question{sampleQuestion("q1"), sampleQuestion("q2")}))
	h.addFile(attachmentResume, "cv.txt", mimePlain, "Ten years of Go at scale.")

	err := h.iv.handle(context.Background(), InterviewJob{SessionID: h.session.ID, Kind: JobQuestions})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if h.provider.calls() != 2 {
		t.Fatalf("expected 2 model calls, got %d", h.provider.calls())
	}

	restart := -1
	for i, u := range h.pub.updates {
		if u.Status == statusProcessing && u.Message == "retrying questions (attempt 2)" {
			restart = i
		}
	}
	if restart < 0 {
		t.Fatalf("expected a retrying update, got %v", h.pub.statuses())
	}
	if len(h.pub.updates[restart].Partial) != 0 {
		t.Fatalf("retrying update must not carry a partial")
	}
	before, after := 0, 0
	for i, u := range h.pub.updates {
		if u.Status != statusStreaming {
			continue
		}
		if i < restart {
			before++
		} else {
			after++
		}
	}
	if before == 0 || after == 0 {
		t.Fatalf("expected streaming on both sides of the restart, got %v", h.pub.statuses())
	}
}
