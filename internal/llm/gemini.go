package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const (
	geminiAppName = "interview_assistant"
	geminiUserID  = "recruiter"
	// Passed as the agent instruction. The role prompt travels in the user
	// content because agent instructions are templated against session
	// state and role prompts may contain JSON braces.
	geminiInstruction = "Follow the interviewer brief in the user message. Answer with JSON only."
)

// Gemini streams through an ADK llm agent backed by a Gemini model.
type Gemini struct {
	model    model.LLM
	sessions session.Service
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	m, err := gemini.NewModel(ctx, cfg.Model, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return &Gemini{model: m, sessions: session.InMemoryService()}, nil
}

func (g *Gemini) StreamChat(ctx context.Context, req Request) (<-chan TokenEvent, error) {
	a, err := llmagent.New(llmagent.Config{
		Name:        geminiAppName,
		Model:       g.model,
		Description: "Interview question generation and candidate evaluation",
		Instruction: geminiInstruction,
		GenerateContentConfig: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr(req.Temperature),
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	r, err := runner.New(runner.Config{
		AppName:        geminiAppName,
		Agent:          a,
		SessionService: g.sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	created, err := g.sessions.Create(ctx, &session.CreateRequest{
		AppName:   geminiAppName,
		UserID:    geminiUserID,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess := created.Session

	ch := make(chan TokenEvent, 32)
	go func() {
		defer close(ch)
		defer g.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   sess.AppName(),
			UserID:    sess.UserID(),
			SessionID: sess.ID(),
		})

		streamed := false
		events := r.Run(ctx, sess.UserID(), sess.ID(), geminiContent(req), agent.RunConfig{
			StreamingMode: agent.StreamingModeSSE,
		})
		for event, err := range events {
			if err != nil {
				send(ctx, ch, TokenEvent{Err: err})
				return
			}
			if event == nil || event.Content == nil {
				continue
			}
			text := partsText(event.Content.Parts)
			switch {
			case event.Partial:
				streamed = true
			case streamed || !event.IsFinalResponse():
				// the final event repeats the aggregated partials
				continue
			}
			if text != "" && !send(ctx, ch, TokenEvent{Delta: text}) {
				return
			}
		}
		send(ctx, ch, TokenEvent{Done: true})
	}()
	return ch, nil
}

func geminiContent(req Request) *genai.Content {
	prompt := userText(req)
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}
	parts := []*genai.Part{{Text: prompt}}
	for _, a := range req.Attachments {
		if a.Text != "" || len(a.Data) == 0 {
			continue
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: a.MIMEType, Data: a.Data}})
	}
	return &genai.Content{Role: "user", Parts: parts}
}

func partsText(parts []*genai.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
