package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/muhammadolammi/interviewworker/internal/interview"
	"github.com/muhammadolammi/interviewworker/internal/llm"
	"github.com/muhammadolammi/interviewworker/internal/partialjson"
	"go.uber.org/zap"
)

var ErrUndecodable = errors.New("model output is not valid JSON")

const (
	streamAttempts     = 2
	defaultTemperature = 0.4
)

// generator runs one streamed model call and turns its text into a
// validated result, reporting partial results as they decode.
type generator struct {
	provider    llm.Provider
	model       string
	temperature float32
	logger      *zap.Logger
}

func newGenerator(p llm.Provider, model string, logger *zap.Logger) *generator {
	return &generator{provider: p, model: model, temperature: defaultTemperature, logger: logger}
}

// stream runs req and returns the full text. Every new partial value is
// handed to sink. A failed attempt, including one whose final text does not
// pass check, is retried from scratch and the sink is told to restart.
func (g *generator) stream(ctx context.Context, req llm.Request, sink progress, check func(string) error) (string, error) {
	snap := newSnapshotter(sink)
	return retry(ctx, streamAttempts, func() (string, error) {
		snap.reset()
		events, err := g.provider.StreamChat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("failed to start stream: %w", err)
		}
		text, err := llm.Drain(ctx, events, snap.observe)
		if err != nil {
			return "", err
		}
		if err := check(text); err != nil {
			g.logger.Warn("model output rejected",
				zap.Error(err),
				zap.Int("bytes", len(text)),
			)
			return "", err
		}
		g.logger.Debug("stream finished", zap.Int("bytes", len(text)), zap.Int("snapshots", snap.sent))
		return text, nil
	})
}

// decodeFinal is where an undecodable buffer stops being "not yet" and
// becomes an error.
func decodeFinal[T any](text string) (T, error) {
	v, ok := partialjson.DecodeAs[T](text)
	if !ok {
		return v, fmt.Errorf("%w (%d bytes received)", ErrUndecodable, len(text))
	}
	return v, nil
}

func (g *generator) generateQuestions(ctx context.Context, in questionInput, sink progress) ([]interview.Question, error) {
	req := llm.Request{
		Model:       g.model,
		System:      in.Role.Prompts.Question,
		Prompt:      buildQuestionPrompt(in),
		Attachments: in.Resumes,
		Temperature: g.temperature,
	}

	var questions []interview.Question
	_, err := g.stream(ctx, req, sink, func(text string) error {
		qs, err := decodeFinal[[]interview.Question](text)
		if err != nil {
			return err
		}
		if err := interview.ValidateQuestions(qs); err != nil {
			return err
		}
		questions = qs
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.Mode == interview.ModeContinue {
		questions = interview.AppendQuestions(in.Previous, questions)
	}
	return questions, nil
}

func (g *generator) evaluate(ctx context.Context, in evaluationInput, sink progress) (interview.Evaluation, error) {
	req := llm.Request{
		Model:       g.model,
		System:      in.Role.Prompts.Evaluation,
		Prompt:      buildEvaluationPrompt(in),
		Attachments: in.Files,
		Temperature: g.temperature,
	}

	var evaluation interview.Evaluation
	_, err := g.stream(ctx, req, sink, func(text string) error {
		e, err := decodeFinal[interview.Evaluation](text)
		if err != nil {
			return err
		}
		if err := interview.ValidateEvaluation(e); err != nil {
			return err
		}
		evaluation = e
		return nil
	})
	if err != nil {
		return interview.Evaluation{}, err
	}

	if in.Mode == interview.ModeContinue && in.Previous != nil {
		evaluation = interview.AppendEvaluation(*in.Previous, evaluation)
	}
	return evaluation, nil
}
