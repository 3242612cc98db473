package interview

import (
	"errors"
	"strings"
	"testing"
)

func validQuestion(id string) Question {
	return Question{
		ID:         id,
		Category:   "Technical depth",
		Scenario:   "Design a rate limiter for a multi-tenant API.",
		Intent:     "System design",
		KeyPoints:  []string{"token bucket", "fairness"},
		Difficulty: DifficultyAdvanced,
	}
}

func validEvaluation() Evaluation {
	return Evaluation{
		Summary:              "Solid engineer.",
		RadarData:            []RadarPoint{{Subject: "Go", A: 80, FullMark: 100}},
		Strengths:            []string{"Go"},
		Weaknesses:           []string{},
		HiringRecommendation: RecommendStrongHire,
		Reasoning:            "Clear answers.",
	}
}

func TestValidateQuestions(t *testing.T) {
	if err := ValidateQuestions([]Question{validQuestion("1"), validQuestion("2")}); err != nil {
		t.Fatalf("expected valid questions, got %v", err)
	}
	if err := ValidateQuestions(nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}

	bad := validQuestion("1")
	bad.Difficulty = "Impossible"
	if err := ValidateQuestions([]Question{bad}); err == nil {
		t.Fatalf("expected difficulty error")
	}

	missing := validQuestion("1")
	missing.Scenario = ""
	err := ValidateQuestions([]Question{validQuestion("0"), missing})
	if err == nil || !strings.Contains(err.Error(), "question 2") {
		t.Fatalf("expected error naming question 2, got %v", err)
	}

	if err := ValidateQuestions([]Question{validQuestion("1"), validQuestion("1")}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidateEvaluation(t *testing.T) {
	if err := ValidateEvaluation(validEvaluation()); err != nil {
		t.Fatalf("expected valid evaluation, got %v", err)
	}

	e := validEvaluation()
	e.HiringRecommendation = "Maybe"
	if err := ValidateEvaluation(e); err == nil {
		t.Fatalf("expected recommendation error")
	}

	e = validEvaluation()
	e.RadarData[0].A = 140
	if err := ValidateEvaluation(e); err == nil {
		t.Fatalf("expected score range error")
	}

	e = validEvaluation()
	e.RadarData = nil
	if err := ValidateEvaluation(e); err == nil {
		t.Fatalf("expected radar data error")
	}
}

func TestSchemas(t *testing.T) {
	q := SchemaText(QuestionSchema())
	for _, want := range []string{`"keyPoints"`, `"Expert"`, `"array"`} {
		if !strings.Contains(q, want) {
			t.Fatalf("question schema missing %s:\n%s", want, q)
		}
	}
	qs := QuestionSchema()
	if qs.Type != "array" || qs.Items == nil {
		t.Fatalf("question schema should be an array of items: %#v", qs)
	}
	if qs.Items.Version != "" || qs.Items.Properties == nil {
		t.Fatalf("item schema should be an inline object schema: %#v", qs.Items)
	}
	if _, ok := qs.Items.Properties.Get("difficulty"); !ok {
		t.Fatalf("item schema missing difficulty")
	}
	e := SchemaText(EvaluationSchema())
	for _, want := range []string{`"radarData"`, `"No Hire"`, `"fullMark"`} {
		if !strings.Contains(e, want) {
			t.Fatalf("evaluation schema missing %s:\n%s", want, e)
		}
	}
}
