package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muhammadolammi/interviewworker/internal/interview"
)

const jsonOnly = `Return only valid JSON. Do not include explanations, markdown, or text before or after the JSON.`

// buildQuestionPrompt renders the user message of the question call.
func buildQuestionPrompt(in questionInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job Description (JD):\n%s\n\n", strings.TrimSpace(in.JD))
	if s := strings.TrimSpace(in.ExtraRequirements); s != "" {
		fmt.Fprintf(&b, "Extra requirements:\n%s\n\n", s)
	}

	switch in.Mode {
	case interview.ModeRegenerate:
		if s := strings.TrimSpace(in.Feedback); s != "" {
			fmt.Fprintf(&b, "The previous question set was rejected. Recruiter feedback:\n%s\n\n", s)
		}
	case interview.ModeContinue:
		if len(in.Previous) > 0 {
			fmt.Fprintf(&b, "Questions already prepared (do not repeat them):\n%s\n\n", scenarios(in.Previous))
		}
		if s := strings.TrimSpace(in.Feedback); s != "" {
			fmt.Fprintf(&b, "Focus the additional questions on:\n%s\n\n", s)
		}
	}

	if in.Mode == interview.ModeContinue && len(in.Previous) > 0 {
		b.WriteString("Analyze the attached resumes and generate 3-5 additional interview questions that verify whether the candidate fits this role.\n\n")
	} else {
		b.WriteString("Analyze the attached resumes and generate a list of 6-8 comprehensive interview questions that verify whether the candidate fits this role.\n\n")
	}
	fmt.Fprintf(&b, "Your response must be a single JSON array matching this JSON schema:\n%s\n\n%s",
		interview.SchemaText(interview.QuestionSchema()), jsonOnly)
	return b.String()
}

// buildEvaluationPrompt renders the user message of the evaluation call.
func buildEvaluationPrompt(in evaluationInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job Description (JD):\n%s\n\n", strings.TrimSpace(in.JD))
	fmt.Fprintf(&b, "Context (questions asked):\n%s\n\n", scenarios(in.Questions))
	if t := strings.TrimSpace(in.Transcript); t != "" {
		fmt.Fprintf(&b, "Interview transcript:\n%s\n\n", t)
	}
	if len(in.Files) > 0 {
		b.WriteString("Further transcript material is attached below.\n\n")
	}

	switch in.Mode {
	case interview.ModeRegenerate:
		if s := strings.TrimSpace(in.Feedback); s != "" {
			fmt.Fprintf(&b, "The previous evaluation was rejected. Recruiter feedback:\n%s\n\n", s)
		}
	case interview.ModeContinue:
		if in.Previous != nil {
			prev, _ := json.Marshal(in.Previous)
			fmt.Fprintf(&b, "Existing evaluation (extend it, do not restate it):\n%s\n\n", prev)
		}
		if s := strings.TrimSpace(in.Feedback); s != "" {
			fmt.Fprintf(&b, "Dig deeper into:\n%s\n\n", s)
		}
	}

	b.WriteString("Evaluate the candidate in detail based on the transcript, following the system instruction.\n\n")
	fmt.Fprintf(&b, "Your response must be a single JSON object matching this JSON schema:\n%s\n\n%s",
		interview.SchemaText(interview.EvaluationSchema()), jsonOnly)
	return b.String()
}

// scenarios lists the question texts as a JSON array.
func scenarios(qs []interview.Question) string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Scenario)
	}
	b, _ := json.Marshal(out)
	return string(b)
}
