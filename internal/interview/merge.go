package interview

import (
	"slices"

	"github.com/google/uuid"
)

// Mode selects how a new model result combines with the stored one.
type Mode string

const (
	ModeGenerate   Mode = "generate"
	ModeRegenerate Mode = "regenerate" // discard the stored result
	ModeContinue   Mode = "continue"   // keep the stored result and append
)

func (m Mode) Valid() bool {
	switch m {
	case ModeGenerate, ModeRegenerate, ModeContinue:
		return true
	}
	return false
}

// AppendQuestions adds extra to existing. Incoming questions whose id is
// empty or already taken get a fresh id.
func AppendQuestions(existing, extra []Question) []Question {
	out := make([]Question, 0, len(existing)+len(extra))
	seen := make(map[string]struct{}, len(existing)+len(extra))
	for _, q := range existing {
		out = append(out, q)
		seen[q.ID] = struct{}{}
	}
	for _, q := range extra {
		if _, taken := seen[q.ID]; taken || q.ID == "" {
			q.ID = uuid.NewString()
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}

// AppendEvaluation folds a continued evaluation into the stored one. The
// stored verdict stays; new findings land in FollowUp.
func AppendEvaluation(existing, extra Evaluation) Evaluation {
	out := existing
	out.Strengths = slices.Clone(existing.Strengths)
	out.Weaknesses = slices.Clone(existing.Weaknesses)
	out.FollowUp = slices.Clone(existing.FollowUp)
	if extra.Summary != "" && extra.Summary != existing.Summary {
		out.FollowUp = append(out.FollowUp, extra.Summary)
	}
	out.FollowUp = append(out.FollowUp, extra.FollowUp...)
	for _, s := range extra.Strengths {
		if !slices.Contains(out.Strengths, s) {
			out.Strengths = append(out.Strengths, s)
		}
	}
	for _, w := range extra.Weaknesses {
		if !slices.Contains(out.Weaknesses, w) {
			out.Weaknesses = append(out.Weaknesses, w)
		}
	}
	return out
}
