package interview

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var ErrNoQuestions = errors.New("no questions generated")

var validate = validator.New()

// ValidateQuestions checks a final, fully streamed question set.
func ValidateQuestions(qs []Question) error {
	if len(qs) == 0 {
		return ErrNoQuestions
	}
	seen := make(map[string]struct{}, len(qs))
	for i, q := range qs {
		if err := validate.Struct(q); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("question %d: duplicate id %q", i+1, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// ValidateEvaluation checks a final, fully streamed evaluation.
func ValidateEvaluation(e Evaluation) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	return nil
}
