package interview

import (
	"errors"
	"fmt"
)

// Step is where a session sits in the recruiter workflow.
type Step string

const (
	StepSetup            Step = "SETUP"
	StepAnalyzing        Step = "ANALYZING"
	StepQuestions        Step = "QUESTIONS"
	StepTranscriptUpload Step = "TRANSCRIPT_UPLOAD"
	StepEvaluating       Step = "EVALUATING"
	StepResults          Step = "RESULTS"
)

// Event moves a session between steps.
type Event string

const (
	EventGenerate  Event = "generate"  // start (or redo) question generation
	EventGenerated Event = "generated" // questions stored
	EventAdvance   Event = "advance"   // recruiter moves on to the transcript
	EventEvaluate  Event = "evaluate"  // start (or redo) the evaluation
	EventEvaluated Event = "evaluated" // evaluation stored
	EventReset     Event = "reset"
)

var ErrIllegalTransition = errors.New("illegal step transition")

var transitions = map[Step]map[Event]Step{
	StepSetup: {
		EventGenerate: StepAnalyzing,
	},
	StepAnalyzing: {
		EventGenerated: StepQuestions,
	},
	StepQuestions: {
		EventGenerate: StepAnalyzing,
		EventAdvance:  StepTranscriptUpload,
		EventEvaluate: StepEvaluating,
	},
	StepTranscriptUpload: {
		EventEvaluate: StepEvaluating,
	},
	StepEvaluating: {
		EventEvaluated: StepResults,
	},
	StepResults: {
		EventEvaluate: StepEvaluating,
	},
}

// Transition returns the step reached from `from` on ev. A model call that
// fails puts the session back on the step it started from.
func Transition(from Step, ev Event) (Step, error) {
	if ev == EventReset {
		return StepSetup, nil
	}
	next, ok := transitions[from][ev]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
	}
	return next, nil
}

// Busy reports whether a model call is running for the step.
func (s Step) Busy() bool {
	return s == StepAnalyzing || s == StepEvaluating
}

func (s Step) Valid() bool {
	_, ok := transitions[s]
	return ok
}
