package partialjson

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/cucumber/godog"
)

type decodeState struct {
	buffer string
	result any
}

func (s *decodeState) theBuffer(doc *godog.DocString) error {
	s.buffer = doc.Content
	return nil
}

func (s *decodeState) theBufferIsDecoded() error {
	s.result = Decode(s.buffer)
	return nil
}

func (s *decodeState) theResultIsNull() error {
	if s.result != nil {
		return fmt.Errorf("expected null, got %#v", s.result)
	}
	return nil
}

func (s *decodeState) theResultEquals(doc *godog.DocString) error {
	var want any
	if err := json.Unmarshal([]byte(doc.Content), &want); err != nil {
		return fmt.Errorf("bad expectation: %w", err)
	}
	if !reflect.DeepEqual(s.result, want) {
		return fmt.Errorf("expected %#v, got %#v", want, s.result)
	}
	return nil
}

func initializeDecoderScenario(ctx *godog.ScenarioContext) {
	state := &decodeState{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		*state = decodeState{}
		return ctx, nil
	})

	ctx.Step(`^the buffer:$`, state.theBuffer)
	ctx.Step(`^the buffer is decoded$`, state.theBufferIsDecoded)
	ctx.Step(`^the result is null$`, state.theResultIsNull)
	ctx.Step(`^the result equals:$`, state.theResultEquals)
}

func TestDecoderFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "partialjson",
		ScenarioInitializer: initializeDecoderScenario,
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{"features"},
			Output:   io.Discard,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("decoder features failed")
	}
}
