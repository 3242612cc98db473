package main

import (
	"bytes"
	"encoding/json"

	"github.com/muhammadolammi/interviewworker/internal/partialjson"
)

// progress receives what a running call has produced so far. Either hook
// may be nil.
type progress struct {
	// partial gets every new snapshot of the result.
	partial func(json.RawMessage)
	// restart fires when a retried call drops snapshots already handed to
	// partial. The next snapshot starts from empty again.
	restart func(attempt int)
}

// snapshotter turns the growing model buffer into partial results. Within
// one attempt only decodable snapshots that differ from the last published
// one reach the sink, so the value never goes back to empty until a restart.
type snapshotter struct {
	sink    progress
	last    []byte
	sent    int
	attempt int
}

func newSnapshotter(sink progress) *snapshotter {
	return &snapshotter{sink: sink}
}

// observe is handed to llm.Drain as its chunk callback.
func (s *snapshotter) observe(buffer string) {
	v := partialjson.Decode(buffer)
	if v == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil || bytes.Equal(b, s.last) {
		return
	}
	s.last = b
	s.sent++
	if s.sink.partial != nil {
		s.sink.partial(b)
	}
}

// reset starts a new attempt. A restart is signalled only when the previous
// attempt already published something.
func (s *snapshotter) reset() {
	s.attempt++
	published := s.last != nil
	s.last = nil
	if published && s.sink.restart != nil {
		s.sink.restart(s.attempt)
	}
}
