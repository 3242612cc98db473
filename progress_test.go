package main

import (
	"encoding/json"
	"testing"
)

func TestSnapshotterSkipsUndecodableAndRepeats(t *testing.T) {
	var got []string
	s := newSnapshotter(progress{partial: func(b json.RawMessage) { got = append(got, string(b)) }})

	for _, buf := range []string{
		"Thinking",
		"Thinking... [",
		`Thinking... [{"id":"q`,
		`Thinking... [{"id":"q1",`, // dangling comma: not decodable, keep last
		`Thinking... [{"id":"q1","ok":tru`,
		`Thinking... [{"id":"q1","ok":true}`,
		`Thinking... [{"id":"q1","ok":true}]`, // same value as before
	} {
		s.observe(buf)
	}

	want := []string{`[]`, `[{"id":"q"}]`, `[{"id":"q1","ok":true}]`}
	if len(got) != len(want) {
		t.Fatalf("snapshots = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot %d = %s, want %s", i, got[i], want[i])
		}
	}
	if s.sent != len(want) {
		t.Fatalf("sent = %d, want %d", s.sent, len(want))
	}
}

func TestSnapshotterResetRepublishes(t *testing.T) {
	n := 0
	var restarts []int
	s := newSnapshotter(progress{
		partial: func(json.RawMessage) { n++ },
		restart: func(attempt int) { restarts = append(restarts, attempt) },
	})
	s.reset()
	s.observe(`{"a":1}`)
	s.observe(`{"a":1}`)
	s.reset()
	s.observe(`{"a":1}`)
	if n != 2 {
		t.Fatalf("expected 2 emits, got %d", n)
	}
	if len(restarts) != 1 || restarts[0] != 2 {
		t.Fatalf("restarts = %v, want [2]", restarts)
	}
}

func TestSnapshotterQuietResetIsNotARestart(t *testing.T) {
	restarted := false
	s := newSnapshotter(progress{restart: func(int) { restarted = true }})
	s.reset()
	s.observe("no json here")
	s.reset()
	if restarted {
		t.Fatal("an attempt that published nothing should not signal a restart")
	}
}
