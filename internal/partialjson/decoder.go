// Package partialjson decodes structured model output while it is still
// streaming in.
//
// Every call takes the whole accumulated buffer and is independent of the
// previous one. A strict pass parses the outermost bracketed span, which
// covers complete output wrapped in prose or markdown fences. When that
// fails the buffer is assumed to be truncated and a repair pass closes the
// open string and structures before parsing again. Anything that still
// does not parse is reported as "not decodable yet" (nil / false), never
// as an error.
//
// Truncation inside a non-string primitive (tru, 1., a dangling comma or
// colon) is not repaired; such buffers stay undecodable until more text
// arrives.
package partialjson

import (
	"encoding/json"
	"strings"
)

// Decode returns the best-effort value held in text, or nil when nothing
// is decodable yet. Objects decode to map[string]any and arrays to []any.
func Decode(text string) any {
	raw, ok := extract(text)
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// DecodeAs is Decode into a typed draft. Fields that have not streamed in
// yet keep their zero value. It reports false when nothing is decodable or
// the decoded document does not fit T.
func DecodeAs[T any](text string) (T, bool) {
	var v T
	raw, ok := extract(text)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// Repair returns the balanced document the repair pass would parse, and
// whether it is valid JSON.
func Repair(text string) (string, bool) {
	fixed, ok := repair(text)
	if !ok {
		return fixed, false
	}
	return fixed, json.Valid([]byte(fixed))
}

func extract(text string) ([]byte, bool) {
	if text == "" {
		return nil, false
	}
	if span, ok := strictSpan(text); ok && json.Valid([]byte(span)) {
		return []byte(span), true
	}
	fixed, ok := repair(text)
	if !ok || !json.Valid([]byte(fixed)) {
		return nil, false
	}
	return []byte(fixed), true
}

// strictSpan cuts text from the first opening bracket to the last closer of
// the same kind.
func strictSpan(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}

func repair(text string) (string, bool) {
	fixed := trimFence(text)
	start := strings.IndexAny(fixed, "{[")
	if start < 0 {
		return "", false
	}
	fixed = fixed[start:]

	var s scanner
	s.scan(fixed)
	if s.broken {
		return fixed, false
	}
	return fixed + s.suffix(), true
}

// trimFence drops a leading markdown code fence such as ```json.
func trimFence(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	return strings.TrimLeft(clean, "\r\n")
}
