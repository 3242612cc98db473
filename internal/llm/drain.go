package llm

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyResponse = errors.New("empty model response")

// Drain consumes a token stream into a buffer it owns. After every
// non-empty delta onChunk receives the whole text accumulated so far. It
// returns the complete text once the stream reports Done or closes.
func Drain(ctx context.Context, events <-chan TokenEvent, onChunk func(buffer string)) (string, error) {
	var buf strings.Builder
	for {
		select {
		case <-ctx.Done():
			return buf.String(), ctx.Err()
		case ev, ok := <-events:
			if !ok || ev.Done {
				if buf.Len() == 0 {
					return "", ErrEmptyResponse
				}
				return buf.String(), nil
			}
			if ev.Err != nil {
				return buf.String(), ev.Err
			}
			if ev.Delta == "" {
				continue
			}
			buf.WriteString(ev.Delta)
			if onChunk != nil {
				onChunk(buf.String())
			}
		}
	}
}
