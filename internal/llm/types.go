// Package llm streams chat completions from model providers and owns the
// buffer their text deltas accumulate into.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

var ErrMissingAPIKey = errors.New("missing API key")

// TokenEvent represents an incremental token from the model.
// If Err is non-nil, the stream ended with an error.
type TokenEvent struct {
	Delta string
	Err   error
	Done  bool
}

// Attachment is a file sent along with the prompt. Text holds extracted
// document text; when it is empty the raw bytes are sent instead.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
	Text     string
}

// DataURL renders the raw bytes as data:<mime>;base64,<payload>.
func (a Attachment) DataURL() string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

func (a Attachment) isImage() bool {
	return strings.HasPrefix(a.MIMEType, "image/")
}

// Request is one model call: a system instruction, a user prompt and
// optional attachments.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Attachments []Attachment
	Temperature float32
}

// Provider defines a streaming chat-completion interface.
// Implementations stream deltas until Done or ctx is canceled, then close
// the channel.
type Provider interface {
	StreamChat(ctx context.Context, req Request) (<-chan TokenEvent, error)
}

// userText folds extracted attachment text into the prompt.
func userText(req Request) string {
	text := req.Prompt
	for _, a := range req.Attachments {
		if a.Text == "" {
			continue
		}
		text += "\n\n--- " + a.Name + " ---\n" + a.Text
	}
	return text
}

// send delivers ev unless ctx is done first, so producers never block on a
// consumer that has gone away.
func send(ctx context.Context, ch chan<- TokenEvent, ev TokenEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
