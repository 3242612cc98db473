package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Gateway talks to an OpenAI-style chat completions gateway over raw
// server-sent events. Unlike the OpenAI API it accepts arbitrary documents
// as {"type":"file"} content parts, so PDFs reach the model unextracted.
type Gateway struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Metadata   map[string]any
}

type GatewayConfig struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Metadata   map[string]any
}

func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing gateway url")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Gateway{URL: cfg.URL, APIKey: cfg.APIKey, HTTPClient: client, Metadata: cfg.Metadata}, nil
}

type gatewayMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type gatewayPart struct {
	Type string       `json:"type"`
	Text string       `json:"text,omitempty"`
	File *gatewayFile `json:"file,omitempty"`
}

type gatewayFile struct {
	FileData string `json:"file_data"`
}

type gatewayRequest struct {
	Model       string           `json:"model"`
	Messages    []gatewayMessage `json:"messages"`
	Temperature float32          `json:"temperature"`
	N           int              `json:"n"`
	Stream      bool             `json:"stream"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

func (g *Gateway) StreamChat(ctx context.Context, req Request) (<-chan TokenEvent, error) {
	body, err := json.Marshal(g.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encode gateway request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, gatewayError(resp)
	}

	ch := make(chan TokenEvent, 32)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		NewChatStreamReader(resp.Body).Run(ctx, ch)
	}()
	return ch, nil
}

func (g *Gateway) buildRequest(req Request) gatewayRequest {
	var msgs []gatewayMessage
	if req.System != "" {
		msgs = append(msgs, gatewayMessage{Role: "system", Content: req.System})
	}
	parts := []gatewayPart{{Type: "text", Text: userText(req)}}
	for _, a := range req.Attachments {
		if a.Text != "" || len(a.Data) == 0 {
			continue
		}
		parts = append(parts, gatewayPart{Type: "file", File: &gatewayFile{FileData: a.DataURL()}})
	}
	msgs = append(msgs, gatewayMessage{Role: "user", Content: parts})
	return gatewayRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		N:           1,
		Stream:      true,
		Metadata:    g.Metadata,
	}
}

func gatewayError(resp *http.Response) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
		return fmt.Errorf("gateway error (%d): %s", resp.StatusCode, payload.Error.Message)
	}
	return fmt.Errorf("gateway error: %s", resp.Status)
}

// ChatStreamReader turns an SSE body into token events. Each event is a
// `data:` line carrying a chat.completion.chunk envelope, or the [DONE]
// sentinel.
type ChatStreamReader struct {
	reader *bufio.Reader
}

func NewChatStreamReader(r io.Reader) *ChatStreamReader {
	return &ChatStreamReader{reader: bufio.NewReader(r)}
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Run reads until the sentinel, EOF, an I/O error or ctx cancellation, and
// always finishes with exactly one Done or Err event.
func (c *ChatStreamReader) Run(ctx context.Context, ch chan<- TokenEvent) {
	for {
		if err := ctx.Err(); err != nil {
			send(ctx, ch, TokenEvent{Err: err})
			return
		}

		line, err := c.reader.ReadString('\n')
		if line != "" {
			delta, done := parseLine(line)
			if done {
				send(ctx, ch, TokenEvent{Done: true})
				return
			}
			if delta != "" && !send(ctx, ch, TokenEvent{Delta: delta}) {
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				send(ctx, ch, TokenEvent{Done: true})
				return
			}
			send(ctx, ch, TokenEvent{Err: err})
			return
		}
	}
}

// parseLine extracts the text delta from one SSE line and reports whether
// the line is the terminal sentinel.
func parseLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	payload = strings.TrimSpace(payload)
	if payload == "[DONE]" {
		return "", true
	}
	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// malformed events are skipped
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, false
}
