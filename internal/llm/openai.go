package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatible streams chat completions from OpenAI-compatible API
// endpoints. BaseURL selects OpenAI, DeepSeek or a self-hosted server.
type OpenAICompatible struct {
	Client *openai.Client
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func NewOpenAICompatible(cfg OpenAIConfig) (*OpenAICompatible, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	} else {
		config.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &OpenAICompatible{Client: openai.NewClientWithConfig(config)}, nil
}

func (p *OpenAICompatible) StreamChat(ctx context.Context, req Request) (<-chan TokenEvent, error) {
	stream, err := p.Client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    openAIMessages(req),
		Temperature: req.Temperature,
		N:           1,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	ch := make(chan TokenEvent, 32)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					send(ctx, ch, TokenEvent{Done: true})
					return
				}
				send(ctx, ch, TokenEvent{Err: err})
				return
			}
			for _, choice := range resp.Choices {
				if !send(ctx, ch, TokenEvent{Delta: choice.Delta.Content}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

func openAIMessages(req Request) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}

	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: userText(req)}}
	for _, a := range req.Attachments {
		if a.Text != "" || !a.isImage() {
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: a.DataURL(), Detail: openai.ImageURLDetailAuto},
		})
	}
	if len(parts) == 1 {
		return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: parts[0].Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
}
