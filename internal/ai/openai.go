package ai

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client adapts the OpenAI API to the Transcriber and Completer
// capabilities. One client is constructed at process start and shared.
type Client struct {
	api             openai.Client
	chatModel       string
	transcribeModel string
}

// ClientConfig selects the models and endpoint for the shared client.
type ClientConfig struct {
	APIKey          string
	BaseURL         string // optional, for OpenAI-compatible gateways
	ChatModel       string
	TranscribeModel string
}

// NewClient builds the OpenAI-backed capability client.
func NewClient(cfg ClientConfig) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:             openai.NewClient(opts...),
		chatModel:       cfg.ChatModel,
		transcribeModel: cfg.TranscribeModel,
	}
}

func (c *Client) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(c.transcribeModel),
		File:  openai.File(bytes.NewReader(audio), filename, contentTypeFor(filename)),
	}
	if language != "" {
		params.Language = openai.String(language)
	}

	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.chatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
