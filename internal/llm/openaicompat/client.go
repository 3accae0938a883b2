// Package openaicompat talks to OpenAI and servers exposing the same chat
// completions API.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/marcus/bmo/internal/llm"
)

// Config configures a Client.
type Config struct {
	Name       string // backend label, e.g. "openai" or "openai-rest"
	BaseURL    string // including the /v1 suffix
	APIKey     string
	HTTPClient *http.Client
}

// Client wraps the SDK client. Retries are disabled: a failed request is
// reported once and never repeated.
type Client struct {
	name   string
	client openai.Client
}

// New returns a client for cfg.
func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/") + "/"),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// The SDK picks up OPENAI_API_KEY from the environment; a keyless
		// endpoint must not receive it.
		opts = append(opts, option.WithHeaderDel("Authorization"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &Client{name: name, client: openai.NewClient(opts...)}
}

var _ llm.Backend = (*Client)(nil)

// Name implements llm.Backend.
func (c *Client) Name() string { return c.name }

// Complete implements llm.Backend.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	params, err := buildParams(req)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.wrap(ctx, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", llm.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream implements llm.Backend.
func (c *Client) Stream(ctx context.Context, req llm.Request, onDelta func(string)) (string, error) {
	params, err := buildParams(req)
	if err != nil {
		return "", err
	}
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), c.wrap(ctx, err)
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", llm.ErrEmptyResponse
	}
	return full.String(), nil
}

// ListModels implements llm.Backend.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, c.wrap(ctx, err)
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func buildParams(req llm.Request) (openai.ChatCompletionNewParams, error) {
	if req.Model == "" {
		return openai.ChatCompletionNewParams{}, llm.ErrNoModel
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return params, nil
}

// wrap converts SDK errors to the shared error types.
func (c *Client) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		body := apiErr.Message
		if body == "" {
			body = apiErr.RawJSON()
		}
		return &llm.APIError{Backend: c.name, Status: apiErr.StatusCode, Body: body}
	}
	return fmt.Errorf("%s: %w", c.name, err)
}
