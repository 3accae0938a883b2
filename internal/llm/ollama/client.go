// Package ollama is a client for the local inference server's REST API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marcus/bmo/internal/llm"
)

const backendName = "ollama"

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 64 << 10

// Config configures a Client.
type Config struct {
	BaseURL    string
	KeepAlive  string
	Options    *Options
	HTTPClient *http.Client
}

// Client talks to one server. It is safe for concurrent use.
type Client struct {
	baseURL    string
	keepAlive  string
	options    *Options
	httpClient *http.Client
}

// New returns a client for cfg. Streaming requests are bounded by the
// caller's context, so the default HTTP client has no timeout.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keepAlive:  cfg.KeepAlive,
		options:    cfg.Options,
		httpClient: hc,
	}
}

var _ llm.Backend = (*Client)(nil)

// Name implements llm.Backend.
func (c *Client) Name() string { return backendName }

// Complete implements llm.Backend.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrEmptyResponse, err)
	}
	if result.Error != "" {
		return "", &llm.APIError{Backend: backendName, Status: resp.StatusCode, Body: result.Error}
	}
	if strings.TrimSpace(result.Message.Content) == "" {
		return "", llm.ErrEmptyResponse
	}
	return result.Message.Content, nil
}

// Stream implements llm.Backend.
func (c *Client) Stream(ctx context.Context, req llm.Request, onDelta func(string)) (string, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return "", err
	}
	defer drainAndClose(resp.Body)

	var full strings.Builder
	reader := NewStreamReader(resp.Body)
	err = reader.Process(ctx, func(chunk ChatResponse) error {
		if chunk.Error != "" {
			return &llm.APIError{Backend: backendName, Status: resp.StatusCode, Body: chunk.Error}
		}
		if chunk.Message.Content == "" {
			return nil
		}
		full.WriteString(chunk.Message.Content)
		if onDelta != nil {
			onDelta(chunk.Message.Content)
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}
	if strings.TrimSpace(full.String()) == "" {
		return "", llm.ErrEmptyResponse
	}
	return full.String(), nil
}

// ListModels implements llm.Backend.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: list models: %w", backendName, err)
	}
	defer drainAndClose(resp.Body)

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrEmptyResponse, err)
	}
	names := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		names = append(names, name)
	}
	return names, nil
}

func (c *Client) post(ctx context.Context, req llm.Request, stream bool) (*http.Response, error) {
	if req.Model == "" {
		return nil, llm.ErrNoModel
	}

	body := ChatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		Stream:    stream,
		KeepAlive: c.keepAlive,
		Options:   c.requestOptions(req),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", backendName, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s: %w", backendName, err)
	}
	if err := checkStatus(resp); err != nil {
		drainAndClose(resp.Body)
		return nil, err
	}
	return resp, nil
}

// requestOptions merges per-request sampling values over the configured
// options without mutating them.
func (c *Client) requestOptions(req llm.Request) *Options {
	if c.options == nil && req.Temperature == nil && req.MaxTokens <= 0 {
		return nil
	}
	var opts Options
	if c.options != nil {
		opts = *c.options
	}
	if req.Temperature != nil {
		t := *req.Temperature
		opts.Temperature = &t
	}
	if req.MaxTokens > 0 {
		n := req.MaxTokens
		opts.NumPredict = &n
	}
	return &opts
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := string(raw)
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error != "" {
		msg = er.Error
	}
	return &llm.APIError{Backend: backendName, Status: resp.StatusCode, Body: msg}
}

func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxErrorBody))
	_ = r.Close()
}
