// Package router picks the backend for the selected model and builds
// requests from the settings record.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/llm/ollama"
	"github.com/marcus/bmo/internal/llm/openaicompat"
)

// Kind names a backend family.
type Kind int

const (
	KindOpenAI Kind = iota
	KindOllama
	KindOpenAIRest
)

func (k Kind) String() string {
	switch k {
	case KindOllama:
		return "ollama"
	case KindOpenAIRest:
		return "openai-rest"
	default:
		return "openai"
	}
}

// Endpoint is the resolved destination of a request.
type Endpoint struct {
	Kind        Kind
	BaseURL     string `validate:"required,http_url"`
	APIKey      string `validate:"required_if=RequiresKey true"`
	RequiresKey bool
	Model       string `validate:"required"`
	Stream      bool
}

// KeyResolver finds the API key for the hosted backend when the settings
// record does not carry one.
type KeyResolver interface {
	APIKey(fromSettings string) (string, error)
}

// Router is stateless apart from its collaborators and safe for
// concurrent use.
type Router struct {
	keys       KeyResolver
	httpClient *http.Client
	validate   *validator.Validate
	logger     *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithHTTPClient sets the HTTP client handed to backends.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Router) { r.httpClient = c }
}

// WithLogger sets the router's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New returns a router. keys may be nil, in which case only the settings
// apiKey is used.
func New(keys KeyResolver, opts ...Option) *Router {
	r := &Router{
		keys:     keys,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route resolves the endpoint for the selected model: models listed under
// the local server go there, models listed under the custom REST URL go to
// {url}/v1, and anything else goes to the hosted base URL.
func (r *Router) Route(s *config.Settings) (Endpoint, error) {
	if strings.TrimSpace(s.Model) == "" {
		return Endpoint{}, llm.ErrNoModel
	}

	var ep Endpoint
	switch {
	case slices.Contains(s.OllamaModels, s.Model):
		if strings.TrimSpace(s.OllamaRestAPIURL) == "" {
			return Endpoint{}, &llm.ConfigError{Field: "ollamaRestAPIUrl", Reason: "is not set"}
		}
		ep = Endpoint{
			Kind:    KindOllama,
			BaseURL: strings.TrimRight(strings.TrimSpace(s.OllamaRestAPIURL), "/"),
			Stream:  s.AllowOllamaStream,
		}
	case slices.Contains(s.OpenAIRestAPIModels, s.Model):
		if strings.TrimSpace(s.OpenAIRestAPIURL) == "" {
			return Endpoint{}, &llm.ConfigError{Field: "openAIRestAPIUrl", Reason: "is not set"}
		}
		ep = Endpoint{
			Kind:    KindOpenAIRest,
			BaseURL: strings.TrimRight(strings.TrimSpace(s.OpenAIRestAPIURL), "/") + "/v1",
			APIKey:  s.APIKey,
			Stream:  s.AllowOpenAIRestAPIStream,
		}
	default:
		key, err := r.apiKey(s.APIKey)
		if err != nil {
			return Endpoint{}, err
		}
		ep = Endpoint{
			Kind:        KindOpenAI,
			BaseURL:     strings.TrimRight(strings.TrimSpace(s.OpenAIBaseURL), "/"),
			APIKey:      key,
			RequiresKey: true,
			Stream:      true,
		}
	}
	ep.Model = s.Model

	if err := r.validate.Struct(ep); err != nil {
		return Endpoint{}, toConfigError(ep.Kind, err)
	}
	return ep, nil
}

// Backend builds the client for ep.
func (r *Router) Backend(ep Endpoint, s *config.Settings) (llm.Backend, error) {
	switch ep.Kind {
	case KindOllama:
		opts, err := ParseOllamaOptions(s.OllamaParameters)
		if err != nil {
			return nil, err
		}
		return ollama.New(ollama.Config{
			BaseURL:    ep.BaseURL,
			KeepAlive:  strings.TrimSpace(s.OllamaParameters.KeepAlive),
			Options:    opts,
			HTTPClient: r.httpClient,
		}), nil
	default:
		return openaicompat.New(openaicompat.Config{
			Name:       ep.Kind.String(),
			BaseURL:    ep.BaseURL,
			APIKey:     ep.APIKey,
			HTTPClient: r.httpClient,
		}), nil
	}
}

// Request builds a request for the selected model with the configured
// temperature and max_tokens.
func Request(s *config.Settings, messages []llm.Message) (llm.Request, error) {
	maxTokens, err := parseMaxTokens(s.MaxTokens)
	if err != nil {
		return llm.Request{}, err
	}
	temp := s.Temperature
	return llm.Request{
		Model:       s.Model,
		Messages:    messages,
		Temperature: &temp,
		MaxTokens:   maxTokens,
	}, nil
}

// Prepare resolves everything needed for one round trip.
func (r *Router) Prepare(s *config.Settings, messages []llm.Message) (llm.Backend, llm.Request, Endpoint, error) {
	ep, err := r.Route(s)
	if err != nil {
		return nil, llm.Request{}, Endpoint{}, err
	}
	backend, err := r.Backend(ep, s)
	if err != nil {
		return nil, llm.Request{}, Endpoint{}, err
	}
	req, err := Request(s, messages)
	if err != nil {
		return nil, llm.Request{}, Endpoint{}, err
	}
	return backend, req, ep, nil
}

// Send performs one round trip, streaming when the endpoint allows it.
// onDelta may be nil.
func (r *Router) Send(ctx context.Context, s *config.Settings, messages []llm.Message, onDelta func(string)) (string, error) {
	backend, req, ep, err := r.Prepare(s, messages)
	if err != nil {
		return "", err
	}
	r.logger.Debug("router: send", "backend", backend.Name(), "model", req.Model, "stream", ep.Stream && onDelta != nil)
	if ep.Stream && onDelta != nil {
		return backend.Stream(ctx, req, onDelta)
	}
	return backend.Complete(ctx, req)
}

func (r *Router) apiKey(fromSettings string) (string, error) {
	if r.keys == nil {
		return strings.TrimSpace(fromSettings), nil
	}
	key, err := r.keys.APIKey(fromSettings)
	if err != nil {
		return "", fmt.Errorf("resolve api key: %w", err)
	}
	return key, nil
}

func parseMaxTokens(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &llm.ConfigError{Field: "max_tokens", Reason: fmt.Sprintf("%q is not a non-negative integer", raw)}
	}
	return n, nil
}

func toConfigError(kind Kind, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &llm.ConfigError{Field: "endpoint", Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Field() {
	case "BaseURL":
		switch kind {
		case KindOllama:
			field = "ollamaRestAPIUrl"
		case KindOpenAIRest:
			field = "openAIRestAPIUrl"
		default:
			field = "openAIBaseUrl"
		}
	case "APIKey":
		field = "apiKey"
	case "Model":
		field = "model"
	}
	reason := "is invalid"
	switch fe.Tag() {
	case "required", "required_if":
		reason = "is not set"
	case "http_url", "url":
		reason = fmt.Sprintf("%q is not a valid URL", fe.Value())
	}
	return &llm.ConfigError{Field: field, Reason: reason}
}
