package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm/ollama"
	"github.com/marcus/bmo/internal/llm/openaicompat"
)

// Models are the model lists fetched from each configured backend.
type Models struct {
	Ollama     []string
	OpenAIRest []string
	OpenAIBase []string
}

// All returns every model once, in backend order.
func (m Models) All() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range [][]string{m.Ollama, m.OpenAIRest, m.OpenAIBase} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Apply stores the lists on s. Lists of backends that failed (nil) keep
// their previous value.
func (m Models) Apply(s *config.Settings) {
	if m.Ollama != nil {
		s.OllamaModels = m.Ollama
	}
	if m.OpenAIRest != nil {
		s.OpenAIRestAPIModels = m.OpenAIRest
	}
	if m.OpenAIBase != nil {
		s.OpenAIBaseModels = m.OpenAIBase
	}
	s.AllModels = Models{
		Ollama:     s.OllamaModels,
		OpenAIRest: s.OpenAIRestAPIModels,
		OpenAIBase: s.OpenAIBaseModels,
	}.All()
	if s.AllModels == nil {
		s.AllModels = []string{}
	}
}

// RefreshModels queries every configured backend concurrently. Backends
// without an endpoint are skipped. Partial results are returned together
// with the joined errors of the backends that failed.
func (r *Router) RefreshModels(ctx context.Context, s *config.Settings) (Models, error) {
	var (
		mu     sync.Mutex
		models Models
		errs   []error
	)
	record := func(name string, dst *[]string, fetch func(context.Context) ([]string, error)) func() error {
		return func() error {
			ids, err := fetch(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return nil
			}
			if ids == nil {
				ids = []string{}
			}
			*dst = ids
			return nil
		}
	}

	var g errgroup.Group
	g.SetLimit(3)

	if url := strings.TrimSpace(s.OllamaRestAPIURL); url != "" {
		c := ollama.New(ollama.Config{BaseURL: url, HTTPClient: r.httpClient})
		g.Go(record("ollama", &models.Ollama, c.ListModels))
	}
	if url := strings.TrimSpace(s.OpenAIRestAPIURL); url != "" {
		c := openaicompat.New(openaicompat.Config{
			Name:       KindOpenAIRest.String(),
			BaseURL:    strings.TrimRight(url, "/") + "/v1",
			APIKey:     s.APIKey,
			HTTPClient: r.httpClient,
		})
		g.Go(record("openai-rest", &models.OpenAIRest, c.ListModels))
	}
	if key, err := r.apiKey(s.APIKey); err == nil && key != "" && strings.TrimSpace(s.OpenAIBaseURL) != "" {
		c := openaicompat.New(openaicompat.Config{
			Name:       KindOpenAI.String(),
			BaseURL:    s.OpenAIBaseURL,
			APIKey:     key,
			HTTPClient: r.httpClient,
		})
		g.Go(record("openai", &models.OpenAIBase, c.ListModels))
	}

	_ = g.Wait()
	if err := errors.Join(errs...); err != nil {
		r.logger.Warn("router: refresh models", "err", err)
		return models, err
	}
	return models, nil
}
