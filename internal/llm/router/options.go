package router

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
	"github.com/marcus/bmo/internal/llm/ollama"
)

// ParseOllamaOptions converts the string-typed settings into request
// options. Empty values are omitted; unparseable numbers are configuration
// errors.
func ParseOllamaOptions(p config.OllamaParameters) (*ollama.Options, error) {
	var (
		opts ollama.Options
		err  error
	)
	ints := []struct {
		key string
		raw string
		dst **int
	}{
		{"mirostat", p.Mirostat, &opts.Mirostat},
		{"num_ctx", p.NumCtx, &opts.NumCtx},
		{"num_gqa", p.NumGqa, &opts.NumGqa},
		{"num_thread", p.NumThread, &opts.NumThread},
		{"repeat_last_n", p.RepeatLastN, &opts.RepeatLastN},
		{"seed", p.Seed, &opts.Seed},
		{"top_k", p.TopK, &opts.TopK},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(f.key, f.raw); err != nil {
			return nil, err
		}
	}

	floats := []struct {
		key string
		raw string
		dst **float64
	}{
		{"mirostat_eta", p.MirostatEta, &opts.MirostatEta},
		{"mirostat_tau", p.MirostatTau, &opts.MirostatTau},
		{"repeat_penalty", p.RepeatPenalty, &opts.RepeatPenalty},
		{"tfs_z", p.TfsZ, &opts.TfsZ},
		{"top_p", p.TopP, &opts.TopP},
	}
	for _, f := range floats {
		if *f.dst, err = parseFloat(f.key, f.raw); err != nil {
			return nil, err
		}
	}

	for _, s := range p.Stop {
		if s = strings.TrimSpace(s); s != "" {
			opts.Stop = append(opts.Stop, s)
		}
	}
	return &opts, nil
}

func parseInt(key, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &llm.ConfigError{Field: "ollamaParameters." + key, Reason: fmt.Sprintf("%q is not an integer", raw)}
	}
	return &n, nil
}

func parseFloat(key, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &llm.ConfigError{Field: "ollamaParameters." + key, Reason: fmt.Sprintf("%q is not a number", raw)}
	}
	return &f, nil
}
