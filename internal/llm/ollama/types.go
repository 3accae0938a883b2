package ollama

import "github.com/marcus/bmo/internal/llm"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []llm.Message `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   *Options      `json:"options,omitempty"`
}

// Options are the model parameters. Nil fields are omitted so the server
// applies its own defaults.
type Options struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	NumPredict    *int     `json:"num_predict,omitempty"`
	Mirostat      *int     `json:"mirostat,omitempty"`
	MirostatEta   *float64 `json:"mirostat_eta,omitempty"`
	MirostatTau   *float64 `json:"mirostat_tau,omitempty"`
	NumCtx        *int     `json:"num_ctx,omitempty"`
	NumGqa        *int     `json:"num_gqa,omitempty"`
	NumThread     *int     `json:"num_thread,omitempty"`
	RepeatLastN   *int     `json:"repeat_last_n,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	Seed          *int     `json:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	TfsZ          *float64 `json:"tfs_z,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
}

// ChatResponse is a full reply or one NDJSON chunk of a streamed reply.
type ChatResponse struct {
	Model      string      `json:"model"`
	Message    llm.Message `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ModelInfo is one entry of GET /api/tags.
type ModelInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Size  int64  `json:"size"`
}

// ListModelsResponse is the body of GET /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// errorResponse is the body the server sends with non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}
