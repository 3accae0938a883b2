package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marcus/bmo/internal/config"
	"github.com/marcus/bmo/internal/llm"
)

type staticKeys struct {
	key string
	err error
}

func (k staticKeys) APIKey(fromSettings string) (string, error) {
	if fromSettings != "" {
		return fromSettings, nil
	}
	return k.key, k.err
}

func TestRouteNoModel(t *testing.T) {
	_, err := New(nil).Route(config.Default())
	if !errors.Is(err, llm.ErrNoModel) {
		t.Errorf("err = %v, want ErrNoModel", err)
	}
}

func TestRouteOllama(t *testing.T) {
	s := config.Default()
	s.Model = "llama3"
	s.OllamaModels = []string{"llama3"}
	s.OllamaRestAPIURL = "http://localhost:11434/"
	s.AllowOllamaStream = true

	ep, err := New(nil).Route(s)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Kind != KindOllama || ep.BaseURL != "http://localhost:11434" || !ep.Stream {
		t.Errorf("endpoint = %+v", ep)
	}
}

func TestRouteOllamaMissingURL(t *testing.T) {
	s := config.Default()
	s.Model = "llama3"
	s.OllamaModels = []string{"llama3"}

	_, err := New(nil).Route(s)
	var ce *llm.ConfigError
	if !errors.As(err, &ce) || ce.Field != "ollamaRestAPIUrl" {
		t.Errorf("err = %v", err)
	}
}

func TestRouteOpenAIRest(t *testing.T) {
	s := config.Default()
	s.Model = "local-7b"
	s.OpenAIRestAPIModels = []string{"local-7b"}
	s.OpenAIRestAPIURL = "http://localhost:1234"

	ep, err := New(nil).Route(s)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Kind != KindOpenAIRest || ep.BaseURL != "http://localhost:1234/v1" || ep.Stream {
		t.Errorf("endpoint = %+v", ep)
	}
}

func TestRouteHostedRequiresKey(t *testing.T) {
	s := config.Default()
	s.Model = "gpt-4o"

	_, err := New(staticKeys{}).Route(s)
	var ce *llm.ConfigError
	if !errors.As(err, &ce) || ce.Field != "apiKey" {
		t.Fatalf("err = %v, want apiKey config error", err)
	}

	ep, err := New(staticKeys{key: "sk-env"}).Route(s)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Kind != KindOpenAI || ep.APIKey != "sk-env" || !ep.Stream {
		t.Errorf("endpoint = %+v", ep)
	}
}

func TestRouteInvalidBaseURL(t *testing.T) {
	s := config.Default()
	s.Model = "gpt-4o"
	s.APIKey = "sk"
	s.OpenAIBaseURL = "not a url"

	_, err := New(nil).Route(s)
	var ce *llm.ConfigError
	if !errors.As(err, &ce) || ce.Field != "openAIBaseUrl" {
		t.Errorf("err = %v", err)
	}
}

func TestRequestMaxTokens(t *testing.T) {
	s := config.Default()
	s.Model = "m"
	s.MaxTokens = "256"
	req, err := Request(s, []llm.Message{llm.User("hi")})
	if err != nil {
		t.Fatal(err)
	}
	if req.MaxTokens != 256 || req.Temperature == nil || *req.Temperature != 1.0 {
		t.Errorf("req = %+v", req)
	}

	s.MaxTokens = "lots"
	_, err = Request(s, nil)
	if !llm.IsConfigError(err) {
		t.Errorf("err = %v, want config error", err)
	}
}

func TestParseOllamaOptions(t *testing.T) {
	p := config.Default().OllamaParameters
	p.Stop = []string{"###", " "}
	opts, err := ParseOllamaOptions(p)
	if err != nil {
		t.Fatal(err)
	}
	if opts.NumCtx == nil || *opts.NumCtx != 2048 {
		t.Errorf("num_ctx = %v", opts.NumCtx)
	}
	if opts.TopP == nil || *opts.TopP != 0.9 {
		t.Errorf("top_p = %v", opts.TopP)
	}
	if opts.Seed != nil || opts.NumGqa != nil {
		t.Error("empty values should be omitted")
	}
	if len(opts.Stop) != 1 || opts.Stop[0] != "###" {
		t.Errorf("stop = %v", opts.Stop)
	}

	p.TopK = "forty"
	_, err = ParseOllamaOptions(p)
	var ce *llm.ConfigError
	if !errors.As(err, &ce) || ce.Field != "ollamaParameters.top_k" {
		t.Errorf("err = %v", err)
	}
}

func TestSendOllamaCarriesParameters(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		fmt.Fprint(w, `{"model":"llama3","message":{"role":"assistant","content":"ok"},"done":true}`)
	}))
	defer srv.Close()

	s := config.Default()
	s.Model = "llama3"
	s.OllamaModels = []string{"llama3"}
	s.OllamaRestAPIURL = srv.URL

	reply, err := New(nil).Send(context.Background(), s, []llm.Message{llm.User("hi")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reply != "ok" {
		t.Errorf("reply = %q", reply)
	}
	opts, _ := body["options"].(map[string]any)
	if opts["num_ctx"] != float64(2048) || opts["temperature"] != float64(1) {
		t.Errorf("options = %v", opts)
	}
	if body["stream"] != false {
		t.Errorf("stream = %v", body["stream"])
	}
}

func TestRefreshModels(t *testing.T) {
	ollamaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama3","model":"llama3"},{"name":"mistral","model":"mistral"}]}`)
	}))
	defer ollamaSrv.Close()
	restSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer restSrv.Close()

	s := config.Default()
	s.OllamaRestAPIURL = ollamaSrv.URL
	s.OpenAIRestAPIURL = restSrv.URL
	s.OpenAIRestAPIModels = []string{"kept"}

	models, err := New(nil).RefreshModels(context.Background(), s)
	if err == nil || !strings.Contains(err.Error(), "openai-rest") {
		t.Errorf("err = %v, want openai-rest failure", err)
	}
	if strings.Join(models.Ollama, ",") != "llama3,mistral" {
		t.Errorf("ollama = %v", models.Ollama)
	}
	if models.OpenAIBase != nil {
		t.Errorf("hosted backend without key should be skipped, got %v", models.OpenAIBase)
	}

	models.Apply(s)
	if strings.Join(s.AllModels, ",") != "llama3,mistral,kept" {
		t.Errorf("all = %v", s.AllModels)
	}
}

func TestModelsAllDedups(t *testing.T) {
	m := Models{Ollama: []string{"a", "b"}, OpenAIRest: []string{"b", "c"}, OpenAIBase: []string{"a"}}
	if got := strings.Join(m.All(), ","); got != "a,b,c" {
		t.Errorf("All = %s", got)
	}
}
