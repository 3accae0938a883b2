package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marcus/bmo/internal/llm"
)

func TestCompleteWireFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"model":"llama3","message":{"role":"assistant","content":"Hello"},"done":true}`)
	}))
	defer srv.Close()

	topK := 40
	c := New(Config{BaseURL: srv.URL + "/", KeepAlive: "5m", Options: &Options{TopK: &topK}})
	temp := 0.7
	reply, err := c.Complete(context.Background(), llm.Request{
		Model:       "llama3",
		Messages:    []llm.Message{llm.System("sys"), llm.User("hi")},
		Temperature: &temp,
		MaxTokens:   128,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Hello" {
		t.Errorf("reply = %q", reply)
	}

	if got["model"] != "llama3" || got["stream"] != false || got["keep_alive"] != "5m" {
		t.Errorf("body = %v", got)
	}
	opts, _ := got["options"].(map[string]any)
	if opts["temperature"] != 0.7 || opts["num_predict"] != float64(128) || opts["top_k"] != float64(40) {
		t.Errorf("options = %v", opts)
	}
	if _, ok := opts["seed"]; ok {
		t.Error("unset options must be omitted")
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("messages = %v", msgs)
	}
}

func TestCompleteNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Complete(context.Background(), llm.Request{Model: "nope"})
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusNotFound || !strings.Contains(apiErr.Body, "not found") {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestCompleteMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":`)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Complete(context.Background(), llm.Request{Model: "m"})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestCompleteNoModel(t *testing.T) {
	_, err := New(Config{BaseURL: "http://127.0.0.1:0"}).Complete(context.Background(), llm.Request{})
	if !errors.Is(err, llm.ErrNoModel) {
		t.Errorf("err = %v, want ErrNoModel", err)
	}
}

func TestStreamNDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("stream flag not set")
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hel"},"done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ignored"},"done":false}`)
	}))
	defer srv.Close()

	var deltas []string
	full, err := New(Config{BaseURL: srv.URL}).Stream(context.Background(), llm.Request{Model: "m"}, func(d string) {
		deltas = append(deltas, d)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if full != "Hello" || strings.Join(deltas, "|") != "Hel|lo" {
		t.Errorf("full = %q deltas = %v", full, deltas)
	}
}

func TestStreamErrorChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).Stream(context.Background(), llm.Request{Model: "m"}, nil)
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.Body != "out of memory" {
		t.Errorf("err = %v", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"models":[{"name":"llama3:latest"},{"model":"mistral"}]}`)
	}))
	defer srv.Close()

	models, err := New(Config{BaseURL: srv.URL}).ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(models, ",") != "llama3:latest,mistral" {
		t.Errorf("models = %v", models)
	}
}
