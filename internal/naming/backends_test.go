package naming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	json "github.com/goccy/go-json"
	"github.com/openai/openai-go/option"
)

const anthropicResponse = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-haiku-20240307",
  "stop_reason": "end_turn",
  "content": [{"type": "text", "text": "` + "```json\\n" + `{\"title\": \"T\", \"summary\": \"S\"}` + "\\n```" + `"}],
  "usage": {"input_tokens": 10, "output_tokens": 12}
}`

func TestAnthropicGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body["model"] != DefaultAnthropicModel {
			t.Errorf("model = %v", body["model"])
		}
		if body["max_tokens"] != float64(300) {
			t.Errorf("max_tokens = %v", body["max_tokens"])
		}
		if messages, _ := body["messages"].([]any); len(messages) != 1 {
			t.Errorf("messages = %v", body["messages"])
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, anthropicResponse)
	}))
	defer srv.Close()

	gen := NewAnthropic("test-key", "", anthropicoption.WithBaseURL(srv.URL+"/"))
	text, err := gen.Generate(context.Background(), Request{Prompt: "hi", Temperature: 0.7})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := `{"title": "T", "summary": "S"}`; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestAnthropicErrors(t *testing.T) {
	cases := []struct {
		status        int
		wantTransient bool
	}{
		{http.StatusTooManyRequests, true},
		{529, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}
	for _, c := range cases {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(c.status)
			io.WriteString(w, `{"type": "error", "error": {"type": "x", "message": "nope"}}`)
		}))
		_, err := NewAnthropic("k", "m", anthropicoption.WithBaseURL(srv.URL+"/")).Generate(context.Background(), Request{Prompt: "hi"})
		srv.Close()
		if err == nil {
			t.Errorf("status %d: expected error", c.status)
			continue
		}
		if got := errors.Is(err, ErrTransient); got != c.wantTransient {
			t.Errorf("status %d: transient = %v, want %v (%v)", c.status, got, c.wantTransient, err)
		}
		if calls != 1 {
			t.Errorf("status %d: client made %d requests, want 1", c.status, calls)
		}
	}
}

const openAIResponse = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "gpt-4o-mini",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "role": "assistant",
    "status": "completed",
    "content": [{"type": "output_text", "text": "{\"title\":\"T\",\"summary\":\"S\"}", "annotations": []}]
  }]
}`

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if body["model"] != DefaultOpenAIModel {
			t.Errorf("model = %v", body["model"])
		}
		if body["max_output_tokens"] != float64(300) {
			t.Errorf("max_output_tokens = %v", body["max_output_tokens"])
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, openAIResponse)
	}))
	defer srv.Close()

	gen := NewOpenAI("test-key", "", option.WithBaseURL(srv.URL+"/"))
	text, err := gen.Generate(context.Background(), Request{Prompt: "hi", Temperature: 0.7, MaxTokens: 300})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := `{"title":"T","summary":"S"}`; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestOpenAIServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAI("k", "", option.WithBaseURL(srv.URL+"/")).Generate(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, ErrTransient) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestNamingSchema(t *testing.T) {
	if namingSchema["additionalProperties"] != false {
		t.Errorf("schema allows additional properties: %v", namingSchema)
	}
	required, _ := namingSchema["required"].([]any)
	if len(required) != 2 {
		t.Errorf("required = %v, want title and summary", namingSchema["required"])
	}
	props, _ := namingSchema["properties"].(map[string]any)
	for _, k := range []string{"title", "summary"} {
		if _, ok := props[k]; !ok {
			t.Errorf("schema missing property %q", k)
		}
	}
}
