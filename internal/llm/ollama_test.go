package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

func newTestClient(serverURL string) *Client {
	return NewClient(models.OllamaConfig{
		Host:  serverURL,
		Model: "llama3.2:latest",
	})
}

func TestChat_Success(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message: models.ChatMessage{Role: "assistant", Content: `{"domain": "Work"}`},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.Chat(context.Background(), models.UserMessage("classify this"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"domain": "Work"}` {
		t.Errorf("got %q", got)
	}
	if gotReq.Model != "llama3.2:latest" {
		t.Errorf("empty model should fall back to default, got %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("streaming must be disabled")
	}
}

func TestChat_ModelOverride(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		json.NewEncoder(w).Encode(chatResponse{Message: models.ChatMessage{Content: "ok"}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Chat(context.Background(), models.UserMessage("x"), "mistral:7b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotModel != "mistral:7b" {
		t.Errorf("per-call model not honored, got %q", gotModel)
	}
}

func TestChat_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), models.UserMessage("x"), "")
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
}

func TestChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), models.UserMessage("x"), "")
	if !errors.Is(err, ErrServerUnavailable) {
		t.Fatalf("expected ErrServerUnavailable, got %v", err)
	}
}

func TestChat_APIErrorInBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Error: "out of memory"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), models.UserMessage("x"), "")
	if !errors.Is(err, ErrServerUnavailable) {
		t.Fatalf("expected ErrServerUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "out of memory") {
		t.Errorf("error should carry the API message, got %v", err)
	}
}

func TestChat_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse from now on

	_, err := newTestClient(srv.URL).Chat(context.Background(), models.UserMessage("x"), "")
	if !errors.Is(err, ErrServerUnavailable) {
		t.Fatalf("expected ErrServerUnavailable, got %v", err)
	}
}

func TestChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(models.OllamaConfig{Host: srv.URL, Model: "m"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, models.UserMessage("x"), "")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models": [{"name": "llama3.2:latest"}, {"name": "mistral:7b"}]}`))
	}))
	defer srv.Close()

	names, err := newTestClient(srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"llama3.2:latest", "mistral:7b"}) {
		t.Errorf("got %v", names)
	}
}

func TestIsModelAvailable(t *testing.T) {
	tests := []struct {
		name  string
		model string
		tags  string
		want  bool
	}{
		{"exact match", "llama3.2:latest", `{"models": [{"name": "llama3.2:latest"}]}`, true},
		{"base name match", "llama3.2:latest", `{"models": [{"name": "llama3.2:q4"}]}`, true},
		{"absent", "mistral:7b", `{"models": [{"name": "llama3.2:latest"}]}`, false},
		{"empty list", "llama3.2:latest", `{"models": []}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.tags))
			}))
			defer srv.Close()

			c := NewClient(models.OllamaConfig{Host: srv.URL, Model: tt.model})
			if got := c.IsModelAvailable(context.Background()); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"models": [{"name": "llama3.2:latest"}]}`))
		}))
		defer srv.Close()

		status := newTestClient(srv.URL).HealthCheck(context.Background())
		if !status.Ready || !status.ServerRunning || !status.ModelAvailable {
			t.Errorf("expected ready status, got %+v", status)
		}
	})

	t.Run("server down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		status := newTestClient(srv.URL).HealthCheck(context.Background())
		if status.Ready || status.ServerRunning {
			t.Errorf("expected not-ready status, got %+v", status)
		}
		if status.Error == "" {
			t.Error("expected an error message")
		}
	})

	t.Run("model missing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"models": [{"name": "other:latest"}]}`))
		}))
		defer srv.Close()

		status := newTestClient(srv.URL).HealthCheck(context.Background())
		if status.Ready || !status.ServerRunning || status.ModelAvailable {
			t.Errorf("expected model-missing status, got %+v", status)
		}
		if !strings.Contains(status.Error, "ollama pull") {
			t.Errorf("error should suggest pulling the model, got %q", status.Error)
		}
	})
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(models.OllamaConfig{})
	if c.host != DefaultHost {
		t.Errorf("host = %q", c.host)
	}
	if c.Model() != DefaultModel {
		t.Errorf("model = %q", c.Model())
	}

	c = NewClient(models.OllamaConfig{Host: "http://example.test:11434/"})
	if c.host != "http://example.test:11434" {
		t.Errorf("trailing slash should be trimmed, got %q", c.host)
	}
}
