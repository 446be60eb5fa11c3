package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("http://localhost:11434", "llama3.1", 0)

	if client.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:11434")
	}
	if client.Model() != "llama3.1" {
		t.Errorf("Model() = %q, want %q", client.Model(), "llama3.1")
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.httpClient.Timeout, DefaultTimeout)
	}

	client = NewClient("http://localhost:11434", "llama3.1", 5*time.Second)
	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.httpClient.Timeout)
	}
}

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}

		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "llama3.1" {
			t.Errorf("Model = %q, want %q", req.Model, "llama3.1")
		}
		if req.Stream {
			t.Error("Stream = true, want false")
		}
		if !strings.Contains(req.Prompt, "derive the status tags") {
			t.Errorf("Prompt = %q, want the instruction text", req.Prompt)
		}

		json.NewEncoder(w).Encode(GenerateResponse{
			Model:    req.Model,
			Response: "[time: 2:05 PM] [heart: 120]",
			Done:     true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3.1", 0)
	got, err := client.GenerateText(context.Background(), "derive the status tags")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if got != "[time: 2:05 PM] [heart: 120]" {
		t.Errorf("GenerateText() = %q", got)
	}
}

func TestGenerateTextRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(GenerateResponse{Response: "ok", Done: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3.1", 0)
	got, err := client.GenerateText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("GenerateText() = %q, want %q", got, "ok")
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestGenerateTextCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL, "llama3.1", 0)
	if _, err := client.GenerateText(ctx, "hello"); err == nil {
		t.Fatal("GenerateText() = nil error with cancelled context")
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "llama3.1", 0)
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	srv.Close()
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() = nil error against closed server")
	}
}
