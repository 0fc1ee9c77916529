package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/partident/internal/providers"
)

func TestExtractText(t *testing.T) {
	var request struct {
		Model  string   `json:"model"`
		Prompt string   `json:"prompt"`
		Images []string `json:"images"`
		Format string   `json:"format"`
		Stream bool     `json:"stream"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"parts\":[],\"summary\":\"ok\"}"}`))
	}))
	defer srv.Close()

	out, err := New(srv.URL).ExtractText(context.Background(), providers.Config{
		Model:  "mistral-small3.2:24b",
		Prompt: "identify",
		Images: []providers.Image{{Data: []byte("abc"), Format: "jpeg"}},
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if out != `{"parts":[],"summary":"ok"}` {
		t.Errorf("Unexpected output %q", out)
	}
	if request.Model != "mistral-small3.2:24b" || request.Prompt != "identify" {
		t.Errorf("Unexpected request %+v", request)
	}
	if len(request.Images) != 1 || request.Images[0] != "YWJj" {
		t.Errorf("Expected base64 image, got %v", request.Images)
	}
	if request.Format != "json" {
		t.Errorf("Expected json format, got %q", request.Format)
	}
	if request.Stream {
		t.Error("Expected stream=false")
	}
}

func TestExtractText_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := New(srv.URL).ExtractText(context.Background(), providers.Config{Model: "missing"}); err == nil {
		t.Error("Expected error on non-200 response")
	}
}
