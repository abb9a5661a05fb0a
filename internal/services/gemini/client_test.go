package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

type capturedRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
}

func generateHandler(t *testing.T, text string, seen *capturedRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		payload := map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 33, "candidatesTokenCount": 2},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), llm.Config{APIKey: "test", BaseURL: url})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func TestCompleteMapsTurns(t *testing.T) {
	var seen capturedRequest
	server := httptest.NewServer(generateHandler(t, "natural-language-processing\n", &seen))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.Complete(context.Background(), llm.Request{
		Model:    "gemini-test",
		Messages: llm.Conversation("system text", "examples", "record"),
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "natural-language-processing" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Usage.PromptTokens != 33 || resp.Usage.CompletionTokens != 2 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if seen.SystemInstruction == nil || len(seen.SystemInstruction.Parts) != 2 {
		t.Fatalf("expected system and example instruction parts, got %+v", seen.SystemInstruction)
	}
	if seen.SystemInstruction.Parts[0].Text != "system text" || seen.SystemInstruction.Parts[1].Text != "examples" {
		t.Fatalf("unexpected system instruction %+v", seen.SystemInstruction)
	}
	if len(seen.Contents) != 1 {
		t.Fatalf("expected a single content, got %d", len(seen.Contents))
	}
	if seen.Contents[0].Role != "user" || seen.Contents[0].Parts[0].Text != "record" {
		t.Fatalf("unexpected user turn %+v", seen.Contents[0])
	}
}

func TestBuildRequestOpensWithUserTurn(t *testing.T) {
	for _, assistant := range []string{"", "examples"} {
		contents, config := buildRequest(llm.Request{
			Model:    "gemini-test",
			Messages: llm.Conversation("sys", assistant, "user"),
		}, llm.Config{MaxTokens: 8})
		if len(contents) == 0 || contents[0].Role != genai.RoleUser {
			t.Fatalf("assistant=%q: first content must be a user turn, got %+v", assistant, contents)
		}
		for _, c := range contents {
			if c.Role == genai.RoleModel {
				t.Fatalf("assistant=%q: unexpected model turn %+v", assistant, c)
			}
		}
		wantParts := 1
		if assistant != "" {
			wantParts = 2
		}
		if config.SystemInstruction == nil || len(config.SystemInstruction.Parts) != wantParts {
			t.Fatalf("assistant=%q: expected %d instruction parts, got %+v", assistant, wantParts, config.SystemInstruction)
		}
	}
}

func TestCompleteClassifiesStatusErrors(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
		config    bool
	}{
		{status: http.StatusServiceUnavailable, transient: true},
		{status: http.StatusTooManyRequests, transient: true},
		{status: http.StatusForbidden, config: true},
		{status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(fmt.Sprintf(`{"error":{"code":%d,"message":"nope","status":"ERR"}}`, tc.status)))
		}))
		client := newTestClient(t, server.URL)
		_, err := client.Complete(context.Background(), llm.Request{Model: "gemini-test", Messages: llm.Conversation("s", "", "u")})
		server.Close()

		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if got := errors.Is(err, services.ErrTransient); got != tc.transient {
			t.Fatalf("status %d: transient=%v, want %v (%v)", tc.status, got, tc.transient, err)
		}
		if got := errors.Is(err, services.ErrConfiguration); got != tc.config {
			t.Fatalf("status %d: configuration=%v, want %v (%v)", tc.status, got, tc.config, err)
		}
	}
}

func TestCompleteEmptyTextIsTransient(t *testing.T) {
	server := httptest.NewServer(generateHandler(t, "", nil))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Complete(context.Background(), llm.Request{Model: "gemini-test", Messages: llm.Conversation("s", "", "u")})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestCompleteWithoutKeyIsConfigurationError(t *testing.T) {
	client, err := NewClient(context.Background(), llm.Config{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = client.Complete(context.Background(), llm.Request{Model: "m", Messages: llm.Conversation("s", "", "u")})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
