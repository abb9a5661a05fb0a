package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// ChatServer is an OpenAI-compatible endpoint that answers every request with
// the reply chosen by Answer for the last user turn.
type ChatServer struct {
	*httptest.Server
	calls atomic.Int64
}

// Calls returns how many completion requests were served.
func (s *ChatServer) Calls() int64 { return s.calls.Load() }

// NewChatServer starts a ChatServer closed automatically at test cleanup.
func NewChatServer(t testing.TB, answer func(user string) string) *ChatServer {
	t.Helper()

	srv := &ChatServer{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.calls.Add(1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var user string
		for _, m := range req.Messages {
			if m.Role == "user" {
				user = m.Content
			}
		}
		payload := map[string]any{
			"choices": []any{map[string]any{
				"message":       map[string]any{"content": answer(user)},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 50, "completion_tokens": 2},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// KeywordAnswer replies with the tag of the first fixture record whose title
// appears in the user content, or "other".
func KeywordAnswer(user string) string {
	keywords := map[string]string{
		"Sentiment": "natural-language-processing",
		"Face":      "computer-vision",
		"CI for ML": "'mlops'",
	}
	for k, tag := range keywords {
		if strings.Contains(user, k) {
			return tag
		}
	}
	return "other"
}
