package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func llmWithServer(t *testing.T, handler http.HandlerFunc) *LLMGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLLM(srv.URL, "test-key", "test-model", 300)
}

func respondJSON(w http.ResponseWriter, content string) {
	resp := chatResponse{
		Choices: []chatChoice{
			{Message: chatMessage{Role: "assistant", Content: content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func testHints() StyleHints {
	return StyleHints{Tone: "professional", MaxChars: 500, Keyword: "workshop"}
}

func TestLLM_SuccessfulGeneration(t *testing.T) {
	g := llmWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content-type = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		user := req.Messages[1].Content
		if !strings.Contains(user, "freelance dev workshop notes") {
			t.Errorf("prompt missing source text: %q", user)
		}
		if !strings.Contains(user, `"workshop"`) {
			t.Errorf("prompt missing keyword: %q", user)
		}

		respondJSON(w, "  Come build with us! #FullStackDeveloper  ")
	})

	post, err := g.Generate(context.Background(), SourceText{ID: "doc-1", Text: "freelance dev workshop notes"}, testHints())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if post.SourceID != "doc-1" {
		t.Errorf("source id = %q, want doc-1", post.SourceID)
	}
	if post.Text != "Come build with us! #FullStackDeveloper" {
		t.Errorf("text = %q", post.Text)
	}
}

func TestLLM_FailureModes(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "api error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{{{not json"))
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(chatResponse{})
			},
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				respondJSON(w, "   \n  ")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := llmWithServer(t, tt.handler)
			_, err := g.Generate(context.Background(), SourceText{ID: "doc-1", Text: "content"}, testHints())
			if !errors.Is(err, ErrFailed) {
				t.Errorf("err = %v, want ErrFailed", err)
			}
		})
	}
}

func TestLLM_NeverExceedsMaxChars(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet ", 100)
	g := llmWithServer(t, func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, long)
	})

	for _, maxChars := range []int{10, 137, 280, 500, 5000} {
		hints := testHints()
		hints.MaxChars = maxChars

		post, err := g.Generate(context.Background(), SourceText{ID: "doc-1", Text: "content"}, hints)
		if err != nil {
			t.Fatalf("max %d: generate: %v", maxChars, err)
		}
		if n := len([]rune(post.Text)); n > maxChars {
			t.Errorf("max %d: post length = %d", maxChars, n)
		}
	}
}

func TestLLM_PromptIncludesFeedbackAndTopic(t *testing.T) {
	var prompt string
	g := llmWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Messages[1].Content
		respondJSON(w, "a post")
	})

	hints := testHints()
	hints.Topic = "AI-powered everything"
	hints.Feedback = "less jargon please"

	if _, err := g.Generate(context.Background(), SourceText{ID: "d", Text: "src"}, hints); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.Contains(prompt, "AI-powered everything") {
		t.Errorf("prompt missing topic: %q", prompt)
	}
	if !strings.Contains(prompt, "less jargon please") {
		t.Errorf("prompt missing feedback: %q", prompt)
	}
}

func TestClampText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxChars int
		want     string
	}{
		{"short enough", "hello world", 500, "hello world"},
		{"cuts at word boundary", "one two three four", 13, "one two three"},
		{"mid-word backs up", "one two three four", 15, "one two three"},
		{"single long word hard cut", "abcdefghijklmnop", 5, "abcde"},
		{"trims whitespace", "  padded  ", 500, "padded"},
		{"zero max is no-op", "anything at all", 0, "anything at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampText(tt.input, tt.maxChars); got != tt.want {
				t.Errorf("clampText(%q, %d) = %q, want %q", tt.input, tt.maxChars, got, tt.want)
			}
		})
	}
}
