package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	httpTimeout  = 30 * time.Second
	systemPrompt = "You write social media posts. Return only the post text."

	// Headroom above the configured output budget for models that spend
	// tokens on reasoning before the answer.
	reasoningTokenHeadroom = 400
)

// LLMGenerator produces posts via an OpenAI-compatible chat completions API.
type LLMGenerator struct {
	apiKey    string
	model     string
	maxTokens int
	endpoint  string
	client    *http.Client
}

// NewLLM creates a generator bound to one model and endpoint.
func NewLLM(endpoint, apiKey, model string, maxTokens int) *LLMGenerator {
	return &LLMGenerator{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		endpoint:  endpoint,
		client:    &http.Client{Timeout: httpTimeout},
	}
}

// Generate calls the LLM and returns a post clamped to hints.MaxChars.
// Any service error, malformed response, or empty output fails with
// ErrFailed.
func (g *LLMGenerator) Generate(ctx context.Context, doc SourceText, hints StyleHints) (Post, error) {
	text, err := g.callAPI(ctx, buildPrompt(doc.Text, hints))
	if err != nil {
		return Post{}, err
	}

	text = clampText(text, hints.MaxChars)
	if text == "" {
		return Post{}, failed("llm returned empty post")
	}

	return Post{SourceID: doc.ID, Text: text}, nil
}

// buildPrompt assembles the user prompt from source text and style hints.
func buildPrompt(sourceText string, hints StyleHints) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Generate a %s social media post for Mastodon based on this content.\n\n", hints.Tone)
	sb.WriteString("Requirements:\n")
	sb.WriteString("- Engaging and relevant\n")
	fmt.Fprintf(&sb, "- Under %d characters\n", hints.MaxChars)
	sb.WriteString("- Include relevant hashtags if appropriate\n")
	fmt.Fprintf(&sb, "- Tone: %s\n", hints.Tone)
	if hints.Keyword != "" {
		fmt.Fprintf(&sb, "- Emphasize the keyword %q\n", hints.Keyword)
	}
	if hints.Topic != "" {
		fmt.Fprintf(&sb, "\nTopic angle: %s\n(Incorporate this as a theme, but keep the focus on the source content.)\n", hints.Topic)
	}

	fmt.Fprintf(&sb, "\nSource content:\n%s\n", sourceText)

	if hints.Feedback != "" {
		fmt.Fprintf(&sb, "\nImportant feedback to follow:\n%s\n", hints.Feedback)
	}

	sb.WriteString("\nOutput ONLY the post text.")
	return sb.String()
}

func (g *LLMGenerator) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   g.maxTokens + reasoningTokenHeadroom,
		Temperature: 0.7,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", failed("marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", failed("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", failed("http request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", failed("api returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", failed("decode response: %v", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", failed("empty choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}
