package llm

import (
	"context"
	"crypto/tls"
	"net/http"
	"regexp"
	"strings"
	"time"

	"text2shorts/config"

	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// Client abstracts a chat-completion model.
// Implementations return the assistant's reply text only.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
	ModelName() string
}

// NewDefaultClient returns a chat client based on settings.
// LLM_PROVIDER selects explicitly; otherwise Cohere is used when an API key is
// configured and the local Ollama server is the fallback.
func NewDefaultClient(s config.Settings) Client {
	switch s.LLMProvider {
	case "ollama":
		return NewOllama(s.OllamaHost, s.OllamaModel)
	case "cohere":
		return NewCohere(s.CohereAPIKey, s.CohereModel)
	}
	if s.CohereAPIKey != "" {
		return NewCohere(s.CohereAPIKey, s.CohereModel)
	}
	return NewOllama(s.OllamaHost, s.OllamaModel)
}

// NewCohere builds a Cohere chat client
func NewCohere(apiKey, model string) *Cohere {
	if model == "" {
		model = "command-a-03-2025"
	}
	// Force HTTP/1.1 to avoid HTTP/2 stream resets on long generations
	httpClient := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &Cohere{client: client, model: model}
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes <think>...</think> preambles emitted by reasoning models.
func StripThinking(s string) string {
	s = thinkBlock.ReplaceAllString(s, "")
	// An unterminated block swallows everything before the closing tag
	if i := strings.Index(s, "</think>"); i >= 0 {
		s = s[i+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// StripCodeFence removes a surrounding ```json fence if the model added one.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
