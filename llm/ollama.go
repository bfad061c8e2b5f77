package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Ollama implements Client against a local Ollama server
// Endpoint: POST {host}/api/chat
// Request: {"model": "...", "messages": [{"role": "system", "content": "..."}], "stream": false}
// Response: {"message": {"role": "assistant", "content": "..."}}
type Ollama struct {
	host   string
	model  string
	client *http.Client
}

// NewOllama builds an Ollama chat client. Model calls have no timeout.
func NewOllama(host, model string) *Ollama {
	return &Ollama{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{},
	}
}

func (o *Ollama) ModelName() string { return o.model }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o *Ollama) Chat(ctx context.Context, system, user string) (string, error) {
	payload := map[string]interface{}{
		"model": o.model,
		"messages": []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		"stream": false,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.host+"/api/chat", bytes.NewBuffer(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return "", fmt.Errorf("ollama chat error: status %d: %v", resp.StatusCode, body)
	}

	var parsed struct {
		Message ollamaMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if parsed.Message.Content == "" {
		return "", errors.New("ollama chat returned no content")
	}
	return StripThinking(parsed.Message.Content), nil
}
