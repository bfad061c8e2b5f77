package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// Cohere implements Client using the Cohere Chat API (v2)
// SDK: github.com/cohere-ai/cohere-go/v2
type Cohere struct {
	client *cohereclient.Client
	model  string
}

func (c *Cohere) ModelName() string { return c.model }

func (c *Cohere) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.V2.Chat(
		ctx,
		&cohere.V2ChatRequest{
			Model: c.model,
			Messages: cohere.ChatMessages{
				{
					Role: "system",
					System: &cohere.SystemMessageV2{
						Content: &cohere.SystemMessageV2Content{String: system},
					},
				},
				{
					Role: "user",
					User: &cohere.UserMessageV2{
						Content: &cohere.UserMessageV2Content{String: user},
					},
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Message == nil {
		return "", errors.New("cohere chat returned empty response")
	}

	var b strings.Builder
	for _, item := range resp.Message.Content {
		if item != nil && item.Text != nil {
			b.WriteString(item.Text.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("cohere chat returned no text")
	}
	return StripThinking(b.String()), nil
}
