package encourager

import (
	"context"
	"fmt"
	"strings"

	"bibleman-bot/internal/infra/openai"
)

const systemPrompt = "You write one short, warm encouragement line (max 25 words) " +
	"for members of a Bible-reading community. No hashtags, no quotes around the text."

// OpenAI generates the encouragement line with a chat model.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(client *openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

func (o *OpenAI) Encouragement(ctx context.Context, day int, passage string) (string, error) {
	prompt := fmt.Sprintf("Today is day %d of the reading plan.", day)
	if passage != "" {
		prompt += " Today's passage: " + passage + "."
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: systemPrompt},
			{Role: openai.RoleUser, Content: prompt},
		},
		Temperature: 0.9,
		MaxTokens:   80,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("encourager: empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
