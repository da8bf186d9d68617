package services

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/dariomilagre8-bot/vendazap-backend/internal/models"
)

// LLMService wraps the OpenAI chat completions API. Stateless per call: the
// system prompt is rebuilt by the caller every turn with live stock numbers.
type LLMService struct {
	client openai.Client
	model  string
}

// NewLLMService creates the OpenAI client from OPENAI_API_KEY / OPENAI_MODEL.
func NewLLMService() (*LLMService, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY in environment variables")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &LLMService{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Generate produces a free-text reply given a system prompt, the recent
// chat history and the customer's latest message.
func (l *LLMService) Generate(ctx context.Context, system string, history []models.ChatMessage, userText string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, msg := range history {
		if msg.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(userText))

	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(l.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
