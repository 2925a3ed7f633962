package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"companionhk/internal/config"
)

// MiniMaxProvider talks to the MiniMax OpenAI-compatible chat completion API.
// It backs both conversational replies and the safety classifier.
type MiniMaxProvider struct {
	client      *openai.Client
	chatModel   string
	safetyModel string
	timeout     time.Duration
}

// NewMiniMaxProvider builds a MiniMax client from config. The client is
// constructed even when MiniMax is disabled; the resolver gates usage.
func NewMiniMaxProvider(cfg *config.Config) *MiniMaxProvider {
	clientConfig := openai.DefaultConfig(cfg.MiniMaxAPIKey)
	clientConfig.BaseURL = cfg.MiniMaxBaseURL

	return &MiniMaxProvider{
		client:      openai.NewClientWithConfig(clientConfig),
		chatModel:   cfg.MiniMaxChatModel,
		safetyModel: cfg.MiniMaxSafetyModel,
		timeout:     cfg.ProviderTimeout,
	}
}

func (p *MiniMaxProvider) Name() string {
	return "minimax"
}

// GenerateReply runs one chat completion over the system prompt, replayed
// history, and the new user message.
func (p *MiniMaxProvider) GenerateReply(ctx context.Context, message string, chatCtx *ChatContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: chatCtx.SystemPrompt},
	}
	for _, turn := range chatCtx.History {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.UserMessage},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.AssistantReply},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("minimax chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("minimax chat completion: empty choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("minimax chat completion: empty reply")
	}
	return reply, nil
}

// Classify runs the safety prompt at temperature zero and returns the raw
// model output for the monitor to parse.
func (p *MiniMaxProvider) Classify(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.safetyModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("minimax safety classification: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("minimax safety classification: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
