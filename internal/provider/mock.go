package provider

import "context"

const mockReply = "Thank you for sharing this with me. I am here with you, and we can take this one step at a time."

// MockChatProvider returns a fixed supportive reply. It backs local
// development and deployments where no live chat provider is configured.
type MockChatProvider struct{}

func NewMockChatProvider() *MockChatProvider {
	return &MockChatProvider{}
}

func (p *MockChatProvider) Name() string {
	return "mock"
}

func (p *MockChatProvider) GenerateReply(ctx context.Context, message string, chatCtx *ChatContext) (string, error) {
	return mockReply, nil
}
