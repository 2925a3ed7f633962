package runtime

import (
	"context"
	"log/slog"

	"companionhk/internal/provider"
)

const retryMessage = "I am having trouble responding right now. Could you try again in a moment?"

// SimpleRuntime is stateless: each turn is generated from the context the
// orchestrator assembled, with no in-process history.
type SimpleRuntime struct {
	logger *slog.Logger
}

func NewSimpleRuntime(logger *slog.Logger) *SimpleRuntime {
	return &SimpleRuntime{logger: logger}
}

func (r *SimpleRuntime) Name() string {
	return "simple"
}

func (r *SimpleRuntime) GenerateReply(ctx context.Context, message string, chat provider.ChatProvider, chatCtx *provider.ChatContext) string {
	reply, err := chat.GenerateReply(ctx, message, chatCtx)
	if err != nil {
		r.logger.Warn("chat provider failed, returning retry message",
			"provider", chat.Name(),
			"thread_id", chatCtx.ThreadID,
			"error", err)
		return retryMessage
	}
	return reply
}
