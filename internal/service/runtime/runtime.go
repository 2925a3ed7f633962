package runtime

import (
	"context"
	"log/slog"

	"companionhk/internal/config"
	"companionhk/internal/provider"
)

// Runtime turns a resolved chat provider into an assistant reply. A runtime
// never fails a turn: provider errors degrade to a generic retry message.
type Runtime interface {
	Name() string
	GenerateReply(ctx context.Context, message string, chat provider.ChatProvider, chatCtx *provider.ChatContext) string
}

// New selects the runtime for this deployment.
func New(cfg *config.Config, logger *slog.Logger) Runtime {
	if cfg.ThreadedRuntimeEnabled {
		return NewThreadedRuntime(cfg.RuntimeHistoryMaxTurns, logger)
	}
	return NewSimpleRuntime(logger)
}
