package runtime

import (
	"context"
	"log/slog"
	"sync"

	"companionhk/internal/provider"
)

// threadState holds the in-process history window for one thread. Each
// thread has its own mutex so turns on different threads never block each
// other.
type threadState struct {
	mu      sync.Mutex
	history []provider.HistoryTurn
}

// ThreadedRuntime keeps a bounded per-thread history window in process and
// replays it into each completion. History is append-only within a thread;
// the window drops the oldest turn once full.
type ThreadedRuntime struct {
	maxTurns int
	logger   *slog.Logger

	mu      sync.Mutex
	threads map[string]*threadState
}

func NewThreadedRuntime(maxTurns int, logger *slog.Logger) *ThreadedRuntime {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &ThreadedRuntime{
		maxTurns: maxTurns,
		logger:   logger,
		threads:  make(map[string]*threadState),
	}
}

func (r *ThreadedRuntime) Name() string {
	return "threaded"
}

func (r *ThreadedRuntime) state(threadID string) *threadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.threads[threadID]
	if !ok {
		state = &threadState{}
		r.threads[threadID] = state
	}
	return state
}

func (r *ThreadedRuntime) GenerateReply(ctx context.Context, message string, chat provider.ChatProvider, chatCtx *provider.ChatContext) string {
	state := r.state(chatCtx.ThreadID)

	state.mu.Lock()
	defer state.mu.Unlock()

	// The in-process window supersedes the persisted history the
	// orchestrator loaded; both cover the same turns once warm.
	if len(state.history) > 0 {
		chatCtx.History = append([]provider.HistoryTurn{}, state.history...)
	}

	reply, err := chat.GenerateReply(ctx, message, chatCtx)
	if err != nil {
		r.logger.Warn("chat provider failed, returning retry message",
			"provider", chat.Name(),
			"thread_id", chatCtx.ThreadID,
			"error", err)
		return retryMessage
	}

	state.history = append(state.history, provider.HistoryTurn{
		UserMessage:    message,
		AssistantReply: reply,
	})
	if len(state.history) > r.maxTurns {
		state.history = state.history[len(state.history)-r.maxTurns:]
	}

	return reply
}

// Forget drops the in-process window for a thread, used on history clear.
func (r *ThreadedRuntime) Forget(threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, threadID)
}
