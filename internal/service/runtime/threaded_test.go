package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companionhk/internal/domain/models"
	"companionhk/internal/provider"
)

// echoProvider records the history it was handed and replies with a counter.
type echoProvider struct {
	mu       sync.Mutex
	calls    int
	lastHist []provider.HistoryTurn
	fail     bool
}

func (p *echoProvider) Name() string { return "echo" }

func (p *echoProvider) GenerateReply(ctx context.Context, message string, chatCtx *provider.ChatContext) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return "", errors.New("provider down")
	}
	p.calls++
	p.lastHist = append([]provider.HistoryTurn{}, chatCtx.History...)
	return "reply", nil
}

func newChatCtx(threadID string) *provider.ChatContext {
	return &provider.ChatContext{
		UserID:   "u1",
		ThreadID: threadID,
		Role:     models.RoleCompanion,
	}
}

func TestThreadedRuntimeAccumulatesHistory(t *testing.T) {
	rt := NewThreadedRuntime(10, slog.Default())
	echo := &echoProvider{}

	rt.GenerateReply(context.Background(), "first", echo, newChatCtx("t1"))
	rt.GenerateReply(context.Background(), "second", echo, newChatCtx("t1"))
	rt.GenerateReply(context.Background(), "third", echo, newChatCtx("t1"))

	require.Len(t, echo.lastHist, 2)
	assert.Equal(t, "first", echo.lastHist[0].UserMessage)
	assert.Equal(t, "second", echo.lastHist[1].UserMessage)
}

func TestThreadedRuntimeWindowCap(t *testing.T) {
	rt := NewThreadedRuntime(2, slog.Default())
	echo := &echoProvider{}

	for _, msg := range []string{"a", "b", "c", "d"} {
		rt.GenerateReply(context.Background(), msg, echo, newChatCtx("t1"))
	}

	// Four turns with a window of two: the last call saw b and c.
	require.Len(t, echo.lastHist, 2)
	assert.Equal(t, "b", echo.lastHist[0].UserMessage)
	assert.Equal(t, "c", echo.lastHist[1].UserMessage)
}

func TestThreadedRuntimeThreadsIsolated(t *testing.T) {
	rt := NewThreadedRuntime(10, slog.Default())
	echo := &echoProvider{}

	rt.GenerateReply(context.Background(), "on t1", echo, newChatCtx("t1"))
	rt.GenerateReply(context.Background(), "on t2", echo, newChatCtx("t2"))

	assert.Empty(t, echo.lastHist)
}

func TestThreadedRuntimeProviderFailure(t *testing.T) {
	rt := NewThreadedRuntime(10, slog.Default())
	echo := &echoProvider{fail: true}

	reply := rt.GenerateReply(context.Background(), "hello", echo, newChatCtx("t1"))
	assert.Equal(t, retryMessage, reply)

	// A failed turn is not recorded in the window.
	echo.fail = false
	rt.GenerateReply(context.Background(), "again", echo, newChatCtx("t1"))
	assert.Empty(t, echo.lastHist)
}

func TestThreadedRuntimeForget(t *testing.T) {
	rt := NewThreadedRuntime(10, slog.Default())
	echo := &echoProvider{}

	rt.GenerateReply(context.Background(), "first", echo, newChatCtx("t1"))
	rt.Forget("t1")
	rt.GenerateReply(context.Background(), "fresh", echo, newChatCtx("t1"))

	assert.Empty(t, echo.lastHist)
}

func TestThreadedRuntimeConcurrentThreads(t *testing.T) {
	rt := NewThreadedRuntime(10, slog.Default())
	echo := &echoProvider{}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		threadID := string(rune('a' + i))
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				rt.GenerateReply(context.Background(), "msg", echo, newChatCtx(threadID))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 40, echo.calls)
}

func TestSimpleRuntimeProviderFailure(t *testing.T) {
	rt := NewSimpleRuntime(slog.Default())
	echo := &echoProvider{fail: true}

	reply := rt.GenerateReply(context.Background(), "hello", echo, newChatCtx("t1"))
	assert.Equal(t, retryMessage, reply)
}

func TestSystemPromptFor(t *testing.T) {
	assert.Contains(t, SystemPromptFor(models.RoleCompanion), "Companion")
	assert.Contains(t, SystemPromptFor(models.RoleLocalGuide), "Local Guide")
	assert.Contains(t, SystemPromptFor(models.RoleStudyGuide), "Study Guide")

	// Unknown roles fall back to the companion persona.
	assert.Equal(t, SystemPromptFor(models.RoleCompanion), SystemPromptFor(models.Role("pirate")))
}
