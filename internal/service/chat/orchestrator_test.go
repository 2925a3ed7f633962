package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companionhk/internal/config"
	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
	"companionhk/internal/memory"
	"companionhk/internal/provider"
	"companionhk/internal/service/runtime"
	"companionhk/internal/service/safety"
)

type memChatRepo struct {
	users        []string
	threads      []models.Thread
	messages     []models.ChatMessage
	safetyEvents []models.SafetyEvent
}

func (r *memChatRepo) EnsureUser(ctx context.Context, userID string) error {
	r.users = append(r.users, userID)
	return nil
}

func (r *memChatRepo) GetOrCreateThread(ctx context.Context, userID string, role models.Role, threadID string) (*models.Thread, error) {
	for i := range r.threads {
		if r.threads[i].UserID == userID && r.threads[i].Role == role && r.threads[i].ThreadID == threadID {
			return &r.threads[i], nil
		}
	}
	thread := models.Thread{
		ID:       int64(len(r.threads) + 1),
		UserID:   userID,
		Role:     role,
		ThreadID: threadID,
	}
	r.threads = append(r.threads, thread)
	return &thread, nil
}

func (r *memChatRepo) GetCurrentThread(ctx context.Context, userID string, role models.Role) (*models.Thread, error) {
	for i := len(r.threads) - 1; i >= 0; i-- {
		if r.threads[i].UserID == userID && r.threads[i].Role == role {
			return &r.threads[i], nil
		}
	}
	return nil, nil
}

func (r *memChatRepo) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	message.ID = int64(len(r.messages) + 1)
	message.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, *message)
	return nil
}

func (r *memChatRepo) CreateSafetyEvent(ctx context.Context, event *models.SafetyEvent) error {
	r.safetyEvents = append(r.safetyEvents, *event)
	return nil
}

func (r *memChatRepo) ListRecentTurns(ctx context.Context, userID string, role models.Role, threadID string, limit int) ([]repositories.TurnWithSafety, error) {
	var turns []repositories.TurnWithSafety
	for i := len(r.messages) - 1; i >= 0 && len(turns) < limit; i-- {
		message := r.messages[i]
		if message.UserID != userID || message.Role != role || message.ThreadID != threadID {
			continue
		}
		turn := repositories.TurnWithSafety{Message: message}
		for j := range r.safetyEvents {
			if r.safetyEvents[j].ChatMessageID == message.ID {
				turn.Safety = &r.safetyEvents[j]
			}
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (r *memChatRepo) ListThreadRequestIDs(ctx context.Context, userID string, role models.Role, threadID string) ([]string, error) {
	var ids []string
	for _, message := range r.messages {
		if message.UserID == userID && message.Role == role && message.ThreadID == threadID {
			ids = append(ids, message.RequestID)
		}
	}
	return ids, nil
}

func (r *memChatRepo) DeleteThreadMessages(ctx context.Context, userID string, role models.Role, threadID string) (int64, error) {
	var kept []models.ChatMessage
	var deleted int64
	for _, message := range r.messages {
		if message.UserID == userID && message.Role == role && message.ThreadID == threadID {
			deleted++
			continue
		}
		kept = append(kept, message)
	}
	r.messages = kept
	return deleted, nil
}

type memAuditRepo struct {
	providerEvents []models.ProviderEvent
	auditEvents    []models.AuditEvent
}

func (r *memAuditRepo) CreateProviderEvent(ctx context.Context, event *models.ProviderEvent) error {
	r.providerEvents = append(r.providerEvents, *event)
	return nil
}

func (r *memAuditRepo) CreateAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	r.auditEvents = append(r.auditEvents, *event)
	return nil
}

type memMemoryRepo struct {
	entries    []models.MemoryEntry
	embeddings []models.MemoryEmbedding
}

func (r *memMemoryRepo) CreateEntry(ctx context.Context, entry *models.MemoryEntry) error {
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memMemoryRepo) CreateEmbedding(ctx context.Context, embedding *models.MemoryEmbedding) error {
	r.embeddings = append(r.embeddings, *embedding)
	return nil
}

func (r *memMemoryRepo) DeleteByThread(ctx context.Context, userID string, role models.Role, threadID string) (int64, error) {
	var kept []models.MemoryEntry
	var deleted int64
	for _, entry := range r.entries {
		if entry.UserID == userID && entry.Role == role && entry.ThreadID == threadID {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return deleted, nil
}

type memRecRepo struct {
	deletedRequestIDs []string
}

func (r *memRecRepo) CreateRequest(ctx context.Context, request *models.RecommendationRequestRecord) error {
	return nil
}

func (r *memRecRepo) CreateItems(ctx context.Context, requestPK int64, items []models.RecommendationItemRecord) error {
	return nil
}

func (r *memRecRepo) ListRecent(ctx context.Context, userID string, role models.Role, limit int) ([]repositories.RecommendationWithItems, error) {
	return nil, nil
}

func (r *memRecRepo) ListByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) ([]repositories.RecommendationWithItems, error) {
	return nil, nil
}

func (r *memRecRepo) DeleteByRequestIDs(ctx context.Context, userID string, role models.Role, requestIDs []string) (int64, error) {
	r.deletedRequestIDs = append(r.deletedRequestIDs, requestIDs...)
	return int64(len(requestIDs)), nil
}

type memCache struct {
	pushedKeys  []string
	deletedKeys []string
}

func (c *memCache) PushTurn(ctx context.Context, key string, payload []byte, maxTurns int, ttl time.Duration) error {
	c.pushedKeys = append(c.pushedKeys, key)
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.deletedKeys = append(c.deletedKeys, key)
	return nil
}

func (c *memCache) Ping(ctx context.Context) error {
	return nil
}

type passTxManager struct {
	calls int
	fail  bool
}

func (m *passTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	m.calls++
	if m.fail {
		return errors.New("connection reset")
	}
	return fn(ctx)
}

type chatTestEnv struct {
	service   *Service
	chatRepo  *memChatRepo
	auditRepo *memAuditRepo
	memRepo   *memMemoryRepo
	recRepo   *memRecRepo
	cache     *memCache
	txm       *passTxManager
}

func newChatTestEnv(t *testing.T) *chatTestEnv {
	t.Helper()

	cfg := &config.Config{
		ChatProvider:            "mock",
		RuntimeHistoryMaxTurns:  20,
		MemoryShortTermMaxTurns: 10,
		MemoryShortTermTTL:      time.Hour,
		MemoryRetrievalTopK:     5,
	}
	logger := slog.Default()

	env := &chatTestEnv{
		chatRepo:  &memChatRepo{},
		auditRepo: &memAuditRepo{},
		memRepo:   &memMemoryRepo{},
		recRepo:   &memRecRepo{},
		cache:     &memCache{},
		txm:       &passTxManager{},
	}

	resolver := provider.NewResolver(cfg, logger)
	env.service = NewService(
		cfg,
		logger,
		env.chatRepo,
		env.auditRepo,
		env.memRepo,
		env.recRepo,
		env.cache,
		env.txm,
		resolver,
		safety.NewMonitor(resolver, logger),
		runtime.New(cfg, logger),
		memory.NewEmbeddingProvider(cfg),
	)
	return env
}

func TestGenerateReplySuccessPersistsTurn(t *testing.T) {
	env := newChatTestEnv(t)

	resp, err := env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID:  "u1",
		Role:    "companion",
		Message: "I had a long day at work today.",
	})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "not_applicable", resp.FallbackReason)
	assert.Equal(t, "mock", resp.Provider)
	assert.Equal(t, "u1-companion-thread", resp.ThreadID)
	assert.NotEmpty(t, resp.Reply)
	assert.Equal(t, models.RiskLow, resp.Safety.RiskLevel)
	assert.Equal(t, models.PolicyAllow, resp.Safety.PolicyAction)
	assert.True(t, resp.Safety.Degraded)

	// One transaction carried the full turn.
	assert.Equal(t, 1, env.txm.calls)
	require.Len(t, env.chatRepo.messages, 1)
	message := env.chatRepo.messages[0]
	assert.Equal(t, resp.RequestID, message.RequestID)
	assert.Equal(t, "I had a long day at work today.", message.UserMessage)
	assert.Equal(t, resp.Reply, message.AssistantReply)

	require.Len(t, env.chatRepo.safetyEvents, 1)
	assert.Equal(t, message.ID, env.chatRepo.safetyEvents[0].ChatMessageID)
	assert.Equal(t, models.RiskLow, env.chatRepo.safetyEvents[0].RiskLevel)

	// Chat and safety provider events, with the safety monitor degraded to rules.
	require.Len(t, env.auditRepo.providerEvents, 2)
	assert.Equal(t, models.ScopeChat, env.auditRepo.providerEvents[0].Scope)
	assert.Equal(t, models.ProviderStatusSuccess, env.auditRepo.providerEvents[0].Status)
	assert.Equal(t, models.ScopeSafety, env.auditRepo.providerEvents[1].Scope)
	assert.Equal(t, models.ProviderStatusDegraded, env.auditRepo.providerEvents[1].Status)

	// Memory entry plus its embedding, and the two audit rows.
	require.Len(t, env.memRepo.entries, 1)
	assert.True(t, strings.HasPrefix(env.memRepo.entries[0].Content, "User intent summary: "))
	assert.Equal(t, "chat_turn_summary", env.memRepo.entries[0].WriteReason)
	require.Len(t, env.memRepo.embeddings, 1)
	assert.Equal(t, "cosine", env.memRepo.embeddings[0].DistanceMetric)
	assert.NotEmpty(t, env.memRepo.embeddings[0].Embedding)

	require.Len(t, env.auditRepo.auditEvents, 2)
	assert.Equal(t, models.AuditSafetyEvent, env.auditRepo.auditEvents[0].EventType)
	assert.Equal(t, models.AuditMemoryWrite, env.auditRepo.auditEvents[1].EventType)

	require.Len(t, env.cache.pushedKeys, 1)
	assert.Equal(t, "stm:u1:companion:u1-companion-thread", env.cache.pushedKeys[0])
}

func TestGenerateReplyHighRiskShortCircuits(t *testing.T) {
	env := newChatTestEnv(t)

	resp, err := env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID:  "u1",
		Role:    "companion",
		Message: "I want to die",
	})
	require.NoError(t, err)

	assert.Equal(t, safety.SupportiveRefusalMessage, resp.Reply)
	assert.Equal(t, models.RiskHigh, resp.Safety.RiskLevel)
	assert.Equal(t, models.PolicySupportiveRefusal, resp.Safety.PolicyAction)
	assert.True(t, resp.Safety.ShowCrisisBanner)

	// The refusal turn is still persisted like any other.
	require.Len(t, env.chatRepo.messages, 1)
	assert.Equal(t, safety.SupportiveRefusalMessage, env.chatRepo.messages[0].AssistantReply)
	require.Len(t, env.chatRepo.safetyEvents, 1)
	assert.True(t, env.chatRepo.safetyEvents[0].ShowCrisisBanner)
}

func TestGenerateReplyValidation(t *testing.T) {
	env := newChatTestEnv(t)

	_, err := env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID:  "u1",
		Role:    "wizard",
		Message: "hello",
	})
	assert.Error(t, err)

	_, err = env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID: "u1",
		Role:   "companion",
	})
	assert.Error(t, err)
}

func TestGenerateReplySurvivesPersistenceFailure(t *testing.T) {
	env := newChatTestEnv(t)
	env.txm.fail = true

	resp, err := env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID:  "u1",
		Role:    "companion",
		Message: "hello there",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Reply)
	assert.Empty(t, env.chatRepo.messages)
}

func TestGetHistoryChronologicalOrder(t *testing.T) {
	env := newChatTestEnv(t)

	for _, message := range []string{"first message", "second message", "third message"} {
		_, err := env.service.GenerateReply(context.Background(), GenerateRequest{
			UserID:  "u1",
			Role:    "companion",
			Message: message,
		})
		require.NoError(t, err)
	}

	history, err := env.service.GetHistory(context.Background(), HistoryRequest{
		UserID: "u1",
		Role:   "companion",
	})
	require.NoError(t, err)

	assert.Equal(t, "u1-companion-thread", history.ThreadID)
	require.Len(t, history.Turns, 3)
	assert.Equal(t, "first message", history.Turns[0].UserMessage)
	assert.Equal(t, "third message", history.Turns[2].UserMessage)
	assert.Equal(t, models.RiskLow, history.Turns[0].Safety.RiskLevel)
	assert.Equal(t, models.PolicyAllow, history.Turns[0].Safety.PolicyAction)

	limited, err := env.service.GetHistory(context.Background(), HistoryRequest{
		UserID: "u1",
		Role:   "companion",
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, limited.Turns, 2)
	assert.Equal(t, "second message", limited.Turns[0].UserMessage)
	assert.Equal(t, "third message", limited.Turns[1].UserMessage)
}

func TestGetHistoryNegativeLimitClampsToOne(t *testing.T) {
	env := newChatTestEnv(t)

	for _, message := range []string{"first message", "second message"} {
		_, err := env.service.GenerateReply(context.Background(), GenerateRequest{
			UserID:  "u1",
			Role:    "companion",
			Message: message,
		})
		require.NoError(t, err)
	}

	history, err := env.service.GetHistory(context.Background(), HistoryRequest{
		UserID: "u1",
		Role:   "companion",
		Limit:  -5,
	})
	require.NoError(t, err)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, "second message", history.Turns[0].UserMessage)
}

func TestExplicitThreadIDTargetsThread(t *testing.T) {
	env := newChatTestEnv(t)

	_, err := env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID:  "u1",
		Role:    "companion",
		Message: "on the current thread",
	})
	require.NoError(t, err)

	resp, err := env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID:   "u1",
		Role:     "companion",
		ThreadID: "u1-companion-side-thread",
		Message:  "on the side thread",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1-companion-side-thread", resp.ThreadID)

	history, err := env.service.GetHistory(context.Background(), HistoryRequest{
		UserID:   "u1",
		Role:     "companion",
		ThreadID: "u1-companion-side-thread",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1-companion-side-thread", history.ThreadID)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, "on the side thread", history.Turns[0].UserMessage)

	cleared, err := env.service.ClearHistory(context.Background(), ClearRequest{
		UserID:   "u1",
		Role:     "companion",
		ThreadID: "u1-companion-side-thread",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1-companion-side-thread", cleared.ClearedThreadID)
	assert.Equal(t, int64(1), cleared.DeletedMessages)

	// The default thread is untouched.
	remaining, err := env.service.GetHistory(context.Background(), HistoryRequest{
		UserID:   "u1",
		Role:     "companion",
		ThreadID: "u1-companion-thread",
	})
	require.NoError(t, err)
	require.Len(t, remaining.Turns, 1)
	assert.Equal(t, "on the current thread", remaining.Turns[0].UserMessage)
}

func TestClearHistoryRotatesThread(t *testing.T) {
	env := newChatTestEnv(t)

	for _, message := range []string{"one", "two"} {
		_, err := env.service.GenerateReply(context.Background(), GenerateRequest{
			UserID:  "u1",
			Role:    "companion",
			Message: message,
		})
		require.NoError(t, err)
	}

	resp, err := env.service.ClearHistory(context.Background(), ClearRequest{
		UserID: "u1",
		Role:   "companion",
	})
	require.NoError(t, err)

	assert.Equal(t, "u1-companion-thread", resp.ClearedThreadID)
	assert.True(t, strings.HasPrefix(resp.NewThreadID, "u1-companion-thread-"))
	assert.NotEqual(t, resp.ClearedThreadID, resp.NewThreadID)
	assert.Equal(t, int64(2), resp.DeletedMessages)
	assert.Equal(t, int64(2), resp.DeletedMemoryEntries)
	assert.Equal(t, int64(2), resp.DeletedRecommendations)

	assert.Empty(t, env.chatRepo.messages)
	assert.Len(t, env.cache.deletedKeys, 1)

	// Later turns land on the rotated thread.
	generated, err := env.service.GenerateReply(context.Background(), GenerateRequest{
		UserID:  "u1",
		Role:    "companion",
		Message: "starting over",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.NewThreadID, generated.ThreadID)
}
