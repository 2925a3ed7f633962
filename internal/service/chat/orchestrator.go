package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"companionhk/internal/config"
	"companionhk/internal/domain"
	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
	"companionhk/internal/memory"
	"companionhk/internal/provider"
	"companionhk/internal/repository/rediscache"
	"companionhk/internal/service/runtime"
	"companionhk/internal/service/safety"
)

const (
	fallbackNotApplicable = "not_applicable"
	statusSuccess         = "success"
	statusFallback        = "fallback"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	memorySummaryMaxChars = 200
)

// Service orchestrates the chat turn lifecycle: safety evaluation, provider
// resolution, reply generation, and the single-transaction persistence of
// everything a turn produces.
type Service struct {
	cfg       *config.Config
	logger    *slog.Logger
	chatRepo  repositories.ChatRepository
	auditRepo repositories.AuditRepository
	memRepo   repositories.MemoryRepository
	recRepo   repositories.RecommendationRepository
	cache     repositories.ShortTermCache
	txm       repositories.TransactionManager
	resolver  *provider.Resolver
	monitor   *safety.Monitor
	runtime   runtime.Runtime
	embedder  memory.EmbeddingProvider
}

func NewService(
	cfg *config.Config,
	logger *slog.Logger,
	chatRepo repositories.ChatRepository,
	auditRepo repositories.AuditRepository,
	memRepo repositories.MemoryRepository,
	recRepo repositories.RecommendationRepository,
	cache repositories.ShortTermCache,
	txm repositories.TransactionManager,
	resolver *provider.Resolver,
	monitor *safety.Monitor,
	rt runtime.Runtime,
	embedder memory.EmbeddingProvider,
) *Service {
	return &Service{
		cfg:       cfg,
		logger:    logger,
		chatRepo:  chatRepo,
		auditRepo: auditRepo,
		memRepo:   memRepo,
		recRepo:   recRepo,
		cache:     cache,
		txm:       txm,
		resolver:  resolver,
		monitor:   monitor,
		runtime:   rt,
		embedder:  embedder,
	}
}

func defaultThreadID(userID string, role models.Role) string {
	return fmt.Sprintf("%s-%s-thread", userID, role)
}

func freshThreadID(userID string, role models.Role) string {
	suffix := uuid.NewString()
	return fmt.Sprintf("%s-%s-thread-%s", userID, role, suffix[:8])
}

// resolveThreadID returns the thread an operation targets: the explicit
// client-supplied ID when given, otherwise the newest persisted thread for
// (user, role), or the deterministic default before any turn exists.
func (s *Service) resolveThreadID(ctx context.Context, userID string, role models.Role, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	thread, err := s.chatRepo.GetCurrentThread(ctx, userID, role)
	if err != nil {
		return "", err
	}
	if thread == nil {
		return defaultThreadID(userID, role), nil
	}
	return thread.ThreadID, nil
}

// GenerateReply runs one full chat turn.
func (s *Service) GenerateReply(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	role := models.Role(req.Role)
	requestID := uuid.NewString()

	threadID, err := s.resolveThreadID(ctx, req.UserID, role, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	chatProvider, degraded := s.resolver.ResolveChat()
	fallbackReason := fallbackNotApplicable
	if degraded {
		fallbackReason = "provider_disabled_or_unavailable"
	}

	turns, err := s.chatRepo.ListRecentTurns(ctx, req.UserID, role, threadID, s.cfg.RuntimeHistoryMaxTurns)
	if err != nil {
		s.logger.Warn("history load failed, generating without persisted history",
			"request_id", requestID,
			"error", err)
		turns = nil
	}

	chatCtx := s.buildContext(ctx, req, role, threadID, turns)

	// Safety runs before any reply generation and its verdict is final.
	verdict := s.monitor.Evaluate(ctx, req.Message)
	chatCtx.Safety = &verdict

	var reply string
	if verdict.PolicyAction == models.PolicySupportiveRefusal {
		reply = safety.SupportiveRefusalMessage
	} else {
		reply = s.runtime.GenerateReply(ctx, req.Message, chatProvider, chatCtx)
	}

	createdAt := time.Now().UTC()
	s.persistTurn(ctx, req, role, threadID, requestID, chatProvider.Name(), fallbackReason, verdict, reply, chatCtx)
	s.cacheTurn(ctx, req.UserID, role, threadID, requestID, req.Message, reply, createdAt)

	status := statusSuccess
	if fallbackReason != fallbackNotApplicable {
		status = statusFallback
	}

	return &GenerateResponse{
		RequestID:      requestID,
		UserID:         req.UserID,
		Role:           role,
		ThreadID:       threadID,
		Reply:          reply,
		Provider:       chatProvider.Name(),
		Runtime:        s.runtime.Name(),
		Status:         status,
		FallbackReason: fallbackReason,
		Safety:         verdict,
		CreatedAt:      createdAt,
	}, nil
}

// persistTurn writes everything one turn produces in a single transaction.
// Persistence failures are logged and never surface to the caller; the turn
// is not retried.
func (s *Service) persistTurn(
	ctx context.Context,
	req GenerateRequest,
	role models.Role,
	threadID string,
	requestID string,
	providerName string,
	fallbackReason string,
	verdict models.SafetyVerdict,
	reply string,
	chatCtx *provider.ChatContext,
) {
	runtimeName := s.runtime.Name()

	err := s.txm.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.chatRepo.EnsureUser(txCtx, req.UserID); err != nil {
			return err
		}

		thread, err := s.chatRepo.GetOrCreateThread(txCtx, req.UserID, role, threadID)
		if err != nil {
			return err
		}

		message := &models.ChatMessage{
			ThreadPK:               thread.ID,
			UserID:                 req.UserID,
			Role:                   role,
			ThreadID:               threadID,
			RequestID:              requestID,
			UserMessage:            req.Message,
			AssistantReply:         reply,
			Runtime:                runtimeName,
			Provider:               providerName,
			ProviderFallbackReason: fallbackReason,
			ContextSnapshot:        contextSnapshot(chatCtx),
		}
		if err := s.chatRepo.CreateMessage(txCtx, message); err != nil {
			return err
		}

		safetyEvent := &models.SafetyEvent{
			ChatMessageID:    message.ID,
			ThreadPK:         thread.ID,
			UserID:           req.UserID,
			Role:             role,
			ThreadID:         threadID,
			RequestID:        requestID,
			RiskLevel:        verdict.RiskLevel,
			ShowCrisisBanner: verdict.ShowCrisisBanner,
			EmotionLabel:     verdict.EmotionLabel,
			EmotionScore:     verdict.EmotionScore,
		}
		if err := s.chatRepo.CreateSafetyEvent(txCtx, safetyEvent); err != nil {
			return err
		}

		if err := s.createProviderEvents(txCtx, req.UserID, role, requestID, runtimeName, providerName, fallbackReason, verdict, chatCtx); err != nil {
			return err
		}

		if err := s.auditRepo.CreateAuditEvent(txCtx, &models.AuditEvent{
			EventType: models.AuditSafetyEvent,
			UserID:    req.UserID,
			RequestID: requestID,
			Role:      role,
			ThreadID:  &threadID,
			Metadata: map[string]any{
				"risk_level":         verdict.RiskLevel,
				"policy_action":      verdict.PolicyAction,
				"show_crisis_banner": verdict.ShowCrisisBanner,
				"monitor_provider":   verdict.MonitorProvider,
				"degraded":           verdict.Degraded,
			},
		}); err != nil {
			return err
		}

		if err := s.writeMemory(txCtx, req, role, threadID, requestID, providerName, reply); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		s.logger.Error("turn persistence failed, reply already delivered",
			"request_id", requestID,
			"user_id", req.UserID,
			"error", err)
	}
}

func (s *Service) createProviderEvents(
	ctx context.Context,
	userID string,
	role models.Role,
	requestID string,
	runtimeName string,
	providerName string,
	fallbackReason string,
	verdict models.SafetyVerdict,
	chatCtx *provider.ChatContext,
) error {
	chatStatus := models.ProviderStatusSuccess
	if fallbackReason != fallbackNotApplicable {
		chatStatus = models.ProviderStatusFallback
	}
	if err := s.auditRepo.CreateProviderEvent(ctx, &models.ProviderEvent{
		UserID:         &userID,
		RequestID:      requestID,
		Role:           &role,
		Scope:          models.ScopeChat,
		ProviderName:   providerName,
		Runtime:        &runtimeName,
		Status:         chatStatus,
		FallbackReason: &fallbackReason,
	}); err != nil {
		return err
	}

	safetyStatus := models.ProviderStatusSuccess
	if verdict.Degraded {
		safetyStatus = models.ProviderStatusDegraded
	}
	if err := s.auditRepo.CreateProviderEvent(ctx, &models.ProviderEvent{
		UserID:         &userID,
		RequestID:      requestID,
		Role:           &role,
		Scope:          models.ScopeSafety,
		ProviderName:   verdict.MonitorProvider,
		Status:         safetyStatus,
		FallbackReason: verdict.FallbackReason,
	}); err != nil {
		return err
	}

	if _, ok := chatCtx.Memory["fresh_retrieval"]; ok {
		retrievalName, _ := chatCtx.Memory["retrieval_provider"].(string)
		if err := s.auditRepo.CreateProviderEvent(ctx, &models.ProviderEvent{
			UserID:       &userID,
			RequestID:    requestID,
			Role:         &role,
			Scope:        models.ScopeRetrieval,
			ProviderName: retrievalName,
			Status:       models.ProviderStatusSuccess,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) writeMemory(
	ctx context.Context,
	req GenerateRequest,
	role models.Role,
	threadID string,
	requestID string,
	providerName string,
	reply string,
) error {
	summary := req.Message
	if runes := []rune(summary); len(runes) > memorySummaryMaxChars {
		summary = string(runes[:memorySummaryMaxChars])
	}

	entry := &models.MemoryEntry{
		UserID:             req.UserID,
		Role:               role,
		ThreadID:           threadID,
		EntryType:          models.MemoryEntrySummary,
		Content:            "User intent summary: " + summary,
		WriteReason:        "chat_turn_summary",
		SourceProvider:     providerName,
		CreatedByRequestID: requestID,
	}
	if err := s.memRepo.CreateEntry(ctx, entry); err != nil {
		return err
	}

	vector, err := s.embedder.Embed(ctx, req.Message+"\n"+reply)
	if err != nil {
		return err
	}
	if err := s.memRepo.CreateEmbedding(ctx, &models.MemoryEmbedding{
		MemoryEntryID:       entry.ID,
		UserID:              req.UserID,
		Role:                role,
		EmbeddingModel:      s.embedder.Model(),
		EmbeddingDimensions: s.embedder.Dimensions(),
		Embedding:           vector,
		DistanceMetric:      "cosine",
	}); err != nil {
		return err
	}

	return s.auditRepo.CreateAuditEvent(ctx, &models.AuditEvent{
		EventType: models.AuditMemoryWrite,
		UserID:    req.UserID,
		RequestID: requestID,
		Role:      role,
		ThreadID:  &threadID,
		Metadata: map[string]any{
			"entry_type":   models.MemoryEntrySummary,
			"write_reason": "chat_turn_summary",
		},
	})
}

type cachedTurn struct {
	RequestID      string    `json:"request_id"`
	UserMessage    string    `json:"user_message"`
	AssistantReply string    `json:"assistant_reply"`
	CreatedAt      time.Time `json:"created_at"`
}

// cacheTurn appends the turn to the capped per-thread list. Best effort; the
// cache is never read back for context.
func (s *Service) cacheTurn(ctx context.Context, userID string, role models.Role, threadID, requestID, userMessage, reply string, createdAt time.Time) {
	payload, err := json.Marshal(cachedTurn{
		RequestID:      requestID,
		UserMessage:    userMessage,
		AssistantReply: reply,
		CreatedAt:      createdAt,
	})
	if err != nil {
		return
	}

	key := rediscache.BuildShortTermKey(userID, string(role), threadID)
	if err := s.cache.PushTurn(ctx, key, payload, s.cfg.MemoryShortTermMaxTurns, s.cfg.MemoryShortTermTTL); err != nil {
		s.logger.Warn("short-term cache write failed",
			"request_id", requestID,
			"error", err)
	}
}

// GetHistory returns recent turns oldest first. Limit is bounded to
// [1, 200] with a default of 50.
func (s *Service) GetHistory(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	role := models.Role(req.Role)
	limit := req.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	threadID, err := s.resolveThreadID(ctx, req.UserID, role, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	turns, err := s.chatRepo.ListRecentTurns(ctx, req.UserID, role, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	response := &HistoryResponse{
		UserID:   req.UserID,
		Role:     role,
		ThreadID: threadID,
		Turns:    make([]HistoryTurnResponse, 0, len(turns)),
	}
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		response.Turns = append(response.Turns, HistoryTurnResponse{
			RequestID:      turn.Message.RequestID,
			UserMessage:    turn.Message.UserMessage,
			AssistantReply: turn.Message.AssistantReply,
			Provider:       turn.Message.Provider,
			Runtime:        turn.Message.Runtime,
			Safety:         historyVerdict(turn.Safety),
			CreatedAt:      turn.Message.CreatedAt,
		})
	}
	return response, nil
}

// historyVerdict rebuilds the verdict shape from a persisted safety event.
// Turns with no stored event read back as low risk with no banner.
func historyVerdict(event *models.SafetyEvent) models.SafetyVerdict {
	if event == nil {
		return models.SafetyVerdict{
			RiskLevel:       models.RiskLow,
			PolicyAction:    models.PolicyAllow,
			MonitorProvider: "unknown",
		}
	}

	verdict := models.SafetyVerdict{
		RiskLevel:        event.RiskLevel,
		ShowCrisisBanner: event.ShowCrisisBanner,
		EmotionLabel:     event.EmotionLabel,
		EmotionScore:     event.EmotionScore,
		PolicyAction:     models.PolicyAllow,
		MonitorProvider:  "unknown",
	}
	if event.RiskLevel == models.RiskHigh {
		verdict.PolicyAction = models.PolicySupportiveRefusal
	}
	return verdict
}

// ClearHistory wipes the current thread and rotates to a fresh thread ID.
// Postgres deletes run in one transaction; the cache purge is best effort.
func (s *Service) ClearHistory(ctx context.Context, req ClearRequest) (*ClearResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	role := models.Role(req.Role)
	threadID, err := s.resolveThreadID(ctx, req.UserID, role, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("resolve thread: %w", err)
	}

	requestIDs, err := s.chatRepo.ListThreadRequestIDs(ctx, req.UserID, role, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread request ids: %w", err)
	}

	newThreadID := freshThreadID(req.UserID, role)

	var deletedMessages, deletedMemory, deletedRecs int64
	err = s.txm.ExecTx(ctx, func(txCtx context.Context) error {
		deletedMessages, err = s.chatRepo.DeleteThreadMessages(txCtx, req.UserID, role, threadID)
		if err != nil {
			return err
		}
		deletedMemory, err = s.memRepo.DeleteByThread(txCtx, req.UserID, role, threadID)
		if err != nil {
			return err
		}
		deletedRecs, err = s.recRepo.DeleteByRequestIDs(txCtx, req.UserID, role, requestIDs)
		if err != nil {
			return err
		}
		if _, err := s.chatRepo.GetOrCreateThread(txCtx, req.UserID, role, newThreadID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clear history: %w", err)
	}

	if threaded, ok := s.runtime.(*runtime.ThreadedRuntime); ok {
		threaded.Forget(threadID)
	}

	key := rediscache.BuildShortTermKey(req.UserID, string(role), threadID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("short-term cache purge failed",
			"user_id", req.UserID,
			"thread_id", threadID,
			"error", err)
	}

	s.logger.Info("history cleared",
		"user_id", req.UserID,
		"role", role,
		"thread_id", threadID,
		"new_thread_id", newThreadID,
		"deleted_messages", deletedMessages)

	return &ClearResponse{
		UserID:                 req.UserID,
		Role:                   role,
		ClearedThreadID:        threadID,
		NewThreadID:            newThreadID,
		DeletedMessages:        deletedMessages,
		DeletedMemoryEntries:   deletedMemory,
		DeletedRecommendations: deletedRecs,
	}, nil
}
