package chat

import (
	"context"

	"companionhk/internal/provider"
	"companionhk/internal/service/runtime"

	"companionhk/internal/domain/models"
	"companionhk/internal/domain/repositories"
)

const retrievalQueryMaxResults = 3

// buildContext assembles the chat context for one turn: persona prompt,
// persisted history replayed oldest first, optional fresh retrieval, and the
// snapshot map persisted alongside the message.
func (s *Service) buildContext(ctx context.Context, req GenerateRequest, role models.Role, threadID string, turns []repositories.TurnWithSafety) *provider.ChatContext {
	history := make([]provider.HistoryTurn, 0, len(turns))
	for i := len(turns) - 1; i >= 0; i-- {
		history = append(history, provider.HistoryTurn{
			UserMessage:    turns[i].Message.UserMessage,
			AssistantReply: turns[i].Message.AssistantReply,
		})
	}

	memory := map[string]any{
		"strategy":             s.cfg.MemoryLongTermStrategy,
		"short_term_max_turns": s.cfg.MemoryShortTermMaxTurns,
		"retrieval_top_k":      s.cfg.MemoryRetrievalTopK,
	}
	s.enrichWithRetrieval(ctx, req.Message, memory)

	chatCtx := &provider.ChatContext{
		UserID:       req.UserID,
		ThreadID:     threadID,
		Role:         role,
		SystemPrompt: runtime.SystemPromptFor(role),
		History:      history,
		Memory:       memory,
	}
	if req.Attachment != nil {
		chatCtx.Attachment = &provider.Attachment{
			Kind:     req.Attachment.Kind,
			Filename: req.Attachment.Filename,
			MimeType: req.Attachment.MimeType,
			SizeB:    req.Attachment.SizeB,
		}
	}
	return chatCtx
}

// enrichWithRetrieval adds fresh web results to the memory snapshot when the
// live retrieval provider is available. Failures degrade silently.
func (s *Service) enrichWithRetrieval(ctx context.Context, query string, memory map[string]any) {
	retrieval, live := s.resolver.ResolveRetrieval()
	if !live {
		memory["retrieval_fallback_reason"] = "retrieval_unavailable"
		return
	}

	entries, err := retrieval.Retrieve(ctx, query, retrievalQueryMaxResults)
	if err != nil || len(entries) == 0 {
		if err != nil {
			s.logger.Warn("retrieval enrichment failed",
				"provider", retrieval.Name(),
				"error", err)
		}
		memory["retrieval_fallback_reason"] = "retrieval_unavailable"
		return
	}

	memory["fresh_retrieval"] = entries
	memory["retrieval_provider"] = retrieval.Name()
}

// contextSnapshot reduces the chat context to the persistable map stored on
// the message row.
func contextSnapshot(chatCtx *provider.ChatContext) map[string]any {
	snapshot := map[string]any{
		"memory":        chatCtx.Memory,
		"history_turns": len(chatCtx.History),
	}
	if chatCtx.Attachment != nil {
		snapshot["attachment"] = map[string]any{
			"kind":       chatCtx.Attachment.Kind,
			"filename":   chatCtx.Attachment.Filename,
			"mime_type":  chatCtx.Attachment.MimeType,
			"size_bytes": chatCtx.Attachment.SizeB,
		}
	}
	return snapshot
}
