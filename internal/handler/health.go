package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"companionhk/internal/domain/repositories"
	"companionhk/internal/httputil"
	"companionhk/internal/provider"
)

// HealthHandler exposes liveness, dependency, and readiness checks.
type HealthHandler struct {
	appName  string
	pool     *pgxpool.Pool
	cache    repositories.ShortTermCache
	resolver *provider.Resolver
	logger   *slog.Logger
	ready    atomic.Bool
}

func NewHealthHandler(appName string, pool *pgxpool.Pool, cache repositories.ShortTermCache, resolver *provider.Resolver, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		appName:  appName,
		pool:     pool,
		cache:    cache,
		resolver: resolver,
		logger:   logger,
	}
}

// SetReady marks the server as ready to accept traffic.
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.appName,
	})
}

// Dependencies handles GET /health/dependencies
func (h *HealthHandler) Dependencies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	status := "ok"

	if err := h.pool.Ping(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	if err := h.cache.Ping(ctx); err != nil {
		checks["redis"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["redis"] = "ok"
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"service":   h.appName,
		"checks":    checks,
		"providers": h.resolver.Statuses(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		httputil.RespondError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
