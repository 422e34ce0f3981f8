package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"wealthpillar/internal/cache"
	"wealthpillar/internal/core"
	"wealthpillar/internal/cycle"
	"wealthpillar/internal/middleware/trace"
	"wealthpillar/internal/services"
)

const cacheCleanupInterval = 10 * time.Minute

// periodResponse is the JSON shape for period resolution results.
type periodResponse struct {
	PersonID    string       `json:"personId"`
	Window      cycle.Window `json:"window"`
	IsException bool         `json:"isException"`
}

// spendResponse is the JSON shape for budget spend aggregation.
type spendResponse struct {
	BudgetID       string       `json:"budgetId"`
	Window         cycle.Window `json:"window"`
	SpentCents     int64        `json:"spentCents"`
	BudgetCents    int64        `json:"budgetCents"`
	RemainingCents int64        `json:"remainingCents"`
	Spent          string       `json:"spent"`
}

type Server struct {
	http.Server
	service *services.CycleService

	periodCache *cache.LRUCache[periodResponse]
	spendCache  *cache.LRUCache[spendResponse]
	cacheMgr    *cache.Manager

	// generation is bumped on every mutation; it prefixes cache keys so a
	// write invalidates all cached reads at once.
	generation   atomic.Int64
	shutdownOnce sync.Once
}

// NewServer configures routes and response caches, returning a
// ready-to-run http.Server.
func NewServer(addr string, service *services.CycleService, cacheSize int, cacheTTL time.Duration) *Server {
	if cacheSize < 1 {
		cacheSize = 256
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 64 << 10,
		},
		service:     service,
		periodCache: cache.NewLRUCache[periodResponse](cacheSize, cacheTTL),
		spendCache:  cache.NewLRUCache[spendResponse](cacheSize, cacheTTL),
		cacheMgr:    cache.NewManager(),
	}

	s.cacheMgr.Register(s.periodCache)
	s.cacheMgr.Register(s.spendCache)
	s.cacheMgr.StartCleanup(cacheCleanupInterval)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/persons/{id}/period", s.handleGetPeriod)
	mux.HandleFunc("POST /api/persons/{id}/exceptions", s.handleCreateException)
	mux.HandleFunc("DELETE /api/persons/{id}/exceptions/{excID}", s.handleDeleteException)
	mux.HandleFunc("POST /api/persons/{id}/close", s.handleClosePeriod)

	mux.HandleFunc("GET /api/budgets/{id}/spent", s.handleSpentForBudget)

	tracer := trace.NewMiddleware(clientIP)
	s.Handler = tracer.Middleware(mux)

	return s
}

// Shutdown stops the cache cleanup routine, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.cacheMgr != nil {
			s.cacheMgr.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateCaches makes every cached read stale after a mutation.
func (s *Server) invalidateCaches() {
	s.generation.Add(1)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

// refDate parses the optional date query parameter, defaulting to today.
func refDate(r *http.Request) (core.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return core.Today(), nil
	}
	return core.ParseDate(raw)
}
