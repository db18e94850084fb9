// Package engine runs the HTTP surface of the askdata service: one
// endpoint to submit a natural-language query, one to fetch schema info
// and one health check reporting model-tier availability.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redbco/askdata/internal/llm"
	"github.com/redbco/askdata/internal/router"
	"github.com/redbco/askdata/pkg/config"
	"github.com/redbco/askdata/pkg/health"
	"github.com/redbco/askdata/pkg/logger"
)

type Engine struct {
	config  *config.Config
	server  *http.Server
	router  *router.Router
	ollama  *llm.OllamaClient
	groq    *llm.GroqClient
	checker *health.Checker
	logger  *logger.Logger
	state   struct {
		sync.Mutex
		isRunning         bool
		ongoingOperations int32
	}
	metrics struct {
		requestsProcessed int64
		errors            int64
	}
}

func NewEngine(cfg *config.Config, queryRouter *router.Router, ollama *llm.OllamaClient, groq *llm.GroqClient) *Engine {
	return &Engine{
		config:  cfg,
		router:  queryRouter,
		ollama:  ollama,
		groq:    groq,
		checker: health.NewChecker(),
	}
}

// SetLogger sets the logger for the engine
func (e *Engine) SetLogger(logger *logger.Logger) {
	e.logger = logger
}

func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	if e.state.isRunning {
		e.state.Unlock()
		return fmt.Errorf("engine is already running")
	}
	e.state.isRunning = true
	e.state.Unlock()

	portStr := e.config.GetOrDefault("server.http.port", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port configuration: %v", err)
	}

	e.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: NewServer(e),
	}

	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			atomic.AddInt64(&e.metrics.errors, 1)
			if e.logger != nil {
				e.logger.Error("HTTP server stopped: %v", err)
			}
		}
	}()

	if e.logger != nil {
		e.logger.Info("HTTP server listening on port %d", port)
	}
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	if !e.state.isRunning {
		e.state.Unlock()
		return nil
	}
	e.state.isRunning = false
	e.state.Unlock()

	if e.server != nil {
		return e.server.Shutdown(ctx)
	}

	return nil
}

func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"requests_processed": atomic.LoadInt64(&e.metrics.requestsProcessed),
		"errors":             atomic.LoadInt64(&e.metrics.errors),
	}
}

func (e *Engine) CheckHealth() error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return fmt.Errorf("service not initialized")
	}

	return nil
}

func (e *Engine) TrackOperation() {
	atomic.AddInt64(&e.metrics.requestsProcessed, 1)
	atomic.AddInt32(&e.state.ongoingOperations, 1)
}

func (e *Engine) UntrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, -1)
}

// RunHealthChecks probes both generation tiers and records the results.
// The primary being down only degrades the service while the fallback is
// configured.
func (e *Engine) RunHealthChecks(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	e.checker.RunCheck("ollama", func() error {
		if e.ollama == nil {
			return fmt.Errorf("not configured")
		}
		if !e.ollama.Healthy(probeCtx) {
			return fmt.Errorf("unreachable")
		}
		return nil
	})
	e.checker.RunCheck("groq", func() error {
		if e.groq == nil || !e.groq.Available() {
			return fmt.Errorf("not configured")
		}
		return nil
	})
}

// HealthReport returns the overall status and per-tier checks.
func (e *Engine) HealthReport() (health.Status, []*health.Check) {
	return e.checker.GetOverallStatus(), e.checker.GetAllChecks()
}
