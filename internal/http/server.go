package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/budget"
	"bilancio/internal/cache"
	"bilancio/internal/services"
	appweb "bilancio/web"
)

type Server struct {
	http.Server
	templates *template.Template

	// The active budget. Owned by the server, guarded by mu.
	mu     sync.RWMutex
	budget *budget.Budget

	snapshots *services.SnapshotService

	// New budgets default to this many months when no end date is given.
	defaultMonths int

	rateLimiter *rateLimiter

	// Rendered partial fragments, purged whenever the budget mutates.
	partialCache *cache.LRUCache[string]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// The snapshot service may be nil; saving snapshots is then disabled.
func NewServer(addr string, snapshots *services.SnapshotService, defaultMonths int) *Server {
	mux := http.NewServeMux()

	if defaultMonths < 1 {
		defaultMonths = 12
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		snapshots:     snapshots,
		defaultMonths: defaultMonths,
		rateLimiter:   newRateLimiter(),
		partialCache:  cache.NewLRUCache[string](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.partialCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/budget", s.withSecurityHeaders(s.handleCreateBudget))
	mux.HandleFunc("/budget/update", s.withSecurityHeaders(s.handleUpdateBudget))
	mux.HandleFunc("/budget/delete", s.withSecurityHeaders(s.handleDeleteBudget))
	mux.HandleFunc("/budget/export", s.withSecurityHeaders(s.handleExportBudget))
	mux.HandleFunc("/budget/import", s.withSecurityHeaders(s.handleImportBudget))
	mux.HandleFunc("/budget/save", s.withSecurityHeaders(s.handleSaveSnapshot))

	mux.HandleFunc("/flows", s.withSecurityHeaders(s.handleCreateFlow))
	mux.HandleFunc("/flows/remove", s.withSecurityHeaders(s.handleRemoveFlow))

	// UI partials
	mux.HandleFunc("/ui/flows", s.withSecurityHeaders(s.handleFlowList))
	mux.HandleFunc("/ui/period-overview", s.withSecurityHeaders(s.handlePeriodOverview))
	mux.HandleFunc("/ui/balance-series", s.withSecurityHeaders(s.handleBalanceSeries))
	mux.HandleFunc("/ui/snapshots", s.withSecurityHeaders(s.handleSnapshotList))
	mux.HandleFunc("/ui/projection", s.withSecurityHeaders(s.handleProjection))

	mux.HandleFunc("/projection.csv", s.withSecurityHeaders(s.handleProjectionCSV))

	return s
}

// currentBudget returns the active budget, or nil when none exists yet.
func (s *Server) currentBudget() *budget.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget
}

// replaceBudget swaps the active budget and drops every cached fragment.
func (s *Server) replaceBudget(b *budget.Budget) {
	s.mu.Lock()
	s.budget = b
	s.mu.Unlock()
	s.partialCache.Purge()
}

// mutateBudget runs fn under the write lock and purges cached fragments when
// fn reports success.
func (s *Server) mutateBudget(fn func(b *budget.Budget) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budget == nil {
		return errNoBudget
	}
	if err := fn(s.budget); err != nil {
		return err
	}
	s.partialCache.Purge()
	return nil
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only; partial refreshes stay cheap.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
