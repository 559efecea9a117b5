package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/period"
	"fintrack/internal/services"
)

// Ports consumed by the handlers.
type (
	DashboardReader interface {
		Dashboard(ctx context.Context, userID int64, p period.Period) (services.Dashboard, error)
	}

	AnalyticsReader interface {
		Analytics(ctx context.Context, userID int64, p period.Period, year int) (services.Analytics, error)
	}

	ReportReader interface {
		Page(ctx context.Context, userID int64, page int) (core.Page, error)
		Recent(ctx context.Context, userID int64) ([]core.Transaction, error)
	}

	TransactionQueries interface {
		List(ctx context.Context, userID int64, f core.TransactionFilter, page, perPage int) (core.Page, error)
		Recent(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
		Summary(ctx context.Context, userID int64, r core.DateRange) (core.RangeSummary, error)
	}

	TransactionCommands interface {
		Create(ctx context.Context, userID int64, in core.TransactionInput) (core.Transaction, error)
		Get(ctx context.Context, userID, id int64) (core.Transaction, error)
		Update(ctx context.Context, userID, id int64, in core.TransactionInput) (core.Transaction, error)
		Delete(ctx context.Context, userID, id int64) error
		Restore(ctx context.Context, userID, id int64) (core.Transaction, error)
	}
)

// Services groups the application services behind the HTTP API.
type Services struct {
	Dashboard    DashboardReader
	Analytics    AnalyticsReader
	Reports      ReportReader
	Queries      TransactionQueries
	Transactions TransactionCommands
}

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimit      ratelimit.Config
	ReadyCheck     func(ctx context.Context) error
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	TrustedProxies []string
}

type Server struct {
	http.Server
	svc     Services
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	ready   func(ctx context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	s := &Server{
		svc:     svc,
		logger:  logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(opts.RateLimit),
		ready:   opts.ReadyCheck,
	}

	clientIP := security.NewClientIP()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(clientIP.Extract),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

func (s *Server) routes(extractIP func(*http.Request) string) http.Handler {
	r := chi.NewRouter()
	s.tracer = trace.NewMiddleware(s.logger, extractIP)
	r.Use(s.tracer.Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(security.APIHeaders)
		r.Use(requireUser)
		r.Use(s.limiter.Middleware(extractIP, func(w http.ResponseWriter, r *http.Request) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldRequestID, trace.GetRequestID(r.Context()),
				log.FieldClientIP, extractIP(r),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			NewJSONResponse().Status(http.StatusTooManyRequests).
				Error("rate limit exceeded, please try again later").Write(w)
		}))

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/report", s.handleReport)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Get("/recent", s.handleRecentTransactions)
			r.Get("/summary", s.handleTransactionSummary)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
			r.Post("/{id}/restore", s.handleRestoreTransaction)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusNotFound).Error("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusMethodNotAllowed).Error("method not allowed").Write(w)
	})
	return r
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		traffic := s.tracer.GetMetrics()
		limits := s.limiter.GetMetrics()
		s.logger.Info("HTTP server stopped",
			"total_requests", traffic.TotalRequests,
			"server_errors", traffic.ServerErrors,
			"rate_limited", limits.TotalHits,
			"tracked_clients", limits.ClientCount)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
