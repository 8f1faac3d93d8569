package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRoutes registers the API routes.
func SetupRoutes(router chi.Router, handlers *Handlers) {
	router.Get("/healthz", handlers.Health)

	router.Route("/api", func(r chi.Router) {
		r.Get("/operators", handlers.ListOperators)
		r.Get("/operators/{taxID}", handlers.GetOperator)
		r.Get("/operators/{taxID}/expenses", handlers.OperatorExpenses)
		r.Get("/statistics", handlers.Statistics)
		r.Get("/statistics/{taxID}", handlers.OperatorStatistics)
	})
}

// requestLogger logs each request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// NewRouter builds the API handler with its middleware stack.
func NewRouter(queries *Queries, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(logger),
		middleware.Recoverer,
		middleware.Compress(5),
	)
	SetupRoutes(r, NewHandlers(queries, logger))
	return r
}
