package api

import (
	"context"
	"net/http"
	"time"

	"github.com/example/kidprogress/internal/badges"
	"github.com/example/kidprogress/internal/progress"
	"github.com/example/kidprogress/internal/streak"
	"github.com/example/kidprogress/pkg/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CompletionService runs completions and builds dashboards
type CompletionService interface {
	HandleCompletion(ctx context.Context, ev progress.CompletionEvent) (*progress.CompletionResult, error)
	Dashboard(ctx context.Context, studentID string) *progress.DashboardSnapshot
}

// BadgeEvaluator runs a badge evaluation pass
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, studentID string) (*badges.Report, error)
}

// StreakService advances and reads streaks
type StreakService interface {
	Today() string
	Advance(ctx context.Context, studentID, today string) (*models.Streak, error)
	Stats(ctx context.Context, studentID string) (streak.Stats, error)
}

// Server exposes the progress services over HTTP
type Server struct {
	completions CompletionService
	badges      BadgeEvaluator
	streaks     StreakService
	logger      *zap.Logger
	router      *mux.Router
}

// NewServer builds the server and its routes
func NewServer(completions CompletionService, evaluator BadgeEvaluator, streaks StreakService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		completions: completions,
		badges:      evaluator,
		streaks:     streaks,
		logger:      logger.Named("api"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	students := r.PathPrefix("/students/{id}").Subrouter()
	students.HandleFunc("/completions", s.recordCompletion).Methods(http.MethodPost)
	students.HandleFunc("/dashboard", s.dashboard).Methods(http.MethodGet)
	students.HandleFunc("/badges/evaluate", s.evaluateBadges).Methods(http.MethodPost)
	students.HandleFunc("/streak/advance", s.advanceStreak).Methods(http.MethodPost)
	students.HandleFunc("/streak", s.streakStats).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeJSON(w, http.StatusNotFound, Envelope{
			Error: &ErrorDetail{Type: ErrorNotFound, Message: "no route for " + req.URL.Path},
		})
	})
	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the handler in an http.Server bound to addr
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
