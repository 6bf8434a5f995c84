package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/kidprogress/internal/database"
	"github.com/example/kidprogress/internal/progress"
	"github.com/example/kidprogress/internal/streak"
	"go.uber.org/zap"
)

// Error types carried in the envelope
const (
	ErrorNotFound       = "not_found"
	ErrorConflict       = "conflict"
	ErrorUnavailable    = "unavailable"
	ErrorValidation     = "validation"
	ErrorPartialFailure = "partial_failure"
	ErrorInternal       = "internal"
)

// Envelope is the body of every response
type Envelope struct {
	Data  interface{}  `json:"data"`
	Error *ErrorDetail `json:"error"`
}

// ErrorDetail describes why a request failed, fully or partly
type ErrorDetail struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

var statusByType = map[string]int{
	ErrorNotFound:       http.StatusNotFound,
	ErrorConflict:       http.StatusConflict,
	ErrorUnavailable:    http.StatusServiceUnavailable,
	ErrorValidation:     http.StatusBadRequest,
	ErrorPartialFailure: http.StatusOK,
	ErrorInternal:       http.StatusInternalServerError,
}

// classifyError maps an error onto an envelope error type
func classifyError(err error) string {
	var verr *progress.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, errBadRequest), errors.Is(err, streak.ErrInvalidDate):
		return ErrorValidation
	case errors.Is(err, database.ErrNotFound):
		return ErrorNotFound
	case errors.Is(err, database.ErrConflict):
		return ErrorConflict
	case errors.Is(err, database.ErrUnavailable):
		return ErrorUnavailable
	default:
		return ErrorInternal
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, data interface{}) {
	s.writeJSON(w, status, Envelope{Data: data})
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := classifyError(err)
	if kind == ErrorInternal || kind == ErrorUnavailable {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	s.writeJSON(w, statusByType[kind], Envelope{
		Error: &ErrorDetail{Type: kind, Message: err.Error()},
	})
}

// respondPartial returns data alongside the stage errors that kept it from being complete
func (s *Server) respondPartial(w http.ResponseWriter, data interface{}, errs []progress.StageError) {
	if len(errs) == 0 {
		s.respond(w, http.StatusOK, data)
		return
	}
	details := make([]string, 0, len(errs))
	for _, e := range errs {
		details = append(details, e.Error())
	}
	s.writeJSON(w, statusByType[ErrorPartialFailure], Envelope{
		Data: data,
		Error: &ErrorDetail{
			Type:    ErrorPartialFailure,
			Message: "some stages failed",
			Details: details,
		},
	})
}
