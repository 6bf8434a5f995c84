package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/kidprogress/internal/progress"
	"github.com/gorilla/mux"
)

var errBadRequest = errors.New("bad request")

const maxBodyBytes = 64 << 10

type completionRequest struct {
	ActivityID string `json:"activity_id"`
	Score      int    `json:"score"`
	Status     string `json:"status"`
}

func studentID(r *http.Request) string {
	return strings.TrimSpace(mux.Vars(r)["id"])
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) recordCompletion(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	result, err := s.completions.HandleCompletion(r.Context(), progress.CompletionEvent{
		StudentID:  studentID(r),
		ActivityID: req.ActivityID,
		Score:      req.Score,
		Status:     req.Status,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondPartial(w, result, result.Errors)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.completions.Dashboard(r.Context(), studentID(r))
	s.respondPartial(w, snap, snap.Errors)
}

func (s *Server) evaluateBadges(w http.ResponseWriter, r *http.Request) {
	report, err := s.badges.Evaluate(r.Context(), studentID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var errs []progress.StageError
	for _, failed := range report.Failed() {
		errs = append(errs, progress.StageError{
			Stage: progress.StageBadges,
			Err:   fmt.Errorf("badge %s: %w", failed.BadgeID, failed.Err),
		})
	}
	s.respondPartial(w, report, errs)
}

func (s *Server) advanceStreak(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day == "" {
		day = s.streaks.Today()
	}
	rec, err := s.streaks.Advance(r.Context(), studentID(r), day)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, rec)
}

func (s *Server) streakStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.streaks.Stats(r.Context(), studentID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, stats)
}
