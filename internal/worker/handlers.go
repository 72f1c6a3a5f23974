package worker

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/soilsense/internal/dashboard"
	"github.com/thebtf/soilsense/internal/reminder"
	"github.com/thebtf/soilsense/internal/session"
	"github.com/thebtf/soilsense/pkg/models"
)

const maxBodyBytes = 1 << 16

// maxDelaySeconds is the largest delay that fits in a time.Duration.
const maxDelaySeconds = math.MaxInt64 / int64(time.Second)

type startAnalysisRequest struct {
	PlantType string `json:"plantType"`
}

type analysisResponse struct {
	Record *models.AnalysisRecord `json:"record,omitempty"`
	State  models.SessionState    `json:"state"`
	Error  string                 `json:"error,omitempty"`
}

type historyResponse struct {
	Records []models.AnalysisRecord `json:"records"`
	Total   int                     `json:"total"`
}

type reminderRequest struct {
	Message      string `json:"message"`
	DelaySeconds *int   `json:"delaySeconds"`
}

type dashboardResponse struct {
	Statuses   []dashboard.Status     `json:"statuses"`
	PlantTypes []string               `json:"plantTypes"`
	Reading    models.Reading         `json:"reading"`
	Chart      []dashboard.ChartPoint `json:"chart"`
	LatestAt   string                 `json:"latestAt,omitempty"`
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Service) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startAnalysisRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	rec, err := s.controller.StartAnalysis(r.Context(), req.PlantType)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, analysisResponse{Record: &rec, State: s.controller.State()})
	case errors.Is(err, session.ErrAnalysisInProgress):
		writeJSON(w, http.StatusConflict, analysisResponse{State: s.controller.State(), Error: err.Error()})
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeJSON(w, http.StatusInternalServerError, analysisResponse{
			Record: &rec,
			State:  s.controller.State(),
			Error:  err.Error(),
		})
	}
}

func (s *Service) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Service) handleDismiss(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.DismissResult())
}

func (s *Service) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.controller.Reset(); err != nil {
		writeJSON(w, http.StatusConflict, analysisResponse{State: s.controller.State(), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.controller.State())
}

func (s *Service) handleSampleReading(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.SampleReading())
}

func (s *Service) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Records: s.controller.RecentHistory(limit),
		Total:   s.controller.HistoryLen(),
	})
}

func (s *Service) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.ClearHistory(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear history")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleScheduleReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Message == "" {
		req.Message = s.config.ReminderMessage
	}
	delay := s.config.ReminderDelayDuration()
	if req.DelaySeconds != nil {
		if int64(*req.DelaySeconds) > maxDelaySeconds {
			writeError(w, http.StatusBadRequest, "delaySeconds is too large")
			return
		}
		delay = time.Duration(*req.DelaySeconds) * time.Second
	}

	rem, err := s.controller.ScheduleReminder(r.Context(), req.Message, delay)
	if err != nil {
		if errors.Is(err, reminder.ErrInvalidDelay) || errors.Is(err, reminder.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rem)
}

func (s *Service) handleGetReminders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Reminders())
}

func (s *Service) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	resp := dashboardResponse{
		Statuses:   s.dashboard.Statuses(),
		PlantTypes: s.dashboard.PlantTypes(),
		Reading:    models.DefaultReading,
	}
	if latest, ok := s.controller.LatestRecord(); ok {
		resp.Reading = latest.Reading
		resp.LatestAt = latest.Timestamp
	}
	resp.Chart = s.dashboard.Chart(resp.Reading)
	writeJSON(w, http.StatusOK, resp)
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
