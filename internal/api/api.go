// Package api exposes the session manager over a JSON HTTP surface.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voxprep/voxprep/internal/archive"
	"github.com/voxprep/voxprep/internal/model"
	"github.com/voxprep/voxprep/internal/session"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	manager *session.Manager
	archive *archive.Store // nil when archiving is disabled
}

// New creates a new Handler. archive may be nil.
func New(m *session.Manager, arc *archive.Store) *Handler {
	return &Handler{manager: m, archive: arc}
}

// Router builds the full route tree with standard middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleStartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGetSession)
			r.Post("/activate", h.handleActivate)
			r.Post("/responses", h.handleSubmitResponse)
			r.Post("/pause", h.handlePause)
			r.Post("/resume", h.handleResume)
			r.Post("/end", h.handleEnd)
			r.Post("/reconnect", h.handleReconnect)
			r.Delete("/", h.handleRemove)
		})
	})

	r.Get("/reports", h.handleListReports)
	r.Get("/reports/{sessionID}", h.handleGetReport)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes: unknown session
// is 404, a state-machine violation is 409, everything else is the
// server's fault.
func writeError(w http.ResponseWriter, err error) {
	var stateErr *session.StateError
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrNoRoom):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type startSessionRequest struct {
	Config      model.InterviewConfig `json:"config"`
	Participant string                `json:"participant"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := req.Config.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res, err := h.manager.Start(r.Context(), req.Config, req.Participant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Status(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Activate(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusActive)})
}

type submitResponseRequest struct {
	Text          string         `json:"text"`
	DurationMs    int64          `json:"duration_ms"`
	AudioMetadata map[string]any `json:"audio_metadata,omitempty"`
}

func (h *Handler) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req submitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	res, err := h.manager.SubmitResponse(r.Context(), chi.URLParam(r, "sessionID"), req.Text, session.SubmitMeta{
		DurationMs:    req.DurationMs,
		AudioMetadata: req.AudioMetadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Pause(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusPaused)})
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Resume(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.StatusActive)})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	res, err := h.manager.EndInterview(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type reconnectRequest struct {
	Participant string `json:"participant"`
}

func (h *Handler) handleReconnect(w http.ResponseWriter, r *http.Request) {
	var req reconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	token, err := h.manager.Reconnect(r.Context(), chi.URLParam(r, "sessionID"), req.Participant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Remove(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListReports(w http.ResponseWriter, _ *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "archive disabled"})
		return
	}
	list, err := h.archive.ListReports()
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []archive.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "archive disabled"})
		return
	}
	report, err := h.archive.GetReport(chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "report not found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
