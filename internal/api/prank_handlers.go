package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
	"github.com/prankline/prankline/internal/prank"
)

// startPrankRequest is the JSON request body for starting a prank call.
type startPrankRequest struct {
	SenderPhone    string `json:"sender_phone"`
	RecipientPhone string `json:"recipient_phone"`
}

// sessionResponse is the JSON representation of a prank session.
type sessionResponse struct {
	ID              string  `json:"id"`
	SenderNumber    string  `json:"sender_number"`
	RecipientNumber string  `json:"recipient_number"`
	SenderLegID     *string `json:"sender_leg_id"`
	RecipientLegID  *string `json:"recipient_leg_id"`
	State           string  `json:"state"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func toSessionResponse(s *models.PrankSession) sessionResponse {
	return sessionResponse{
		ID:              s.ID.String(),
		SenderNumber:    s.SenderNumber,
		RecipientNumber: s.RecipientNumber,
		SenderLegID:     s.SenderLegID,
		RecipientLegID:  s.RecipientLegID,
		State:           string(s.State),
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

// handleStartPrank creates a session and dials the sender leg. Unlike the
// webhook sink, failures here surface as 5xx so the operator sees them.
func (s *Server) handleStartPrank(w http.ResponseWriter, r *http.Request) {
	var req startPrankRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if errMsg := validatePhone("sender_phone", req.SenderPhone); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validatePhone("recipient_phone", req.RecipientPhone); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	sess, err := s.orch.StartPrank(r.Context(), req.SenderPhone, req.RecipientPhone, s.cfg.TelnyxNumber)
	if err != nil {
		slog.Error("start prank failed", "sender", req.SenderPhone, "error", err)
		writeError(w, http.StatusBadGateway, "failed to start prank call")
		return
	}

	slog.Info("prank started", "session_id", sess.ID, "sender", sess.SenderNumber, "recipient", sess.RecipientNumber)

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID.String()})
}

// handleGetSession returns a single prank session for operator inspection.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := s.pranks.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, prank.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		slog.Error("get session: failed to query", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(sess))
}
