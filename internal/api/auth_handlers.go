package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/api/middleware"
	"github.com/prankline/prankline/internal/database"
	"github.com/prankline/prankline/internal/database/models"
)

// registerRequest is the JSON body for /auth/register and /auth/login.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse carries a freshly issued bearer token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleRegister creates a user and returns a bearer token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errMsg := validateEmail("email", req.Email); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	if errMsg := validatePassword("password", req.Password); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	existing, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("register: failed to query user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}

	hash, err := database.HashPassword(req.Password)
	if err != nil {
		slog.Error("register: failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user := &models.User{ID: uuid.New(), Email: req.Email, PasswordHash: hash}
	if err := s.users.Create(r.Context(), user); err != nil {
		slog.Error("register: failed to insert user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := middleware.GenerateToken([]byte(s.cfg.JWTSecret), user.ID)
	if err != nil {
		slog.Error("register: failed to sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)

	writeJSON(w, http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleLogin verifies credentials and returns a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if errMsg := readJSON(r, &req); errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("login: failed to query user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Run the check even for unknown users so response timing does not leak
	// which emails are registered.
	hash := "$argon2id$v=19$m=65536,t=3,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	if user != nil {
		hash = user.PasswordHash
	}
	ok, err := database.CheckPassword(req.Password, hash)
	if err != nil || !ok || user == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := middleware.GenerateToken([]byte(s.cfg.JWTSecret), user.ID)
	if err != nil {
		slog.Error("login: failed to sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleMe returns the authenticated user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		slog.Error("me: failed to query user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":    user.ID.String(),
		"email": user.Email,
	})
}
