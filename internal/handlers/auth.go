package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/task-manager/internal/auth"
	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/models"
	"github.com/benvon/task-manager/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UserStore is the account storage used by the auth endpoints
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(userID uuid.UUID, username string) (string, *auth.Claims, error)
}

// AuthHandler handles account and session requests
type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserStore, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

// RegisterPublicRoutes registers the endpoints that do not need a session.
// The router should already have the /api/v1/auth prefix.
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
}

// RegisterRoutes registers the endpoints that act on the signed-in user.
// The router should already have the /api/v1/auth prefix.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/password", h.ChangePassword).Methods("POST")
}

// RegisterRequest is the body of a registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the body of a login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries a session token
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// ChangePasswordRequest is the body of a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.Describe(err))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	user := &models.User{Username: req.Username, PasswordHash: hash, Theme: models.ThemeLight}
	if req.Email != "" {
		email := strings.ToLower(req.Email)
		user.Email = &email
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			respondJSONError(w, http.StatusConflict, "Conflict", "Username or email already registered")
			return
		}
		h.logger.Error("user_create_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create account")
		return
	}

	h.logger.Info("user_registered", zap.String("user_id", user.ID.String()))
	respondJSON(w, http.StatusCreated, user)
}

// Login checks credentials and issues a session token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.Describe(err))
		return
	}

	ctx := r.Context()
	user, err := h.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrInvalidCredentials.Error())
			return
		}
		h.logger.Error("user_lookup_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to sign in")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.logger.Info("login_failed", zap.String("user_id", user.ID.String()))
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", auth.ErrInvalidCredentials.Error())
		return
	}

	token, claims, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.logger.Error("token_issue_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to sign in")
		return
	}
	if err := h.users.TouchLastLogin(ctx, user.ID); err != nil {
		h.logger.Warn("last_login_update_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		now := time.Now().UTC()
		user.LastLogin = &now
	}

	respondJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: claims.ExpiresAt, User: user})
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// ChangePassword replaces the caller's password after checking the current one
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validation.Describe(err))
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Current password is incorrect")
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		h.logger.Error("password_update_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to change password")
		return
	}

	h.logger.Info("password_changed", zap.String("user_id", user.ID.String()))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}
