package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"p9e.in/rigops/middleware"
	"p9e.in/rigops/models"
	"p9e.in/rigops/pkg/store"
)

// AuthHandler issues tokens and describes the current user.
type AuthHandler struct {
	users store.UserStore
	auth  *middleware.Auth
	now   func() time.Time
}

func NewAuthHandler(users store.UserStore, auth *middleware.Auth) *AuthHandler {
	return &AuthHandler{users: users, auth: auth, now: time.Now}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResp struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login checks email and password and returns a signed token.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !u.IsActive() {
		writeError(w, http.StatusForbidden, "account is disabled")
		return
	}

	token, err := h.auth.GenerateToken(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "couldn't create token")
		return
	}
	now := h.now()
	u.LastLoginAt = &now
	if err := h.users.UpdateUser(r.Context(), u); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("user", u.ID.String()).Msg("failed to record last login")
	}
	writeJSON(w, http.StatusOK, loginResp{Token: token, User: u})
}

// Me returns the caller's user record.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), middleware.GetUserID(r))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": u})
}
