package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

const sessionCookieName = "session"

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if authSess == nil {
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil {
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects non-admin users. Must run after requireAuth.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := model.UserFromContext(r.Context())
		if user == nil {
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !user.IsAdmin {
			errorJSON(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginFailed"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errorJSON(w, http.StatusUnauthorized, appI18n.T(r.Context(), "LoginFailed"))
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   appI18n.Td(r.Context(), "WelcomeUser", map[string]any{"Name": user.FullName}),
		"is_admin":  user.IsAdmin,
		"full_name": user.FullName,
	})
}

type registerRequest struct {
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	switch {
	case req.Username == "" || req.FullName == "" || req.Password == "" || req.ConfirmPassword == "":
		errorJSON(w, http.StatusBadRequest, appI18n.T(ctx, "AllFieldsRequired"))
		return
	case len(req.Username) < minUsernameLen:
		errorJSON(w, http.StatusBadRequest, appI18n.T(ctx, "UsernameTooShort"))
		return
	case len(req.Password) < minPasswordLen:
		errorJSON(w, http.StatusBadRequest, appI18n.T(ctx, "PasswordTooShort"))
		return
	case req.Password != req.ConfirmPassword:
		errorJSON(w, http.StatusBadRequest, appI18n.T(ctx, "PasswordMismatch"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
	})
	if errors.Is(err, store.ErrUsernameTaken) {
		errorJSON(w, http.StatusConflict, appI18n.T(ctx, "UsernameTaken"))
		return
	}
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      id,
		"message": appI18n.T(ctx, "RegistrationComplete"),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	// Logging out abandons any live exam without scoring it.
	h.manager.Discard(user.ID)

	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
