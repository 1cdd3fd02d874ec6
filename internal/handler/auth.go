package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"pinboard/internal/httputil"
	"pinboard/internal/model"
	"pinboard/internal/service"
	authmw "pinboard/internal/transport/http/middleware"
)

// AuthHandler exposes account and session endpoints.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

func NewAuthHandler(userService *service.UserService, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{userService: userService, authService: authService}
}

// Register handles POST /auth/register. A new account starts without a
// profile; profile fields are saved separately via PUT /me/profile.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "INVALID_BODY", "Invalid request body")
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrUsernameExists) {
			httputil.WriteConflict(w, "USERNAME_EXISTS", "Username is already taken")
			return
		}
		httputil.WriteBadRequest(w, "INVALID_INPUT", err.Error())
		return
	}

	pair, err := h.authService.GenerateTokenPair(r.Context(), user.ID, r.UserAgent(), getClientIP(r))
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}

	h.setAuthCookies(w, pair)
	httputil.WriteJSON(w, http.StatusCreated, model.LoginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "INVALID_BODY", "Invalid request body")
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		httputil.WriteUnauthorized(w, "Invalid username or password")
		return
	}

	pair, err := h.authService.GenerateTokenPair(r.Context(), user.ID, r.UserAgent(), getClientIP(r))
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}

	h.setAuthCookies(w, pair)
	httputil.WriteJSON(w, http.StatusOK, model.LoginResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// Refresh handles POST /auth/refresh with refresh token rotation.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFromRequest(r)
	if refreshToken == "" {
		httputil.WriteUnauthorized(w, "Refresh token required")
		return
	}

	pair, err := h.authService.RefreshTokens(r.Context(), refreshToken, r.UserAgent(), getClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenReused):
			httputil.WriteError(w, http.StatusUnauthorized, model.CodeTokenReused, "Refresh token reuse detected; all sessions revoked")
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteError(w, http.StatusUnauthorized, model.CodeTokenExpired, "Refresh token expired")
		case errors.Is(err, model.ErrRefreshTokenNotFound):
			httputil.WriteError(w, http.StatusUnauthorized, model.CodeTokenInvalid, "Invalid refresh token")
		default:
			httputil.WriteInternalError(w)
		}
		return
	}

	h.setAuthCookies(w, pair)
	httputil.WriteJSON(w, http.StatusOK, pair)
}

// Logout handles POST /auth/logout, revoking the presented refresh token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshTokenFromRequest(r)
	if refreshToken != "" {
		if err := h.authService.RevokeRefreshToken(r.Context(), refreshToken); err != nil &&
			!errors.Is(err, model.ErrRefreshTokenNotFound) {
			httputil.WriteInternalError(w)
			return
		}
	}

	h.clearAuthCookies(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// LogoutAll handles POST /auth/logout-all, revoking every session.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), userID); err != nil {
		httputil.WriteInternalError(w)
		return
	}

	h.clearAuthCookies(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out everywhere"})
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) refreshTokenFromRequest(r *http.Request) string {
	var req model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	if cookie, err := r.Cookie("refresh_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, pair *model.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   h.authService.AccessTokenMaxAge(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		Path:     "/auth",
		MaxAge:   h.authService.RefreshTokenMaxAge(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})
}

// getClientIP extracts the client IP, preferring proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
