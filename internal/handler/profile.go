package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pinboard/internal/httputil"
	"pinboard/internal/model"
	"pinboard/internal/service"
	authmw "pinboard/internal/transport/http/middleware"
)

// ProfileHandler exposes profile endpoints.
type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpsertMe handles PUT /me/profile. First save creates the profile row.
func (h *ProfileHandler) UpsertMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "INVALID_BODY", "Invalid request body")
		return
	}

	profile, err := h.profileService.Upsert(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, model.ErrBioTooLong) {
			httputil.WriteBadRequest(w, "BIO_TOO_LONG", "Bio must be at most 500 characters")
			return
		}
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// GetMe handles GET /me/profile.
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.profileService.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			httputil.WriteNotFound(w, "Profile not set up yet")
			return
		}
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UploadAvatar handles POST /me/avatar (multipart field "avatar").
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxAvatarSizeBytes+1024*1024)
	if err := r.ParseMultipartForm(model.MaxAvatarSizeBytes); err != nil {
		httputil.WriteBadRequest(w, model.CodeFileTooLarge, "Avatar exceeds the 5 MiB limit")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.WriteBadRequest(w, "MISSING_FILE", "Avatar file is required")
		return
	}
	defer file.Close()

	profile, err := h.profileService.UpdateAvatar(r.Context(), userID, file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrProfileNotFound):
			httputil.WriteNotFound(w, "Profile not set up yet")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequest(w, model.CodeFileTooLarge, "Avatar exceeds the 5 MiB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequest(w, model.CodeInvalidImageType, "Only JPEG, PNG, GIF, and WebP images are allowed")
		default:
			httputil.WriteInternalError(w)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// GetByUsername handles GET /profiles/{username}.
func (h *ProfileHandler) GetByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.profileService.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			httputil.WriteNotFound(w, "Profile not found")
			return
		}
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}
