package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pinboard/internal/httputil"
	"pinboard/internal/model"
	"pinboard/internal/service"
	authmw "pinboard/internal/transport/http/middleware"
)

// PinHandler exposes pin CRUD and download endpoints.
type PinHandler struct {
	pinService *service.PinService
}

func NewPinHandler(pinService *service.PinService) *PinHandler {
	return &PinHandler{pinService: pinService}
}

// Create handles POST /pins (multipart: title, description, tags, image).
func (h *PinHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxPinImageSize+1024*1024)
	if err := r.ParseMultipartForm(model.MaxPinImageSize); err != nil {
		httputil.WriteBadRequest(w, model.CodeFileTooLarge, "Image exceeds the 10 MiB limit")
		return
	}

	in := &service.CreatePinInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		TagsRaw:     r.FormValue("tags"),
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		in.File = file
		in.Header = header
	}

	pin, err := h.pinService.Create(r.Context(), userID, in)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTitleRequired):
			httputil.WriteBadRequest(w, "TITLE_REQUIRED", "Title is required")
		case errors.Is(err, model.ErrTitleTooLong):
			httputil.WriteBadRequest(w, "TITLE_TOO_LONG", "Title must be at most 200 characters")
		case errors.Is(err, model.ErrImageRequired):
			httputil.WriteBadRequest(w, "IMAGE_REQUIRED", "An image file is required")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequest(w, model.CodeFileTooLarge, "Image exceeds the 10 MiB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequest(w, model.CodeInvalidImageType, "Only JPEG, PNG, GIF, and WebP images are allowed")
		default:
			httputil.WriteInternalError(w)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, pin)
}

// Get handles GET /pins/{id}.
func (h *PinHandler) Get(w http.ResponseWriter, r *http.Request) {
	pinID, err := pinIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "INVALID_ID", "Invalid pin ID")
		return
	}

	var viewerID *int64
	if id, ok := authmw.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	pin, err := h.pinService.GetByID(r.Context(), pinID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrPinNotFound) {
			httputil.WriteNotFound(w, "Pin not found")
			return
		}
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pin)
}

// Delete handles DELETE /pins/{id}. Owner only.
func (h *PinHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	pinID, err := pinIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "INVALID_ID", "Invalid pin ID")
		return
	}

	if err := h.pinService.Delete(r.Context(), pinID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrPinNotFound):
			httputil.WriteNotFound(w, "Pin not found")
		case errors.Is(err, model.ErrNotPinOwner):
			httputil.WriteForbidden(w, "Only the pin's owner can delete it")
		default:
			httputil.WriteInternalError(w)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Pin deleted"})
}

// ListByUsername handles GET /profiles/{username}/pins.
func (h *PinHandler) ListByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	pins, err := h.pinService.ListByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"pins": pins})
}

// Download handles GET /pins/{id}/download, streaming the image with a
// filename derived from the pin's title.
func (h *PinHandler) Download(w http.ResponseWriter, r *http.Request) {
	pinID, err := pinIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "INVALID_ID", "Invalid pin ID")
		return
	}

	body, contentType, filename, err := h.pinService.Download(r.Context(), pinID)
	if err != nil {
		if errors.Is(err, model.ErrPinNotFound) {
			httputil.WriteNotFound(w, "Pin not found")
			return
		}
		httputil.WriteInternalError(w)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, body); err != nil {
		// Response is already streaming; nothing useful to send.
		return
	}
}

func pinIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
