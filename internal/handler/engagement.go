package handler

import (
	"context"
	"errors"
	"net/http"

	"pinboard/internal/httputil"
	"pinboard/internal/model"
	"pinboard/internal/service"
	authmw "pinboard/internal/transport/http/middleware"
)

// EngagementHandler exposes like and save endpoints.
type EngagementHandler struct {
	engagementService *service.EngagementService
}

func NewEngagementHandler(engagementService *service.EngagementService) *EngagementHandler {
	return &EngagementHandler{engagementService: engagementService}
}

// Like handles PUT /pins/{id}/like.
func (h *EngagementHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.engagementService.LikePin)
}

// Unlike handles DELETE /pins/{id}/like.
func (h *EngagementHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.engagementService.UnlikePin)
}

// Save handles PUT /pins/{id}/save.
func (h *EngagementHandler) Save(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.engagementService.SavePin)
}

// Unsave handles DELETE /pins/{id}/save.
func (h *EngagementHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.engagementService.UnsavePin)
}

// MyLikes handles GET /me/likes.
func (h *EngagementHandler) MyLikes(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	pins, err := h.engagementService.LikedPins(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"pins": pins})
}

// MySaves handles GET /me/saves. Saves are private to the caller.
func (h *EngagementHandler) MySaves(w http.ResponseWriter, r *http.Request) {
	userID, ok := authmw.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	pins, err := h.engagementService.SavedPins(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"pins": pins})
}

// mutate is the shared body for like/unlike/save/unsave: resolve pin ID
// and user, run the operation, map errors, return confirmed state.
func (h *EngagementHandler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, pinID, userID int64) (*model.EngagementState, error),
) {
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

	state, err := op(r.Context(), pinID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPinNotFound):
			httputil.WriteNotFound(w, "Pin not found")
		case errors.Is(err, model.ErrAlreadyLiked):
			httputil.WriteConflict(w, "ALREADY_LIKED", "Pin is already liked")
		case errors.Is(err, model.ErrNotLiked):
			httputil.WriteConflict(w, "NOT_LIKED", "Pin is not liked")
		case errors.Is(err, model.ErrAlreadySaved):
			httputil.WriteConflict(w, "ALREADY_SAVED", "Pin is already saved")
		case errors.Is(err, model.ErrNotSaved):
			httputil.WriteConflict(w, "NOT_SAVED", "Pin is not saved")
		default:
			httputil.WriteInternalError(w)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, state)
}
