package handler

import (
	"net/http"
	"strconv"

	"pinboard/internal/httputil"
	"pinboard/internal/layout"
	"pinboard/internal/model"
	"pinboard/internal/service"
	authmw "pinboard/internal/transport/http/middleware"
)

// FeedHandler exposes the home feed.
type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// Get handles GET /feed?q=...&width=... . Auth is optional: signed-in
// viewers get their liked/saved flags, anonymous viewers get the same
// pins with flags false. When width is given, pins are also returned
// pre-distributed into masonry columns for that viewport.
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	var viewerID *int64
	if id, ok := authmw.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	query := r.URL.Query().Get("q")

	pins, err := h.feedService.GetFeed(r.Context(), viewerID, query)
	if err != nil {
		httputil.WriteInternalError(w)
		return
	}

	resp := model.FeedResponse{Pins: pins}

	if widthParam := r.URL.Query().Get("width"); widthParam != "" {
		width, err := strconv.Atoi(widthParam)
		if err != nil || width < 0 {
			httputil.WriteBadRequest(w, "INVALID_WIDTH", "width must be a non-negative integer")
			return
		}
		resp.Columns = layout.Distribute(pins, layout.ColumnCount(width))
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
