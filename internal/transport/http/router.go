package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pinboard/internal/handler"
	authmw "pinboard/internal/transport/http/middleware"
)

// NewRouter wires all routes with their middleware.
func NewRouter(
	jwtSecret string,
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	pinHandler *handler.PinHandler,
	feedHandler *handler.FeedHandler,
	engagementHandler *handler.EngagementHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Session endpoints.
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
		r.With(authmw.AuthMiddleware(jwtSecret)).Post("/logout-all", authHandler.LogoutAll)
	})

	// Public reads. Feed and pin detail personalize when a token is present.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(jwtSecret))

		r.Get("/feed", feedHandler.Get)
		r.Get("/pins/{id}", pinHandler.Get)
	})

	r.Get("/pins/{id}/download", pinHandler.Download)
	r.Get("/profiles/{username}", profileHandler.GetByUsername)
	r.Get("/profiles/{username}/pins", pinHandler.ListByUsername)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(jwtSecret))

		r.Get("/me", authHandler.Me)
		r.Get("/me/profile", profileHandler.GetMe)
		r.Put("/me/profile", profileHandler.UpsertMe)
		r.Post("/me/avatar", profileHandler.UploadAvatar)
		r.Get("/me/likes", engagementHandler.MyLikes)
		r.Get("/me/saves", engagementHandler.MySaves)

		r.Post("/pins", pinHandler.Create)
		r.Delete("/pins/{id}", pinHandler.Delete)

		r.Put("/pins/{id}/like", engagementHandler.Like)
		r.Delete("/pins/{id}/like", engagementHandler.Unlike)
		r.Put("/pins/{id}/save", engagementHandler.Save)
		r.Delete("/pins/{id}/save", engagementHandler.Unsave)
	})

	return r
}
