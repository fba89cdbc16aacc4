package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kosix/kosix/internal/api/handler"
	"github.com/kosix/kosix/internal/api/middleware"
	"github.com/kosix/kosix/internal/auth"
	"github.com/kosix/kosix/internal/team"
	"github.com/kosix/kosix/internal/upload"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger      handler.DBPinger
	Version       string
	AuthService   *auth.Service
	TeamService   *team.Service
	UploadService *upload.Service // nil disables the /uploads routes
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	authHandler := handler.NewAuthHandler(deps.AuthService)
	requireAuth := middleware.Auth(deps.AuthService)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.Me)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	teamHandler := handler.NewTeamHandler(deps.TeamService)
	r.Route("/teams", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", teamHandler.Create)
		r.Get("/", teamHandler.List)
		r.Get("/my", teamHandler.My)
		r.Get("/{id}", teamHandler.Get)
		r.Patch("/{id}", teamHandler.Update)
		r.Delete("/{id}", teamHandler.Delete)
		r.Post("/{id}/members", teamHandler.AddMembers)
		r.Delete("/{id}/members", teamHandler.RemoveMembers)
		r.Post("/{id}/managers", teamHandler.AddManagers)
		r.Delete("/{id}/managers", teamHandler.RemoveManagers)
		r.Post("/{id}/transfer-ownership", teamHandler.TransferOwnership)
		r.Post("/{id}/leave", teamHandler.Leave)
	})

	if deps.UploadService != nil {
		uploadHandler := handler.NewUploadHandler(deps.UploadService)
		r.Route("/uploads", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", uploadHandler.Create)
			r.Get("/", uploadHandler.List)
			r.Delete("/{id}", uploadHandler.Delete)
		})
	}

	return r
}
