// internal/app/features/auth/routes.go
package auth

import (
	"github.com/go-chi/chi/v5"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
)

// Routes returns a subrouter serving the auth endpoints. Registration,
// login, refresh, and OAuth exchange are public; the profile endpoints
// require a bearer token.
func Routes(h *Handler, gate *authmw.Gate) chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh-token", h.Refresh)
	r.Post("/oauth", h.OAuthLogin)

	r.Group(func(r chi.Router) {
		r.Use(gate.RequireSignedIn)
		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)
		r.Put("/change-password", h.ChangePassword)
	})

	return r
}
