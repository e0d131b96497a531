// internal/app/features/users/routes.go
package users

import (
	"github.com/go-chi/chi/v5"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
)

// Routes returns a subrouter serving the user endpoints. All of them
// require a signed-in user.
func Routes(h *Handler, gate *authmw.Gate) chi.Router {
	r := chi.NewRouter()
	r.Use(gate.RequireSignedIn)

	r.Get("/", h.List)
	r.Get("/dashboard", h.Dashboard)
	r.Post("/troop-membership", h.AddTroopMembership)

	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/troops", h.Troops)
		r.Get("/scouts", h.ScoutsForUser)
		r.Delete("/troop/{troopID}", h.RemoveTroopMembership)
		r.Put("/background-check", h.SetBackgroundCheck)
		r.Put("/youth-protection", h.SetYouthProtection)
	})

	return r
}
