// internal/app/features/troops/routes.go
package troops

import (
	"github.com/go-chi/chi/v5"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
	"github.com/scouthq/troophub/internal/app/system/authz"
)

// Routes returns a subrouter serving the troop endpoints. Everything
// requires a signed-in user; mutating a specific troop additionally
// requires a leadership role in that troop.
func Routes(h *Handler, gate *authmw.Gate, guard *authz.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(gate.RequireSignedIn)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/my/troops", h.MyTroops)

	r.Route("/{troopID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/members", h.Members)
		r.Get("/stats", h.Stats)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireLeadership("troopID"))
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/archive", h.Archive)
			r.Post("/reactivate", h.Reactivate)
			r.Post("/members", h.AddMember)
			r.Delete("/members/{userID}", h.RemoveMember)
		})
	})

	return r
}
