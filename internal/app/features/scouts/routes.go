// internal/app/features/scouts/routes.go
package scouts

import (
	"github.com/go-chi/chi/v5"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
)

// Routes returns a subrouter serving the scout endpoints. Everything
// requires a signed-in user; the handler checks troop leadership on
// mutations because the troop is derived from the scout record.
func Routes(h *Handler, gate *authmw.Gate) chi.Router {
	r := chi.NewRouter()
	r.Use(gate.RequireSignedIn)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/my", h.My)
	r.Get("/catalog", h.Catalog)

	r.Route("/{scoutID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)

		r.Get("/ranks", h.Ranks)
		r.Post("/ranks", h.RecordRank)

		r.Get("/badges", h.BadgesForScout)
		r.Post("/badges", h.StartBadge)
		r.Put("/badges/{badgeID}/complete", h.CompleteBadge)
	})

	return r
}

// TroopRoutes returns the troop-scoped scout listing, mounted under a
// troop subtree so the troopID URL param is in scope.
func TroopRoutes(h *Handler, gate *authmw.Gate) chi.Router {
	r := chi.NewRouter()
	r.Use(gate.RequireSignedIn)
	r.Get("/", h.ListByTroop)
	return r
}
