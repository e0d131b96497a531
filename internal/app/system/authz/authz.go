// Package authz enforces troop-scoped role checks on top of the auth
// gate. The auth gate proves who the caller is; authz proves what they
// are allowed to do inside a given troop.
package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	membershipstore "github.com/scouthq/troophub/internal/app/store/memberships"
	"github.com/scouthq/troophub/internal/app/system/auth"
	"github.com/scouthq/troophub/internal/app/system/respond"
	"github.com/scouthq/troophub/internal/app/system/timeouts"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Guard checks troop roles against the membership collection.
type Guard struct {
	Memberships *membershipstore.Store
	Log         *zap.Logger
}

// NewGuard builds a Guard around the membership store.
func NewGuard(memberships *membershipstore.Store, logger *zap.Logger) *Guard {
	return &Guard{Memberships: memberships, Log: logger}
}

// RequireTroopRole allows the request through only when the signed-in
// user holds one of the given roles in the troop named by the chi URL
// parameter. Must be mounted inside the auth gate.
func (g *Guard) RequireTroopRole(param string, roles ...models.TroopRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.CurrentIdentity(r)
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "Access token required")
				return
			}

			troopID, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
			if err != nil {
				respond.Error(w, http.StatusBadRequest, "Invalid troop ID")
				return
			}

			ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), g.Log, "troop role check")
			defer cancel()

			allowed, err := g.Memberships.HasAnyRole(ctx, troopID, id.UserID, roles)
			if err != nil {
				g.Log.Error("troop role check failed",
					zap.String("troop_id", troopID.Hex()),
					zap.String("user_id", id.UserID.Hex()),
					zap.Error(err))
				respond.Internal(w)
				return
			}
			if !allowed {
				respond.Error(w, http.StatusForbidden, "Insufficient permissions for this troop")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireLeadership is shorthand for the roles allowed to manage a troop.
func (g *Guard) RequireLeadership(param string) func(http.Handler) http.Handler {
	return g.RequireTroopRole(param, models.LeadershipRoles...)
}
