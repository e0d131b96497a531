// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	authfeature "github.com/scouthq/troophub/internal/app/features/auth"
	authgooglefeature "github.com/scouthq/troophub/internal/app/features/authgoogle"
	healthfeature "github.com/scouthq/troophub/internal/app/features/health"
	scoutsfeature "github.com/scouthq/troophub/internal/app/features/scouts"
	troopsfeature "github.com/scouthq/troophub/internal/app/features/troops"
	usersfeature "github.com/scouthq/troophub/internal/app/features/users"
	badgestore "github.com/scouthq/troophub/internal/app/store/badges"
	membershipstore "github.com/scouthq/troophub/internal/app/store/memberships"
	"github.com/scouthq/troophub/internal/app/store/oauthstate"
	scoutstore "github.com/scouthq/troophub/internal/app/store/scouts"
	troopstore "github.com/scouthq/troophub/internal/app/store/troops"
	userstore "github.com/scouthq/troophub/internal/app/store/users"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
	"github.com/scouthq/troophub/internal/app/system/authz"
	"github.com/scouthq/troophub/internal/app/system/token"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// TroopHub builds the JWT token manager and the bearer-token gate,
// wires each store to the shared Mongo database, and mounts the API
// feature routers under /api/v1.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := token.NewManager(
		appCfg.JWTAccessSecret,
		appCfg.JWTRefreshSecret,
		appCfg.JWTAccessExpiry,
		appCfg.JWTRefreshExpiry,
	)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	users := userstore.New(db)
	troops := troopstore.New(db)
	memberships := membershipstore.New(db)
	scouts := scoutstore.New(db)
	badges := badgestore.New(db)
	states := oauthstate.New(db)

	// Gate authenticates bearer tokens; Guard checks troop leadership.
	gate := authmw.NewGate(tokens, logger)
	guard := authz.NewGuard(memberships, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	authHandler := authfeature.NewHandler(users, tokens, logger)
	googleHandler := authgooglefeature.NewHandler(
		users, tokens, states,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL,
		logger,
	)
	troopsHandler := troopsfeature.NewHandler(troops, memberships, scouts, logger)
	usersHandler := usersfeature.NewHandler(users, memberships, scouts, logger)
	scoutsHandler := scoutsfeature.NewHandler(scouts, badges, memberships, logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", authfeature.Routes(authHandler, gate))
		api.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
		api.Mount("/troops", troopsfeature.Routes(troopsHandler, gate, guard))
		api.Mount("/troops/{troopID}/scouts", scoutsfeature.TroopRoutes(scoutsHandler, gate))
		api.Mount("/users", usersfeature.Routes(usersHandler, gate))
		api.Mount("/scouts", scoutsfeature.Routes(scoutsHandler, gate))
	})

	return r, nil
}
