// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TroopHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_access_secret, etc.
//   - Environment variables: TROOPHUB_MONGO_URI, TROOPHUB_JWT_ACCESS_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_access_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "troophub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// JWT configuration
	{Name: "jwt_access_secret", Default: "dev-access-change-me-0123456789ABCDEF", Desc: "JWT access token signing secret (must be strong in production)"},
	{Name: "jwt_refresh_secret", Default: "dev-refresh-change-me-0123456789ABCDEF", Desc: "JWT refresh token signing secret (must differ from access secret)"},
	{Name: "jwt_access_expiry", Default: "168h", Desc: "Access token lifetime (e.g., 168h, 24h, 30m)"},
	{Name: "jwt_refresh_expiry", Default: "720h", Desc: "Refresh token lifetime (e.g., 720h)"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID (blank disables Google sign-in)"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},

	// Base URL for the OAuth callback
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL for OAuth callbacks"},

	// Handler database timeout overrides (blank keeps built-in defaults)
	{Name: "timeout_ping", Default: "", Desc: "Health check ping timeout (e.g., 2s)"},
	{Name: "timeout_short", Default: "", Desc: "Timeout for single-document operations (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Timeout for multi-step handler flows (e.g., 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Timeout for aggregations and cascades (e.g., 30s)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TROOPHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TROOPHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// JWT
		JWTAccessSecret:  appValues.String("jwt_access_secret"),
		JWTRefreshSecret: appValues.String("jwt_refresh_secret"),
		JWTAccessExpiry:  appValues.Duration("jwt_access_expiry", 0),
		JWTRefreshExpiry: appValues.Duration("jwt_refresh_expiry", 0),

		// Google OAuth
		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),

		// Base URL
		BaseURL: appValues.String("base_url"),

		// Timeout overrides
		TimeoutPing:   appValues.Duration("timeout_ping", 0),
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
//
// TroopHub validates the MongoDB URI format and the JWT secret pair to
// catch configuration errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JWTAccessSecret == "" || appCfg.JWTRefreshSecret == "" {
		return fmt.Errorf("jwt_access_secret and jwt_refresh_secret must be set")
	}
	if appCfg.JWTAccessSecret == appCfg.JWTRefreshSecret {
		return fmt.Errorf("jwt_access_secret and jwt_refresh_secret must differ")
	}

	// Google sign-in needs both halves of the credential or neither.
	if (appCfg.GoogleClientID == "") != (appCfg.GoogleClientSecret == "") {
		return fmt.Errorf("google_client_id and google_client_secret must be set together")
	}

	return nil
}
