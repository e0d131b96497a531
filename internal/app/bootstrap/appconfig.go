// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where you put everything specific to YOUR application:
//   - Database connection strings (MongoDB URI, Postgres DSN, etc.)
//   - External service API keys and endpoints
//   - Token signing secrets and lifetimes
//   - Business logic configuration
//
// Add fields here as the application grows. The struct is passed to
// most lifecycle hooks, so any configuration needed during startup,
// request handling, or shutdown should live here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the driver pool
	MongoMinPoolSize uint64 // Min connections kept warm in the pool

	// JWT configuration. The two secrets must differ so refresh tokens
	// can never be replayed as access tokens.
	JWTAccessSecret  string        // Signing secret for access tokens (must be strong in production)
	JWTRefreshSecret string        // Signing secret for refresh tokens
	JWTAccessExpiry  time.Duration // Access token lifetime (default: 168h)
	JWTRefreshExpiry time.Duration // Refresh token lifetime (default: 720h)

	// Google OAuth configuration. Leave blank to disable Google sign-in;
	// the login route then answers 503.
	GoogleClientID     string // Google OAuth2 client ID
	GoogleClientSecret string // Google OAuth2 client secret

	// Base URL for building the OAuth callback address
	BaseURL string // e.g., "https://troophub.example.com" or "http://localhost:3000"

	// Per-handler database timeout overrides. Zero keeps the built-in
	// defaults (see internal/app/system/timeouts).
	TimeoutPing   time.Duration // Health check ping timeout
	TimeoutShort  time.Duration // Single-document reads and writes
	TimeoutMedium time.Duration // Multi-step handler flows
	TimeoutLong   time.Duration // Aggregations and cascading deletes
}
