// Package auth is the request gate for the JSON API. It verifies the
// bearer access token on protected routes and injects the caller's
// identity into the request context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/scouthq/troophub/internal/app/system/respond"
	"github.com/scouthq/troophub/internal/app/system/token"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Identity is what we extract from a verified access token and inject
// into r.Context().
type Identity struct {
	UserID primitive.ObjectID
	Email  string
}

type ctxKey string

const identityKey ctxKey = "identity"

// CurrentIdentity returns the caller's identity and a "found?" flag.
func CurrentIdentity(r *http.Request) (*Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*Identity)
	return id, ok
}

// WithIdentity returns a request whose context carries the identity.
// Handler tests use this to simulate an authenticated caller.
func WithIdentity(r *http.Request, id *Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// Gate verifies bearer tokens and guards protected routes.
type Gate struct {
	Tokens *token.Manager
	Log    *zap.Logger
}

// NewGate builds a Gate around the token manager.
func NewGate(tokens *token.Manager, logger *zap.Logger) *Gate {
	return &Gate{Tokens: tokens, Log: logger}
}

// RequireSignedIn rejects requests without a valid bearer access token.
//
// Missing or malformed Authorization headers get 401 "Access token
// required". Any verification failure gets 401 "Invalid or expired
// token"; whether the token was expired or tampered with is logged but
// not leaked to the client.
func (g *Gate) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := g.Tokens.VerifyAccess(raw)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				g.Log.Debug("access token expired", zap.String("path", r.URL.Path))
			} else {
				g.Log.Warn("access token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			}
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		userID, err := claims.Subject()
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		id := &Identity{UserID: userID, Email: claims.Email}
		next.ServeHTTP(w, WithIdentity(r, id))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
