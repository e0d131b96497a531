// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/scouthq/troophub/internal/app/store/oauthstate"
	userstore "github.com/scouthq/troophub/internal/app/store/users"
	"github.com/scouthq/troophub/internal/app/system/respond"
	"github.com/scouthq/troophub/internal/app/system/timeouts"
	"github.com/scouthq/troophub/internal/app/system/token"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler drives the server-side Google OAuth flow: redirect to the
// consent screen, then exchange the callback code for a profile and a
// token pair. Clients that run the provider flow themselves use
// POST /auth/oauth instead.
type Handler struct {
	Users      *userstore.Store
	Tokens     *token.Manager
	StateStore *oauthstate.Store
	Log        *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(users *userstore.Store, tokens *token.Manager, states *oauthstate.Store, clientID, clientSecret, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        users,
		Tokens:       tokens,
		StateStore:   states,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/api/v1/auth/google/callback",
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// ServeLogin handles GET /auth/google. It stores a one-time state and
// redirects to Google's consent screen.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		respond.Error(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return
	}

	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	state, err := h.StateStore.Issue(ctx, returnURL)
	if err != nil {
		h.Log.Error("save oauth state", zap.Error(err))
		respond.Internal(w)
		return
	}

	authURL := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback. On success it either
// redirects to the stored return URL with the token pair in the URL
// fragment, or responds with the usual JSON envelope when no return URL
// was given.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		respond.Error(w, http.StatusUnauthorized, "Google sign-in was denied")
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		respond.Error(w, http.StatusBadRequest, "Missing OAuth state")
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctxTimeout, state)
	if err != nil {
		h.Log.Error("validate oauth state", zap.Error(err))
		respond.Internal(w)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		respond.Error(w, http.StatusUnauthorized, "Invalid or expired OAuth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respond.Error(w, http.StatusBadRequest, "Missing OAuth code")
		return
	}

	tok, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("exchange oauth code", zap.Error(err))
		respond.Error(w, http.StatusUnauthorized, "Failed to complete Google sign-in")
		return
	}

	googleUser, err := fetchGoogleUserInfo(ctx, tok)
	if err != nil {
		h.Log.Error("fetch google user info", zap.Error(err))
		respond.Error(w, http.StatusUnauthorized, "Failed to complete Google sign-in")
		return
	}

	user, err := h.resolveUser(ctxTimeout, googleUser)
	if err != nil {
		h.Log.Error("resolve google user", zap.Error(err))
		respond.Internal(w)
		return
	}

	access, err := h.Tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		h.Log.Error("issue access token", zap.Error(err))
		respond.Internal(w)
		return
	}
	refresh, err := h.Tokens.IssueRefreshToken(user.ID)
	if err != nil {
		h.Log.Error("issue refresh token", zap.Error(err))
		respond.Internal(w)
		return
	}

	if returnURL != "" {
		frag := url.Values{"accessToken": {access}, "refreshToken": {refresh}}
		http.Redirect(w, r, returnURL+"#"+frag.Encode(), http.StatusSeeOther)
		return
	}

	respond.OK(w, "Login successful", map[string]any{
		"user":         user,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// resolveUser maps a Google profile onto a local account: an existing
// google-linked account wins, then an account with the same email gets
// the provider linked, and otherwise a fresh account is created.
func (h *Handler) resolveUser(ctx context.Context, info *googleUserInfo) (*models.User, error) {
	user, err := h.Users.GetByProvider(ctx, "google", info.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	existing, err := h.Users.GetByEmail(ctx, info.Email)
	if err == nil {
		if err := h.Users.LinkProvider(ctx, existing.ID, "google", info.ID); err != nil {
			return nil, err
		}
		return h.Users.GetByID(ctx, existing.ID)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	created, err := h.Users.Create(ctx, models.User{
		Email:         info.Email,
		FirstName:     info.GivenName,
		LastName:      info.FamilyName,
		Provider:      "google",
		ProviderID:    info.ID,
		EmailVerified: info.EmailVerified,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &info, nil
}
