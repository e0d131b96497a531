// internal/app/features/auth/handler.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	userstore "github.com/scouthq/troophub/internal/app/store/users"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
	"github.com/scouthq/troophub/internal/app/system/normalize"
	"github.com/scouthq/troophub/internal/app/system/respond"
	"github.com/scouthq/troophub/internal/app/system/timeouts"
	"github.com/scouthq/troophub/internal/app/system/token"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves account registration, login, token refresh, and the
// signed-in user's own profile.
type Handler struct {
	Users  *userstore.Store
	Tokens *token.Manager
	Log    *zap.Logger
}

func NewHandler(users *userstore.Store, tokens *token.Manager, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Tokens: tokens, Log: logger}
}

const minPasswordLen = 8

// tokenPair is the token portion of register/login responses.
type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	User models.User `json:"user"`
	tokenPair
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var details []respond.FieldError
	if _, err := mail.ParseAddress(normalize.Email(req.Email)); err != nil {
		details = append(details, respond.FieldError{Field: "email", Message: "A valid email address is required"})
	}
	if len(req.Password) < minPasswordLen {
		details = append(details, respond.FieldError{Field: "password", Message: "Password must be at least 8 characters"})
	}
	if strings.TrimSpace(req.FirstName) == "" {
		details = append(details, respond.FieldError{Field: "firstName", Message: "First name is required"})
	}
	if strings.TrimSpace(req.LastName) == "" {
		details = append(details, respond.FieldError{Field: "lastName", Message: "Last name is required"})
	}
	if len(details) > 0 {
		respond.ValidationError(w, details)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "auth.register")
	defer cancel()

	hash, err := userstore.HashPassword(req.Password, userstore.DefaultBcryptCost)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		respond.Internal(w)
		return
	}

	user, err := h.Users.Create(ctx, models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			respond.Error(w, http.StatusConflict, "User already exists with this email")
			return
		}
		h.Log.Error("create user", zap.Error(err))
		respond.Internal(w)
		return
	}

	pair, err := h.issueTokens(user)
	if err != nil {
		h.Log.Error("issue tokens", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.Created(w, "User registered successfully", authResponse{User: user, tokenPair: pair})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.ValidationError(w, []respond.FieldError{
			{Field: "email", Message: "Email and password are required"},
		})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "auth.login")
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.Log.Error("load user by email", zap.Error(err))
		respond.Internal(w)
		return
	}

	if !user.HasPassword() {
		respond.Error(w, http.StatusBadRequest, "Please use social login for this account")
		return
	}
	if !userstore.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	pair, err := h.issueTokens(*user)
	if err != nil {
		h.Log.Error("issue tokens", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Login successful", authResponse{User: *user, tokenPair: pair})
}

// Refresh handles POST /auth/refresh. A valid refresh token yields a
// fresh access token; the refresh token itself is not rotated.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	claims, err := h.Tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	userID, err := claims.Subject()
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "auth.refresh")
	defer cancel()

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.Log.Error("load user", zap.Error(err))
		respond.Internal(w)
		return
	}

	access, err := h.Tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		h.Log.Error("issue access token", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Token refreshed", map[string]string{"accessToken": access})
}

// OAuthLogin handles POST /auth/oauth. The client completes the
// provider flow itself and posts the verified profile here. An existing
// provider account signs in, a matching email gets the provider linked,
// and anything else creates a new account.
func (h *Handler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider   string `json:"provider"`
		ProviderID string `json:"providerId"`
		Email      string `json:"email"`
		FirstName  string `json:"firstName"`
		LastName   string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var details []respond.FieldError
	if normalize.Provider(req.Provider) == "" {
		details = append(details, respond.FieldError{Field: "provider", Message: "Provider is required"})
	}
	if strings.TrimSpace(req.ProviderID) == "" {
		details = append(details, respond.FieldError{Field: "providerId", Message: "Provider ID is required"})
	}
	if _, err := mail.ParseAddress(normalize.Email(req.Email)); err != nil {
		details = append(details, respond.FieldError{Field: "email", Message: "A valid email address is required"})
	}
	if len(details) > 0 {
		respond.ValidationError(w, details)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "auth.oauth")
	defer cancel()

	user, err := h.Users.GetByProvider(ctx, req.Provider, req.ProviderID)
	switch {
	case err == nil:
		// Existing provider account.
	case errors.Is(err, mongo.ErrNoDocuments):
		user, err = h.findOrCreateOAuthUser(ctx, req.Provider, req.ProviderID, req.Email, req.FirstName, req.LastName)
		if err != nil {
			h.Log.Error("oauth account resolution", zap.Error(err))
			respond.Internal(w)
			return
		}
	default:
		h.Log.Error("load user by provider", zap.Error(err))
		respond.Internal(w)
		return
	}

	pair, err := h.issueTokens(*user)
	if err != nil {
		h.Log.Error("issue tokens", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Login successful", authResponse{User: *user, tokenPair: pair})
}

func (h *Handler) findOrCreateOAuthUser(ctx context.Context, provider, providerID, email, firstName, lastName string) (*models.User, error) {
	existing, err := h.Users.GetByEmail(ctx, email)
	if err == nil {
		if err := h.Users.LinkProvider(ctx, existing.ID, provider, providerID); err != nil {
			return nil, err
		}
		return h.Users.GetByID(ctx, existing.ID)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	created, err := h.Users.Create(ctx, models.User{
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		Provider:      provider,
		ProviderID:    providerID,
		EmailVerified: true,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetProfile handles GET /auth/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "auth.profile")
	defer cancel()

	user, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.Log.Error("load user", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"user": user})
}

// UpdateProfile handles PUT /auth/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var details []respond.FieldError
	if strings.TrimSpace(req.FirstName) == "" {
		details = append(details, respond.FieldError{Field: "firstName", Message: "First name is required"})
	}
	if strings.TrimSpace(req.LastName) == "" {
		details = append(details, respond.FieldError{Field: "lastName", Message: "Last name is required"})
	}
	if len(details) > 0 {
		respond.ValidationError(w, details)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "auth.update-profile")
	defer cancel()

	user, err := h.Users.UpdateProfile(ctx, id.UserID, userstore.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		h.Log.Error("update profile", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Profile updated successfully", map[string]any{"user": user})
}

// ChangePassword handles PUT /auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		respond.ValidationError(w, []respond.FieldError{
			{Field: "newPassword", Message: "Password must be at least 8 characters"},
		})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "auth.change-password")
	defer cancel()

	user, err := h.Users.GetByID(ctx, id.UserID)
	if err != nil || !user.HasPassword() {
		respond.Error(w, http.StatusNotFound, "User not found or password not set")
		return
	}
	if !userstore.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		respond.Error(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hash, err := userstore.HashPassword(req.NewPassword, userstore.DefaultBcryptCost)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		respond.Internal(w)
		return
	}
	if err := h.Users.SetPasswordHash(ctx, id.UserID, hash); err != nil {
		h.Log.Error("set password hash", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Password changed successfully", nil)
}

func (h *Handler) issueTokens(user models.User) (tokenPair, error) {
	access, err := h.Tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := h.Tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
