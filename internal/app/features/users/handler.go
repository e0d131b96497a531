// internal/app/features/users/handler.go
package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	membershipstore "github.com/scouthq/troophub/internal/app/store/memberships"
	scoutstore "github.com/scouthq/troophub/internal/app/store/scouts"
	userstore "github.com/scouthq/troophub/internal/app/store/users"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
	"github.com/scouthq/troophub/internal/app/system/normalize"
	"github.com/scouthq/troophub/internal/app/system/respond"
	"github.com/scouthq/troophub/internal/app/system/timeouts"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves user records and the signed-in user's dashboard.
type Handler struct {
	Users       *userstore.Store
	Memberships *membershipstore.Store
	Scouts      *scoutstore.Store
	Log         *zap.Logger
}

func NewHandler(users *userstore.Store, memberships *membershipstore.Store, scouts *scoutstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Memberships: memberships, Scouts: scouts, Log: logger}
}

// List handles GET /users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.list")
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		h.Log.Error("list users", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"users": users})
}

// Get handles GET /users/{userID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "users.get")
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
	respond.OK(w, "", map[string]any{"user": user})
}

// Update handles PUT /users/{userID}. Unlike the self-service profile
// endpoint this can change the email, so it re-checks uniqueness.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Email     string `json:"email"`
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
	if normalize.Email(req.Email) == "" {
		details = append(details, respond.FieldError{Field: "email", Message: "Email is required"})
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.update")
	defer cancel()

	taken, err := h.Users.EmailExistsForOther(ctx, req.Email, userID)
	if err != nil {
		h.Log.Error("email uniqueness check", zap.Error(err))
		respond.Internal(w)
		return
	}
	if taken {
		respond.Error(w, http.StatusConflict, "User already exists with this email")
		return
	}

	user, err := h.Users.Update(ctx, userID, userstore.Update{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			respond.Error(w, http.StatusConflict, "User already exists with this email")
			return
		}
		h.Log.Error("update user", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "User updated successfully", map[string]any{"user": user})
}

// Delete handles DELETE /users/{userID}. The user's troop memberships
// go with the account.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "users.delete")
	defer cancel()

	n, err := h.Users.Delete(ctx, userID)
	if err != nil {
		h.Log.Error("delete user", zap.Error(err))
		respond.Internal(w)
		return
	}
	if n == 0 {
		respond.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if _, err := h.Memberships.DeleteByUser(ctx, userID); err != nil {
		h.Log.Error("cascade memberships", zap.Error(err))
	}
	respond.OK(w, "User deleted successfully", nil)
}

// SetBackgroundCheck handles PUT /users/{userID}/background-check.
func (h *Handler) SetBackgroundCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string     `json:"status"`
		Date   *time.Time `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	status := normalize.Status(req.Status)
	if !models.IsValidBackgroundCheckStatus(status) {
		respond.Error(w, http.StatusBadRequest, "Invalid background check status")
		return
	}
	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.background-check")
	defer cancel()

	if err := h.Users.SetBackgroundCheck(ctx, userID, status, date); err != nil {
		h.Log.Error("set background check", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Background check updated", nil)
}

// SetYouthProtection handles PUT /users/{userID}/youth-protection.
func (h *Handler) SetYouthProtection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req struct {
		Date *time.Time `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.youth-protection")
	defer cancel()

	if err := h.Users.SetYouthProtection(ctx, userID, date); err != nil {
		h.Log.Error("set youth protection", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Youth protection training recorded", nil)
}

// AddTroopMembership handles POST /users/troop-membership: grant a user
// a role in a troop. The caller must hold a leadership role in that
// troop; the troop ID comes from the body, so the check lives here
// rather than in route middleware.
func (h *Handler) AddTroopMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var req struct {
		UserID  string `json:"userId"`
		TroopID string `json:"troopId"`
		Role    string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.UserID))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	troopID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.TroopID))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid troop ID")
		return
	}
	role := models.TroopRole(normalize.Role(req.Role))
	if !models.IsValidTroopRole(role) {
		respond.Error(w, http.StatusBadRequest, "Invalid troop role")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.add-membership")
	defer cancel()

	if !h.requireLeadership(ctx, w, troopID, id.UserID) {
		return
	}

	if err := h.Memberships.Add(ctx, troopID, userID, role); err != nil {
		switch {
		case errors.Is(err, membershipstore.ErrDuplicateMembership):
			respond.Error(w, http.StatusConflict, "User already has this role in the troop")
		case errors.Is(err, mongo.ErrNoDocuments):
			respond.Error(w, http.StatusNotFound, "Troop or user not found")
		default:
			h.Log.Error("add membership", zap.Error(err))
			respond.Internal(w)
		}
		return
	}
	respond.Created(w, "Member added successfully", nil)
}

// RemoveTroopMembership handles DELETE /users/{userID}/troop/{troopID}.
// An optional role query param limits the removal to one role; without
// it every role the user holds in the troop is removed.
func (h *Handler) RemoveTroopMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	troopID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "troopID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid troop ID")
		return
	}
	role := models.TroopRole(normalize.Role(query.Get(r, "role")))
	if role != "" && !models.IsValidTroopRole(role) {
		respond.Error(w, http.StatusBadRequest, "Invalid troop role")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.remove-membership")
	defer cancel()

	if !h.requireLeadership(ctx, w, troopID, id.UserID) {
		return
	}

	n, err := h.Memberships.Remove(ctx, troopID, userID, role)
	if err != nil {
		h.Log.Error("remove membership", zap.Error(err))
		respond.Internal(w)
		return
	}
	if n == 0 {
		respond.Error(w, http.StatusNotFound, "Membership not found")
		return
	}
	respond.OK(w, "Member removed successfully", nil)
}

func (h *Handler) requireLeadership(ctx context.Context, w http.ResponseWriter, troopID, userID primitive.ObjectID) bool {
	allowed, err := h.Memberships.HasAnyRole(ctx, troopID, userID, models.LeadershipRoles)
	if err != nil {
		h.Log.Error("leadership check", zap.Error(err))
		respond.Internal(w)
		return false
	}
	if !allowed {
		respond.Error(w, http.StatusForbidden, "Insufficient permissions for this troop")
		return false
	}
	return true
}

// Troops handles GET /users/{userID}/troops: the troops the user
// belongs to, each with the role held there.
func (h *Handler) Troops(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.troops")
	defer cancel()

	troops, err := h.Memberships.ListTroopsForUser(ctx, userID)
	if err != nil {
		h.Log.Error("list troops for user", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"troops": troops})
}

// ScoutsForUser handles GET /users/{userID}/scouts: the scouts linked
// to the user as parent.
func (h *Handler) ScoutsForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.scouts")
	defer cancel()

	scouts, err := h.Scouts.ListByParent(ctx, userID)
	if err != nil {
		h.Log.Error("list scouts for user", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"scouts": scouts})
}

// Dashboard handles GET /users/dashboard: the signed-in user's profile,
// troop memberships, and linked scouts in one response.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.dashboard")
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
	troops, err := h.Memberships.ListTroopsForUser(ctx, id.UserID)
	if err != nil {
		h.Log.Error("list troops", zap.Error(err))
		respond.Internal(w)
		return
	}
	scouts, err := h.Scouts.ListByParent(ctx, id.UserID)
	if err != nil {
		h.Log.Error("list scouts", zap.Error(err))
		respond.Internal(w)
		return
	}

	respond.OK(w, "", map[string]any{
		"user":   user,
		"troops": troops,
		"scouts": scouts,
	})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid user ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
