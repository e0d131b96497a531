// internal/app/features/troops/handler.go
package troops

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	membershipstore "github.com/scouthq/troophub/internal/app/store/memberships"
	scoutstore "github.com/scouthq/troophub/internal/app/store/scouts"
	troopstore "github.com/scouthq/troophub/internal/app/store/troops"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
	"github.com/scouthq/troophub/internal/app/system/htmlsanitize"
	"github.com/scouthq/troophub/internal/app/system/normalize"
	"github.com/scouthq/troophub/internal/app/system/respond"
	"github.com/scouthq/troophub/internal/app/system/timeouts"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves troop CRUD and membership management.
type Handler struct {
	Troops      *troopstore.Store
	Memberships *membershipstore.Store
	Scouts      *scoutstore.Store
	Log         *zap.Logger
}

func NewHandler(troops *troopstore.Store, memberships *membershipstore.Store, scouts *scoutstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Troops: troops, Memberships: memberships, Scouts: scouts, Log: logger}
}

// List handles GET /troops with optional status, page, and limit params.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := normalize.Status(query.Get(r, "status"))
	if status != "" && !models.IsValidTroopStatus(status) {
		respond.Error(w, http.StatusBadRequest, "Invalid troop status")
		return
	}
	page, _ := strconv.Atoi(query.Get(r, "page"))
	limit, _ := strconv.Atoi(query.Get(r, "limit"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.list")
	defer cancel()

	troops, total, err := h.Troops.List(ctx, status, page, limit)
	if err != nil {
		h.Log.Error("list troops", zap.Error(err))
		respond.Internal(w)
		return
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = troopstore.DefaultPageSize
	}
	respond.Page(w, "", map[string]any{"troops": troops}, respond.Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// Get handles GET /troops/{troopID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "troops.get")
	defer cancel()

	troop, err := h.Troops.GetByID(ctx, troopID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "Troop not found")
			return
		}
		h.Log.Error("load troop", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"troop": troop})
}

// Create handles POST /troops. The creating user becomes the troop's
// scoutmaster. If the membership insert fails the troop is removed
// again so no orphan troops are left behind.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var req struct {
		TroopNumber string `json:"troopNumber"`
		Name        string `json:"name"`
		Description string `json:"description"`
		CharterOrg  string `json:"charterOrg"`
		City        string `json:"city"`
		State       string `json:"state"`
		MeetingDay  string `json:"meetingDay"`
		MeetingTime string `json:"meetingTime"`
		SizeLimit   int    `json:"sizeLimit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var details []respond.FieldError
	if strings.TrimSpace(req.TroopNumber) == "" {
		details = append(details, respond.FieldError{Field: "troopNumber", Message: "Troop number is required"})
	}
	if strings.TrimSpace(req.Name) == "" {
		details = append(details, respond.FieldError{Field: "name", Message: "Troop name is required"})
	}
	if req.SizeLimit < 0 {
		details = append(details, respond.FieldError{Field: "sizeLimit", Message: "Size limit must be positive"})
	}
	if len(details) > 0 {
		respond.ValidationError(w, details)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.create")
	defer cancel()

	troop, err := h.Troops.Create(ctx, models.Troop{
		TroopNumber: strings.TrimSpace(req.TroopNumber),
		Name:        req.Name,
		Description: htmlsanitize.Sanitize(req.Description),
		CharterOrg:  strings.TrimSpace(req.CharterOrg),
		City:        strings.TrimSpace(req.City),
		State:       strings.TrimSpace(req.State),
		MeetingDay:  strings.TrimSpace(req.MeetingDay),
		MeetingTime: strings.TrimSpace(req.MeetingTime),
		SizeLimit:   req.SizeLimit,
	})
	if err != nil {
		if errors.Is(err, troopstore.ErrDuplicateNumber) {
			respond.Error(w, http.StatusConflict, "A troop with that number already exists")
			return
		}
		h.Log.Error("create troop", zap.Error(err))
		respond.Internal(w)
		return
	}

	if err := h.Memberships.Add(ctx, troop.ID, id.UserID, models.RoleScoutmaster); err != nil {
		if _, delErr := h.Troops.Delete(ctx, troop.ID); delErr != nil {
			h.Log.Error("rollback troop after membership failure", zap.Error(delErr))
		}
		h.Log.Error("add scoutmaster membership", zap.Error(err))
		respond.Internal(w)
		return
	}

	respond.Created(w, "Troop created successfully", map[string]any{"troop": troop})
}

// Update handles PUT /troops/{troopID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		CharterOrg  string `json:"charterOrg"`
		City        string `json:"city"`
		State       string `json:"state"`
		MeetingDay  string `json:"meetingDay"`
		MeetingTime string `json:"meetingTime"`
		SizeLimit   int    `json:"sizeLimit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respond.ValidationError(w, []respond.FieldError{
			{Field: "name", Message: "Troop name is required"},
		})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.update")
	defer cancel()

	troop, err := h.Troops.Update(ctx, troopID, troopstore.Update{
		Name:        req.Name,
		Description: htmlsanitize.Sanitize(req.Description),
		CharterOrg:  strings.TrimSpace(req.CharterOrg),
		City:        strings.TrimSpace(req.City),
		State:       strings.TrimSpace(req.State),
		MeetingDay:  strings.TrimSpace(req.MeetingDay),
		MeetingTime: strings.TrimSpace(req.MeetingTime),
		SizeLimit:   req.SizeLimit,
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "Troop not found")
			return
		}
		h.Log.Error("update troop", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Troop updated successfully", map[string]any{"troop": troop})
}

// Archive handles POST /troops/{troopID}/archive.
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.TroopArchived, "Troop archived successfully")
}

// Reactivate handles POST /troops/{troopID}/reactivate.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.TroopActive, "Troop reactivated successfully")
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status, message string) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.set-status")
	defer cancel()

	troop, err := h.Troops.SetStatus(ctx, troopID, status)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "Troop not found")
			return
		}
		h.Log.Error("set troop status", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, message, map[string]any{"troop": troop})
}

// Delete handles DELETE /troops/{troopID}. Memberships and scouts go
// with the troop.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "troops.delete")
	defer cancel()

	n, err := h.Troops.Delete(ctx, troopID)
	if err != nil {
		h.Log.Error("delete troop", zap.Error(err))
		respond.Internal(w)
		return
	}
	if n == 0 {
		respond.Error(w, http.StatusNotFound, "Troop not found")
		return
	}
	if _, err := h.Memberships.DeleteByTroop(ctx, troopID); err != nil {
		h.Log.Error("cascade memberships", zap.Error(err))
	}
	if _, err := h.Scouts.DeleteByTroop(ctx, troopID); err != nil {
		h.Log.Error("cascade scouts", zap.Error(err))
	}
	respond.OK(w, "Troop deleted successfully", nil)
}

// Members handles GET /troops/{troopID}/members with an optional role filter.
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}
	role := models.TroopRole(normalize.Role(query.Get(r, "role")))
	if role != "" && !models.IsValidTroopRole(role) {
		respond.Error(w, http.StatusBadRequest, "Invalid troop role")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.members")
	defer cancel()

	members, err := h.Memberships.ListMembersForTroop(ctx, troopID, role)
	if err != nil {
		h.Log.Error("list members", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"members": members})
}

// AddMember handles POST /troops/{troopID}/members.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"userId"`
		Role   string `json:"role"`
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
	role := models.TroopRole(normalize.Role(req.Role))
	if !models.IsValidTroopRole(role) {
		respond.Error(w, http.StatusBadRequest, "Invalid troop role")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.add-member")
	defer cancel()

	if err := h.Memberships.Add(ctx, troopID, userID, role); err != nil {
		switch {
		case errors.Is(err, membershipstore.ErrDuplicateMembership):
			respond.Error(w, http.StatusConflict, "User already has this role in the troop")
		case errors.Is(err, mongo.ErrNoDocuments):
			respond.Error(w, http.StatusNotFound, "Troop or user not found")
		default:
			h.Log.Error("add member", zap.Error(err))
			respond.Internal(w)
		}
		return
	}
	respond.Created(w, "Member added successfully", nil)
}

// RemoveMember handles DELETE /troops/{troopID}/members/{userID}. An
// optional role query param removes just that role; otherwise every
// role the user holds in the troop is removed.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}
	userID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	role := models.TroopRole(normalize.Role(query.Get(r, "role")))
	if role != "" && !models.IsValidTroopRole(role) {
		respond.Error(w, http.StatusBadRequest, "Invalid troop role")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.remove-member")
	defer cancel()

	n, err := h.Memberships.Remove(ctx, troopID, userID, role)
	if err != nil {
		h.Log.Error("remove member", zap.Error(err))
		respond.Internal(w)
		return
	}
	if n == 0 {
		respond.Error(w, http.StatusNotFound, "Membership not found")
		return
	}
	respond.OK(w, "Member removed successfully", nil)
}

// Stats handles GET /troops/{troopID}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	troopID, ok := h.troopID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.stats")
	defer cancel()

	troop, err := h.Troops.GetByID(ctx, troopID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "Troop not found")
			return
		}
		h.Log.Error("load troop", zap.Error(err))
		respond.Internal(w)
		return
	}

	adultCount, err := h.Memberships.CountByTroop(ctx, troopID, "")
	if err != nil {
		h.Log.Error("count memberships", zap.Error(err))
		respond.Internal(w)
		return
	}
	roleCounts, err := h.Memberships.RoleCountsForTroop(ctx, troopID)
	if err != nil {
		h.Log.Error("role counts", zap.Error(err))
		respond.Internal(w)
		return
	}
	scoutCount, err := h.Scouts.CountByTroop(ctx, troopID)
	if err != nil {
		h.Log.Error("count scouts", zap.Error(err))
		respond.Internal(w)
		return
	}
	rankCounts, err := h.Scouts.RankCountsForTroop(ctx, troopID)
	if err != nil {
		h.Log.Error("rank counts", zap.Error(err))
		respond.Internal(w)
		return
	}

	respond.OK(w, "", map[string]any{
		"troop":      troop,
		"adultCount": adultCount,
		"roleCounts": roleCounts,
		"scoutCount": scoutCount,
		"rankCounts": rankCounts,
		"spotsLeft":  max(0, troop.SizeLimit-int(scoutCount)),
	})
}

// MyTroops handles GET /troops/my.
func (h *Handler) MyTroops(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "troops.my")
	defer cancel()

	troops, err := h.Memberships.ListTroopsForUser(ctx, id.UserID)
	if err != nil {
		h.Log.Error("list troops for user", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"troops": troops})
}

func (h *Handler) troopID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "troopID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid troop ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
