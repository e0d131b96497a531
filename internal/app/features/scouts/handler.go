// internal/app/features/scouts/handler.go
package scouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	badgestore "github.com/scouthq/troophub/internal/app/store/badges"
	membershipstore "github.com/scouthq/troophub/internal/app/store/memberships"
	scoutstore "github.com/scouthq/troophub/internal/app/store/scouts"
	authmw "github.com/scouthq/troophub/internal/app/system/auth"
	"github.com/scouthq/troophub/internal/app/system/normalize"
	"github.com/scouthq/troophub/internal/app/system/respond"
	"github.com/scouthq/troophub/internal/app/system/timeouts"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves scout records, rank advancement, and merit badge
// progress. Mutations require a leadership role in the scout's troop;
// reads require a signed-in user.
type Handler struct {
	Scouts      *scoutstore.Store
	Badges      *badgestore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
}

func NewHandler(scouts *scoutstore.Store, badges *badgestore.Store, memberships *membershipstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Scouts: scouts, Badges: badges, Memberships: memberships, Log: logger}
}

// Create handles POST /scouts. The troop comes from the body, so the
// leadership check happens here instead of in route middleware.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	var req struct {
		TroopID     string     `json:"troopId"`
		ParentID    string     `json:"parentId"`
		FirstName   string     `json:"firstName"`
		LastName    string     `json:"lastName"`
		DateOfBirth *time.Time `json:"dateOfBirth"`
		Gender      string     `json:"gender"`
		Rank        string     `json:"rank"`
		PatrolName  string     `json:"patrolName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	troopID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.TroopID))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid troop ID")
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.create")
	defer cancel()

	if !h.requireLeadership(ctx, w, troopID, id.UserID) {
		return
	}

	sc := models.Scout{
		TroopID:    troopID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Gender:     normalize.Status(req.Gender),
		Rank:       models.ScoutRank(normalize.Rank(req.Rank)),
		PatrolName: req.PatrolName,
	}
	if req.DateOfBirth != nil {
		sc.DateOfBirth = req.DateOfBirth.UTC()
	}
	if p := strings.TrimSpace(req.ParentID); p != "" {
		parentID, err := primitive.ObjectIDFromHex(p)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid parent ID")
			return
		}
		sc.ParentID = &parentID
	}

	created, err := h.Scouts.Create(ctx, sc)
	if err != nil {
		switch {
		case errors.Is(err, scoutstore.ErrTroopFull):
			respond.Error(w, http.StatusConflict, "Troop has reached its size limit")
		case errors.Is(err, mongo.ErrNoDocuments):
			respond.Error(w, http.StatusNotFound, "Troop not found")
		default:
			h.Log.Error("create scout", zap.Error(err))
			respond.Internal(w)
		}
		return
	}
	respond.Created(w, "Scout added successfully", map[string]any{"scout": created})
}

// Get handles GET /scouts/{scoutID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "scouts.get")
	defer cancel()

	sc, err := h.Scouts.GetByID(ctx, scoutID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "Scout not found")
			return
		}
		h.Log.Error("load scout", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"scout": sc})
}

// Update handles PUT /scouts/{scoutID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}

	var req struct {
		FirstName  string `json:"firstName"`
		LastName   string `json:"lastName"`
		PatrolName string `json:"patrolName"`
		ParentID   string `json:"parentId"`
		Active     *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		respond.ValidationError(w, []respond.FieldError{
			{Field: "firstName", Message: "First and last name are required"},
		})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.update")
	defer cancel()

	current, err := h.loadScout(ctx, w, scoutID)
	if err != nil {
		return
	}
	if !h.requireLeadership(ctx, w, current.TroopID, id.UserID) {
		return
	}

	upd := scoutstore.Update{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		PatrolName: req.PatrolName,
		Active:     req.Active,
	}
	if p := strings.TrimSpace(req.ParentID); p != "" {
		parentID, err := primitive.ObjectIDFromHex(p)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid parent ID")
			return
		}
		upd.ParentID = &parentID
	}

	sc, err := h.Scouts.Update(ctx, scoutID, upd)
	if err != nil {
		h.Log.Error("update scout", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Scout updated successfully", map[string]any{"scout": sc})
}

// Delete handles DELETE /scouts/{scoutID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "scouts.delete")
	defer cancel()

	current, err := h.loadScout(ctx, w, scoutID)
	if err != nil {
		return
	}
	if !h.requireLeadership(ctx, w, current.TroopID, id.UserID) {
		return
	}

	if _, err := h.Scouts.Delete(ctx, scoutID); err != nil {
		h.Log.Error("delete scout", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Scout removed successfully", nil)
}

// My handles GET /scouts/my: the scouts linked to the signed-in parent.
func (h *Handler) My(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.my")
	defer cancel()

	scouts, err := h.Scouts.ListByParent(ctx, id.UserID)
	if err != nil {
		h.Log.Error("list scouts by parent", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"scouts": scouts})
}

// List handles GET /scouts with optional troopId and parentId query
// filters. No filter means every scout.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var f scoutstore.Filter
	if v := strings.TrimSpace(query.Get(r, "troopId")); v != "" {
		troopID, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid troop ID")
			return
		}
		f.TroopID = &troopID
	}
	if v := strings.TrimSpace(query.Get(r, "parentId")); v != "" {
		parentID, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid parent ID")
			return
		}
		f.ParentID = &parentID
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.list")
	defer cancel()

	scouts, err := h.Scouts.List(ctx, f)
	if err != nil {
		h.Log.Error("list scouts", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"scouts": scouts})
}

// ListByTroop handles GET /troops/{troopID}/scouts, mounted from the
// troops router.
func (h *Handler) ListByTroop(w http.ResponseWriter, r *http.Request) {
	troopID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "troopID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid troop ID")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.list-by-troop")
	defer cancel()

	scouts, err := h.Scouts.ListByTroop(ctx, troopID)
	if err != nil {
		h.Log.Error("list scouts", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"scouts": scouts})
}

// RecordRank handles POST /scouts/{scoutID}/ranks.
func (h *Handler) RecordRank(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}

	var req struct {
		Rank      string     `json:"rank"`
		AwardedAt *time.Time `json:"awardedAt"`
		Notes     string     `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rank := models.ScoutRank(normalize.Rank(req.Rank))
	if !models.IsValidScoutRank(rank) {
		respond.Error(w, http.StatusBadRequest, "Invalid scout rank")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.record-rank")
	defer cancel()

	current, err := h.loadScout(ctx, w, scoutID)
	if err != nil {
		return
	}
	if !h.requireLeadership(ctx, w, current.TroopID, id.UserID) {
		return
	}

	adv := models.RankAdvancement{
		ScoutID:   scoutID,
		Rank:      rank,
		AwardedBy: &id.UserID,
		Notes:     normalize.Notes(req.Notes),
	}
	if req.AwardedAt != nil {
		adv.AwardedAt = req.AwardedAt.UTC()
	}

	recorded, err := h.Scouts.RecordAdvancement(ctx, adv)
	if err != nil {
		h.Log.Error("record advancement", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.Created(w, "Rank advancement recorded", map[string]any{"advancement": recorded})
}

// Ranks handles GET /scouts/{scoutID}/ranks.
func (h *Handler) Ranks(w http.ResponseWriter, r *http.Request) {
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.ranks")
	defer cancel()

	advs, err := h.Scouts.ListAdvancements(ctx, scoutID)
	if err != nil {
		h.Log.Error("list advancements", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"advancements": advs})
}

// StartBadge handles POST /scouts/{scoutID}/badges.
func (h *Handler) StartBadge(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}

	var req struct {
		BadgeID     string `json:"badgeId"`
		CounselorID string `json:"counselorId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	badgeID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.BadgeID))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid badge ID")
		return
	}
	var counselorID *primitive.ObjectID
	if c := strings.TrimSpace(req.CounselorID); c != "" {
		cid, err := primitive.ObjectIDFromHex(c)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "Invalid counselor ID")
			return
		}
		counselorID = &cid
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.start-badge")
	defer cancel()

	current, err := h.loadScout(ctx, w, scoutID)
	if err != nil {
		return
	}
	if !h.requireLeadership(ctx, w, current.TroopID, id.UserID) {
		return
	}

	smb, err := h.Badges.StartBadge(ctx, scoutID, badgeID, counselorID)
	if err != nil {
		switch {
		case errors.Is(err, badgestore.ErrAlreadyStarted):
			respond.Error(w, http.StatusConflict, "Scout has already started this merit badge")
		case errors.Is(err, mongo.ErrNoDocuments):
			respond.Error(w, http.StatusNotFound, "Scout or badge not found")
		default:
			h.Log.Error("start badge", zap.Error(err))
			respond.Internal(w)
		}
		return
	}
	respond.Created(w, "Merit badge started", map[string]any{"progress": smb})
}

// CompleteBadge handles PUT /scouts/{scoutID}/badges/{badgeID}/complete.
func (h *Handler) CompleteBadge(w http.ResponseWriter, r *http.Request) {
	id, ok := authmw.CurrentIdentity(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Access token required")
		return
	}
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}
	badgeID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "badgeID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid badge ID")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.complete-badge")
	defer cancel()

	current, err := h.loadScout(ctx, w, scoutID)
	if err != nil {
		return
	}
	if !h.requireLeadership(ctx, w, current.TroopID, id.UserID) {
		return
	}

	smb, err := h.Badges.CompleteBadge(ctx, scoutID, badgeID)
	if err != nil {
		if errors.Is(err, badgestore.ErrNotStarted) {
			respond.Error(w, http.StatusNotFound, "Scout has not started this merit badge")
			return
		}
		h.Log.Error("complete badge", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "Merit badge completed", map[string]any{"progress": smb})
}

// BadgesForScout handles GET /scouts/{scoutID}/badges.
func (h *Handler) BadgesForScout(w http.ResponseWriter, r *http.Request) {
	scoutID, ok := h.scoutID(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.badges")
	defer cancel()

	rows, err := h.Badges.ListForScout(ctx, scoutID)
	if err != nil {
		h.Log.Error("list badges for scout", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"badges": rows})
}

// Catalog handles GET /scouts/catalog with an optional category filter.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	category := normalize.QueryParam(query.Get(r, "category"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "scouts.catalog")
	defer cancel()

	badges, err := h.Badges.ListCatalog(ctx, category)
	if err != nil {
		h.Log.Error("list badge catalog", zap.Error(err))
		respond.Internal(w)
		return
	}
	respond.OK(w, "", map[string]any{"badges": badges})
}

// loadScout fetches the scout or writes the error response itself. A
// non-nil error means the response has been written.
func (h *Handler) loadScout(ctx context.Context, w http.ResponseWriter, scoutID primitive.ObjectID) (*models.Scout, error) {
	sc, err := h.Scouts.GetByID(ctx, scoutID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "Scout not found")
			return nil, err
		}
		h.Log.Error("load scout", zap.Error(err))
		respond.Internal(w)
		return nil, err
	}
	return sc, nil
}

// requireLeadership writes a 403 and returns false when the user holds
// no leadership role in the troop.
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

func (h *Handler) scoutID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "scoutID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid scout ID")
		return primitive.NilObjectID, false
	}
	return id, true
}
