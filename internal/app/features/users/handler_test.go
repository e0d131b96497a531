package users_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scouthq/troophub/internal/app/features/users"
	membershipstore "github.com/scouthq/troophub/internal/app/store/memberships"
	scoutstore "github.com/scouthq/troophub/internal/app/store/scouts"
	userstore "github.com/scouthq/troophub/internal/app/store/users"
	"github.com/scouthq/troophub/internal/domain/models"
	"github.com/scouthq/troophub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(t *testing.T, db *mongo.Database) *users.Handler {
	t.Helper()
	return users.NewHandler(
		userstore.New(db),
		membershipstore.New(db),
		scoutstore.New(db),
		zap.NewNop(),
	)
}

func TestGetUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")

	req := testutil.WithChiURLParam(httptest.NewRequest("GET", "/users/x", nil), "userID", user.ID.Hex())
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Data struct {
			User models.User `json:"user"`
		} `json:"data"`
	}
	testutil.DecodeEnvelope(t, rec, &env)
	if env.Data.User.Email != "dana@example.com" {
		t.Errorf("email = %q", env.Data.User.Email)
	}

	req = testutil.WithChiURLParam(httptest.NewRequest("GET", "/users/x", nil), "userID", primitive.NewObjectID().Hex())
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing user: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdateUserEmailConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	fx.CreateUser(t.Context(), "Taken", "Email", "taken@example.com")
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")

	req := testutil.NewJSONRequest(t, "PUT", "/users/x", map[string]string{
		"email":     "Taken@Example.com",
		"firstName": "Dana",
		"lastName":  "Price",
	})
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestUpdateUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")

	req := testutil.NewJSONRequest(t, "PUT", "/users/x", map[string]string{
		"email":     "dana.price@example.com",
		"firstName": "Dana",
		"lastName":  "Price",
		"phone":     "555-0100",
	})
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := httptest.NewRecorder()
	h.Update(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data struct {
			User models.User `json:"user"`
		} `json:"data"`
	}
	testutil.DecodeEnvelope(t, rec, &env)
	if env.Data.User.Email != "dana.price@example.com" {
		t.Errorf("email = %q", env.Data.User.Email)
	}
}

func TestDeleteUserCascadesMemberships(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")
	troop := fx.CreateTroop(t.Context(), "55", "Gone Soon")
	fx.CreateMembership(t.Context(), user.ID, troop.ID, models.RoleParent)

	req := testutil.WithChiURLParam(httptest.NewRequest("DELETE", "/users/x", nil), "userID", user.ID.Hex())
	rec := httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	exists, err := membershipstore.New(db).Exists(t.Context(), troop.ID, user.ID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("memberships should be removed with the user")
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSetBackgroundCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")

	req := testutil.NewJSONRequest(t, "PUT", "/background-check", map[string]string{
		"status": "approved",
	})
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := httptest.NewRecorder()
	h.SetBackgroundCheck(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	fresh, err := userstore.New(db).GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.BackgroundCheckStatus != models.BackgroundCheckApproved {
		t.Errorf("status = %q", fresh.BackgroundCheckStatus)
	}
	if fresh.BackgroundCheckDate == nil {
		t.Error("date should be set")
	}

	bad := testutil.NewJSONRequest(t, "PUT", "/background-check", map[string]string{
		"status": "MAYBE",
	})
	bad = testutil.WithChiURLParam(bad, "userID", user.ID.Hex())
	rec = httptest.NewRecorder()
	h.SetBackgroundCheck(rec, bad)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSetYouthProtection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")

	req := testutil.NewJSONRequest(t, "PUT", "/youth-protection", map[string]any{})
	req = testutil.WithChiURLParam(req, "userID", user.ID.Hex())
	rec := httptest.NewRecorder()
	h.SetYouthProtection(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	fresh, err := userstore.New(db).GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if fresh.YouthProtectionDate == nil {
		t.Error("youth protection date should be set")
	}
}

func TestDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")
	troop := fx.CreateTroop(t.Context(), "60", "Dash")
	fx.CreateMembership(t.Context(), user.ID, troop.ID, models.RoleParent)
	scout := fx.CreateScout(t.Context(), troop.ID, "Tommy", "Price")
	_, err := db.Collection("scouts").UpdateOne(t.Context(),
		bson.M{"_id": scout.ID},
		bson.M{"$set": bson.M{"parent_id": user.ID}})
	if err != nil {
		t.Fatalf("link parent: %v", err)
	}

	req := testutil.WithIdentity(httptest.NewRequest("GET", "/users/dashboard", nil), user.ID, user.Email)
	rec := httptest.NewRecorder()
	h.Dashboard(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data struct {
			User   models.User            `json:"user"`
			Troops []models.TroopWithRole `json:"troops"`
			Scouts []models.Scout         `json:"scouts"`
		} `json:"data"`
	}
	testutil.DecodeEnvelope(t, rec, &env)
	if env.Data.User.ID != user.ID {
		t.Error("dashboard user mismatch")
	}
	if len(env.Data.Troops) != 1 {
		t.Errorf("troops = %d, want 1", len(env.Data.Troops))
	}
	if len(env.Data.Scouts) != 1 {
		t.Errorf("scouts = %d, want 1", len(env.Data.Scouts))
	}
}

func TestListUsers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	fx.CreateUser(t.Context(), "Walt", "Young", "walt@example.com")
	fx.CreateUser(t.Context(), "Amy", "Boone", "amy@example.com")

	req := httptest.NewRequest("GET", "/users", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data struct {
			Users []models.User `json:"users"`
		} `json:"data"`
	}
	testutil.DecodeEnvelope(t, rec, &env)
	if len(env.Data.Users) != 2 {
		t.Fatalf("users = %d, want 2", len(env.Data.Users))
	}
	if env.Data.Users[0].Email != "amy@example.com" {
		t.Errorf("first user = %q, want sorted by name", env.Data.Users[0].Email)
	}
}

func TestUserTroopsAndScouts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	user := fx.CreateUser(t.Context(), "Dana", "Price", "dana@example.com")
	troop := fx.CreateTroop(t.Context(), "77", "Oak Hill")
	fx.CreateMembership(t.Context(), user.ID, troop.ID, models.RoleParent)
	scout := fx.CreateScout(t.Context(), troop.ID, "Tommy", "Price")
	_, err := db.Collection("scouts").UpdateOne(t.Context(),
		bson.M{"_id": scout.ID},
		bson.M{"$set": bson.M{"parent_id": user.ID}})
	if err != nil {
		t.Fatalf("link parent: %v", err)
	}

	req := testutil.WithChiURLParam(httptest.NewRequest("GET", "/users/x/troops", nil), "userID", user.ID.Hex())
	rec := httptest.NewRecorder()
	h.Troops(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("troops: status = %d: %s", rec.Code, rec.Body.String())
	}
	var troopsEnv struct {
		Data struct {
			Troops []models.TroopWithRole `json:"troops"`
		} `json:"data"`
	}
	testutil.DecodeEnvelope(t, rec, &troopsEnv)
	if len(troopsEnv.Data.Troops) != 1 {
		t.Fatalf("troops = %d, want 1", len(troopsEnv.Data.Troops))
	}
	if troopsEnv.Data.Troops[0].Role != models.RoleParent {
		t.Errorf("role = %q", troopsEnv.Data.Troops[0].Role)
	}

	req = testutil.WithChiURLParam(httptest.NewRequest("GET", "/users/x/scouts", nil), "userID", user.ID.Hex())
	rec = httptest.NewRecorder()
	h.ScoutsForUser(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("scouts: status = %d: %s", rec.Code, rec.Body.String())
	}
	var scoutsEnv struct {
		Data struct {
			Scouts []models.Scout `json:"scouts"`
		} `json:"data"`
	}
	testutil.DecodeEnvelope(t, rec, &scoutsEnv)
	if len(scoutsEnv.Data.Scouts) != 1 {
		t.Fatalf("scouts = %d, want 1", len(scoutsEnv.Data.Scouts))
	}
	if scoutsEnv.Data.Scouts[0].ID != scout.ID {
		t.Error("scout mismatch")
	}
}

func TestTroopMembershipFromUserSide(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db)

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateUser(t.Context(), "Sam", "Ortiz", "sam.ortiz@example.com")
	parent := fx.CreateUser(t.Context(), "Dana", "Price", "dana.p@example.com")
	troop := fx.CreateTroop(t.Context(), "101", "Eagle Ridge")
	fx.CreateMembership(t.Context(), leader.ID, troop.ID, models.RoleScoutmaster)

	body := map[string]string{
		"userId":  parent.ID.Hex(),
		"troopId": troop.ID.Hex(),
		"role":    "parent",
	}

	// A non-leader cannot grant roles.
	req := testutil.NewJSONRequest(t, "POST", "/users/troop-membership", body)
	req = testutil.WithIdentity(req, parent.ID, parent.Email)
	rec := httptest.NewRecorder()
	h.AddTroopMembership(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-leader grant: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = testutil.NewJSONRequest(t, "POST", "/users/troop-membership", body)
	req = testutil.WithIdentity(req, leader.ID, leader.Email)
	rec = httptest.NewRecorder()
	h.AddTroopMembership(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("grant: status = %d: %s", rec.Code, rec.Body.String())
	}

	ok, err := membershipstore.New(db).HasAnyRole(t.Context(), troop.ID, parent.ID, []models.TroopRole{models.RoleParent})
	if err != nil {
		t.Fatalf("role check: %v", err)
	}
	if !ok {
		t.Error("parent role not recorded")
	}

	// Granting the same role again conflicts.
	req = testutil.NewJSONRequest(t, "POST", "/users/troop-membership", body)
	req = testutil.WithIdentity(req, leader.ID, leader.Email)
	rec = httptest.NewRecorder()
	h.AddTroopMembership(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate grant: status = %d, want %d", rec.Code, http.StatusConflict)
	}

	del := httptest.NewRequest("DELETE", "/users/x/troop/y", nil)
	del = testutil.WithChiURLParam(del, "userID", parent.ID.Hex())
	del = testutil.WithChiURLParam(del, "troopID", troop.ID.Hex())
	del = testutil.WithIdentity(del, leader.ID, leader.Email)
	rec = httptest.NewRecorder()
	h.RemoveTroopMembership(rec, del)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: status = %d: %s", rec.Code, rec.Body.String())
	}

	// Removing again finds nothing.
	del = httptest.NewRequest("DELETE", "/users/x/troop/y", nil)
	del = testutil.WithChiURLParam(del, "userID", parent.ID.Hex())
	del = testutil.WithChiURLParam(del, "troopID", troop.ID.Hex())
	del = testutil.WithIdentity(del, leader.ID, leader.Email)
	rec = httptest.NewRecorder()
	h.RemoveTroopMembership(rec, del)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
