package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/scouthq/troophub/internal/app/store/users"
	"github.com/scouthq/troophub/internal/domain/models"
	"github.com/scouthq/troophub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCreate_NormalizesFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Email:     "  SM@Troop42.ORG  ",
		FirstName: "  Jane ",
		LastName:  " Doe  ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.Email != "sm@troop42.org" {
		t.Errorf("email: got %q, want normalized lowercase", created.Email)
	}
	if created.FirstName != "Jane" || created.LastName != "Doe" {
		t.Errorf("names: got %q %q", created.FirstName, created.LastName)
	}
	if created.FullNameCI == "" {
		t.Error("expected full_name_ci to be populated")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{Email: "dup@troop.org", FirstName: "A", LastName: "B"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Same address with different case must still collide.
	_, err := store.Create(ctx, models.User{Email: "DUP@troop.org", FirstName: "C", LastName: "D"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGetByEmail_CaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Email: "parent@troop.org", FirstName: "Pat", LastName: "Smith"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByEmail(ctx, "PARENT@Troop.ORG")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got user %s, want %s", got.ID.Hex(), created.ID.Hex())
	}

	if _, err := store.GetByEmail(ctx, "nobody@troop.org"); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments for missing user, got %v", err)
	}
}

func TestGetByProvider(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Email:         "social@troop.org",
		FirstName:     "Sam",
		LastName:      "Lee",
		Provider:      "Google",
		ProviderID:    "goog-12345",
		EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByProvider(ctx, "google", "goog-12345")
	if err != nil {
		t.Fatalf("GetByProvider failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("got user %s, want %s", got.ID.Hex(), created.ID.Hex())
	}
}

func TestUpdateProfile_LimitsFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Email: "leader@troop.org", FirstName: "Old", LastName: "Name"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.UpdateProfile(ctx, created.ID, userstore.ProfileUpdate{
		FirstName: "New",
		LastName:  "Name",
		Phone:     "555-0101",
		Address:   "1 Main St",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}

	if got.FirstName != "New" || got.Phone != "555-0101" || got.Address != "1 Main St" {
		t.Errorf("profile not updated: %+v", got)
	}
	// Email is not reachable through profile updates.
	if got.Email != "leader@troop.org" {
		t.Errorf("email changed through profile update: %q", got.Email)
	}
}

func TestSetPasswordHash_AndCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Email: "pw@troop.org", FirstName: "P", LastName: "W"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	hash, err := userstore.HashPassword("hunter2hunter2", 4) // low cost keeps the test fast
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := store.SetPasswordHash(ctx, created.ID, hash); err != nil {
		t.Fatalf("SetPasswordHash failed: %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.HasPassword() {
		t.Fatal("expected stored password hash")
	}
	if !userstore.CheckPassword(got.PasswordHash, "hunter2hunter2") {
		t.Error("CheckPassword rejected correct password")
	}
	if userstore.CheckPassword(got.PasswordHash, "wrong") {
		t.Error("CheckPassword accepted wrong password")
	}
}

func TestSetBackgroundCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Email: "bg@troop.org", FirstName: "B", LastName: "G"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	when := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.SetBackgroundCheck(ctx, created.ID, "approved", when); err != nil {
		t.Fatalf("SetBackgroundCheck failed: %v", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.BackgroundCheckStatus != models.BackgroundCheckApproved {
		t.Errorf("status: got %q", got.BackgroundCheckStatus)
	}
	if got.BackgroundCheckDate == nil || !got.BackgroundCheckDate.Equal(when) {
		t.Errorf("date: got %v", got.BackgroundCheckDate)
	}

	if err := store.SetBackgroundCheck(ctx, created.ID, "bogus", when); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{Email: "gone@troop.org", FirstName: "G", LastName: "One"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	n, err := store.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted count: got %d, want 1", n)
	}

	n, err = store.Delete(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted count for missing user: got %d, want 0", n)
	}
}
