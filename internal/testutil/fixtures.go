package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with a password-less local account.
func (f *Fixtures) CreateUser(ctx context.Context, firstName, lastName, email string) models.User {
	f.t.Helper()
	return f.CreateUserWithPassword(ctx, firstName, lastName, email, "")
}

// CreateUserWithPassword creates a test user with the given bcrypt hash.
func (f *Fixtures) CreateUserWithPassword(ctx context.Context, firstName, lastName, email, passwordHash string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:                    primitive.NewObjectID(),
		Email:                 text.Fold(email),
		PasswordHash:          passwordHash,
		FirstName:             firstName,
		LastName:              lastName,
		FullNameCI:            text.Fold(firstName + " " + lastName),
		BackgroundCheckStatus: models.BackgroundCheckPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGoogleUser creates a test user backed by a Google account.
func (f *Fixtures) CreateGoogleUser(ctx context.Context, firstName, lastName, email, providerID string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:                    primitive.NewObjectID(),
		Email:                 text.Fold(email),
		FirstName:             firstName,
		LastName:              lastName,
		FullNameCI:            text.Fold(firstName + " " + lastName),
		Provider:              "google",
		ProviderID:            providerID,
		EmailVerified:         true,
		BackgroundCheckStatus: models.BackgroundCheckPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test google user: %v", err)
	}
	return user
}

// CreateTroop creates a test troop with sensible defaults.
func (f *Fixtures) CreateTroop(ctx context.Context, number, name string) models.Troop {
	f.t.Helper()

	now := time.Now().UTC()
	troop := models.Troop{
		ID:          primitive.NewObjectID(),
		TroopNumber: number,
		Name:        name,
		NameCI:      text.Fold(name),
		City:        "Test City",
		State:       "TS",
		SizeLimit:   models.DefaultTroopSizeLimit,
		Status:      models.TroopActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := f.db.Collection("troops").InsertOne(ctx, troop); err != nil {
		f.t.Fatalf("failed to create test troop: %v", err)
	}
	return troop
}

// CreateMembership links a user to a troop with the given role.
func (f *Fixtures) CreateMembership(ctx context.Context, userID, troopID primitive.ObjectID, role models.TroopRole) models.TroopMembership {
	f.t.Helper()

	m := models.TroopMembership{
		ID:        primitive.NewObjectID(),
		TroopID:   troopID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := f.db.Collection("troop_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreateScout creates a test scout in the given troop.
func (f *Fixtures) CreateScout(ctx context.Context, troopID primitive.ObjectID, firstName, lastName string) models.Scout {
	f.t.Helper()

	now := time.Now().UTC()
	scout := models.Scout{
		ID:         primitive.NewObjectID(),
		TroopID:    troopID,
		FirstName:  firstName,
		LastName:   lastName,
		FullNameCI: text.Fold(firstName + " " + lastName),
		Rank:       models.RankScout,
		JoinedAt:   now,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("scouts").InsertOne(ctx, scout); err != nil {
		f.t.Fatalf("failed to create test scout: %v", err)
	}
	return scout
}
