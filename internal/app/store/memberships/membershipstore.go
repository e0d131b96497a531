// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/scouthq/troophub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c      *mongo.Collection
	users  *mongo.Collection
	troops *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:      db.Collection("troop_memberships"),
		users:  db.Collection("users"),
		troops: db.Collection("troops"),
	}
}

var (
	errBadRole = errors.New("role is not a valid troop role")

	// ErrDuplicateMembership is returned when the (user, troop, role)
	// tuple already exists.
	ErrDuplicateMembership = errors.New("user already holds this role in this troop")
)

// Add creates a membership after verifying the role, the troop, and the
// user all exist. The unique index on (user, troop, role) makes the
// operation idempotent-safe: a repeat insert surfaces as
// ErrDuplicateMembership rather than a second document.
func (s *Store) Add(ctx context.Context, troopID, userID primitive.ObjectID, role models.TroopRole) error {
	if !models.IsValidTroopRole(role) {
		return errBadRole
	}

	// Both sides of the join must exist.
	if err := s.troops.FindOne(ctx, bson.M{"_id": troopID}).Err(); err != nil {
		return err
	}
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Err(); err != nil {
		return err
	}

	doc := bson.M{
		"troop_id":   troopID,
		"user_id":    userID,
		"role":       role,
		"created_at": time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// Remove deletes membership documents for (troopID, userID). With a
// role it removes only that role; with an empty role it removes every
// role the user holds in the troop. Returns the number removed.
func (s *Store) Remove(ctx context.Context, troopID, userID primitive.ObjectID, role models.TroopRole) (int64, error) {
	filter := bson.M{"troop_id": troopID, "user_id": userID}
	if role != "" {
		if !models.IsValidTroopRole(role) {
			return 0, errBadRole
		}
		filter["role"] = role
	}
	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListTroopsForUser returns the troops a user belongs to, joined with
// the role held in each. A user with two roles in one troop appears
// twice, once per role.
func (s *Store) ListTroopsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.TroopWithRole, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"user_id": userID}},
		{"$lookup": bson.M{
			"from":         "troops",
			"localField":   "troop_id",
			"foreignField": "_id",
			"as":           "troop",
		}},
		{"$unwind": "$troop"},
		{"$project": bson.M{"troop": 1, "role": 1}},
		{"$sort": bson.M{"troop.name_ci": 1, "role": 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.TroopWithRole
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMembersForTroop returns the adult roster of a troop, joined with
// each member's user document. Credential fields are projected away so
// they can never leak into a response. An empty role lists everyone.
func (s *Store) ListMembersForTroop(ctx context.Context, troopID primitive.ObjectID, role models.TroopRole) ([]models.MemberWithRole, error) {
	match := bson.M{"troop_id": troopID}
	if role != "" {
		match["role"] = role
	}

	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": match},
		{"$lookup": bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}},
		{"$unwind": "$user"},
		{"$project": bson.M{
			"user.password_hash": 0,
			"user.provider_id":   0,
		}},
		{"$sort": bson.M{"user.full_name_ci": 1, "role": 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.MemberWithRole
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HasAnyRole checks whether the user holds at least one of the given
// roles in the troop. An empty roles list checks for any membership.
func (s *Store) HasAnyRole(ctx context.Context, troopID, userID primitive.ObjectID, roles []models.TroopRole) (bool, error) {
	filter := bson.M{"troop_id": troopID, "user_id": userID}
	if len(roles) > 0 {
		filter["role"] = bson.M{"$in": roles}
	}
	err := s.c.FindOne(ctx, filter).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Exists checks if any membership exists for (troopID, userID).
func (s *Store) Exists(ctx context.Context, troopID, userID primitive.ObjectID) (bool, error) {
	return s.HasAnyRole(ctx, troopID, userID, nil)
}

// CountByTroop returns the membership count for a troop, optionally
// filtered by role.
func (s *Store) CountByTroop(ctx context.Context, troopID primitive.ObjectID, role models.TroopRole) (int64, error) {
	filter := bson.M{"troop_id": troopID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}

// DeleteByTroop removes all memberships for a troop.
// Returns the number of documents deleted.
func (s *Store) DeleteByTroop(ctx context.Context, troopID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"troop_id": troopID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all memberships for a user.
// Returns the number of documents deleted.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RoleCountsForTroop aggregates the roster by role, for troop stats.
func (s *Store) RoleCountsForTroop(ctx context.Context, troopID primitive.ObjectID) (map[models.TroopRole]int, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"troop_id": troopID}},
		{"$group": bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	result := make(map[models.TroopRole]int)
	for cur.Next(ctx) {
		var row struct {
			Role models.TroopRole `bson:"_id"`
			N    int              `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		result[row.Role] = row.N
	}
	return result, cur.Err()
}
