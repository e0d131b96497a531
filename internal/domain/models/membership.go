// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TroopMembership is the authoritative join between users and troops.
// Exactly one document per (user_id, troop_id, role); a user with two
// hats in the same troop has two documents.
type TroopMembership struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TroopID   primitive.ObjectID `bson:"troop_id" json:"troopId"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Role      TroopRole          `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// TroopWithRole is a troop joined with the role the user holds in it.
// Returned by the "my troops" queries.
type TroopWithRole struct {
	Troop Troop     `bson:"troop" json:"troop"`
	Role  TroopRole `bson:"role" json:"role"`
}

// MemberWithRole is a user joined with the role they hold in a troop.
// Returned by the troop roster queries. The user document is projected
// without credential fields.
type MemberWithRole struct {
	User User      `bson:"user" json:"user"`
	Role TroopRole `bson:"role" json:"role"`
}
