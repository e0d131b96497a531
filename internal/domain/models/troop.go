// internal/domain/models/troop.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Troop statuses.
const (
	TroopActive   = "ACTIVE"
	TroopInactive = "INACTIVE"
	TroopArchived = "ARCHIVED"
)

// IsValidTroopStatus reports whether s is a defined troop status.
func IsValidTroopStatus(s string) bool {
	switch s {
	case TroopActive, TroopInactive, TroopArchived:
		return true
	}
	return false
}

// DefaultTroopSizeLimit caps how many scouts a troop holds unless the
// troop overrides it.
const DefaultTroopSizeLimit = 100

// Troop represents a scout troop.
//
// Adult membership is not embedded here; it lives in the
// troop_memberships collection keyed by (user, troop, role).
type Troop struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TroopNumber  string             `bson:"troop_number" json:"troopNumber"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	CharterOrg   string             `bson:"charter_org,omitempty" json:"charterOrg,omitempty"`
	City         string             `bson:"city,omitempty" json:"city,omitempty"`
	State        string             `bson:"state,omitempty" json:"state,omitempty"`
	MeetingDay   string             `bson:"meeting_day,omitempty" json:"meetingDay,omitempty"`
	MeetingTime  string             `bson:"meeting_time,omitempty" json:"meetingTime,omitempty"`
	SizeLimit    int                `bson:"size_limit" json:"sizeLimit"`
	Status       string             `bson:"status" json:"status"`
	FoundedAt    *time.Time         `bson:"founded_at,omitempty" json:"foundedAt,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
