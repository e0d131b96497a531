// internal/domain/models/meritbadge.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MeritBadge is a catalog entry. The catalog is shared by all troops and
// seeded at startup; EagleRequired marks badges counting toward Eagle.
type MeritBadge struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	NameCI        string             `bson:"name_ci" json:"-"`
	Category      string             `bson:"category,omitempty" json:"category,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	EagleRequired bool               `bson:"eagle_required" json:"eagleRequired"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

// Scout merit badge progress states.
const (
	BadgeInProgress = "IN_PROGRESS"
	BadgeCompleted  = "COMPLETED"
)

// ScoutMeritBadge tracks one scout's progress on one badge.
type ScoutMeritBadge struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ScoutID      primitive.ObjectID  `bson:"scout_id" json:"scoutId"`
	BadgeID      primitive.ObjectID  `bson:"badge_id" json:"badgeId"`
	Status       string              `bson:"status" json:"status"`
	CounselorID  *primitive.ObjectID `bson:"counselor_id,omitempty" json:"counselorId,omitempty"`
	StartedAt    time.Time           `bson:"started_at" json:"startedAt"`
	CompletedAt  *time.Time          `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"createdAt"`
}

// BadgeWithProgress joins a catalog badge with a scout's progress record.
type BadgeWithProgress struct {
	Badge    MeritBadge      `bson:"badge" json:"badge"`
	Progress ScoutMeritBadge `bson:"progress" json:"progress"`
}
