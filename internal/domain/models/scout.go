// internal/domain/models/scout.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScoutRank is a scout's current rank, in advancement order.
type ScoutRank string

const (
	RankScout       ScoutRank = "SCOUT"
	RankTenderfoot  ScoutRank = "TENDERFOOT"
	RankSecondClass ScoutRank = "SECOND_CLASS"
	RankFirstClass  ScoutRank = "FIRST_CLASS"
	RankStar        ScoutRank = "STAR"
	RankLife        ScoutRank = "LIFE"
	RankEagle       ScoutRank = "EAGLE"
)

// ScoutRanks lists the ranks in advancement order.
var ScoutRanks = []ScoutRank{
	RankScout, RankTenderfoot, RankSecondClass, RankFirstClass,
	RankStar, RankLife, RankEagle,
}

// IsValidScoutRank reports whether r is a defined rank.
func IsValidScoutRank(r ScoutRank) bool {
	for _, v := range ScoutRanks {
		if r == v {
			return true
		}
	}
	return false
}

// Genders accepted on scout records.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// Scout represents a youth member of a troop.
type Scout struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TroopID     primitive.ObjectID  `bson:"troop_id" json:"troopId"`
	ParentID    *primitive.ObjectID `bson:"parent_id,omitempty" json:"parentId,omitempty"`
	FirstName   string              `bson:"first_name" json:"firstName"`
	LastName    string              `bson:"last_name" json:"lastName"`
	FullNameCI  string              `bson:"full_name_ci" json:"-"`
	DateOfBirth time.Time           `bson:"date_of_birth" json:"dateOfBirth"`
	Gender      string              `bson:"gender,omitempty" json:"gender,omitempty"`
	Rank        ScoutRank           `bson:"rank" json:"rank"`
	PatrolName  string              `bson:"patrol_name,omitempty" json:"patrolName,omitempty"`
	JoinedAt    time.Time           `bson:"joined_at" json:"joinedAt"`
	Active      bool                `bson:"active" json:"active"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// RankAdvancement records a scout earning a rank.
type RankAdvancement struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ScoutID   primitive.ObjectID  `bson:"scout_id" json:"scoutId"`
	Rank      ScoutRank           `bson:"rank" json:"rank"`
	AwardedAt time.Time           `bson:"awarded_at" json:"awardedAt"`
	AwardedBy *primitive.ObjectID `bson:"awarded_by,omitempty" json:"awardedBy,omitempty"`
	Notes     string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
}
