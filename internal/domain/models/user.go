// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Background check statuses for adult leaders.
const (
	BackgroundCheckPending  = "PENDING"
	BackgroundCheckApproved = "APPROVED"
	BackgroundCheckDenied   = "DENIED"
	BackgroundCheckExpired  = "EXPIRED"
)

// IsValidBackgroundCheckStatus reports whether s is a defined status.
func IsValidBackgroundCheckStatus(s string) bool {
	switch s {
	case BackgroundCheckPending, BackgroundCheckApproved, BackgroundCheckDenied, BackgroundCheckExpired:
		return true
	}
	return false
}

// User represents an adult account (leaders, parents, committee members).
//
// NOTE:
//   - Troop roles are not embedded on User. Use the troop_memberships
//     collection to discover which troops a user belongs to and as what.
//   - PasswordHash is empty for accounts created through social login.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	FirstName    string             `bson:"first_name" json:"firstName"`
	LastName     string             `bson:"last_name" json:"lastName"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      string             `bson:"address,omitempty" json:"address,omitempty"`

	// Social login linkage. Provider is "google" etc.; ProviderID is the
	// subject identifier issued by the provider.
	Provider      string `bson:"provider,omitempty" json:"provider,omitempty"`
	ProviderID    string `bson:"provider_id,omitempty" json:"-"`
	EmailVerified bool   `bson:"email_verified" json:"emailVerified"`

	// Adult-leader compliance tracking.
	BackgroundCheckStatus string     `bson:"background_check_status,omitempty" json:"backgroundCheckStatus,omitempty"`
	BackgroundCheckDate   *time.Time `bson:"background_check_date,omitempty" json:"backgroundCheckDate,omitempty"`
	YouthProtectionDate   *time.Time `bson:"youth_protection_date,omitempty" json:"youthProtectionDate,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
