// Package token issues and verifies the JWT pair used for API access.
//
// Access tokens carry the user's ID and email and are what clients send
// on every request. Refresh tokens carry only the user ID, are signed
// with a separate secret, and are exchanged for fresh access tokens at
// the refresh endpoint. Both are HS256.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultAccessExpiry matches the product default of seven days.
	DefaultAccessExpiry = 7 * 24 * time.Hour
	// DefaultRefreshExpiry matches the product default of thirty days.
	DefaultRefreshExpiry = 30 * 24 * time.Hour

	typeAccess  = "access"
	typeRefresh = "refresh"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature,
	// structure, or type checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload carried by both token kinds. Email is empty on
// refresh tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Manager signs and verifies the token pair. The two secrets must differ
// so a refresh token can never pass as an access token.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewManager builds a Manager. Zero expiries fall back to the defaults.
func NewManager(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration) (*Manager, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if accessExpiry <= 0 {
		accessExpiry = DefaultAccessExpiry
	}
	if refreshExpiry <= 0 {
		refreshExpiry = DefaultRefreshExpiry
	}
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}, nil
}

// IssueAccessToken signs an access token for the user.
func (m *Manager) IssueAccessToken(userID primitive.ObjectID, email string) (string, error) {
	return m.sign(m.accessSecret, Claims{
		UserID:    userID.Hex(),
		Email:     email,
		TokenType: typeAccess,
	}, m.accessExpiry)
}

// IssueRefreshToken signs a refresh token for the user. It carries no
// email and uses the refresh secret.
func (m *Manager) IssueRefreshToken(userID primitive.ObjectID) (string, error) {
	return m.sign(m.refreshSecret, Claims{
		UserID:    userID.Hex(),
		TokenType: typeRefresh,
	}, m.refreshExpiry)
}

func (m *Manager) sign(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess parses and validates an access token.
func (m *Manager) VerifyAccess(raw string) (*Claims, error) {
	return m.verify(raw, m.accessSecret, typeAccess)
}

// VerifyRefresh parses and validates a refresh token.
func (m *Manager) VerifyRefresh(raw string) (*Claims, error) {
	return m.verify(raw, m.refreshSecret, typeRefresh)
}

func (m *Manager) verify(raw string, secret []byte, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}
	if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Subject returns the user ID claim as an ObjectID. Verify has already
// checked the hex form, so this cannot fail on a verified token.
func (c *Claims) Subject() (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.UserID)
}
