// internal/app/store/users/password.go
package userstore

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost matches the product default.
const DefaultBcryptCost = 12

// HashPassword hashes a plaintext password with bcrypt. A cost of 0
// falls back to DefaultBcryptCost.
func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
