package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scouthq/troophub/internal/app/system/token"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func testGate(t *testing.T) (*Gate, *token.Manager) {
	t.Helper()
	m, err := token.NewManager("gate-access-secret", "gate-refresh-secret", 0, 0)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return NewGate(m, zap.NewNop()), m
}

// echoIdentity writes the identity the middleware injected, so tests can
// assert on it.
func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := CurrentIdentity(r)
		if !ok {
			t.Error("handler reached without identity in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"userId": id.UserID.Hex(), "email": id.Email})
	})
}

func TestRequireSignedIn_ValidToken(t *testing.T) {
	gate, m := testGate(t)
	userID := primitive.NewObjectID()

	raw, err := m.IssueAccessToken(userID, "sm@troop12.org")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()

	gate.RequireSignedIn(echoIdentity(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["userId"] != userID.Hex() {
		t.Errorf("userId: got %q, want %q", body["userId"], userID.Hex())
	}
	if body["email"] != "sm@troop12.org" {
		t.Errorf("email: got %q", body["email"])
	}
}

func TestRequireSignedIn_MissingHeader(t *testing.T) {
	gate, _ := testGate(t)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"bearer without token", "Bearer "},
		{"bare token", "sometoken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/troops", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			gate.RequireSignedIn(echoIdentity(t)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want 401", rec.Code)
			}
			var env struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if env.Error != "Access token required" {
				t.Errorf("error: got %q, want %q", env.Error, "Access token required")
			}
		})
	}
}

func TestRequireSignedIn_BadToken(t *testing.T) {
	gate, _ := testGate(t)

	// Token signed with a different secret.
	other, err := token.NewManager("some-other-access", "some-other-refresh", 0, 0)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	forged, err := other.IssueAccessToken(primitive.NewObjectID(), "x@y.com")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	for name, raw := range map[string]string{
		"garbage": "not.a.jwt",
		"forged":  forged,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/troops", nil)
			req.Header.Set("Authorization", "Bearer "+raw)
			rec := httptest.NewRecorder()

			gate.RequireSignedIn(echoIdentity(t)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want 401", rec.Code)
			}
			var env struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if env.Error != "Invalid or expired token" {
				t.Errorf("error: got %q, want %q", env.Error, "Invalid or expired token")
			}
		})
	}
}

func TestRequireSignedIn_ExpiredToken(t *testing.T) {
	m, err := token.NewManager("gate-access-secret", "gate-refresh-secret", time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	gate := NewGate(m, zap.NewNop())

	raw, err := m.IssueAccessToken(primitive.NewObjectID(), "a@b.com")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest("GET", "/api/v1/troops", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()

	gate.RequireSignedIn(echoIdentity(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
	// Expired and invalid are indistinguishable on the wire.
	var env struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if env.Error != "Invalid or expired token" {
		t.Errorf("error: got %q, want %q", env.Error, "Invalid or expired token")
	}
}
