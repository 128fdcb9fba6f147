package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

var testSecret = []byte("test-secret")

// protectedEcho returns a handler that records the authenticated user ID.
func protectedEcho(got *uuid.UUID) http.Handler {
	return RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAuthValidToken(t *testing.T) {
	userID := uuid.New()
	token, err := GenerateToken(testSecret, userID)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	var got uuid.UUID
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	protectedEcho(&got).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rr.Code, rr.Body.String())
	}
	if got != userID {
		t.Errorf("context user = %s, want %s", got, userID)
	}
}

func TestRequireAuthMissingHeader(t *testing.T) {
	var got uuid.UUID
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rr := httptest.NewRecorder()
	protectedEcho(&got).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	for _, header := range []string{
		"Bearer",
		"Basic dXNlcjpwYXNz",
		"garbage",
	} {
		var got uuid.UUID
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		protectedEcho(&got).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rr.Code)
		}
	}
}

func TestRequireAuthWrongSecret(t *testing.T) {
	token, err := GenerateToken([]byte("other-secret"), uuid.New())
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	var got uuid.UUID
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	protectedEcho(&got).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestUserIDFromContextUnset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := UserIDFromContext(req.Context()); id != uuid.Nil {
		t.Errorf("UserIDFromContext(empty) = %s, want Nil", id)
	}
}
