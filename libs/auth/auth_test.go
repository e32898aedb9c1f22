package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := IssueHS256("user-1", RolePatient, time.Hour, secret)
	if err != nil {
		t.Fatalf("IssueHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Subject != "user-1" || parsed.Role != RolePatient {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := SignHS256(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRequireAuthAcceptsTokenHeaderAndBearer(t *testing.T) {
	secret := "test-secret"
	token, err := IssueHS256("user-9", RolePatient, time.Hour, secret)
	if err != nil {
		t.Fatalf("IssueHS256 failed: %v", err)
	}

	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.Subject != "user-9" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), secret)

	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	req.Header.Set(TokenHeader, token)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("token header: expected 200, got %d", rw.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("bearer: expected 200, got %d", rw.Code)
	}

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodPost, "http://example.com", nil))
	if rw.Code != http.StatusUnauthorized {
		t.Fatalf("missing credential: expected 401, got %d", rw.Code)
	}
}

func TestRequireRole(t *testing.T) {
	secret := "test-secret"
	h := RequireAuth(RequireRole(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), RoleAdmin), secret)

	for _, tc := range []struct {
		role string
		want int
	}{
		{RolePatient, http.StatusForbidden},
		{RoleAdmin, http.StatusOK},
	} {
		token, err := IssueHS256("user-1", tc.role, time.Hour, secret)
		if err != nil {
			t.Fatalf("IssueHS256 failed: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		req.Header.Set(TokenHeader, token)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code != tc.want {
			t.Fatalf("role %s: expected %d, got %d", tc.role, tc.want, rw.Code)
		}
	}
}

func TestTokenWithoutSubjectRejected(t *testing.T) {
	token, err := SignHS256(Claims{Role: RoleAdmin}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseAndVerifyHS256("not-a-token", "s"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
