package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGeneratePairAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)

	pair, err := m.GeneratePair(42, "alice")
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" || pair.RefreshJTI == "" {
		t.Fatalf("incomplete pair: %+v", pair)
	}

	claims, err := m.VerifyAccessToken(pair.Access)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 42 {
		t.Fatalf("user id = %d, err = %v", id, err)
	}
	if claims.Username != "alice" {
		t.Fatalf("username = %q", claims.Username)
	}

	refreshClaims, err := m.VerifyRefreshToken(pair.Refresh)
	if err != nil {
		t.Fatalf("VerifyRefreshToken: %v", err)
	}
	if refreshClaims.ID != pair.RefreshJTI {
		t.Fatalf("jti = %q, want %q", refreshClaims.ID, pair.RefreshJTI)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)
	pair, err := m.GeneratePair(1, "bob")
	if err != nil {
		t.Fatalf("GeneratePair: %v", err)
	}

	if _, err := m.VerifyAccessToken(pair.Refresh); !errors.Is(err, ErrInvalidTokenType) {
		t.Fatalf("refresh used as access: err = %v", err)
	}
	if _, err := m.VerifyRefreshToken(pair.Access); !errors.Is(err, ErrInvalidTokenType) {
		t.Fatalf("access used as refresh: err = %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateAccessToken(7, "carol")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }

	if _, err := m.VerifyAccessToken(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer := NewManager("secret-a", time.Minute, time.Hour)
	verifier := NewManager("secret-b", time.Minute, time.Hour)

	token, err := issuer.GenerateAccessToken(3, "dave")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := verifier.VerifyAccessToken(token); err == nil {
		t.Fatalf("expected signature error")
	}
	if _, err := verifier.VerifyAccessToken("not.a.jwt"); err == nil {
		t.Fatalf("expected malformed token error")
	}
	if _, err := verifier.VerifyAccessToken(strings.Repeat("x", 10)); err == nil {
		t.Fatalf("expected malformed token error")
	}
}

func TestHashRefreshTokenIsDeterministic(t *testing.T) {
	m := NewManager("pepper", time.Minute, time.Hour)

	a := m.HashRefreshToken("raw-token")
	b := m.HashRefreshToken("raw-token")
	c := m.HashRefreshToken("other-token")

	if a != b {
		t.Fatalf("hash not deterministic")
	}
	if a == c {
		t.Fatalf("different tokens must hash differently")
	}
	if a == "raw-token" {
		t.Fatalf("hash must not equal raw token")
	}
}
