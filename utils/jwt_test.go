package utils

import (
	"testing"
	"time"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, exp, err := issuer.Generate(7, "a@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if d := time.Until(exp); d <= 0 || d > time.Hour {
		t.Fatalf("expiry: %v", exp)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Email != "a@example.com" {
		t.Fatalf("claims: want=7/a@example.com got=%d/%s", claims.UserID, claims.Email)
	}
}

func TestTokenIssuer_RejectsForeignAndExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour)
	token, _, _ := other.Generate(7, "a@example.com")
	if _, err := issuer.Parse(token); err == nil {
		t.Fatalf("token signed with another secret accepted")
	}

	token, _, _ = issuer.Generate(7, "a@example.com")
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := issuer.Parse(token); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestNewTokenIssuer_DefaultTTL(t *testing.T) {
	if got := NewTokenIssuer("s", 0).TTL(); got != 72*time.Hour {
		t.Fatalf("ttl: want=72h got=%v", got)
	}
}
