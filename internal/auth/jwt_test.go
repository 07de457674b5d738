package auth

import (
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	signed, err := Issue("u1", "admin", "sess-1", "hadirku", "secret", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := Parse(signed, "secret", "hadirku")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != "admin" || claims.SessionID != "sess-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongKeyAndIssuer(t *testing.T) {
	signed, _ := Issue("u1", "admin", "sess-1", "hadirku", "secret", time.Hour)
	if _, err := Parse(signed, "other-key", "hadirku"); err == nil {
		t.Error("wrong key accepted")
	}
	if _, err := Parse(signed, "secret", "someone-else"); err == nil {
		t.Error("wrong issuer accepted")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	signed, _ := Issue("u1", "admin", "sess-1", "hadirku", "secret", -time.Minute)
	if _, err := Parse(signed, "secret", "hadirku"); err == nil {
		t.Error("expired token accepted")
	}
}
