package auth

import (
	"testing"
	"time"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	sid, token, err := NewSessionToken("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	claims, err := Parse(token, "secret")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Sid != sid {
		t.Fatalf("Expected sid %s, got %s", sid, claims.Sid)
	}
}

func TestParse_Rejects(t *testing.T) {
	_, token, _ := NewSessionToken("secret", time.Hour)
	if _, err := Parse(token, "other"); err == nil {
		t.Fatal("Expected signature error")
	}

	expired, _ := SignSession("s1", "secret", -time.Minute)
	if _, err := Parse(expired, "secret"); err == nil {
		t.Fatal("Expected expiry error")
	}

	if _, err := Parse("garbage", "secret"); err == nil {
		t.Fatal("Expected parse error")
	}
}
