package infra

import (
	"context"
	"errors"
	"testing"
)

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier("s3cret")

	tok, err := v.VerifyIDToken(context.Background(), "s3cret")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if tok.Role() != "admin" {
		t.Fatalf("role = %q, want admin", tok.Role())
	}
	if _, err := v.VerifyIDToken(context.Background(), "guess"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := NewStaticVerifier("").VerifyIDToken(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("empty static token must reject everything")
	}
}

func TestDenyAll(t *testing.T) {
	if _, err := (DenyAll{}).VerifyIDToken(context.Background(), "anything"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestRoleWithoutClaim(t *testing.T) {
	tok := &FirebaseToken{UID: "u1", Claims: map[string]interface{}{"role": 7}}
	if tok.Role() != "" {
		t.Fatalf("non-string role claim should read as empty, got %q", tok.Role())
	}
}
