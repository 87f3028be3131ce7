package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", 15*time.Minute)

	token, expiresAt, err := issuer.Issue(42, "student")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiry %v should be in the future", expiresAt)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	userID, err := claims.UserID()
	if err != nil || userID != 42 {
		t.Errorf("UserID() = %d, %v, want 42", userID, err)
	}
	if claims.Role != "student" {
		t.Errorf("Role = %q, want student", claims.Role)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", 15*time.Minute)
	token, _, err := issuer.Issue(1, "parent")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("other", 15*time.Minute)
		if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		late := NewTokenIssuer("secret", 15*time.Minute)
		late.now = func() time.Time { return time.Now().Add(time.Hour) }
		if _, err := late.Parse(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})
}
