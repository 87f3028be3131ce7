package security

import (
	"errors"
	"testing"
	"time"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("secret")
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)

	sig := signer.Sign("7/recording_1.m4a", expires)

	tests := []struct {
		name    string
		value   string
		expires time.Time
		sig     string
		now     time.Time
		wantErr error
	}{
		{"valid", "7/recording_1.m4a", expires, sig, now, nil},
		{"expired", "7/recording_1.m4a", expires, sig, expires.Add(time.Second), ErrSignatureExpired},
		{"tampered value", "8/recording_1.m4a", expires, sig, now, ErrSignatureInvalid},
		{"tampered expiry", "7/recording_1.m4a", expires.Add(time.Hour), sig, now, ErrSignatureInvalid},
		{"empty signature", "7/recording_1.m4a", expires, "", now, ErrSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := signer.Verify(tt.value, tt.expires, tt.sig, tt.now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignerDifferentSecrets(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	sig := NewSigner("one").Sign("value", expires)
	if err := NewSigner("two").Verify("value", expires, sig, time.Now()); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("signature from another secret should be invalid, got %v", err)
	}
}
