package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var (
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrSignatureExpired = errors.New("signature expired")
)

// Signer produces HMAC-SHA256 signatures over a value and an expiry.
// Signatures are derived from a secret key only, so any replica can verify them.
type Signer struct {
	secret []byte
}

// NewSigner creates a new stateless HMAC signer
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex signature for value valid until expires
func (s *Signer) Sign(value string, expires time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(expires.Unix(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks signature for value and expiry against now
func (s *Signer) Verify(value string, expires time.Time, signature string, now time.Time) error {
	if signature == "" {
		return ErrSignatureInvalid
	}
	expected := s.Sign(value, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureInvalid
	}
	if now.After(expires) {
		return ErrSignatureExpired
	}
	return nil
}
