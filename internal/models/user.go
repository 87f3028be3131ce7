package models

import "time"

// Role separates the two kinds of account in the system
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleParent
}

// User represents a student or parent account
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Role          Role      `json:"role"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsParent reports whether the user holds a parent account
func (u *User) IsParent() bool {
	return u.Role == RoleParent
}

// Session represents a refresh session backing a signed-in device
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// LinkCode is a short-lived code a parent hands to a student to link accounts
type LinkCode struct {
	Code      string    `json:"code"`
	ParentID  int64     `json:"parent_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired checks if the link code can no longer be redeemed
func (c *LinkCode) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
