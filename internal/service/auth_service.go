package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/security"
	"readquest/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidRole        = errors.New("role must be student or parent")
)

// WelcomeSender greets new accounts
type WelcomeSender interface {
	SendWelcomeEmail(ctx context.Context, toEmail, toName string, parent bool) error
}

// TokenPair is what a successful sign-in returns to the client
type TokenPair struct {
	AccessToken      string       `json:"access_token"`
	TokenType        string       `json:"token_type"`
	ExpiresAt        time.Time    `json:"expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
	User             *models.User `json:"user"`
}

// AuthService handles authentication business logic
type AuthService struct {
	users      UserStore
	tokens     *security.TokenIssuer
	refreshTTL time.Duration
	welcome    WelcomeSender
	now        func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, tokens *security.TokenIssuer, refreshTTL time.Duration, welcome WelcomeSender) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		welcome:    welcome,
		now:        time.Now,
	}
}

// issue creates an access token and a fresh refresh session for user
func (s *AuthService) issue(user *models.User) (*TokenPair, error) {
	access, expiresAt, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	refreshExpires := s.now().Add(s.refreshTTL)
	session, err := s.users.CreateSession(security.GenerateSessionID(), user.ID, refreshExpires)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		TokenType:        "Bearer",
		ExpiresAt:        expiresAt,
		RefreshToken:     session.ID,
		RefreshExpiresAt: refreshExpires,
		User:             user,
	}, nil
}

// SignUp creates a new account and signs it in
func (s *AuthService) SignUp(ctx context.Context, email, password, name string, role models.Role) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		return nil, validation.ValidationError{Field: "role", Message: ErrInvalidRole.Error()}
	}

	existing, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(email, passwordHash, name, role)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.welcome != nil {
		if err := s.welcome.SendWelcomeEmail(ctx, user.Email, user.Name, user.IsParent()); err != nil {
			log.Printf("Warning: failed to send welcome email to user %d: %v", user.ID, err)
		}
	}

	return s.issue(user)
}

// SignIn authenticates with email and password
func (s *AuthService) SignIn(email, password string) (*TokenPair, error) {
	user, err := s.users.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Refresh rotates a refresh session and issues a new token pair
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	session, err := s.users.GetSession(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if err := s.users.DeleteSession(session.ID); err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return s.issue(user)
}

// SignOut invalidates a refresh session
func (s *AuthService) SignOut(refreshToken string) error {
	if err := s.users.DeleteSession(refreshToken); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// CurrentUser loads the account behind a verified access token
func (s *AuthService) CurrentUser(userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// CleanupExpiredSessions removes expired refresh sessions
func (s *AuthService) CleanupExpiredSessions() (int64, error) {
	n, err := s.users.DeleteExpiredSessions(s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider.
// New accounts get the requested role, defaulting to student.
func (s *AuthService) OAuthLogin(ctx context.Context, provider, subject, email, name string, role models.Role) (*TokenPair, error) {
	if provider == "" || subject == "" {
		return nil, errors.New("missing oauth provider information")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existing, err := s.users.GetUserByEmail(email)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			if existing.OAuthProvider != "" && existing.OAuthProvider != provider {
				return nil, ErrEmailTaken
			}
			if err := s.users.LinkOAuthProvider(existing.ID, provider, subject); err != nil {
				return nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			user = existing
		} else {
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			if role == "" || !role.Valid() {
				role = models.RoleStudent
			}
			user, err = s.users.CreateOAuthUser(email, name, role, provider, subject)
			if err != nil {
				return nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
			if s.welcome != nil {
				if err := s.welcome.SendWelcomeEmail(ctx, user.Email, user.Name, user.IsParent()); err != nil {
					log.Printf("Warning: failed to send welcome email to user %d: %v", user.ID, err)
				}
			}
		}
	}

	return s.issue(user)
}
