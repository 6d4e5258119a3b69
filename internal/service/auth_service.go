package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"speakwell/internal/models"
	"speakwell/internal/repository"
	"speakwell/internal/security"
	"speakwell/internal/validation"
)

// AuthService handles registration, login and token verification
type AuthService struct {
	userRepo *repository.UserRepository
	tokens   *security.TokenManager
	email    *EmailService
}

// NewAuthService creates a new auth service. email may be nil.
func NewAuthService(userRepo *repository.UserRepository, tokens *security.TokenManager, email *EmailService) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, email: email}
}

// Session is the result of a successful login
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Register creates a new account. An empty role registers a student.
func (s *AuthService) Register(ctx context.Context, username, email, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = models.RoleStudent
	}

	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateRole(string(role)); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	existing, err = s.userRepo.GetUserByEmail(ctx, email)
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

	user, err := s.userRepo.CreateUser(ctx, username, email, passwordHash, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.email.IsEnabled() {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Username); err != nil {
			slog.Error("failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

// Login checks the credentials and issues an access token. The identifier
// may be a username or an email address.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.userRepo.GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	ok, err := security.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("failed to check password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, TokenType: "bearer", ExpiresAt: expires, User: user}, nil
}

// Authenticate resolves a bearer token to its user
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, security.ErrInvalidToken
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user no longer exists", security.ErrInvalidToken)
	}
	return user, nil
}

// IsAuthError reports whether err means the caller is not authenticated
func IsAuthError(err error) bool {
	return errors.Is(err, security.ErrInvalidToken) || errors.Is(err, ErrInvalidCredentials)
}
