// Package service holds the account, API key and subscription business rules.
// It talks to storage through the small interfaces in stores.go so the rules
// can be exercised without a database.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/okdriver/backend/internal/auth"
	"github.com/okdriver/backend/internal/models"
	"github.com/okdriver/backend/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// FederatedIdentity is the profile an external identity provider vouched for.
type FederatedIdentity struct {
	GoogleID      string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      models.PublicUser `json:"user"`
	Token     string            `json:"token"`
	ExpiresIn int64             `json:"expiresIn"`
}

// Profile is a user together with their non-revoked API keys.
type Profile struct {
	User    models.PublicUser `json:"user"`
	APIKeys []KeyInfo         `json:"apiKeys"`
}

// AccountService manages user identities and credentials.
type AccountService struct {
	users   UserStore
	apiKeys APIKeyStore
	hasher  PasswordHasher
	tokens  *auth.JWTService
	log     *slog.Logger
	now     func() time.Time

	// dummyHash is compared against when there is no stored hash, so a
	// failed login costs the same whether or not the account exists.
	dummyHash string
}

// NewAccountService creates a new account service
func NewAccountService(users UserStore, apiKeys APIKeyStore, hasher PasswordHasher, tokens *auth.JWTService, log *slog.Logger) *AccountService {
	dummyHash, err := hasher.Hash("okdriver-login-placeholder")
	if err != nil {
		log.Warn("failed to prepare placeholder password hash", "error", err)
	}

	return &AccountService{
		users:     users,
		apiKeys:   apiKeys,
		hasher:    hasher,
		tokens:    tokens,
		log:       log.With(slog.String("component", "account")),
		now:       time.Now,
		dummyHash: dummyHash,
	}
}

// UpsertFederatedIdentity creates or refreshes the user behind a federated
// sign-in reported by the client. The identity is not checked with the
// provider, so it never attaches to an account found only by email: an email
// owned by another account is a conflict.
func (s *AccountService) UpsertFederatedIdentity(ctx context.Context, in FederatedIdentity) (*models.PublicUser, error) {
	return s.upsertFederated(ctx, in, false)
}

// SignInFederated upserts an identity the provider has vouched for and issues
// a session for it. Callers must have verified the identity with the provider
// first. An existing account is linked by email only when the provider marked
// the email as verified.
func (s *AccountService) SignInFederated(ctx context.Context, in FederatedIdentity) (*AuthResult, error) {
	public, err := s.upsertFederated(ctx, in, in.EmailVerified)
	if err != nil {
		return nil, err
	}
	return s.issueSession(&models.User{ID: public.ID, Email: public.Email, Name: public.Name, Picture: public.Picture, EmailVerified: public.EmailVerified})
}

// upsertFederated looks the identity up by google id, then by email. The email
// match is only taken over when linkByEmail is set.
func (s *AccountService) upsertFederated(ctx context.Context, in FederatedIdentity, linkByEmail bool) (*models.PublicUser, error) {
	in.GoogleID = strings.TrimSpace(in.GoogleID)
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.GoogleID == "" || in.Email == "" || in.Name == "" {
		return nil, ErrIdentityFieldsMissing
	}

	user, err := s.users.GetByGoogleID(ctx, in.GoogleID)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.users.GetByEmail(ctx, in.Email)
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.createFederated(ctx, in)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
		if !linkByEmail {
			s.log.Warn("refused to link unverified federated identity", "user_id", user.ID)
			return nil, ErrEmailTaken
		}
		s.log.Info("linking federated identity to existing account", "user_id", user.ID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up user by google id: %w", err)
	}

	user.GoogleID = in.GoogleID
	user.Email = in.Email
	user.Name = in.Name
	user.EmailVerified = in.EmailVerified
	if in.Picture != "" {
		user.Picture = in.Picture
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	public := user.Public()
	return &public, nil
}

func (s *AccountService) createFederated(ctx context.Context, in FederatedIdentity) (*models.PublicUser, error) {
	now := s.now()
	user := &models.User{
		Email:         in.Email,
		Name:          in.Name,
		Picture:       in.Picture,
		EmailVerified: in.EmailVerified,
		GoogleID:      in.GoogleID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user created from federated identity", "user_id", user.ID)
	public := user.Public()
	return &public, nil
}

// Register creates a credential account and signs the caller in.
func (s *AccountService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, ErrFieldsMissing
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if err := auth.ValidatePasswordLength(password); err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, ErrPasswordTooShort
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", "user_id", user.ID)
	return s.issueSession(user)
}

// Login verifies credentials. Every failure, including accounts that only
// have a federated identity, yields ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		s.hasher.Check(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}

	if !user.HasPassword() {
		s.hasher.Check(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Check(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(user)
}

// RefreshToken exchanges a recently expired or still valid session token for
// a fresh one. The user must still exist; the session age cap is enforced by
// the token service.
func (s *AccountService) RefreshToken(ctx context.Context, token string) (*AuthResult, error) {
	refreshed, err := s.tokens.Refresh(token)
	if err != nil {
		return nil, ErrSessionExpired
	}
	claims, err := s.tokens.Validate(refreshed)
	if err != nil {
		return nil, fmt.Errorf("failed to validate refreshed token: %w", err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &AuthResult{
		User:      user.Public(),
		Token:     refreshed,
		ExpiresIn: int64(s.tokens.GetExpiration().Seconds()),
	}, nil
}

// GetProfile returns the user and the keys that have not been revoked.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	keys, err := s.apiKeys.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	profile := &Profile{User: user.Public(), APIKeys: make([]KeyInfo, 0, len(keys))}
	for i := range keys {
		if keys[i].Revoked {
			continue
		}
		profile.APIKeys = append(profile.APIKeys, newKeyInfo(&keys[i]))
	}
	return profile, nil
}

// UpdateProfile changes the display name and picture.
func (s *AccountService) UpdateProfile(ctx context.Context, userID, name, picture string) (*models.PublicUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Picture = strings.TrimSpace(picture)
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	public := user.Public()
	return &public, nil
}

func (s *AccountService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *AccountService) issueSession(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResult{
		User:      user.Public(),
		Token:     token,
		ExpiresIn: int64(s.tokens.GetExpiration().Seconds()),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
