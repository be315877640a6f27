package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okdriver/backend/internal/models"
)

const (
	issuer = "okdriver"
	// refreshGracePeriod bounds how long after expiry a token may still be refreshed
	refreshGracePeriod = 7 * 24 * time.Hour
	// MaxSessionAge bounds how long refreshes can extend a session past its original sign-in
	MaxSessionAge = 30 * 24 * time.Hour
)

var (
	// ErrInvalidToken is returned when a token is invalid
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token has expired
	ErrExpiredToken = errors.New("token has expired")
	// ErrTokenNotYetValid is returned when a token is not yet valid
	ErrTokenNotYetValid = errors.New("token is not yet valid")
)

// Claims represents the JWT claims.
// BackendID duplicates UserID for frontends that key their session on it.
// AuthTime is the original sign-in and survives refreshes.
type Claims struct {
	UserID    string           `json:"userId"`
	Email     string           `json:"email"`
	BackendID string           `json:"backendId"`
	AuthTime  *jwt.NumericDate `json:"auth_time,omitempty"`
	jwt.RegisteredClaims
}

// sessionStart returns when the session behind the claims began.
func (c *Claims) sessionStart() (time.Time, bool) {
	if c.AuthTime != nil {
		return c.AuthTime.Time, true
	}
	if c.IssuedAt != nil {
		return c.IssuedAt.Time, true
	}
	return time.Time{}, false
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string, expiration time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// Generate creates a new JWT token for a user
func (s *JWTService) Generate(user *models.User) (string, error) {
	return s.sign(user.ID, user.Email, s.now())
}

// Validate validates a JWT token and returns the claims
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Refresh issues a new token for a valid token, or for an expired one still
// inside the grace period. Sessions older than MaxSessionAge are not renewed.
func (s *JWTService) Refresh(tokenString string) (string, error) {
	claims, err := s.Validate(tokenString)
	if err == nil {
		return s.renew(claims)
	}
	if !errors.Is(err, ErrExpiredToken) {
		return "", err
	}

	// Signature was fine, only the expiry failed: reparse without time checks.
	token, parseErr := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc,
		jwt.WithIssuer(issuer),
		jwt.WithoutClaimsValidation(),
	)
	if parseErr != nil {
		return "", ErrInvalidToken
	}

	expired, ok := token.Claims.(*Claims)
	if !ok || expired.ExpiresAt == nil {
		return "", ErrInvalidToken
	}
	if s.now().Sub(expired.ExpiresAt.Time) > refreshGracePeriod {
		return "", ErrExpiredToken
	}

	return s.renew(expired)
}

func (s *JWTService) renew(claims *Claims) (string, error) {
	start, ok := claims.sessionStart()
	if !ok || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	if s.now().Sub(start) > MaxSessionAge {
		return "", ErrExpiredToken
	}
	return s.sign(claims.UserID, claims.Email, start)
}

// GetExpiration returns the token expiration duration
func (s *JWTService) GetExpiration() time.Duration {
	return s.expiration
}

func (s *JWTService) sign(userID, email string, authTime time.Time) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		BackendID: userID,
		AuthTime:  jwt.NewNumericDate(authTime),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *JWTService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}
