// Package oauth resolves Google access tokens to the identity behind them.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// DefaultUserInfoURL is Google's OpenID Connect userinfo endpoint.
const DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var (
	// ErrInvalidAccessToken is returned when Google rejects the token
	ErrInvalidAccessToken = errors.New("oauth: invalid google access token")
	// ErrIncompleteProfile is returned when Google omits the subject or email
	ErrIncompleteProfile = errors.New("oauth: google profile is missing id or email")
)

// GoogleUser is the subset of the userinfo response the account service needs
type GoogleUser struct {
	ID            string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleClient fetches Google profiles using user access tokens
type GoogleClient struct {
	userInfoURL string
	base        *http.Client
}

// NewGoogleClient creates a client; an empty URL selects DefaultUserInfoURL.
func NewGoogleClient(userInfoURL string) *GoogleClient {
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	return &GoogleClient{
		userInfoURL: userInfoURL,
		base:        http.DefaultClient,
	}
}

// UserInfo returns the profile of the account the access token belongs to.
func (c *GoogleClient) UserInfo(ctx context.Context, accessToken string) (*GoogleUser, error) {
	if accessToken == "" {
		return nil, ErrInvalidAccessToken
	}

	// oauth2.NewClient picks up the base client from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidAccessToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google userinfo returned %d: %s", resp.StatusCode, body)
	}

	var user GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode google userinfo: %w", err)
	}

	if user.ID == "" || user.Email == "" {
		return nil, ErrIncompleteProfile
	}

	return &user, nil
}
