package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/diagnosis/seatrips/internal/domain"
)

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	if err := c.WithToken("").call(ctx, http.MethodPost, "/accounts/register/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	if err := c.WithToken("").call(ctx, http.MethodPost, "/accounts/login/", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, http.MethodGet, "/accounts/profile/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, http.MethodPatch, "/accounts/profile/", nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calendar fetches the owner or guide calendar. An empty month lets the API
// pick the current one.
func (c *Client) Calendar(ctx context.Context, month string) (*domain.CalendarMonth, error) {
	var q url.Values
	if month != "" {
		q = url.Values{"month": {month}}
	}
	var out domain.CalendarMonth
	if err := c.call(ctx, http.MethodGet, "/accounts/profile/calendar/", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Month == "" {
		out.Month = month
	}
	return &out, nil
}

func (c *Client) Finances(ctx context.Context) (*domain.Finances, error) {
	var out domain.Finances
	if err := c.call(ctx, http.MethodGet, "/accounts/profile/finances/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerificationStatus(ctx context.Context) (*domain.Verification, error) {
	var out domain.Verification
	if err := c.call(ctx, http.MethodGet, "/accounts/verification/status/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
