package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// ============================================================
// Auth, users, societies & pricing
// ============================================================

// Login exchanges credentials for a backend token.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	if err := c.call(ctx, "Login", http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptInvitation activates an invited account.
func (c *Client) AcceptInvitation(ctx context.Context, req domain.AcceptInvitationRequest) error {
	path := "/users/token/" + url.PathEscape(req.Token) + "/accept"
	return c.call(ctx, "AcceptInvitation", http.MethodPost, path, req, nil)
}

// CreateUser creates a user directly (registration admin).
func (c *Client) CreateUser(ctx context.Context, req domain.NewUserRequest) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, "CreateUser", http.MethodPost, "/users", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSociety registers a society.
func (c *Client) CreateSociety(ctx context.Context, req domain.NewSocietyRequest) (*domain.Society, error) {
	var out domain.Society
	if err := c.call(ctx, "CreateSociety", http.MethodPost, "/societies", req, &out); err != nil {
		return nil, err
	}
	if out.ID <= 0 {
		return nil, &domain.ErrDecode{Schema: "society", Reason: "missing id"}
	}
	return &out, nil
}

// InviteUsers sends a batch of invitations.
func (c *Client) InviteUsers(ctx context.Context, req domain.BulkInviteRequest) (*domain.BulkInviteResult, error) {
	var out domain.BulkInviteResult
	if err := c.call(ctx, "InviteUsers", http.MethodPost, "/users/invite/bulk", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSocietyUsers fetches a society's owners and residents.
func (c *Client) ListSocietyUsers(ctx context.Context, societyID int64) (*domain.SocietyUsers, error) {
	var out domain.SocietyUsers
	if err := c.call(ctx, "ListSocietyUsers", http.MethodGet, "/users/society/"+itoa(societyID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelUser cancels a pending invitation.
func (c *Client) CancelUser(ctx context.Context, userID int64) error {
	return c.call(ctx, "CancelUser", http.MethodPost, "/users/"+itoa(userID)+"/cancel", struct{}{}, nil)
}

// CalculatePrice quotes the subscription price for a society.
func (c *Client) CalculatePrice(ctx context.Context, req domain.PriceRequest) (*domain.PriceQuote, error) {
	var out domain.PriceQuote
	if err := c.call(ctx, "CalculatePrice", http.MethodPost, "/pricing/calculate-price", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyPromo applies a promo code to an amount.
func (c *Client) ApplyPromo(ctx context.Context, req domain.PromoRequest) (*domain.PromoResult, error) {
	var out domain.PromoResult
	if err := c.call(ctx, "ApplyPromo", http.MethodPost, "/pricing/apply-promo", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
