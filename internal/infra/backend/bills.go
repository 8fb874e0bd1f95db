package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// ============================================================
// Bills & payments
// ============================================================

// ListSocietyBills fetches every bill of a society.
func (c *Client) ListSocietyBills(ctx context.Context, societyID int64) ([]domain.Bill, error) {
	var out domain.BillList
	if err := c.call(ctx, "ListSocietyBills", http.MethodGet, "/bills/society/"+itoa(societyID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUserBills fetches the bills a user owes in a society.
func (c *Client) ListUserBills(ctx context.Context, societyID, userID int64) ([]domain.Bill, error) {
	var out domain.BillList
	path := "/bills/society/" + itoa(societyID) + "/user/" + itoa(userID)
	if err := c.call(ctx, "ListUserBills", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// assignedBill decodes the assign answer without the bill schema check;
// the caller decides what a missing id means.
type assignedBill domain.Bill

// AssignBill moves a bill from the owner to the resident.
func (c *Client) AssignBill(ctx context.Context, billID int64, req domain.AssignRequest) (*domain.Bill, error) {
	var out assignedBill
	if err := c.call(ctx, "AssignBill", http.MethodPost, "/bills/"+itoa(billID)+"/assign", req, &out); err != nil {
		return nil, err
	}
	b := domain.Bill(out)
	return &b, nil
}

// InitiatePayment starts a gateway payment for a bill.
func (c *Client) InitiatePayment(ctx context.Context, req domain.PaymentInitiateRequest) (*domain.PaymentRedirect, error) {
	var out domain.PaymentRedirect
	if err := c.call(ctx, "InitiatePayment", http.MethodPost, "/payments/initiate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResumePayment re-issues the gateway redirect for an existing payment.
func (c *Client) ResumePayment(ctx context.Context, paymentID string) (*domain.PaymentRedirect, error) {
	var out domain.PaymentRedirect
	if err := c.call(ctx, "ResumePayment", http.MethodPost, "/payments/initiate/"+url.PathEscape(paymentID), struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSocietyPayments fetches every service charge payment of a society.
func (c *Client) ListSocietyPayments(ctx context.Context, societyID int64) ([]domain.ServiceChargePayment, error) {
	var out domain.PaymentList
	if err := c.call(ctx, "ListSocietyPayments", http.MethodGet, "/payments/society/"+itoa(societyID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUserPayments fetches a user's service charge payments in a society.
func (c *Client) ListUserPayments(ctx context.Context, societyID, userID int64) ([]domain.ServiceChargePayment, error) {
	var out domain.PaymentList
	path := "/payments/society/" + itoa(societyID) + "/user/" + itoa(userID)
	if err := c.call(ctx, "ListUserPayments", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// InitiateSubscription starts the society subscription payment.
func (c *Client) InitiateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.PaymentRedirect, error) {
	var out domain.PaymentRedirect
	if err := c.call(ctx, "InitiateSubscription", http.MethodPost, "/subscriptions/initiate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
