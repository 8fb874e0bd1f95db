package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// ============================================================
// Charge catalog, society matrix and flat extras
// ============================================================

// ListPredefinedCharges fetches the charge catalog.
func (c *Client) ListPredefinedCharges(ctx context.Context) ([]domain.PredefinedServiceCharge, error) {
	var out []domain.PredefinedServiceCharge
	if err := c.call(ctx, "ListPredefinedCharges", http.MethodGet, "/predefined-service-charges", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := out[i].Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListServiceCharges fetches every matrix record visible to the caller.
func (c *Client) ListServiceCharges(ctx context.Context) ([]domain.ServiceChargeRecord, error) {
	var out []domain.ServiceChargeRecord
	if err := c.call(ctx, "ListServiceCharges", http.MethodGet, "/service-charges", nil, &out); err != nil {
		return nil, err
	}
	for i, r := range out {
		if r.PredefinedServiceChargeID <= 0 || !r.FlatType.Valid() {
			return nil, &domain.ErrDecode{Schema: "service_charge", Reason: fmt.Sprintf("record %d is incomplete", i)}
		}
	}
	return out, nil
}

// GetSocietyServiceCharges fetches a society's charge matrix.
func (c *Client) GetSocietyServiceCharges(ctx context.Context, societyID int64) (*domain.SocietyServiceCharges, error) {
	var out domain.SocietyServiceCharges
	if err := c.call(ctx, "GetSocietyServiceCharges", http.MethodGet, "/service-charges/society/"+itoa(societyID), nil, &out); err != nil {
		return nil, err
	}
	if out.SocietyID == 0 {
		out.SocietyID = societyID
	}
	return &out, nil
}

// CreateServiceCharge creates one matrix record.
func (c *Client) CreateServiceCharge(ctx context.Context, rec domain.ServiceChargeRecord) (*domain.ServiceChargeRecord, error) {
	var out domain.ServiceChargeRecord
	if err := c.call(ctx, "CreateServiceCharge", http.MethodPost, "/service-charges", rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkSaveServiceCharges replaces a society's whole matrix.
func (c *Client) BulkSaveServiceCharges(ctx context.Context, req domain.BulkServiceChargeRequest) error {
	return c.call(ctx, "BulkSaveServiceCharges", http.MethodPost, "/service-charges/bulk", req, nil)
}

// AddUserServiceCharge attaches an extra charge to a flat.
func (c *Client) AddUserServiceCharge(ctx context.Context, req domain.NewUserServiceCharge) (*domain.UserServiceCharge, error) {
	var out domain.UserServiceCharge
	if err := c.call(ctx, "AddUserServiceCharge", http.MethodPost, "/user-service-charges", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUserServiceCharge removes a flat extra.
func (c *Client) DeleteUserServiceCharge(ctx context.Context, id int64) error {
	return c.call(ctx, "DeleteUserServiceCharge", http.MethodDelete, "/user-service-charges/"+itoa(id), nil, nil)
}
