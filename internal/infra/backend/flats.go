package backend

import (
	"context"
	"net/http"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// ============================================================
// Flats
// ============================================================

// ListFlats fetches every flat visible to the caller.
func (c *Client) ListFlats(ctx context.Context) ([]domain.Flat, error) {
	var out []domain.Flat
	if err := c.call(ctx, "ListFlats", http.MethodGet, "/flats", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := out[i].Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListSocietyFlats fetches a society's flats with owners, residents,
// extras and the embedded society matrix.
func (c *Client) ListSocietyFlats(ctx context.Context, societyID int64) ([]domain.FlatDetail, error) {
	var out []domain.FlatDetail
	if err := c.call(ctx, "ListSocietyFlats", http.MethodGet, "/flats/society/"+itoa(societyID), nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := out[i].Flat.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetFlatParties fetches the owner and residents of one flat.
func (c *Client) GetFlatParties(ctx context.Context, flatID int64) (*domain.FlatParties, error) {
	var out domain.FlatParties
	if err := c.call(ctx, "GetFlatParties", http.MethodGet, "/flats/"+itoa(flatID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type createFlatBody struct {
	domain.NewFlatRequest
	SocietyID int64 `json:"society_id"`
}

// CreateFlat creates a single flat.
func (c *Client) CreateFlat(ctx context.Context, societyID int64, req domain.NewFlatRequest) (*domain.Flat, error) {
	var out domain.Flat
	body := createFlatBody{NewFlatRequest: req, SocietyID: societyID}
	if err := c.call(ctx, "CreateFlat", http.MethodPost, "/flats", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFlat partially updates a flat.
func (c *Client) UpdateFlat(ctx context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error) {
	var out domain.Flat
	if err := c.call(ctx, "UpdateFlat", http.MethodPatch, "/flats/"+itoa(req.ID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplaceFlat overwrites a flat.
func (c *Client) ReplaceFlat(ctx context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error) {
	var out domain.Flat
	if err := c.call(ctx, "ReplaceFlat", http.MethodPut, "/flats/"+itoa(req.ID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFlat deletes a flat.
func (c *Client) DeleteFlat(ctx context.Context, flatID int64) error {
	return c.call(ctx, "DeleteFlat", http.MethodDelete, "/flats/"+itoa(flatID), nil, nil)
}

// BulkCreateFlats creates several flats in one call. The backend reports
// per-flat success and failure.
func (c *Client) BulkCreateFlats(ctx context.Context, req domain.BulkFlatRequest) (*domain.BulkFlatResult, error) {
	var out domain.BulkFlatResult
	if err := c.call(ctx, "BulkCreateFlats", http.MethodPost, "/flats/bulk", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
