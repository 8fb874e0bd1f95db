package domain

import "fmt"

// ============================================================
// Service charges
// ============================================================

// PredefinedServiceCharge is a society-wide catalog entry.
type PredefinedServiceCharge struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// Validate rejects catalog entries without an id or name.
func (p *PredefinedServiceCharge) Validate() error {
	if p.ID <= 0 {
		return &ErrDecode{Schema: "predefined_service_charge", Reason: "missing id"}
	}
	if p.Name == "" {
		return &ErrDecode{Schema: "predefined_service_charge", Reason: fmt.Sprintf("id %d has no name", p.ID)}
	}
	return nil
}

// ChargeAmount is the amount of one charge for one flat type.
type ChargeAmount struct {
	FlatType FlatType `json:"flat_type"`
	Amount   Amount   `json:"amount"`
}

// ServiceCharge is one row of a society's charge matrix.
type ServiceCharge struct {
	PredefinedServiceChargeID int64          `json:"predefined_service_charge_id"`
	ServiceType               string         `json:"service_type,omitempty"`
	Amounts                   []ChargeAmount `json:"amounts"`
}

// AmountFor returns the row's amount for t, or 0.
func (s ServiceCharge) AmountFor(t FlatType) float64 {
	for _, a := range s.Amounts {
		if a.FlatType == t {
			return a.Amount.Float()
		}
	}
	return 0
}

// SocietyServiceCharges is the response of GET /service-charges/society/:id.
type SocietyServiceCharges struct {
	SocietyID      int64           `json:"society_id"`
	ServiceCharges []ServiceCharge `json:"service_charges"`
}

// Validate checks every row references a catalog id and a known flat type.
func (s *SocietyServiceCharges) Validate() error {
	for i, row := range s.ServiceCharges {
		if row.PredefinedServiceChargeID <= 0 {
			return &ErrDecode{Schema: "service_charges", Reason: fmt.Sprintf("row %d has no predefined_service_charge_id", i)}
		}
		for _, a := range row.Amounts {
			if !a.FlatType.Valid() {
				return &ErrDecode{Schema: "service_charges", Reason: fmt.Sprintf("row %d has unknown flat_type %q", i, a.FlatType)}
			}
		}
	}
	return nil
}

// BulkServiceChargeRow is one row of a bulk save.
type BulkServiceChargeRow struct {
	PredefinedServiceChargeID int64          `json:"predefined_service_charge_id"`
	Amounts                   []ChargeAmount `json:"amounts"`
}

// BulkServiceChargeRequest is the body of POST /service-charges/bulk.
// It replaces the society's whole matrix.
type BulkServiceChargeRequest struct {
	SocietyID      int64                  `json:"society_id"`
	ServiceCharges []BulkServiceChargeRow `json:"service_charges"`
}

// ServiceChargeRecord is the flat-per-row shape the backend embeds in flat
// payloads: one record per (catalog id, flat type).
type ServiceChargeRecord struct {
	ID                        int64                    `json:"id,omitempty"`
	SocietyID                 int64                    `json:"society_id,omitempty"`
	PredefinedServiceChargeID int64                    `json:"predefined_service_charge_id"`
	FlatType                  FlatType                 `json:"flat_type"`
	Amount                    Amount                   `json:"amount"`
	CreatedAt                 string                   `json:"created_at,omitempty"`
	Predefined                *PredefinedServiceCharge `json:"predefined_service_charge,omitempty"`
}

// UserServiceCharge is a flat-level extra layered on top of the matrix.
type UserServiceCharge struct {
	ID                        int64                    `json:"id"`
	FlatID                    int64                    `json:"flat_id"`
	PredefinedServiceChargeID int64                    `json:"predefined_service_charge_id"`
	Amount                    Amount                   `json:"amount"`
	CreatedAt                 string                   `json:"created_at,omitempty"`
	Predefined                *PredefinedServiceCharge `json:"predefined_service_charge,omitempty"`
}

// Validate rejects extras missing their identifying fields.
func (u *UserServiceCharge) Validate() error {
	if u.ID <= 0 {
		return &ErrDecode{Schema: "user_service_charge", Reason: "missing id"}
	}
	if u.PredefinedServiceChargeID <= 0 {
		return &ErrDecode{Schema: "user_service_charge", Reason: "missing predefined_service_charge_id"}
	}
	return nil
}

// NewUserServiceCharge is the body of POST /user-service-charges.
type NewUserServiceCharge struct {
	FlatID                    int64   `json:"flat_id" validate:"required,gt=0"`
	PredefinedServiceChargeID int64   `json:"predefined_service_charge_id" validate:"required,gt=0"`
	Amount                    float64 `json:"amount" validate:"gte=0"`
}

// MatrixPreview is the derived view of an in-progress matrix edit.
type MatrixPreview struct {
	Rows      []ServiceCharge                   `json:"rows"`
	Totals    map[FlatType]float64              `json:"totals"`
	Available map[int][]PredefinedServiceCharge `json:"available"`
	Warnings  []string                          `json:"warnings,omitempty"`
}
