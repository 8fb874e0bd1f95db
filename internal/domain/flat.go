// Package domain defines the society, flat, charge and bill entities the
// BFA exchanges with the society backend, plus the typed errors shared by
// every layer.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ============================================================
// Flat types
// ============================================================

// FlatType is the closed set of unit-size categories that drive charge lookups.
// The enum value is the wire contract; Label is for display only.
type FlatType string

const (
	TwoBHK   FlatType = "TWO_BHK"
	ThreeBHK FlatType = "THREE_BHK"
	FourBHK  FlatType = "FOUR_BHK"
)

var flatTypes = []FlatType{TwoBHK, ThreeBHK, FourBHK}

// FlatTypes returns every recognised flat type in canonical order.
func FlatTypes() []FlatType {
	out := make([]FlatType, len(flatTypes))
	copy(out, flatTypes)
	return out
}

// Valid reports whether t is one of the three recognised flat types.
func (t FlatType) Valid() bool {
	switch t {
	case TwoBHK, ThreeBHK, FourBHK:
		return true
	}
	return false
}

// Label returns the display string ("2 BHK", ...).
func (t FlatType) Label() string {
	switch t {
	case TwoBHK:
		return "2 BHK"
	case ThreeBHK:
		return "3 BHK"
	case FourBHK:
		return "4 BHK"
	}
	return string(t)
}

// ParseFlatType accepts the enum value or the short registration forms
// ("2bhk", "3bhk", "4bhk"). Anything else maps to TWO_BHK, matching the
// bulk flat creation form.
func ParseFlatType(s string) FlatType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "three_bhk", "3bhk", "3 bhk":
		return ThreeBHK
	case "four_bhk", "4bhk", "4 bhk":
		return FourBHK
	}
	return TwoBHK
}

// ============================================================
// Amount
// ============================================================

// Amount is a monetary value. The backend sends some amounts as JSON
// strings ("150.00") and others as numbers; both decode.
type Amount float64

// UnmarshalJSON accepts a number, a numeric string, or null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Float returns the amount as float64.
func (a Amount) Float() float64 { return float64(a) }

// ============================================================
// Flats
// ============================================================

// Flat is a unit in a society. OwnerID and ResidentID are weak references.
type Flat struct {
	ID         int64    `json:"id"`
	Number     string   `json:"number"`
	SocietyID  int64    `json:"society_id"`
	FlatType   FlatType `json:"flat_type"`
	OwnerID    *int64   `json:"owner_id,omitempty"`
	ResidentID *int64   `json:"resident_id,omitempty"`
	CreatedAt  string   `json:"created_at,omitempty"`
}

// Validate checks the fields every flat payload must carry.
func (f *Flat) Validate() error {
	if f.ID <= 0 {
		return &ErrDecode{Schema: "flat", Reason: "missing id"}
	}
	if f.FlatType != "" && !f.FlatType.Valid() {
		return &ErrDecode{Schema: "flat", Reason: fmt.Sprintf("unknown flat_type %q", f.FlatType)}
	}
	return nil
}

// Resident is a user currently living in a flat.
type Resident struct {
	ID       int64  `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

// FlatResident is the association row between a flat and a resident.
type FlatResident struct {
	ID         int64     `json:"id,omitempty"`
	FlatID     int64     `json:"flat_id,omitempty"`
	ResidentID int64     `json:"resident_id,omitempty"`
	StartDate  string    `json:"start_date,omitempty"`
	EndDate    *string   `json:"end_date,omitempty"`
	Resident   *Resident `json:"resident"`
}

// FlatResidents decodes either an array of associations, a single
// association object, or null. The backend returns all three shapes.
type FlatResidents []FlatResident

// UnmarshalJSON implements json.Unmarshaler.
func (r *FlatResidents) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*r = nil
		return nil
	}
	if b[0] == '[' {
		var list []FlatResident
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*r = list
		return nil
	}
	var one FlatResident
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*r = FlatResidents{one}
	return nil
}

// First returns the resident of the first association. A first
// association without a resident record yields nil; later rows are not
// consulted.
func (r FlatResidents) First() *Resident {
	if len(r) == 0 || r[0].Resident == nil || r[0].Resident.ID <= 0 {
		return nil
	}
	res := *r[0].Resident
	return &res
}

// FlatSociety is the society block embedded in a flat payload.
type FlatSociety struct {
	ID             int64                 `json:"id"`
	Name           string                `json:"name"`
	ServiceCharges []ServiceChargeRecord `json:"service_charges"`
}

// FlatDetail is a flat with its embedded relations, as returned by
// GET /flats/society/:id.
type FlatDetail struct {
	Flat
	Owner              *User               `json:"owner,omitempty"`
	Residents          FlatResidents       `json:"residents,omitempty"`
	UserServiceCharges []UserServiceCharge `json:"user_service_charges,omitempty"`
	Society            *FlatSociety        `json:"society,omitempty"`
}

// FlatParties is the owner/resident metadata for one flat (GET /flats/:id).
type FlatParties struct {
	Owner     *User         `json:"owner"`
	Residents FlatResidents `json:"residents"`
}

// FirstResident returns the resident named in a transfer, or nil.
func (p *FlatParties) FirstResident() *Resident {
	if p == nil {
		return nil
	}
	return p.Residents.First()
}

// FlatView is the read model for flat management screens.
type FlatView struct {
	FlatDetail
	FlatTypeLabel string  `json:"flat_type_label"`
	BasicCharge   float64 `json:"basic_charge"`
	ExtraCharge   float64 `json:"extra_charge"`
}

// NewFlatRequest is one flat in a bulk creation.
type NewFlatRequest struct {
	Number     string   `json:"number" validate:"required"`
	FlatType   FlatType `json:"flat_type" validate:"required"`
	OwnerID    *int64   `json:"owner_id,omitempty"`
	ResidentID *int64   `json:"resident_id,omitempty"`
}

// BulkFlatRequest is the body of POST /flats/bulk.
type BulkFlatRequest struct {
	SocietyID int64            `json:"society_id"`
	Flats     []NewFlatRequest `json:"flats"`
}

// BulkFlatResult partitions a bulk flat creation.
type BulkFlatResult struct {
	Successful []Flat            `json:"successful"`
	Failed     []json.RawMessage `json:"failed"`
}

// UpdateFlatRequest is the body of PATCH /flats/:id.
type UpdateFlatRequest struct {
	ID         int64    `json:"id"`
	Number     string   `json:"number,omitempty"`
	SocietyID  int64    `json:"society_id,omitempty"`
	OwnerID    *int64   `json:"owner_id,omitempty"`
	ResidentID *int64   `json:"resident_id,omitempty"`
	FlatType   FlatType `json:"flat_type,omitempty"`
}
