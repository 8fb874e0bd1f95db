package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ============================================================
// Bills
// ============================================================

// BillStatus is the payment state of a bill.
type BillStatus string

const (
	BillPending BillStatus = "PENDING"
	BillPaid    BillStatus = "PAID"
)

// Charge is one named line on a bill.
type Charge struct {
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
}

// Payment is a gateway payment recorded against a bill.
type Payment struct {
	ID          int64  `json:"id"`
	Amount      Amount `json:"amount"`
	Status      string `json:"status"`
	PaymentDate string `json:"payment_date"`
	TranID      string `json:"tran_id"`
}

// BillFlat is the flat block embedded in a bill.
type BillFlat struct {
	ID       int64    `json:"id"`
	Number   string   `json:"number"`
	FlatType FlatType `json:"flat_type"`
}

// BillSociety is the society block embedded in a bill.
type BillSociety struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Bill is a monthly bill for one flat. UserID is the party who currently
// owes it; it changes only through a transfer.
type Bill struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	FlatID        int64         `json:"flat_id"`
	SocietyID     int64         `json:"society_id"`
	BillMonth     string        `json:"bill_month"`
	Status        BillStatus    `json:"status"`
	TotalAmount   Amount        `json:"total_amount"`
	CommonCharges []Charge      `json:"common_charges"`
	FlatCharges   []Charge      `json:"flat_charges"`
	Flat          *BillFlat     `json:"flat,omitempty"`
	Society       *BillSociety  `json:"society,omitempty"`
	Payments      []Payment     `json:"payments,omitempty"`
	Owner         *Resident     `json:"owner,omitempty"`
	Residents     FlatResidents `json:"residents,omitempty"`
}

// EffectiveFlatID prefers the embedded flat id, as payment initiation does.
func (b *Bill) EffectiveFlatID() int64 {
	if b.Flat != nil && b.Flat.ID > 0 {
		return b.Flat.ID
	}
	return b.FlatID
}

// EffectiveSocietyID prefers the embedded society id.
func (b *Bill) EffectiveSocietyID() int64 {
	if b.Society != nil && b.Society.ID > 0 {
		return b.Society.ID
	}
	return b.SocietyID
}

// Validate rejects bills that cannot be aggregated or assigned.
func (b *Bill) Validate() error {
	if b.ID <= 0 {
		return &ErrDecode{Schema: "bill", Reason: "missing id"}
	}
	if b.FlatID <= 0 && (b.Flat == nil || b.Flat.ID <= 0) {
		return &ErrDecode{Schema: "bill", Reason: fmt.Sprintf("bill %d has no flat", b.ID)}
	}
	if b.Status == "" {
		return &ErrDecode{Schema: "bill", Reason: fmt.Sprintf("bill %d has no status", b.ID)}
	}
	return nil
}

// BillList decodes a bare array or an object wrapping one under "bills"
// or "data".
type BillList []Bill

// UnmarshalJSON implements json.Unmarshaler.
func (l *BillList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = BillList{}
		return nil
	}
	if b[0] == '[' {
		var bills []Bill
		if err := json.Unmarshal(b, &bills); err != nil {
			return err
		}
		*l = bills
		return nil
	}
	var wrapped struct {
		Bills []Bill `json:"bills"`
		Data  []Bill `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	if wrapped.Bills != nil {
		*l = wrapped.Bills
	} else {
		*l = wrapped.Data
	}
	if *l == nil {
		*l = BillList{}
	}
	return nil
}

// Validate validates every bill in the list.
func (l BillList) Validate() error {
	for i := range l {
		if err := l[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BillSummary is a derived fold over a bill collection. Never persisted.
type BillSummary struct {
	TotalBills    int     `json:"totalBills"`
	PaidBills     int     `json:"paidBills"`
	PendingBills  int     `json:"pendingBills"`
	TotalAmount   float64 `json:"totalAmount"`
	PaidAmount    float64 `json:"paidAmount"`
	PendingAmount float64 `json:"pendingAmount"`
}

// AssignRequest is the body of POST /bills/:id/assign.
type AssignRequest struct {
	OwnerID    int64 `json:"ownerId"`
	ResidentID int64 `json:"residentId"`
}

// BillView is a bill annotated for the bills screen.
type BillView struct {
	Bill
	CanTransfer  bool   `json:"can_transfer"`
	AssignedTo   string `json:"assigned_to"`
	PartiesKnown bool   `json:"parties_known"`
}

// BillListing is the response of GET /v1/bills.
type BillListing struct {
	Bills     []BillView  `json:"bills"`
	Summary   BillSummary `json:"summary"`
	PaidRatio float64     `json:"paid_ratio"`
}
