package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ============================================================
// Payments, subscriptions & pricing
// ============================================================

// PaymentInitiateRequest is the body of POST /payments/initiate.
type PaymentInitiateRequest struct {
	UserID       int64   `json:"user_id" validate:"required,gt=0"`
	FlatID       int64   `json:"flat_id" validate:"required,gt=0"`
	BillID       int64   `json:"bill_id" validate:"required,gt=0"`
	SocietyID    int64   `json:"society_id" validate:"required,gt=0"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	PaymentMonth string  `json:"payment_month" validate:"required"`
}

// PaymentRedirect is the gateway redirect the browser follows.
type PaymentRedirect struct {
	PaymentURL string `json:"payment_url"`
	PaymentID  string `json:"payment_id,omitempty"`
}

// Validate requires a payment URL.
func (p *PaymentRedirect) Validate() error {
	if p.PaymentURL == "" {
		return &ErrDecode{Schema: "payment", Reason: "No payment URL received"}
	}
	return nil
}

// ServiceChargePayment is one payment row of the payment history.
type ServiceChargePayment struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	FlatID        int64  `json:"flat_id"`
	BillID        int64  `json:"bill_id"`
	SocietyID     int64  `json:"society_id"`
	Amount        Amount `json:"amount"`
	Status        string `json:"status"`
	PaymentMonth  string `json:"payment_month"`
	PaymentDate   string `json:"payment_date,omitempty"`
	TranID        string `json:"tran_id,omitempty"`
	Currency      string `json:"currency,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// PaymentList decodes a bare array or an object wrapping one under
// "payments" or "data".
type PaymentList []ServiceChargePayment

// UnmarshalJSON implements json.Unmarshaler.
func (l *PaymentList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = PaymentList{}
		return nil
	}
	if b[0] == '[' {
		var payments []ServiceChargePayment
		if err := json.Unmarshal(b, &payments); err != nil {
			return err
		}
		*l = payments
		return nil
	}
	var wrapped struct {
		Payments []ServiceChargePayment `json:"payments"`
		Data     []ServiceChargePayment `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	if wrapped.Payments != nil {
		*l = wrapped.Payments
	} else {
		*l = wrapped.Data
	}
	if *l == nil {
		*l = PaymentList{}
	}
	return nil
}

// Validate rejects rows that cannot be resumed.
func (l PaymentList) Validate() error {
	for _, p := range l {
		if p.ID <= 0 {
			return &ErrDecode{Schema: "payment", Reason: "missing id"}
		}
		if p.PaymentMonth == "" {
			return &ErrDecode{Schema: "payment", Reason: fmt.Sprintf("payment %d has no payment_month", p.ID)}
		}
	}
	return nil
}

// PaymentHistory is the filtered payment list returned to the client.
type PaymentHistory struct {
	Payments    []ServiceChargePayment `json:"payments"`
	TotalAmount float64                `json:"total_amount"`
}

// SubscriptionRequest is the body of POST /subscriptions/initiate.
type SubscriptionRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	PromoCode string  `json:"promo_code,omitempty"`
	UserID    int64   `json:"user_id,omitempty"`
	SocietyID int64   `json:"society_id" validate:"required,gt=0"`
}

// FlatCounts is the number of flats per type used for pricing.
type FlatCounts struct {
	TwoBHK   int `json:"2bhk"`
	ThreeBHK int `json:"3bhk"`
	FourBHK  int `json:"4bhk"`
}

// PriceRequest is the body of POST /pricing/calculate-price.
type PriceRequest struct {
	FlatCounts FlatCounts `json:"flat_counts"`
	UserCount  int        `json:"user_count" validate:"gte=0"`
	Location   string     `json:"location,omitempty"`
}

// PriceQuote is the backend's price calculation.
type PriceQuote struct {
	BasePrice          float64    `json:"base_price"`
	Tax                float64    `json:"tax"`
	TotalPrice         float64    `json:"total_price"`
	FlatCounts         FlatCounts `json:"flat_counts"`
	UserCount          int        `json:"user_count"`
	LocationMultiplier float64    `json:"location_multiplier"`
}

// Validate rejects a quote without a positive total.
func (q *PriceQuote) Validate() error {
	if q.TotalPrice < 0 {
		return &ErrDecode{Schema: "price_quote", Reason: "negative total_price"}
	}
	return nil
}

// PromoRequest is the body of POST /pricing/apply-promo.
type PromoRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	PromoCode string  `json:"promo_code" validate:"required"`
}

// PromoResult is the discounted amount after applying a promo code.
type PromoResult struct {
	OriginalAmount   float64 `json:"original_amount"`
	Discount         float64 `json:"discount"`
	DiscountedAmount float64 `json:"discounted_amount"`
	PromoCode        string  `json:"promo_code"`
}

// Validate rejects discounts larger than the original amount.
func (p *PromoResult) Validate() error {
	if p.Discount > p.OriginalAmount {
		return &ErrDecode{Schema: "promo", Reason: "discount exceeds original amount"}
	}
	return nil
}
