package billing

import (
	"fmt"
	"math"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// totalTolerance absorbs float rounding in amounts the backend sends as
// two-decimal strings.
const totalTolerance = 0.005

// AggregatedBill is a bill body reconstructed from the matrix and extras.
type AggregatedBill struct {
	FlatID        int64           `json:"flat_id"`
	FlatType      domain.FlatType `json:"flat_type"`
	CommonCharges []domain.Charge `json:"common_charges"`
	FlatCharges   []domain.Charge `json:"flat_charges"`
	TotalAmount   float64         `json:"total_amount"`
}

// Aggregate builds the bill for one flat: one common charge per matrix row,
// valued at the flat type's amount, and one flat charge per deduplicated
// extra belonging to the flat.
func Aggregate(matrix []domain.ServiceCharge, catalog *Catalog, flat domain.Flat, extras []domain.UserServiceCharge) AggregatedBill {
	bill := AggregatedBill{
		FlatID:        flat.ID,
		FlatType:      flat.FlatType,
		CommonCharges: make([]domain.Charge, 0, len(matrix)),
		FlatCharges:   make([]domain.Charge, 0, len(extras)),
	}

	for _, row := range matrix {
		name := row.ServiceType
		if name == "" {
			name = catalog.Name(row.PredefinedServiceChargeID)
		}
		amount := row.AmountFor(flat.FlatType)
		bill.CommonCharges = append(bill.CommonCharges, domain.Charge{Name: name, Amount: domain.Amount(amount)})
		bill.TotalAmount += amount
	}

	for _, extra := range DedupeExtras(extras) {
		if extra.FlatID != 0 && extra.FlatID != flat.ID {
			continue
		}
		name := catalog.Name(extra.PredefinedServiceChargeID)
		if extra.Predefined != nil && extra.Predefined.Name != "" {
			name = extra.Predefined.Name
		}
		bill.FlatCharges = append(bill.FlatCharges, domain.Charge{Name: name, Amount: extra.Amount})
		bill.TotalAmount += extra.Amount.Float()
	}

	return bill
}

// SumCharges adds up a charge list.
func SumCharges(charges []domain.Charge) float64 {
	var total float64
	for _, c := range charges {
		total += c.Amount.Float()
	}
	return total
}

// VerifyTotal checks total_amount == sum(common_charges) + sum(flat_charges).
func VerifyTotal(b domain.Bill) error {
	want := SumCharges(b.CommonCharges) + SumCharges(b.FlatCharges)
	if math.Abs(b.TotalAmount.Float()-want) > totalTolerance {
		return fmt.Errorf("bill %d: total_amount %.2f does not match charges %.2f", b.ID, b.TotalAmount.Float(), want)
	}
	return nil
}
