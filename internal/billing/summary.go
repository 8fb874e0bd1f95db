package billing

import (
	"fmt"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// MonthFilter selects bills for one calendar month.
type MonthFilter struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "YYYY-MM" (or a full ISO date) into a filter.
func ParseMonth(s string) (*MonthFilter, error) {
	t, ok := parseBillMonth(s)
	if !ok {
		return nil, &domain.ErrValidation{Field: "month", Message: fmt.Sprintf("expected YYYY-MM, got %q", s)}
	}
	return &MonthFilter{Year: t.Year(), Month: t.Month()}, nil
}

// String formats the filter as YYYY-MM.
func (m MonthFilter) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func parseBillMonth(s string) (time.Time, bool) {
	if t := parseTimestamp(s); !t.IsZero() {
		return t, true
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FilterBills keeps bills whose status matches (any status when status is
// "all" or empty) and whose bill_month falls in month when month is set.
// A bill whose bill_month cannot be parsed is dropped when month is set.
func FilterBills(bills []domain.Bill, status string, month *MonthFilter) []domain.Bill {
	if (status == StatusAll || status == "") && month == nil {
		return bills
	}
	out := make([]domain.Bill, 0, len(bills))
	for _, b := range bills {
		if status != StatusAll && status != "" && string(b.Status) != status {
			continue
		}
		if month != nil {
			t, ok := parseBillMonth(b.BillMonth)
			if !ok || t.Year() != month.Year || t.Month() != month.Month {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// FilterPayments keeps payments whose payment_month falls in month. A nil
// month keeps everything; an unparseable payment_month is dropped.
func FilterPayments(payments []domain.ServiceChargePayment, month *MonthFilter) []domain.ServiceChargePayment {
	if month == nil {
		return payments
	}
	out := make([]domain.ServiceChargePayment, 0, len(payments))
	for _, p := range payments {
		t, ok := parseBillMonth(p.PaymentMonth)
		if ok && t.Year() == month.Year && t.Month() == month.Month {
			out = append(out, p)
		}
	}
	return out
}

// Summarize folds bills into counts and amounts. Statuses other than PAID
// and PENDING count only towards the totals.
func Summarize(bills []domain.Bill) domain.BillSummary {
	var s domain.BillSummary
	for _, b := range bills {
		amount := b.TotalAmount.Float()
		s.TotalBills++
		s.TotalAmount += amount
		switch b.Status {
		case domain.BillPaid:
			s.PaidBills++
			s.PaidAmount += amount
		case domain.BillPending:
			s.PendingBills++
			s.PendingAmount += amount
		}
	}
	return s
}

// PaidRatio is paidBills/totalBills, or 0 when there are no bills.
func PaidRatio(s domain.BillSummary) float64 {
	if s.TotalBills == 0 {
		return 0
	}
	return float64(s.PaidBills) / float64(s.TotalBills)
}
