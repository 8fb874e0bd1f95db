package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"

	"github.com/jung-kurt/gofpdf/v2"
)

// StatementRenderer draws bill listings as A4 PDF statements.
type StatementRenderer struct {
	currency string
	now      func() time.Time
}

// NewStatementRenderer creates a renderer printing amounts with currency.
func NewStatementRenderer(currency string) *StatementRenderer {
	return &StatementRenderer{currency: currency, now: time.Now}
}

func (r *StatementRenderer) money(v float64) string {
	return fmt.Sprintf("%s %.2f", r.currency, v)
}

// Render produces the PDF bytes for listing.
func (r *StatementRenderer) Render(title string, listing *domain.BillListing) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", r.now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(25, 7, "Bill #", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Flat", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Month", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Assigned to", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Status", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, b := range listing.Bills {
		flat := fmt.Sprintf("%d", b.FlatID)
		if b.Flat != nil && b.Flat.Number != "" {
			flat = b.Flat.Number
		}
		month := b.BillMonth
		if len(month) > 7 {
			month = month[:7]
		}
		assigned := b.AssignedTo
		if len(assigned) > 22 {
			assigned = assigned[:19] + "..."
		}
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", b.ID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, flat, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, month, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, assigned, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(b.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, r.money(b.TotalAmount.Float()), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	sum := listing.Summary
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, fmt.Sprintf("Bills: %d", sum.TotalBills), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, fmt.Sprintf("Paid: %d", sum.PaidBills), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, fmt.Sprintf("Pending: %d", sum.PendingBills), "1", 1, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Total: "+r.money(sum.TotalAmount), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Paid: "+r.money(sum.PaidAmount), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, "Pending: "+r.money(sum.PendingAmount), "1", 1, "C", false, 0, "")

	if sum.PendingAmount > 0 {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, fmt.Sprintf("Collected: %.0f%%", listing.PaidRatio*100), "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
