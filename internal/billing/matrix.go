package billing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

// Warning is a refused edit that leaves the matrix unchanged. It is not a
// failure of the caller and is surfaced as a notice, not an error page.
type Warning struct {
	msg string
}

func (w *Warning) Error() string { return w.msg }

var (
	ErrCatalogEmpty     = &Warning{msg: "No predefined service charges available"}
	ErrCatalogExhausted = &Warning{msg: "All predefined service charges are already added"}
	ErrLastRow          = &Warning{msg: "You need at least one service charge"}

	ErrRowIndex = errors.New("matrix row index out of range")
)

// IsWarning reports whether err is a Warning.
func IsWarning(err error) bool {
	var w *Warning
	return errors.As(err, &w)
}

// MatrixEditor edits a society's charge matrix in memory. Rows never share a
// catalog id. It is not safe for concurrent use.
type MatrixEditor struct {
	catalog *Catalog
	rows    []domain.ServiceCharge
}

// NewMatrixEditor starts an edit from the current matrix. An empty matrix
// with a non-empty catalog is seeded with the first catalog entry.
func NewMatrixEditor(initial []domain.ServiceCharge, catalog *Catalog) *MatrixEditor {
	e := &MatrixEditor{catalog: catalog, rows: cloneRows(initial)}
	if len(e.rows) == 0 && catalog.Len() > 0 {
		first := catalog.list()[0]
		e.rows = append(e.rows, newRow(first))
	}
	return e
}

// EditorFrom replays rows through the editor: each charge type must be a
// catalog entry no earlier row uses, and each amount is stored the way
// SetAmount stores user input. Rows without a charge type are kept so that
// Submit reports them.
func EditorFrom(rows []domain.ServiceCharge, catalog *Catalog) (*MatrixEditor, error) {
	e := &MatrixEditor{catalog: catalog, rows: make([]domain.ServiceCharge, 0, len(rows))}
	for i, row := range rows {
		e.rows = append(e.rows, newRow(domain.PredefinedServiceCharge{}))
		if row.PredefinedServiceChargeID != 0 {
			if err := e.SetChargeType(i, row.PredefinedServiceChargeID); err != nil {
				return nil, err
			}
		}
		for _, a := range row.Amounts {
			if !a.FlatType.Valid() {
				continue
			}
			if err := e.SetAmount(i, a.FlatType, strconv.FormatFloat(a.Amount.Float(), 'f', -1, 64)); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}

func newRow(p domain.PredefinedServiceCharge) domain.ServiceCharge {
	row := domain.ServiceCharge{
		PredefinedServiceChargeID: p.ID,
		ServiceType:               p.Name,
		Amounts:                   make([]domain.ChargeAmount, 0, len(flatTypesOrder)),
	}
	for _, t := range flatTypesOrder {
		row.Amounts = append(row.Amounts, domain.ChargeAmount{FlatType: t})
	}
	return row
}

var flatTypesOrder = domain.FlatTypes()

// Len returns the number of rows.
func (e *MatrixEditor) Len() int { return len(e.rows) }

// Rows returns a deep copy of the current rows.
func (e *MatrixEditor) Rows() []domain.ServiceCharge { return cloneRows(e.rows) }

// AddRow appends a row for the first catalog entry no row uses yet.
func (e *MatrixEditor) AddRow() error {
	if e.catalog.Len() == 0 {
		return ErrCatalogEmpty
	}
	used := e.usedIDs(-1)
	for _, p := range e.catalog.list() {
		if !used[p.ID] {
			e.rows = append(e.rows, newRow(p))
			return nil
		}
	}
	return ErrCatalogExhausted
}

// RemoveRow deletes row i. The last remaining row cannot be removed.
func (e *MatrixEditor) RemoveRow(i int) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	if len(e.rows) == 1 {
		return ErrLastRow
	}
	e.rows = append(e.rows[:i], e.rows[i+1:]...)
	return nil
}

// AvailableFor lists the catalog entries row i may select: those not used by
// any other row, plus row i's own current selection.
func (e *MatrixEditor) AvailableFor(i int) []domain.PredefinedServiceCharge {
	if e.checkIndex(i) != nil {
		return nil
	}
	used := e.usedIDs(i)
	own := e.rows[i].PredefinedServiceChargeID
	out := make([]domain.PredefinedServiceCharge, 0, e.catalog.Len())
	for _, p := range e.catalog.list() {
		if !used[p.ID] || p.ID == own {
			out = append(out, p)
		}
	}
	return out
}

// SetChargeType points row i at catalog id. The id must be in AvailableFor(i).
func (e *MatrixEditor) SetChargeType(i int, id int64) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	for _, p := range e.AvailableFor(i) {
		if p.ID == id {
			e.rows[i].PredefinedServiceChargeID = p.ID
			e.rows[i].ServiceType = p.Name
			return nil
		}
	}
	return &domain.ErrValidation{
		Field:   fmt.Sprintf("service_charges[%d].predefined_service_charge_id", i),
		Message: fmt.Sprintf("service charge %d is not available for this row", id),
	}
}

// SetAmount parses value as a non-negative decimal and upserts it for t.
// Input that is not a number, or is negative, is stored as 0.
func (e *MatrixEditor) SetAmount(i int, t domain.FlatType, value string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	if !t.Valid() {
		return &domain.ErrValidation{Field: "flat_type", Message: fmt.Sprintf("unknown flat type %q", t)}
	}
	amount := parseAmount(value)
	row := &e.rows[i]
	for j := range row.Amounts {
		if row.Amounts[j].FlatType == t {
			row.Amounts[j].Amount = domain.Amount(amount)
			return nil
		}
	}
	row.Amounts = append(row.Amounts, domain.ChargeAmount{FlatType: t, Amount: domain.Amount(amount)})
	return nil
}

func parseAmount(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Totals sums every row's amount per flat type.
func (e *MatrixEditor) Totals() map[domain.FlatType]float64 {
	return Totals(e.rows)
}

// Totals sums the amount per flat type across rows.
func Totals(rows []domain.ServiceCharge) map[domain.FlatType]float64 {
	totals := make(map[domain.FlatType]float64, len(flatTypesOrder))
	for _, t := range flatTypesOrder {
		totals[t] = 0
	}
	for _, row := range rows {
		for _, a := range row.Amounts {
			if a.FlatType.Valid() {
				totals[a.FlatType] += a.Amount.Float()
			}
		}
	}
	return totals
}

// Submit validates the matrix and returns the rows to save. Every row must
// reference a catalog id. Each emitted row has exactly one amount per flat
// type, in canonical order, with missing types set to 0.
func (e *MatrixEditor) Submit() ([]domain.ServiceCharge, error) {
	return normalize(e.rows)
}

// normalize applies the submit rules to rows.
func normalize(rows []domain.ServiceCharge) ([]domain.ServiceCharge, error) {
	if len(rows) == 0 {
		return nil, &domain.ErrValidation{Field: "service_charges", Message: "At least one service charge is required"}
	}
	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if row.PredefinedServiceChargeID <= 0 {
			return nil, &domain.ErrValidation{Field: "service_charges", Message: "Please select all service types"}
		}
		if seen[row.PredefinedServiceChargeID] {
			return nil, &domain.ErrValidation{
				Field:   "service_charges",
				Message: fmt.Sprintf("service charge %d appears more than once", row.PredefinedServiceChargeID),
			}
		}
		seen[row.PredefinedServiceChargeID] = true
	}

	out := make([]domain.ServiceCharge, 0, len(rows))
	for _, row := range rows {
		byType := make(map[domain.FlatType]domain.Amount, len(row.Amounts))
		for _, a := range row.Amounts {
			if a.FlatType.Valid() {
				byType[a.FlatType] = a.Amount
			}
		}
		normalized := domain.ServiceCharge{
			PredefinedServiceChargeID: row.PredefinedServiceChargeID,
			ServiceType:               row.ServiceType,
			Amounts:                   make([]domain.ChargeAmount, 0, len(flatTypesOrder)),
		}
		for _, t := range flatTypesOrder {
			normalized.Amounts = append(normalized.Amounts, domain.ChargeAmount{FlatType: t, Amount: byType[t]})
		}
		out = append(out, normalized)
	}
	return out, nil
}

func (e *MatrixEditor) usedIDs(except int) map[int64]bool {
	used := make(map[int64]bool, len(e.rows))
	for i, row := range e.rows {
		if i != except && row.PredefinedServiceChargeID > 0 {
			used[row.PredefinedServiceChargeID] = true
		}
	}
	return used
}

func (e *MatrixEditor) checkIndex(i int) error {
	if i < 0 || i >= len(e.rows) {
		return fmt.Errorf("%w: %d", ErrRowIndex, i)
	}
	return nil
}

func cloneRows(rows []domain.ServiceCharge) []domain.ServiceCharge {
	out := make([]domain.ServiceCharge, len(rows))
	for i, row := range rows {
		out[i] = row
		out[i].Amounts = append([]domain.ChargeAmount(nil), row.Amounts...)
	}
	return out
}
