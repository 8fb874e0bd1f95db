package billing

import (
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses a backend timestamp. Unparseable input is the zero
// time, so it never wins a "latest" comparison against a real timestamp.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type dedupKey struct {
	chargeID int64
	flatID   int64
	flatType domain.FlatType
}

// latestBy keeps, per key, the element with the strictly latest created_at.
// Output order is the order in which each key was first seen.
func latestBy[T any](items []T, key func(T) dedupKey, createdAt func(T) string) []T {
	index := make(map[dedupKey]int, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, it)
			continue
		}
		if parseTimestamp(createdAt(it)).After(parseTimestamp(createdAt(out[i]))) {
			out[i] = it
		}
	}
	return out
}

// DedupeExtras keeps one extra per (flat, catalog id): the most recently
// created one.
func DedupeExtras(extras []domain.UserServiceCharge) []domain.UserServiceCharge {
	return latestBy(extras,
		func(u domain.UserServiceCharge) dedupKey {
			return dedupKey{chargeID: u.PredefinedServiceChargeID, flatID: u.FlatID}
		},
		func(u domain.UserServiceCharge) string { return u.CreatedAt },
	)
}

// DedupeMatrixRecords keeps one record per (catalog id, flat type): the most
// recently created one.
func DedupeMatrixRecords(records []domain.ServiceChargeRecord) []domain.ServiceChargeRecord {
	return latestBy(records,
		func(r domain.ServiceChargeRecord) dedupKey {
			return dedupKey{chargeID: r.PredefinedServiceChargeID, flatType: r.FlatType}
		},
		func(r domain.ServiceChargeRecord) string { return r.CreatedAt },
	)
}

// MatrixFromRecords folds per-type records into matrix rows, one row per
// catalog id in first-seen order. Records are deduplicated first.
func MatrixFromRecords(records []domain.ServiceChargeRecord, catalog *Catalog) []domain.ServiceCharge {
	records = DedupeMatrixRecords(records)
	index := make(map[int64]int)
	var rows []domain.ServiceCharge
	for _, r := range records {
		i, ok := index[r.PredefinedServiceChargeID]
		if !ok {
			name := catalog.Name(r.PredefinedServiceChargeID)
			if r.Predefined != nil && r.Predefined.Name != "" {
				name = r.Predefined.Name
			}
			index[r.PredefinedServiceChargeID] = len(rows)
			i = len(rows)
			rows = append(rows, domain.ServiceCharge{
				PredefinedServiceChargeID: r.PredefinedServiceChargeID,
				ServiceType:               name,
			})
		}
		rows[i].Amounts = append(rows[i].Amounts, domain.ChargeAmount{FlatType: r.FlatType, Amount: r.Amount})
	}
	return rows
}

// BasicCharge sums the deduplicated matrix records for one flat type.
func BasicCharge(records []domain.ServiceChargeRecord, t domain.FlatType) float64 {
	var total float64
	for _, r := range DedupeMatrixRecords(records) {
		if r.FlatType == t {
			total += r.Amount.Float()
		}
	}
	return total
}

// ExtraCharge sums a flat's deduplicated extras.
func ExtraCharge(extras []domain.UserServiceCharge) float64 {
	var total float64
	for _, u := range DedupeExtras(extras) {
		total += u.Amount.Float()
	}
	return total
}
