// Package billing holds the charge matrix, bill aggregation, transfer
// eligibility and bill summary rules. Everything here is pure: no I/O,
// no logging, safe to call from any goroutine on values it owns.
package billing

import "github.com/boddenberg/flatwise-bfa-go/internal/domain"

// fallbackChargeName labels a catalog id the catalog does not know.
const fallbackChargeName = "Service Charge"

// Catalog is an ordered, read-only set of predefined service charges.
type Catalog struct {
	entries []domain.PredefinedServiceCharge
	byID    map[int64]int
}

// NewCatalog indexes entries. Later duplicates of an id are ignored.
func NewCatalog(entries []domain.PredefinedServiceCharge) *Catalog {
	c := &Catalog{byID: make(map[int64]int, len(entries))}
	for _, e := range entries {
		if _, dup := c.byID[e.ID]; dup {
			continue
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of the catalog in its original order.
func (c *Catalog) Entries() []domain.PredefinedServiceCharge {
	if c == nil {
		return nil
	}
	out := make([]domain.PredefinedServiceCharge, len(c.entries))
	copy(out, c.entries)
	return out
}

// IDs returns the catalog ids in order.
func (c *Catalog) IDs() []int64 {
	ids := make([]int64, 0, c.Len())
	for _, e := range c.list() {
		ids = append(ids, e.ID)
	}
	return ids
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id int64) (domain.PredefinedServiceCharge, bool) {
	if c == nil {
		return domain.PredefinedServiceCharge{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return domain.PredefinedServiceCharge{}, false
	}
	return c.entries[i], true
}

// Name returns the charge name for id, or a generic label.
func (c *Catalog) Name(id int64) string {
	if e, ok := c.Lookup(id); ok && e.Name != "" {
		return e.Name
	}
	return fallbackChargeName
}

func (c *Catalog) list() []domain.PredefinedServiceCharge {
	if c == nil {
		return nil
	}
	return c.entries
}
