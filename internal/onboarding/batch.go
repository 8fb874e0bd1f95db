package onboarding

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/validate"

	"github.com/google/uuid"
)

// ItemStatus is the delivery state of one invitation in a batch.
type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemSent    ItemStatus = "sent"
	ItemFailed  ItemStatus = "failed"
)

// reasonNoOutcome marks an item the backend neither accepted nor rejected.
const reasonNoOutcome = "no result returned for this invitation"

// Entry is one person to invite.
type Entry struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	FlatID *int64 `json:"flat_id,omitempty"`
}

// Item is an entry plus its delivery state.
type Item struct {
	Entry
	Status       ItemStatus `json:"status"`
	Error        string     `json:"error,omitempty"`
	Attempts     int        `json:"attempts"`
	UserID       int64      `json:"user_id,omitempty"`
	InvitationID int64      `json:"invitation_id,omitempty"`
}

// Batch is a submitted set of invitations. Items that were sent are never
// resent; a retry only carries the items that are not sent yet.
type Batch struct {
	ID        string      `json:"id"`
	SocietyID int64       `json:"society_id"`
	Role      domain.Role `json:"role_id"`
	Items     []Item      `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Counts summarises a batch by item status.
type Counts struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// NewBatch validates entries and creates a batch with every item pending.
// Emails are compared case-insensitively and must be unique in a batch.
func NewBatch(societyID int64, role domain.Role, entries []Entry, now time.Time) (*Batch, error) {
	if societyID <= 0 {
		return nil, &domain.ErrValidation{Field: "society_id", Message: "is required"}
	}
	if len(entries) == 0 {
		return nil, &domain.ErrValidation{Field: "users", Message: "at least one invitation is required"}
	}

	seen := make(map[string]int, len(entries))
	items := make([]Item, 0, len(entries))
	for i, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		e.Email = strings.TrimSpace(e.Email)
		if err := validate.Struct(&e); err != nil {
			var verr *domain.ErrValidation
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("users[%d].%s", i, verr.Field)
			}
			return nil, err
		}
		key := strings.ToLower(e.Email)
		if j, dup := seen[key]; dup {
			return nil, &domain.ErrValidation{
				Field:   fmt.Sprintf("users[%d].email", i),
				Message: fmt.Sprintf("duplicates users[%d]", j),
			}
		}
		seen[key] = i
		items = append(items, Item{Entry: e, Status: ItemPending})
	}

	return &Batch{
		ID:        uuid.New().String(),
		SocietyID: societyID,
		Role:      role,
		Items:     items,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Outgoing returns the indexes of items still to be sent.
func (b *Batch) Outgoing() []int {
	var out []int
	for i, it := range b.Items {
		if it.Status != ItemSent {
			out = append(out, i)
		}
	}
	return out
}

// RetrySubset returns the entries a retry would resend.
func (b *Batch) RetrySubset() []Entry {
	idx := b.Outgoing()
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, b.Items[i].Entry)
	}
	return out
}

// Request builds the bulk invite body for the outgoing items.
func (b *Batch) Request() domain.BulkInviteRequest {
	req := domain.BulkInviteRequest{SocietyID: b.SocietyID}
	for _, i := range b.Outgoing() {
		it := b.Items[i]
		req.Users = append(req.Users, domain.InviteUser{
			Fullname: it.Name,
			Email:    it.Email,
			RoleID:   b.Role,
			FlatID:   it.FlatID,
		})
	}
	return req
}

// Apply records the backend's partition for the items that were outgoing.
// An outgoing item named in neither list is marked failed.
func (b *Batch) Apply(res domain.BulkInviteResult, now time.Time) Counts {
	sent := make(map[string]domain.InviteSuccess, len(res.Successful))
	for _, s := range res.Successful {
		sent[strings.ToLower(s.Email)] = s
	}
	failed := make(map[string]string, len(res.Failed))
	for _, f := range res.Failed {
		reason := f.Reason
		if reason == "" {
			reason = "invitation rejected"
		}
		failed[strings.ToLower(f.Email)] = reason
	}

	for _, i := range b.Outgoing() {
		it := &b.Items[i]
		it.Attempts++
		key := strings.ToLower(it.Email)
		if s, ok := sent[key]; ok {
			it.Status = ItemSent
			it.Error = ""
			it.UserID = s.ID
			it.InvitationID = s.InvitationID
			continue
		}
		it.Status = ItemFailed
		if reason, ok := failed[key]; ok {
			it.Error = reason
		} else {
			it.Error = reasonNoOutcome
		}
	}
	b.UpdatedAt = now.UTC()
	return b.Counts()
}

// FailAll marks every outgoing item failed after the whole call errored.
func (b *Batch) FailAll(err error, now time.Time) Counts {
	for _, i := range b.Outgoing() {
		it := &b.Items[i]
		it.Attempts++
		it.Status = ItemFailed
		it.Error = err.Error()
	}
	b.UpdatedAt = now.UTC()
	return b.Counts()
}

// Failed returns the failed items.
func (b *Batch) Failed() []Item {
	var out []Item
	for _, it := range b.Items {
		if it.Status == ItemFailed {
			out = append(out, it)
		}
	}
	return out
}

// Counts tallies items by status.
func (b *Batch) Counts() Counts {
	var c Counts
	for _, it := range b.Items {
		switch it.Status {
		case ItemSent:
			c.Sent++
		case ItemFailed:
			c.Failed++
		default:
			c.Pending++
		}
	}
	return c
}

// Complete reports whether every item was sent.
func (b *Batch) Complete() bool {
	return len(b.Outgoing()) == 0
}
