package onboarding

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestWizard_FullPath(t *testing.T) {
	w := NewWizard()
	assert.Equal(t, StepOwners, w.Current())

	require.NoError(t, w.Complete(StepOwners, StepResult{Sent: 2, Failed: 1}))
	assert.Equal(t, StepRenters, w.Current(), "partial failure still advances")

	require.NoError(t, w.Complete(StepRenters, StepResult{Sent: 1}))
	assert.True(t, w.Done())

	s := w.State()
	assert.True(t, s.OwnersInvited)
	assert.True(t, s.RentersInvited)
	assert.Equal(t, 1, s.Results[StepOwners].Failed)
}

func TestWizard_SkipBoth(t *testing.T) {
	w := NewWizard()
	require.NoError(t, w.Skip(StepOwners))
	require.NoError(t, w.Skip(StepRenters))

	s := w.State()
	assert.True(t, w.Done())
	assert.False(t, s.OwnersInvited)
	assert.False(t, s.RentersInvited)
	assert.Equal(t, []Step{StepOwners, StepRenters}, s.Skipped)

	var pre *domain.ErrPrecondition
	assert.ErrorAs(t, w.Skip(StepRenters), &pre)
}

func TestWizard_OutOfOrder(t *testing.T) {
	w := NewWizard()
	var pre *domain.ErrPrecondition
	assert.ErrorAs(t, w.Complete(StepRenters, StepResult{}), &pre)
	assert.Equal(t, StepOwners, w.Current())
}

func TestRestoreWizard(t *testing.T) {
	w := RestoreWizard(WizardState{OwnersInvited: true, Current: StepRenters})
	require.NoError(t, w.Skip(StepRenters))
	assert.True(t, w.State().OwnersInvited)
	assert.True(t, w.Done())
}

func TestStepRole(t *testing.T) {
	r, err := StepOwners.Role()
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, r)

	r, err = StepRenters.Role()
	require.NoError(t, err)
	assert.Equal(t, domain.RoleResident, r)

	_, err = StepDone.Role()
	assert.Error(t, err)
}

func entries() []Entry {
	return []Entry{
		{Name: "Asha", Email: "asha@example.com"},
		{Name: "Bilal", Email: "bilal@example.com"},
		{Name: "Chen", Email: "chen@example.com"},
	}
}

func TestNewBatch_Validation(t *testing.T) {
	tests := []struct {
		name      string
		societyID int64
		entries   []Entry
		field     string
	}{
		{"no society", 0, entries(), "society_id"},
		{"no entries", 1, nil, "users"},
		{"bad email", 1, []Entry{{Name: "A", Email: "not-an-email"}}, "users[0].email"},
		{"missing name", 1, []Entry{{Name: " ", Email: "a@example.com"}}, "users[0].name"},
		{"duplicate email", 1, []Entry{{Name: "A", Email: "a@example.com"}, {Name: "B", Email: "A@example.com"}}, "users[1].email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBatch(tt.societyID, domain.RoleOwner, tt.entries, now)
			var verr *domain.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestBatch_ApplyPartitionsAndRetriesFailedSubset(t *testing.T) {
	b, err := NewBatch(9, domain.RoleOwner, entries(), now)
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)

	req := b.Request()
	assert.Equal(t, int64(9), req.SocietyID)
	require.Len(t, req.Users, 3)
	assert.Equal(t, domain.RoleOwner, req.Users[0].RoleID)

	counts := b.Apply(domain.BulkInviteResult{
		Successful: []domain.InviteSuccess{{ID: 100, Email: "ASHA@example.com", InvitationID: 7}},
		Failed:     []domain.InviteFailure{{Email: "bilal@example.com", Reason: "already invited"}},
	}, now)

	assert.Equal(t, Counts{Sent: 1, Failed: 2}, counts)
	assert.Equal(t, "already invited", b.Items[1].Error)
	assert.Equal(t, reasonNoOutcome, b.Items[2].Error)
	assert.Equal(t, int64(7), b.Items[0].InvitationID)

	retry := b.Request()
	require.Len(t, retry.Users, 2, "sent items are not resent")
	assert.Equal(t, "bilal@example.com", retry.Users[0].Email)
	assert.Equal(t, "chen@example.com", retry.Users[1].Email)
	subset := b.RetrySubset()
	require.Len(t, subset, 2)
	assert.Equal(t, "Bilal", subset[0].Name)

	counts = b.Apply(domain.BulkInviteResult{
		Successful: []domain.InviteSuccess{{ID: 101, Email: "chen@example.com"}},
		Failed:     []domain.InviteFailure{{Email: "bilal@example.com"}},
	}, now.Add(time.Minute))

	assert.Equal(t, Counts{Sent: 2, Failed: 1}, counts)
	assert.Equal(t, 1, b.Items[0].Attempts)
	assert.Equal(t, 2, b.Items[1].Attempts)
	assert.Len(t, b.Failed(), 1)
	assert.False(t, b.Complete())
}

func TestBatch_FailAll(t *testing.T) {
	b, err := NewBatch(9, domain.RoleResident, entries()[:2], now)
	require.NoError(t, err)

	counts := b.FailAll(errors.New("HTTP Error: 502 Bad Gateway"), now)

	assert.Equal(t, Counts{Failed: 2}, counts)
	assert.Equal(t, "HTTP Error: 502 Bad Gateway", b.Items[0].Error)
}
