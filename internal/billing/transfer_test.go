package billing

import (
	"testing"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parties(ownerID, residentID int64) *domain.FlatParties {
	p := &domain.FlatParties{}
	if ownerID > 0 {
		p.Owner = &domain.User{ID: ownerID, Fullname: "Olivia Owner"}
	}
	if residentID > 0 {
		p.Residents = domain.FlatResidents{{Resident: &domain.Resident{ID: residentID, Fullname: "Ravi Resident"}}}
	}
	return p
}

func TestCanTransfer(t *testing.T) {
	pending := domain.Bill{ID: 1, UserID: 10, FlatID: 5, Status: domain.BillPending}
	paid := pending
	paid.Status = domain.BillPaid

	tests := []struct {
		name    string
		bill    domain.Bill
		parties *domain.FlatParties
		want    bool
	}{
		{"eligible", pending, parties(10, 20), true},
		{"metadata not loaded", pending, nil, false},
		{"no owner", pending, parties(0, 20), false},
		{"no resident", pending, parties(10, 0), false},
		{"already with resident", domain.Bill{ID: 1, UserID: 20, Status: domain.BillPending}, parties(10, 20), false},
		{"paid", paid, parties(10, 20), false},
		{"unknown status", domain.Bill{ID: 1, UserID: 10, Status: "OVERDUE"}, parties(10, 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransfer(tt.bill, tt.parties))
		})
	}
}

func TestPrepareTransfer(t *testing.T) {
	bill := domain.Bill{ID: 1, UserID: 10, Status: domain.BillPending}

	req, err := PrepareTransfer(bill, parties(10, 20))
	require.NoError(t, err)
	assert.Equal(t, domain.AssignRequest{OwnerID: 10, ResidentID: 20}, req)

	var pre *domain.ErrPrecondition

	_, err = PrepareTransfer(bill, parties(10, 0))
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Cannot transfer: Required data missing.", pre.Message)

	_, err = PrepareTransfer(bill, nil)
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Cannot transfer: Required data missing.", pre.Message)

	_, err = PrepareTransfer(domain.Bill{ID: 1, UserID: 99, Status: domain.BillPending}, parties(10, 20))
	require.ErrorAs(t, err, &pre)
	assert.Contains(t, pre.Message, "not assigned to the owner")

	_, err = PrepareTransfer(domain.Bill{ID: 1, UserID: 10, Status: domain.BillPaid}, parties(10, 20))
	require.ErrorAs(t, err, &pre)
}

func TestPrepareTransfer_OnlyFirstAssociationCounts(t *testing.T) {
	p := parties(10, 0)
	p.Residents = domain.FlatResidents{
		{ID: 1, Resident: nil},
		{ID: 2, Resident: &domain.Resident{ID: 31}},
	}
	bill := domain.Bill{ID: 1, UserID: 10, Status: domain.BillPending}

	_, err := PrepareTransfer(bill, p)
	var pre *domain.ErrPrecondition
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Cannot transfer: Required data missing.", pre.Message)
	assert.False(t, CanTransfer(bill, p))

	p.Residents = domain.FlatResidents{
		{ID: 2, Resident: &domain.Resident{ID: 31}},
		{ID: 3, Resident: &domain.Resident{ID: 32}},
	}
	req, err := PrepareTransfer(bill, p)
	require.NoError(t, err)
	assert.Equal(t, int64(31), req.ResidentID)
}

func TestAssignedTo(t *testing.T) {
	assert.Equal(t, "Olivia Owner", AssignedTo(domain.Bill{UserID: 10}, parties(10, 20)))
	assert.Equal(t, "Ravi Resident", AssignedTo(domain.Bill{UserID: 20}, parties(10, 20)))
	assert.Equal(t, "N/A", AssignedTo(domain.Bill{UserID: 20}, parties(10, 0)))
	assert.Equal(t, "N/A", AssignedTo(domain.Bill{UserID: 20}, nil))
}
