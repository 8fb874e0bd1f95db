package billing

import "github.com/boddenberg/flatwise-bfa-go/internal/domain"

const (
	msgTransferDataMissing = "Cannot transfer: Required data missing."
	msgNotAssignedToOwner  = "This bill is not assigned to the owner."
	msgTransferNotPending  = "Only pending bills can be transferred."
	assignedToUnknown      = "N/A"
)

// CanTransfer reports whether responsibility for b may move from the flat's
// owner to its first resident. parties is nil when the flat's metadata has
// not been loaded, which makes the answer false.
func CanTransfer(b domain.Bill, parties *domain.FlatParties) bool {
	if parties == nil || parties.Owner == nil || parties.Owner.ID <= 0 {
		return false
	}
	resident := parties.FirstResident()
	if resident == nil {
		return false
	}
	return b.UserID == parties.Owner.ID && b.Status == domain.BillPending
}

// PrepareTransfer runs the transfer preconditions and returns the assign
// request to send. Any failure is an ErrPrecondition and no request should
// be made.
func PrepareTransfer(b domain.Bill, parties *domain.FlatParties) (domain.AssignRequest, error) {
	var owner *domain.User
	if parties != nil {
		owner = parties.Owner
	}
	resident := parties.FirstResident()
	if owner == nil || owner.ID <= 0 || resident == nil {
		return domain.AssignRequest{}, &domain.ErrPrecondition{Message: msgTransferDataMissing}
	}
	if b.UserID != owner.ID {
		return domain.AssignRequest{}, &domain.ErrPrecondition{Message: msgNotAssignedToOwner}
	}
	if b.Status != domain.BillPending {
		return domain.AssignRequest{}, &domain.ErrPrecondition{Message: msgTransferNotPending}
	}
	return domain.AssignRequest{OwnerID: owner.ID, ResidentID: resident.ID}, nil
}

// AssignedTo names the party currently responsible for b.
func AssignedTo(b domain.Bill, parties *domain.FlatParties) string {
	if parties == nil {
		return assignedToUnknown
	}
	if parties.Owner != nil && b.UserID == parties.Owner.ID {
		return parties.Owner.Fullname
	}
	if r := parties.FirstResident(); r != nil {
		return r.Fullname
	}
	return assignedToUnknown
}
