package service

import (
	"context"
	"strconv"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/onboarding"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var inviteTracer = otel.Tracer("service/invitations")

// InvitationOutcome is the result of sending a batch.
type InvitationOutcome struct {
	Batch  *onboarding.Batch      `json:"batch"`
	Counts onboarding.Counts      `json:"counts"`
	Wizard onboarding.WizardState `json:"wizard"`
}

// InvitationService runs the owner/renter invitation wizard.
type InvitationService struct {
	users   port.UserAPI
	store   port.BatchStore
	state   *StateStore
	metrics *observability.Metrics
	logger  *zap.Logger
	sending latchSet
	now     func() time.Time
}

// NewInvitationService creates an invitation service.
func NewInvitationService(users port.UserAPI, store port.BatchStore, state *StateStore, metrics *observability.Metrics, logger *zap.Logger) *InvitationService {
	return &InvitationService{users: users, store: store, state: state, metrics: metrics, logger: logger, now: time.Now}
}

// Submit invites entries with the role of step. The batch is persisted
// before it is sent so failed items survive for a manual retry. The wizard
// advances whether or not every invitation succeeded.
func (s *InvitationService) Submit(ctx context.Context, societyID int64, step onboarding.Step, entries []onboarding.Entry) (*InvitationOutcome, error) {
	ctx, span := inviteTracer.Start(ctx, "InvitationService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("step", string(step)), attribute.Int("entries", len(entries)))

	role, err := step.Role()
	if err != nil {
		return nil, err
	}
	release, err := s.sending.acquire("invitation", strconv.FormatInt(societyID, 10))
	if err != nil {
		return nil, err
	}
	defer release()

	batch, err := onboarding.NewBatch(societyID, role, entries, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveBatch(ctx, batch); err != nil {
		return nil, err
	}

	counts, err := s.send(ctx, batch)
	if err != nil {
		return nil, err
	}

	wizard, err := s.store.GetWizard(ctx, societyID)
	if err != nil {
		return nil, err
	}
	w := onboarding.RestoreWizard(*wizard)
	if w.Current() == step {
		if err := w.Complete(step, onboarding.StepResult{Sent: counts.Sent, Failed: counts.Failed}); err != nil {
			return nil, err
		}
		if err := s.store.SaveWizard(ctx, societyID, w.State()); err != nil {
			return nil, err
		}
	}

	return &InvitationOutcome{Batch: batch, Counts: counts, Wizard: w.State()}, nil
}

// Retry resends the items of a batch that are not sent yet.
func (s *InvitationService) Retry(ctx context.Context, societyID int64, batchID string) (*InvitationOutcome, error) {
	ctx, span := inviteTracer.Start(ctx, "InvitationService.Retry")
	defer span.End()
	span.SetAttributes(attribute.String("batch.id", batchID))

	release, err := s.sending.acquire("invitation", strconv.FormatInt(societyID, 10))
	if err != nil {
		return nil, err
	}
	defer release()

	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.SocietyID != societyID {
		return nil, &domain.ErrNotFound{Resource: "invitation batch", ID: batchID}
	}
	if batch.Complete() {
		return nil, &domain.ErrPrecondition{Message: "every invitation in this batch was already sent"}
	}

	counts, err := s.send(ctx, batch)
	if err != nil {
		return nil, err
	}
	wizard, err := s.store.GetWizard(ctx, societyID)
	if err != nil {
		return nil, err
	}
	return &InvitationOutcome{Batch: batch, Counts: counts, Wizard: *wizard}, nil
}

// send posts the outgoing items and records the partition. A call that
// fails as a whole marks every outgoing item failed.
func (s *InvitationService) send(ctx context.Context, batch *onboarding.Batch) (onboarding.Counts, error) {
	before := len(batch.Outgoing())
	res, err := s.users.InviteUsers(ctx, batch.Request())

	var counts onboarding.Counts
	if err != nil {
		s.metrics.IncrUpstreamError("InviteUsers")
		s.logger.Warn("invitation batch failed",
			zap.String("batch_id", batch.ID),
			zap.Int("items", before),
			zap.Error(err),
		)
		counts = batch.FailAll(err, s.now())
	} else {
		counts = batch.Apply(*res, s.now())
	}
	if err := s.store.SaveBatch(ctx, batch); err != nil {
		return onboarding.Counts{}, err
	}

	failedNow := len(batch.Outgoing())
	s.metrics.AddInvites(before-failedNow, failedNow)
	s.state.Publish(Event{Kind: EventInvitesSent, SocietyID: batch.SocietyID})
	s.logger.Info("invitations sent",
		zap.String("batch_id", batch.ID),
		zap.Int("sent", counts.Sent),
		zap.Int("failed", counts.Failed),
	)
	return counts, nil
}

// Batches lists a society's batches, newest first.
func (s *InvitationService) Batches(ctx context.Context, societyID int64) ([]onboarding.Batch, error) {
	return s.store.ListBatches(ctx, societyID)
}

// Wizard returns the society's wizard progress.
func (s *InvitationService) Wizard(ctx context.Context, societyID int64) (*onboarding.WizardState, error) {
	return s.store.GetWizard(ctx, societyID)
}

// Skip advances past step without inviting anyone.
func (s *InvitationService) Skip(ctx context.Context, societyID int64, step onboarding.Step) (*onboarding.WizardState, error) {
	state, err := s.store.GetWizard(ctx, societyID)
	if err != nil {
		return nil, err
	}
	w := onboarding.RestoreWizard(*state)
	if err := w.Skip(step); err != nil {
		return nil, err
	}
	next := w.State()
	if err := s.store.SaveWizard(ctx, societyID, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Users lists a society's owners and residents.
func (s *InvitationService) Users(ctx context.Context, societyID int64) (*domain.SocietyUsers, error) {
	ctx, span := inviteTracer.Start(ctx, "InvitationService.Users")
	defer span.End()
	return s.users.ListSocietyUsers(ctx, societyID)
}

// Cancel revokes a user's membership or pending invitation.
func (s *InvitationService) Cancel(ctx context.Context, userID int64) error {
	ctx, span := inviteTracer.Start(ctx, "InvitationService.Cancel")
	defer span.End()

	if userID <= 0 {
		return &domain.ErrValidation{Field: "id", Message: "is required"}
	}
	if err := s.users.CancelUser(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user cancelled", zap.Int64("user_id", userID))
	return nil
}
