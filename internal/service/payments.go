package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/flatwise-bfa-go/internal/billing"
	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"
	"github.com/boddenberg/flatwise-bfa-go/internal/validate"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var paymentTracer = otel.Tracer("service/payments")

const msgMissingFlatOrSociety = "Missing flat or society information"

// PaymentService starts gateway payments for bills and subscriptions.
type PaymentService struct {
	api    port.PaymentAPI
	bills  *BillService
	logger *zap.Logger
}

// NewPaymentService creates a payment service.
func NewPaymentService(api port.PaymentAPI, bills *BillService, logger *zap.Logger) *PaymentService {
	return &PaymentService{api: api, bills: bills, logger: logger}
}

// InitiateBill starts the payment of one bill owed by the session user.
// Managers may also pay any bill of their society.
func (s *PaymentService) InitiateBill(ctx context.Context, sess *Session, billID int64) (*domain.PaymentRedirect, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.InitiateBill")
	defer span.End()
	span.SetAttributes(attribute.Int64("bill.id", billID))

	q := BillQuery{Scope: ScopeUser, SocietyID: sess.SocietyID(), UserID: sess.User.ID}
	bill, err := s.bills.Find(ctx, q, billID)
	var nf *domain.ErrNotFound
	if err != nil && sess.CanManage() && errors.As(err, &nf) {
		q.Scope, q.CanManage = ScopeSociety, true
		bill, err = s.bills.Find(ctx, q, billID)
	}
	if err != nil {
		return nil, err
	}

	req := domain.PaymentInitiateRequest{
		UserID:       sess.User.ID,
		FlatID:       bill.EffectiveFlatID(),
		BillID:       bill.ID,
		SocietyID:    bill.EffectiveSocietyID(),
		Amount:       bill.TotalAmount.Float(),
		PaymentMonth: bill.BillMonth,
	}
	if req.FlatID <= 0 || req.SocietyID <= 0 {
		return nil, &domain.ErrValidation{Field: "bill", Message: msgMissingFlatOrSociety}
	}
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}

	redirect, err := s.api.InitiatePayment(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment initiated",
		zap.Int64("bill_id", bill.ID),
		zap.Int64("user_id", sess.User.ID),
		zap.Float64("amount", req.Amount),
	)
	return redirect, nil
}

// PaymentQuery identifies a payment history and its month filter.
type PaymentQuery struct {
	Scope     BillScope
	SocietyID int64
	UserID    int64
	CanManage bool
	Month     *billing.MonthFilter
}

// History lists service charge payments, society-wide or for one user,
// filtered by payment month. Each row's id is what Resume takes.
func (s *PaymentService) History(ctx context.Context, q PaymentQuery) (*domain.PaymentHistory, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.History")
	defer span.End()
	span.SetAttributes(attribute.String("scope", string(q.Scope)), attribute.Int64("society.id", q.SocietyID))

	if q.SocietyID <= 0 || q.UserID <= 0 {
		return nil, &domain.ErrValidation{Field: "society_id", Message: "Missing society or user ID"}
	}

	var (
		payments []domain.ServiceChargePayment
		err      error
	)
	if q.Scope == ScopeSociety {
		if !q.CanManage {
			return nil, &domain.ErrForbidden{Action: "list society payments"}
		}
		payments, err = s.api.ListSocietyPayments(ctx, q.SocietyID)
	} else {
		payments, err = s.api.ListUserPayments(ctx, q.SocietyID, q.UserID)
	}
	if err != nil {
		return nil, err
	}

	filtered := billing.FilterPayments(payments, q.Month)
	history := &domain.PaymentHistory{Payments: make([]domain.ServiceChargePayment, 0, len(filtered))}
	for _, p := range filtered {
		history.Payments = append(history.Payments, p)
		history.TotalAmount += p.Amount.Float()
	}
	return history, nil
}

// Resume fetches a fresh gateway redirect for an existing payment.
func (s *PaymentService) Resume(ctx context.Context, paymentID string) (*domain.PaymentRedirect, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.Resume")
	defer span.End()

	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, &domain.ErrValidation{Field: "payment_id", Message: "is required"}
	}
	return s.api.ResumePayment(ctx, paymentID)
}

// InitiateSubscription starts the society's subscription payment.
func (s *PaymentService) InitiateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.PaymentRedirect, error) {
	ctx, span := paymentTracer.Start(ctx, "PaymentService.InitiateSubscription")
	defer span.End()

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.PromoCode = strings.TrimSpace(req.PromoCode)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	redirect, err := s.api.InitiateSubscription(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscription initiated", zap.Int64("society_id", req.SocietyID))
	return redirect, nil
}
