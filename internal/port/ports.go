// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/onboarding"
)

//go:generate mockgen -destination=mocks/mock_ports.go -package=mocks github.com/boddenberg/flatwise-bfa-go/internal/port UserAPI

// AuthAPI authenticates against the society backend.
type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	AcceptInvitation(ctx context.Context, req domain.AcceptInvitationRequest) error
}

// ChargeAPI reads and writes the charge catalog, matrices and flat extras.
type ChargeAPI interface {
	ListPredefinedCharges(ctx context.Context) ([]domain.PredefinedServiceCharge, error)
	ListServiceCharges(ctx context.Context) ([]domain.ServiceChargeRecord, error)
	GetSocietyServiceCharges(ctx context.Context, societyID int64) (*domain.SocietyServiceCharges, error)
	CreateServiceCharge(ctx context.Context, rec domain.ServiceChargeRecord) (*domain.ServiceChargeRecord, error)
	BulkSaveServiceCharges(ctx context.Context, req domain.BulkServiceChargeRequest) error
	AddUserServiceCharge(ctx context.Context, req domain.NewUserServiceCharge) (*domain.UserServiceCharge, error)
	DeleteUserServiceCharge(ctx context.Context, id int64) error
}

// FlatAPI manages flats.
type FlatAPI interface {
	ListFlats(ctx context.Context) ([]domain.Flat, error)
	ListSocietyFlats(ctx context.Context, societyID int64) ([]domain.FlatDetail, error)
	GetFlatParties(ctx context.Context, flatID int64) (*domain.FlatParties, error)
	CreateFlat(ctx context.Context, societyID int64, req domain.NewFlatRequest) (*domain.Flat, error)
	UpdateFlat(ctx context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error)
	ReplaceFlat(ctx context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error)
	DeleteFlat(ctx context.Context, flatID int64) error
	BulkCreateFlats(ctx context.Context, req domain.BulkFlatRequest) (*domain.BulkFlatResult, error)
}

// BillAPI lists bills and reassigns them.
type BillAPI interface {
	ListSocietyBills(ctx context.Context, societyID int64) ([]domain.Bill, error)
	ListUserBills(ctx context.Context, societyID, userID int64) ([]domain.Bill, error)
	AssignBill(ctx context.Context, billID int64, req domain.AssignRequest) (*domain.Bill, error)
}

// PaymentAPI starts gateway payments.
type PaymentAPI interface {
	InitiatePayment(ctx context.Context, req domain.PaymentInitiateRequest) (*domain.PaymentRedirect, error)
	ResumePayment(ctx context.Context, paymentID string) (*domain.PaymentRedirect, error)
	ListSocietyPayments(ctx context.Context, societyID int64) ([]domain.ServiceChargePayment, error)
	ListUserPayments(ctx context.Context, societyID, userID int64) ([]domain.ServiceChargePayment, error)
	InitiateSubscription(ctx context.Context, req domain.SubscriptionRequest) (*domain.PaymentRedirect, error)
}

// UserAPI manages society members and invitations.
type UserAPI interface {
	CreateUser(ctx context.Context, req domain.NewUserRequest) (*domain.User, error)
	CreateSociety(ctx context.Context, req domain.NewSocietyRequest) (*domain.Society, error)
	InviteUsers(ctx context.Context, req domain.BulkInviteRequest) (*domain.BulkInviteResult, error)
	ListSocietyUsers(ctx context.Context, societyID int64) (*domain.SocietyUsers, error)
	CancelUser(ctx context.Context, userID int64) error
}

// PricingAPI quotes subscription prices.
type PricingAPI interface {
	CalculatePrice(ctx context.Context, req domain.PriceRequest) (*domain.PriceQuote, error)
	ApplyPromo(ctx context.Context, req domain.PromoRequest) (*domain.PromoResult, error)
}

// Backend is the whole society REST surface.
type Backend interface {
	AuthAPI
	ChargeAPI
	FlatAPI
	BillAPI
	PaymentAPI
	UserAPI
	PricingAPI
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string)
}

// BatchStore persists invitation batches and wizard progress.
type BatchStore interface {
	SaveBatch(ctx context.Context, b *onboarding.Batch) error
	GetBatch(ctx context.Context, id string) (*onboarding.Batch, error)
	ListBatches(ctx context.Context, societyID int64) ([]onboarding.Batch, error)
	SaveWizard(ctx context.Context, societyID int64, s onboarding.WizardState) error
	GetWizard(ctx context.Context, societyID int64) (*onboarding.WizardState, error)
}
