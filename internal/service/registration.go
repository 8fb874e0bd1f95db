package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"
	"github.com/boddenberg/flatwise-bfa-go/internal/validate"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var registrationTracer = otel.Tracer("service/registration")

const (
	msgNoFlats         = "No flats provided for creation"
	msgAdminNotCreated = "Failed to create admin user"
	registeredStatus   = "ACTIVE"
)

// RegistrationService signs up a new society: society, admin user and
// initial flats, plus the pricing quote shown before payment.
type RegistrationService struct {
	users   port.UserAPI
	flats   port.FlatAPI
	pricing port.PricingAPI
	logger  *zap.Logger
}

// NewRegistrationService creates a registration service.
func NewRegistrationService(users port.UserAPI, flats port.FlatAPI, pricing port.PricingAPI, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{users: users, flats: flats, pricing: pricing, logger: logger}
}

// CreateSociety registers the society row.
func (s *RegistrationService) CreateSociety(ctx context.Context, req domain.NewSocietyRequest) (*domain.Society, error) {
	ctx, span := registrationTracer.Start(ctx, "RegistrationService.CreateSociety")
	defer span.End()

	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	soc, err := s.users.CreateSociety(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("society registered", zap.Int64("society_id", soc.ID), zap.String("name", soc.Name))
	return soc, nil
}

// Complete creates the admin user and then the flats owned by that user.
// The two calls are not atomic: when flat creation fails the user stays
// created, and calling Complete again re-issues both steps.
func (s *RegistrationService) Complete(ctx context.Context, req domain.RegistrationRequest) (*domain.RegistrationResult, error) {
	ctx, span := registrationTracer.Start(ctx, "RegistrationService.Complete")
	defer span.End()
	span.SetAttributes(attribute.Int64("society.id", req.SocietyID), attribute.Int("flats", len(req.Flats)))

	if len(req.Flats) == 0 {
		return nil, &domain.ErrValidation{Field: "flats", Message: msgNoFlats}
	}
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}

	first := strings.TrimSpace(req.FirstName)
	user, err := s.users.CreateUser(ctx, domain.NewUserRequest{
		Username:  strings.ToLower(first),
		Fullname:  first + " " + strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(strings.ToLower(req.Email)),
		Phone:     strings.TrimSpace(req.Phone),
		Password:  req.Password,
		RoleID:    domain.RoleAdmin,
		SocietyID: req.SocietyID,
		Status:    registeredStatus,
	})
	if err != nil {
		var dec *domain.ErrDecode
		if errors.As(err, &dec) {
			return nil, &domain.ErrDecode{Schema: "user", Reason: msgAdminNotCreated}
		}
		return nil, err
	}

	ownerID := user.ID
	bulk := domain.BulkFlatRequest{SocietyID: req.SocietyID, Flats: make([]domain.NewFlatRequest, len(req.Flats))}
	for i, f := range req.Flats {
		bulk.Flats[i] = domain.NewFlatRequest{
			Number:   strings.TrimSpace(f.Number),
			FlatType: domain.ParseFlatType(f.FlatType),
			OwnerID:  &ownerID,
		}
	}

	flats, err := s.flats.BulkCreateFlats(ctx, bulk)
	if err != nil {
		s.logger.Warn("registration: flats not created",
			zap.Int64("user_id", user.ID),
			zap.Int64("society_id", req.SocietyID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("registration completed",
		zap.Int64("user_id", user.ID),
		zap.Int64("society_id", req.SocietyID),
		zap.Int("flats", len(flats.Successful)),
	)
	return &domain.RegistrationResult{User: *user, Flats: *flats}, nil
}

// CalculatePrice quotes the subscription for the given flat and user counts.
func (s *RegistrationService) CalculatePrice(ctx context.Context, req domain.PriceRequest) (*domain.PriceQuote, error) {
	ctx, span := registrationTracer.Start(ctx, "RegistrationService.CalculatePrice")
	defer span.End()

	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	if req.FlatCounts.TwoBHK < 0 || req.FlatCounts.ThreeBHK < 0 || req.FlatCounts.FourBHK < 0 {
		return nil, &domain.ErrValidation{Field: "flat_counts", Message: "must not be negative"}
	}
	return s.pricing.CalculatePrice(ctx, req)
}

// ApplyPromo applies a promo code to an amount.
func (s *RegistrationService) ApplyPromo(ctx context.Context, req domain.PromoRequest) (*domain.PromoResult, error) {
	ctx, span := registrationTracer.Start(ctx, "RegistrationService.ApplyPromo")
	defer span.End()

	req.PromoCode = strings.ToUpper(strings.TrimSpace(req.PromoCode))
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}
	return s.pricing.ApplyPromo(ctx, req)
}
