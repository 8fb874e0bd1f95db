package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"go.uber.org/zap"
)

func registrationRequest() domain.RegistrationRequest {
	return domain.RegistrationRequest{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "Asha@Example.com",
		Phone:     "9999999999",
		Password:  "secret1",
		SocietyID: 4,
		Flats: []domain.RegistrationFlat{
			{Number: "A-1", FlatType: "2bhk"},
			{Number: "A-2", FlatType: "4bhk"},
		},
	}
}

func TestRegistrationService_Complete(t *testing.T) {
	var user domain.NewUserRequest
	var flats domain.BulkFlatRequest
	be := &fakeBackend{
		createUser: func(req domain.NewUserRequest) (*domain.User, error) {
			user = req
			return &domain.User{ID: 77, Fullname: req.Fullname}, nil
		},
		bulkFlats: func(req domain.BulkFlatRequest) (*domain.BulkFlatResult, error) {
			flats = req
			return &domain.BulkFlatResult{Successful: []domain.Flat{{ID: 1}, {ID: 2}}}, nil
		},
	}
	svc := service.NewRegistrationService(be, be, be, zap.NewNop())

	res, err := svc.Complete(context.Background(), registrationRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if user.Username != "asha" || user.Fullname != "Asha Rao" || user.RoleID != domain.RoleAdmin || user.Status != "ACTIVE" {
		t.Errorf("unexpected user request %+v", user)
	}
	if user.Email != "asha@example.com" {
		t.Errorf("expected lowercased email, got %q", user.Email)
	}
	if flats.SocietyID != 4 || len(flats.Flats) != 2 {
		t.Fatalf("unexpected flats request %+v", flats)
	}
	if flats.Flats[1].FlatType != domain.FourBHK {
		t.Errorf("expected FOUR_BHK, got %s", flats.Flats[1].FlatType)
	}
	if flats.Flats[0].OwnerID == nil || *flats.Flats[0].OwnerID != 77 {
		t.Errorf("expected flats owned by the new admin, got %v", flats.Flats[0].OwnerID)
	}
	if res.User.ID != 77 || len(res.Flats.Successful) != 2 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRegistrationService_NoFlats(t *testing.T) {
	be := &fakeBackend{}
	svc := service.NewRegistrationService(be, be, be, zap.NewNop())

	req := registrationRequest()
	req.Flats = nil
	_, err := svc.Complete(context.Background(), req)

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) || verr.Message != "No flats provided for creation" {
		t.Fatalf("expected no-flats error, got %v", err)
	}
	if be.count("CreateUser") != 0 {
		t.Error("the admin user must not be created without flats")
	}
}

func TestRegistrationService_AdminWithoutID(t *testing.T) {
	be := &fakeBackend{createUser: func(domain.NewUserRequest) (*domain.User, error) {
		return nil, &domain.ErrDecode{Schema: "user", Reason: "missing id"}
	}}
	svc := service.NewRegistrationService(be, be, be, zap.NewNop())

	_, err := svc.Complete(context.Background(), registrationRequest())

	var dec *domain.ErrDecode
	if !errors.As(err, &dec) || dec.Reason != "Failed to create admin user" {
		t.Fatalf("expected admin creation error, got %v", err)
	}
	if be.count("BulkCreateFlats") != 0 {
		t.Error("flats must not be created without an admin")
	}
}

func TestRegistrationService_FlatFailureKeepsUser(t *testing.T) {
	be := &fakeBackend{bulkFlats: func(domain.BulkFlatRequest) (*domain.BulkFlatResult, error) {
		return nil, &domain.ErrUpstream{Message: "Flat number already exists", Status: 409}
	}}
	svc := service.NewRegistrationService(be, be, be, zap.NewNop())

	_, err := svc.Complete(context.Background(), registrationRequest())
	var up *domain.ErrUpstream
	if !errors.As(err, &up) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	// A retry re-issues every step.
	svc.Complete(context.Background(), registrationRequest())
	if be.count("CreateUser") != 2 {
		t.Errorf("expected the user step to run again, got %d", be.count("CreateUser"))
	}
}

func TestRegistrationService_Pricing(t *testing.T) {
	be := &fakeBackend{}
	svc := service.NewRegistrationService(be, be, be, zap.NewNop())

	if _, err := svc.CalculatePrice(context.Background(), domain.PriceRequest{FlatCounts: domain.FlatCounts{TwoBHK: -1}}); err == nil {
		t.Error("expected negative count to be rejected")
	}
	q, err := svc.CalculatePrice(context.Background(), domain.PriceRequest{FlatCounts: domain.FlatCounts{TwoBHK: 10}, UserCount: 20})
	if err != nil || q.TotalPrice != 100 {
		t.Fatalf("unexpected quote %+v, %v", q, err)
	}

	promo, err := svc.ApplyPromo(context.Background(), domain.PromoRequest{Amount: 100, PromoCode: " launch10 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promo.PromoCode != "LAUNCH10" {
		t.Errorf("expected normalised promo code, got %q", promo.PromoCode)
	}
}
