package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/cache"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Fakes ---

// fakeBackend implements port.Backend. Unset funcs return zero values.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	login            func(domain.LoginRequest) (*domain.LoginResponse, error)
	acceptInvitation func(domain.AcceptInvitationRequest) error

	predefined    []domain.PredefinedServiceCharge
	societyMatrix *domain.SocietyServiceCharges
	bulkSave      func(domain.BulkServiceChargeRequest) error
	addExtra      func(domain.NewUserServiceCharge) (*domain.UserServiceCharge, error)

	societyFlats []domain.FlatDetail
	parties      func(flatID int64) (*domain.FlatParties, error)
	bulkFlats    func(domain.BulkFlatRequest) (*domain.BulkFlatResult, error)

	societyBills []domain.Bill
	userBills    []domain.Bill
	assign       func(billID int64, req domain.AssignRequest) (*domain.Bill, error)

	initiatePayment func(domain.PaymentInitiateRequest) (*domain.PaymentRedirect, error)
	societyPayments []domain.ServiceChargePayment
	userPayments    []domain.ServiceChargePayment

	createUser func(domain.NewUserRequest) (*domain.User, error)
	invite     func(domain.BulkInviteRequest) (*domain.BulkInviteResult, error)
}

var _ port.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Login(_ context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	f.hit("Login")
	return f.login(req)
}

func (f *fakeBackend) AcceptInvitation(_ context.Context, req domain.AcceptInvitationRequest) error {
	f.hit("AcceptInvitation")
	if f.acceptInvitation == nil {
		return nil
	}
	return f.acceptInvitation(req)
}

func (f *fakeBackend) ListPredefinedCharges(_ context.Context) ([]domain.PredefinedServiceCharge, error) {
	f.hit("ListPredefinedCharges")
	return f.predefined, nil
}

func (f *fakeBackend) ListServiceCharges(_ context.Context) ([]domain.ServiceChargeRecord, error) {
	return nil, nil
}

func (f *fakeBackend) GetSocietyServiceCharges(_ context.Context, societyID int64) (*domain.SocietyServiceCharges, error) {
	f.hit("GetSocietyServiceCharges")
	if f.societyMatrix == nil {
		return &domain.SocietyServiceCharges{SocietyID: societyID}, nil
	}
	return f.societyMatrix, nil
}

func (f *fakeBackend) CreateServiceCharge(_ context.Context, rec domain.ServiceChargeRecord) (*domain.ServiceChargeRecord, error) {
	return &rec, nil
}

func (f *fakeBackend) BulkSaveServiceCharges(_ context.Context, req domain.BulkServiceChargeRequest) error {
	f.hit("BulkSaveServiceCharges")
	if f.bulkSave == nil {
		return nil
	}
	return f.bulkSave(req)
}

func (f *fakeBackend) AddUserServiceCharge(_ context.Context, req domain.NewUserServiceCharge) (*domain.UserServiceCharge, error) {
	f.hit("AddUserServiceCharge")
	if f.addExtra == nil {
		return &domain.UserServiceCharge{ID: 1, FlatID: req.FlatID, PredefinedServiceChargeID: req.PredefinedServiceChargeID, Amount: domain.Amount(req.Amount)}, nil
	}
	return f.addExtra(req)
}

func (f *fakeBackend) DeleteUserServiceCharge(_ context.Context, _ int64) error {
	f.hit("DeleteUserServiceCharge")
	return nil
}

func (f *fakeBackend) ListFlats(_ context.Context) ([]domain.Flat, error) { return nil, nil }

func (f *fakeBackend) ListSocietyFlats(_ context.Context, _ int64) ([]domain.FlatDetail, error) {
	f.hit("ListSocietyFlats")
	return f.societyFlats, nil
}

func (f *fakeBackend) GetFlatParties(_ context.Context, flatID int64) (*domain.FlatParties, error) {
	f.hit("GetFlatParties")
	if f.parties == nil {
		return &domain.FlatParties{}, nil
	}
	return f.parties(flatID)
}

func (f *fakeBackend) CreateFlat(_ context.Context, societyID int64, req domain.NewFlatRequest) (*domain.Flat, error) {
	f.hit("CreateFlat")
	return &domain.Flat{ID: 50, Number: req.Number, SocietyID: societyID, FlatType: req.FlatType}, nil
}

func (f *fakeBackend) UpdateFlat(_ context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error) {
	f.hit("UpdateFlat")
	return &domain.Flat{ID: req.ID, Number: req.Number, FlatType: req.FlatType}, nil
}

func (f *fakeBackend) ReplaceFlat(_ context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error) {
	f.hit("ReplaceFlat")
	return &domain.Flat{ID: req.ID, Number: req.Number, FlatType: req.FlatType}, nil
}

func (f *fakeBackend) DeleteFlat(_ context.Context, _ int64) error {
	f.hit("DeleteFlat")
	return nil
}

func (f *fakeBackend) BulkCreateFlats(_ context.Context, req domain.BulkFlatRequest) (*domain.BulkFlatResult, error) {
	f.hit("BulkCreateFlats")
	if f.bulkFlats == nil {
		res := &domain.BulkFlatResult{}
		for i, fl := range req.Flats {
			res.Successful = append(res.Successful, domain.Flat{ID: int64(i + 1), Number: fl.Number, FlatType: fl.FlatType, OwnerID: fl.OwnerID})
		}
		return res, nil
	}
	return f.bulkFlats(req)
}

func (f *fakeBackend) ListSocietyBills(_ context.Context, _ int64) ([]domain.Bill, error) {
	f.hit("ListSocietyBills")
	return f.societyBills, nil
}

func (f *fakeBackend) ListUserBills(_ context.Context, _, _ int64) ([]domain.Bill, error) {
	f.hit("ListUserBills")
	return f.userBills, nil
}

func (f *fakeBackend) AssignBill(_ context.Context, billID int64, req domain.AssignRequest) (*domain.Bill, error) {
	f.hit("AssignBill")
	if f.assign == nil {
		return &domain.Bill{ID: billID, UserID: req.ResidentID, Status: domain.BillPending}, nil
	}
	return f.assign(billID, req)
}

func (f *fakeBackend) InitiatePayment(_ context.Context, req domain.PaymentInitiateRequest) (*domain.PaymentRedirect, error) {
	f.hit("InitiatePayment")
	if f.initiatePayment == nil {
		return &domain.PaymentRedirect{PaymentURL: "https://pay.example/1"}, nil
	}
	return f.initiatePayment(req)
}

func (f *fakeBackend) ResumePayment(_ context.Context, id string) (*domain.PaymentRedirect, error) {
	f.hit("ResumePayment")
	return &domain.PaymentRedirect{PaymentURL: "https://pay.example/" + id, PaymentID: id}, nil
}

func (f *fakeBackend) ListSocietyPayments(_ context.Context, _ int64) ([]domain.ServiceChargePayment, error) {
	f.hit("ListSocietyPayments")
	return f.societyPayments, nil
}

func (f *fakeBackend) ListUserPayments(_ context.Context, _, _ int64) ([]domain.ServiceChargePayment, error) {
	f.hit("ListUserPayments")
	return f.userPayments, nil
}

func (f *fakeBackend) InitiateSubscription(_ context.Context, _ domain.SubscriptionRequest) (*domain.PaymentRedirect, error) {
	f.hit("InitiateSubscription")
	return &domain.PaymentRedirect{PaymentURL: "https://pay.example/sub"}, nil
}

func (f *fakeBackend) CreateUser(_ context.Context, req domain.NewUserRequest) (*domain.User, error) {
	f.hit("CreateUser")
	if f.createUser == nil {
		return &domain.User{ID: 77, Username: req.Username, Fullname: req.Fullname, RoleID: req.RoleID}, nil
	}
	return f.createUser(req)
}

func (f *fakeBackend) CreateSociety(_ context.Context, req domain.NewSocietyRequest) (*domain.Society, error) {
	f.hit("CreateSociety")
	return &domain.Society{ID: 9, Name: req.Name}, nil
}

func (f *fakeBackend) InviteUsers(_ context.Context, req domain.BulkInviteRequest) (*domain.BulkInviteResult, error) {
	f.hit("InviteUsers")
	if f.invite == nil {
		return &domain.BulkInviteResult{}, nil
	}
	return f.invite(req)
}

func (f *fakeBackend) ListSocietyUsers(_ context.Context, _ int64) (*domain.SocietyUsers, error) {
	return &domain.SocietyUsers{}, nil
}

func (f *fakeBackend) CancelUser(_ context.Context, _ int64) error {
	f.hit("CancelUser")
	return nil
}

func (f *fakeBackend) CalculatePrice(_ context.Context, req domain.PriceRequest) (*domain.PriceQuote, error) {
	f.hit("CalculatePrice")
	return &domain.PriceQuote{TotalPrice: 100, FlatCounts: req.FlatCounts}, nil
}

func (f *fakeBackend) ApplyPromo(_ context.Context, req domain.PromoRequest) (*domain.PromoResult, error) {
	f.hit("ApplyPromo")
	return &domain.PromoResult{OriginalAmount: req.Amount, PromoCode: req.PromoCode, DiscountedAmount: req.Amount}, nil
}

// --- Fixtures ---

func catalogFixture() []domain.PredefinedServiceCharge {
	return []domain.PredefinedServiceCharge{
		{ID: 1, Name: "Maintenance"},
		{ID: 2, Name: "Water"},
		{ID: 3, Name: "Parking"},
	}
}

func int64p(v int64) *int64 { return &v }

type services struct {
	state   *service.StateStore
	metrics *observability.Metrics
	charges *service.ChargeService
	flats   *service.FlatService
	bills   *service.BillService
}

func newServices(be *fakeBackend) services {
	state := service.NewStateStore()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	parties := cache.New[domain.FlatParties](time.Minute)

	charges := service.NewChargeService(be, cache.New[[]domain.PredefinedServiceCharge](time.Minute), state, metrics, logger)
	return services{
		state:   state,
		metrics: metrics,
		charges: charges,
		flats:   service.NewFlatService(be, charges, parties, state, metrics, logger),
		bills: service.NewBillService(be, be, parties, cache.New[[]domain.Bill](time.Minute), state, metrics,
			service.NewStatementRenderer("Rs."), 4, logger),
	}
}
