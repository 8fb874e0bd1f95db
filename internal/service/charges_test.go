package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"
)

func TestChargeService_CatalogIsCached(t *testing.T) {
	be := &fakeBackend{predefined: catalogFixture()}
	svc := newServices(be)

	for i := 0; i < 3; i++ {
		cat, err := svc.charges.Catalog(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cat.Len() != 3 {
			t.Fatalf("expected 3 entries, got %d", cat.Len())
		}
	}
	if n := be.count("ListPredefinedCharges"); n != 1 {
		t.Errorf("expected 1 backend call, got %d", n)
	}
}

func TestChargeService_MatrixSeedsEmptyMatrix(t *testing.T) {
	svc := newServices(&fakeBackend{predefined: catalogFixture()})

	p, err := svc.charges.Matrix(context.Background(), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Rows) != 1 || p.Rows[0].PredefinedServiceChargeID != 1 {
		t.Fatalf("expected a seeded row for the first catalog entry, got %+v", p.Rows)
	}
	if len(p.Available[0]) != 3 {
		t.Errorf("expected every entry available for the only row, got %d", len(p.Available[0]))
	}
}

func TestChargeService_SaveMatrixNormalizes(t *testing.T) {
	var sent domain.BulkServiceChargeRequest
	be := &fakeBackend{
		predefined: catalogFixture(),
		bulkSave: func(req domain.BulkServiceChargeRequest) error {
			sent = req
			return nil
		},
	}
	svc := newServices(be)

	var events []service.Event
	svc.state.Subscribe(func(e service.Event) { events = append(events, e) })

	rows := []domain.ServiceCharge{{
		PredefinedServiceChargeID: 1,
		Amounts:                   []domain.ChargeAmount{{FlatType: domain.ThreeBHK, Amount: 300}},
	}}
	saved, err := svc.charges.SaveMatrix(context.Background(), 4, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(saved[0].Amounts) != 3 {
		t.Fatalf("expected one amount per flat type, got %+v", saved[0].Amounts)
	}
	if sent.SocietyID != 4 || len(sent.ServiceCharges) != 1 {
		t.Fatalf("unexpected bulk request %+v", sent)
	}
	if got := sent.ServiceCharges[0].Amounts[0]; got.FlatType != domain.TwoBHK || got.Amount != 0 {
		t.Errorf("expected TWO_BHK first with 0, got %+v", got)
	}
	if len(events) != 1 || events[0].Kind != service.EventMatrixSaved {
		t.Errorf("expected a matrix_saved event, got %+v", events)
	}
	if snap := svc.metrics.Snapshot(); snap.MatrixSaves != 1 {
		t.Errorf("expected 1 matrix save, got %v", snap.MatrixSaves)
	}
}

func TestChargeService_SaveMatrixRejectsUnselectedRow(t *testing.T) {
	be := &fakeBackend{predefined: catalogFixture()}
	svc := newServices(be)

	_, err := svc.charges.SaveMatrix(context.Background(), 4, []domain.ServiceCharge{{PredefinedServiceChargeID: 0}})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if verr.Message != "Please select all service types" {
		t.Errorf("unexpected message %q", verr.Message)
	}
	if be.count("BulkSaveServiceCharges") != 0 {
		t.Error("nothing should reach the backend")
	}
}

func TestChargeService_ConcurrentSaveIsDropped(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	be := &fakeBackend{
		predefined: catalogFixture(),
		bulkSave: func(domain.BulkServiceChargeRequest) error {
			close(entered)
			<-unblock
			return nil
		},
	}
	svc := newServices(be)
	rows := []domain.ServiceCharge{{PredefinedServiceChargeID: 2}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.charges.SaveMatrix(context.Background(), 4, rows)
	}()
	<-entered

	_, err := svc.charges.SaveMatrix(context.Background(), 4, rows)
	var inflight *domain.ErrInFlight
	if !errors.As(err, &inflight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}

	close(unblock)
	wg.Wait()
	if n := be.count("BulkSaveServiceCharges"); n != 1 {
		t.Errorf("expected a single save, got %d", n)
	}
}

func TestChargeService_PreviewWarnsWhenExhausted(t *testing.T) {
	svc := newServices(&fakeBackend{predefined: catalogFixture()})

	rows := []domain.ServiceCharge{
		{PredefinedServiceChargeID: 1},
		{PredefinedServiceChargeID: 2},
		{PredefinedServiceChargeID: 3, Amounts: []domain.ChargeAmount{{FlatType: domain.TwoBHK, Amount: 50}}},
	}
	p, err := svc.charges.Preview(context.Background(), rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Totals[domain.TwoBHK] != 50 {
		t.Errorf("expected TWO_BHK total 50, got %v", p.Totals[domain.TwoBHK])
	}
	if len(p.Warnings) != 1 {
		t.Errorf("expected the exhausted warning, got %v", p.Warnings)
	}
}

func TestChargeService_AddExtraUnknownCharge(t *testing.T) {
	be := &fakeBackend{predefined: catalogFixture()}
	svc := newServices(be)

	_, err := svc.charges.AddExtra(context.Background(), domain.NewUserServiceCharge{FlatID: 3, PredefinedServiceChargeID: 99, Amount: 10})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if be.count("AddUserServiceCharge") != 0 {
		t.Error("unknown charge must not reach the backend")
	}

	extra, err := svc.charges.AddExtra(context.Background(), domain.NewUserServiceCharge{FlatID: 3, PredefinedServiceChargeID: 2, Amount: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extra.Predefined == nil || extra.Predefined.Name != "Water" {
		t.Errorf("expected catalog entry attached, got %+v", extra.Predefined)
	}
}

func TestChargeService_SaveMatrixAppliesEditorRules(t *testing.T) {
	var sent domain.BulkServiceChargeRequest
	be := &fakeBackend{
		predefined: catalogFixture(),
		bulkSave: func(req domain.BulkServiceChargeRequest) error {
			sent = req
			return nil
		},
	}
	svc := newServices(be)

	_, err := svc.charges.SaveMatrix(context.Background(), 4, []domain.ServiceCharge{{
		PredefinedServiceChargeID: 999,
		Amounts:                   []domain.ChargeAmount{{FlatType: domain.TwoBHK, Amount: -50}},
	}})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation for an unknown charge, got %v", err)
	}
	if be.count("BulkSaveServiceCharges") != 0 {
		t.Fatal("unknown charge must not reach the backend")
	}

	saved, err := svc.charges.SaveMatrix(context.Background(), 4, []domain.ServiceCharge{{
		PredefinedServiceChargeID: 2,
		Amounts:                   []domain.ChargeAmount{{FlatType: domain.TwoBHK, Amount: -50}, {FlatType: domain.FourBHK, Amount: 80}},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := saved[0].AmountFor(domain.TwoBHK); got != 0 {
		t.Errorf("expected negative amount stored as 0, got %v", got)
	}
	if got := sent.ServiceCharges[0].Amounts; got[0].Amount != 0 || got[2].Amount != 80 {
		t.Errorf("unexpected amounts sent %+v", got)
	}
	if saved[0].ServiceType != "Water" {
		t.Errorf("expected the catalog name, got %q", saved[0].ServiceType)
	}
}

func TestChargeService_PreviewRejectsDuplicateCharge(t *testing.T) {
	svc := newServices(&fakeBackend{predefined: catalogFixture()})

	_, err := svc.charges.Preview(context.Background(), []domain.ServiceCharge{
		{PredefinedServiceChargeID: 1},
		{PredefinedServiceChargeID: 1},
	})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
