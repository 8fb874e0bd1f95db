package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/boddenberg/flatwise-bfa-go/internal/billing"
	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var flatTracer = otel.Tracer("service/flats")

// FlatService manages flats and derives their charge columns.
type FlatService struct {
	api        port.FlatAPI
	charges    *ChargeService
	parties    port.Cache[domain.FlatParties]
	state      *StateStore
	metrics    *observability.Metrics
	logger     *zap.Logger
	refreshing latchSet
}

// NewFlatService creates a flat service. parties is the flat metadata cache
// shared with BillService.
func NewFlatService(api port.FlatAPI, charges *ChargeService, parties port.Cache[domain.FlatParties], state *StateStore, metrics *observability.Metrics, logger *zap.Logger) *FlatService {
	return &FlatService{api: api, charges: charges, parties: parties, state: state, metrics: metrics, logger: logger}
}

// ListSociety refreshes a society's flats. Only one refresh per society
// runs at a time; a concurrent call gets ErrInFlight.
func (s *FlatService) ListSociety(ctx context.Context, societyID int64) ([]domain.FlatView, error) {
	release, err := s.refreshing.acquire("flat refresh", strconv.FormatInt(societyID, 10))
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := flatTracer.Start(ctx, "FlatService.ListSociety")
	defer span.End()
	span.SetAttributes(attribute.Int64("society.id", societyID))

	details, err := s.api.ListSocietyFlats(ctx, societyID)
	if err != nil {
		s.metrics.IncrUpstreamError("ListSocietyFlats")
		return nil, err
	}

	views := make([]domain.FlatView, 0, len(details))
	for _, d := range details {
		views = append(views, flatView(d))
		if d.Owner != nil || len(d.Residents) > 0 {
			s.parties.Set(partiesKey(d.ID), domain.FlatParties{Owner: d.Owner, Residents: d.Residents})
		}
	}
	return views, nil
}

func flatView(d domain.FlatDetail) domain.FlatView {
	var records []domain.ServiceChargeRecord
	if d.Society != nil {
		records = billing.DedupeMatrixRecords(d.Society.ServiceCharges)
		soc := *d.Society
		soc.ServiceCharges = records
		d.Society = &soc
	}
	d.UserServiceCharges = billing.DedupeExtras(d.UserServiceCharges)
	return domain.FlatView{
		FlatDetail:    d,
		FlatTypeLabel: d.FlatType.Label(),
		BasicCharge:   billing.BasicCharge(records, d.FlatType),
		ExtraCharge:   billing.ExtraCharge(d.UserServiceCharges),
	}
}

// Get returns one flat of the society with its derived charges.
func (s *FlatService) Get(ctx context.Context, societyID, flatID int64) (*domain.FlatView, error) {
	ctx, span := flatTracer.Start(ctx, "FlatService.Get")
	defer span.End()

	d, err := s.find(ctx, societyID, flatID)
	if err != nil {
		return nil, err
	}
	v := flatView(*d)
	return &v, nil
}

func (s *FlatService) find(ctx context.Context, societyID, flatID int64) (*domain.FlatDetail, error) {
	details, err := s.api.ListSocietyFlats(ctx, societyID)
	if err != nil {
		s.metrics.IncrUpstreamError("ListSocietyFlats")
		return nil, err
	}
	for i := range details {
		if details[i].ID == flatID {
			return &details[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "flat", ID: strconv.FormatInt(flatID, 10)}
}

// BillPreview rebuilds the bill body of one flat from the society matrix
// and the flat's extras.
func (s *FlatService) BillPreview(ctx context.Context, societyID, flatID int64) (*billing.AggregatedBill, error) {
	ctx, span := flatTracer.Start(ctx, "FlatService.BillPreview")
	defer span.End()
	span.SetAttributes(attribute.Int64("flat.id", flatID))

	catalog, err := s.charges.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	flat, err := s.find(ctx, societyID, flatID)
	if err != nil {
		return nil, err
	}

	// The embedded society block carries the matrix as per-type records.
	var matrix []domain.ServiceCharge
	if flat.Society != nil && len(flat.Society.ServiceCharges) > 0 {
		matrix = billing.MatrixFromRecords(flat.Society.ServiceCharges, catalog)
	} else {
		sc, err := s.charges.api.GetSocietyServiceCharges(ctx, societyID)
		if err != nil {
			s.metrics.IncrUpstreamError("GetSocietyServiceCharges")
			return nil, err
		}
		matrix = sc.ServiceCharges
	}

	bill := billing.Aggregate(matrix, catalog, flat.Flat, flat.UserServiceCharges)
	return &bill, nil
}

// Create creates a single flat in the society.
func (s *FlatService) Create(ctx context.Context, societyID int64, req domain.NewFlatRequest) (*domain.Flat, error) {
	ctx, span := flatTracer.Start(ctx, "FlatService.Create")
	defer span.End()

	req.Number = strings.TrimSpace(req.Number)
	if !req.FlatType.Valid() {
		return nil, &domain.ErrValidation{Field: "flat_type", Message: fmt.Sprintf("unknown flat type %q", req.FlatType)}
	}
	flat, err := s.api.CreateFlat(ctx, societyID, req)
	if err != nil {
		s.metrics.IncrUpstreamError("CreateFlat")
		return nil, err
	}
	s.changed(societyID, flat.ID)
	s.logger.Info("flat created", zap.Int64("society_id", societyID), zap.Int64("flat_id", flat.ID))
	return flat, nil
}

// CreateBulk creates several flats. Flat types may use the short forms
// ("2bhk"); unknown types are created as TWO_BHK.
func (s *FlatService) CreateBulk(ctx context.Context, societyID int64, flats []domain.NewFlatRequest) (*domain.BulkFlatResult, error) {
	ctx, span := flatTracer.Start(ctx, "FlatService.CreateBulk")
	defer span.End()
	span.SetAttributes(attribute.Int("flats", len(flats)))

	if len(flats) == 0 {
		return nil, &domain.ErrValidation{Field: "flats", Message: "No flats provided for creation"}
	}
	req := domain.BulkFlatRequest{SocietyID: societyID, Flats: make([]domain.NewFlatRequest, len(flats))}
	for i, f := range flats {
		f.Number = strings.TrimSpace(f.Number)
		if f.Number == "" {
			return nil, &domain.ErrValidation{Field: fmt.Sprintf("flats[%d].number", i), Message: "is required"}
		}
		f.FlatType = domain.ParseFlatType(string(f.FlatType))
		req.Flats[i] = f
	}

	res, err := s.api.BulkCreateFlats(ctx, req)
	if err != nil {
		s.metrics.IncrUpstreamError("BulkCreateFlats")
		return nil, err
	}
	s.changed(societyID, 0)
	s.logger.Info("flats created",
		zap.Int64("society_id", societyID),
		zap.Int("successful", len(res.Successful)),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

// Update partially updates a flat (PATCH).
func (s *FlatService) Update(ctx context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error) {
	ctx, span := flatTracer.Start(ctx, "FlatService.Update")
	defer span.End()

	if req.FlatType != "" && !req.FlatType.Valid() {
		return nil, &domain.ErrValidation{Field: "flat_type", Message: fmt.Sprintf("unknown flat type %q", req.FlatType)}
	}
	flat, err := s.api.UpdateFlat(ctx, req)
	if err != nil {
		s.metrics.IncrUpstreamError("UpdateFlat")
		return nil, err
	}
	s.changed(req.SocietyID, req.ID)
	return flat, nil
}

// Replace overwrites a flat (PUT).
func (s *FlatService) Replace(ctx context.Context, req domain.UpdateFlatRequest) (*domain.Flat, error) {
	ctx, span := flatTracer.Start(ctx, "FlatService.Replace")
	defer span.End()

	if strings.TrimSpace(req.Number) == "" {
		return nil, &domain.ErrValidation{Field: "number", Message: "is required"}
	}
	if !req.FlatType.Valid() {
		return nil, &domain.ErrValidation{Field: "flat_type", Message: fmt.Sprintf("unknown flat type %q", req.FlatType)}
	}
	flat, err := s.api.ReplaceFlat(ctx, req)
	if err != nil {
		s.metrics.IncrUpstreamError("ReplaceFlat")
		return nil, err
	}
	s.changed(req.SocietyID, req.ID)
	return flat, nil
}

// Delete deletes a flat.
func (s *FlatService) Delete(ctx context.Context, societyID, flatID int64) error {
	ctx, span := flatTracer.Start(ctx, "FlatService.Delete")
	defer span.End()

	if err := s.api.DeleteFlat(ctx, flatID); err != nil {
		s.metrics.IncrUpstreamError("DeleteFlat")
		return err
	}
	s.changed(societyID, flatID)
	s.logger.Info("flat deleted", zap.Int64("flat_id", flatID))
	return nil
}

func (s *FlatService) changed(societyID, flatID int64) {
	if flatID > 0 {
		s.parties.Delete(partiesKey(flatID))
	}
	s.state.Publish(Event{Kind: EventFlatsChanged, SocietyID: societyID})
}

func partiesKey(flatID int64) string {
	return "flat:" + strconv.FormatInt(flatID, 10)
}
