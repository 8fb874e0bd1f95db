package service

import (
	"context"
	"strconv"

	"github.com/boddenberg/flatwise-bfa-go/internal/billing"
	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var chargeTracer = otel.Tracer("service/charges")

const catalogCacheKey = "catalog"

// ChargeService manages the charge catalog, society matrices and flat
// extras.
type ChargeService struct {
	api     port.ChargeAPI
	catalog port.Cache[[]domain.PredefinedServiceCharge]
	state   *StateStore
	metrics *observability.Metrics
	logger  *zap.Logger
	saving  latchSet
}

// NewChargeService creates a charge service.
func NewChargeService(api port.ChargeAPI, catalog port.Cache[[]domain.PredefinedServiceCharge], state *StateStore, metrics *observability.Metrics, logger *zap.Logger) *ChargeService {
	return &ChargeService{api: api, catalog: catalog, state: state, metrics: metrics, logger: logger}
}

// Catalog returns the charge catalog, cached.
func (s *ChargeService) Catalog(ctx context.Context) (*billing.Catalog, error) {
	if entries, ok := s.catalog.Get(catalogCacheKey); ok {
		s.metrics.IncrCacheHit("catalog")
		return billing.NewCatalog(entries), nil
	}
	s.metrics.IncrCacheMiss("catalog")

	ctx, span := chargeTracer.Start(ctx, "ChargeService.Catalog")
	defer span.End()

	entries, err := s.api.ListPredefinedCharges(ctx)
	if err != nil {
		s.metrics.IncrUpstreamError("ListPredefinedCharges")
		return nil, err
	}
	s.catalog.Set(catalogCacheKey, entries)
	return billing.NewCatalog(entries), nil
}

// Matrix loads a society's matrix and returns it as an editor preview.
// An empty matrix comes back seeded with the first catalog entry.
func (s *ChargeService) Matrix(ctx context.Context, societyID int64) (*domain.MatrixPreview, error) {
	ctx, span := chargeTracer.Start(ctx, "ChargeService.Matrix")
	defer span.End()
	span.SetAttributes(attribute.Int64("society.id", societyID))

	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	matrix, err := s.api.GetSocietyServiceCharges(ctx, societyID)
	if err != nil {
		s.metrics.IncrUpstreamError("GetSocietyServiceCharges")
		return nil, err
	}
	return preview(billing.NewMatrixEditor(matrix.ServiceCharges, catalog)), nil
}

// Preview recomputes totals, available charge types and warnings for an
// in-progress edit. Nothing is sent to the backend.
func (s *ChargeService) Preview(ctx context.Context, rows []domain.ServiceCharge) (*domain.MatrixPreview, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	editor := billing.NewMatrixEditor(nil, catalog)
	if len(rows) > 0 {
		if editor, err = billing.EditorFrom(rows, catalog); err != nil {
			return nil, err
		}
	}
	p := preview(editor)
	if _, err := editor.Submit(); err != nil {
		p.Warnings = append(p.Warnings, err.Error())
	}
	if len(rows) >= catalog.Len() && catalog.Len() > 0 {
		p.Warnings = append(p.Warnings, billing.ErrCatalogExhausted.Error())
	}
	return p, nil
}

func preview(e *billing.MatrixEditor) *domain.MatrixPreview {
	p := &domain.MatrixPreview{
		Rows:      e.Rows(),
		Totals:    e.Totals(),
		Available: make(map[int][]domain.PredefinedServiceCharge, e.Len()),
	}
	for i := 0; i < e.Len(); i++ {
		p.Available[i] = e.AvailableFor(i)
	}
	return p
}

// SaveMatrix replaces the society's whole matrix. Rows are replayed through
// the matrix editor against the catalog and normalised first; on failure
// nothing is sent. A second save while one is pending is dropped.
func (s *ChargeService) SaveMatrix(ctx context.Context, societyID int64, rows []domain.ServiceCharge) ([]domain.ServiceCharge, error) {
	ctx, span := chargeTracer.Start(ctx, "ChargeService.SaveMatrix")
	defer span.End()
	span.SetAttributes(attribute.Int64("society.id", societyID), attribute.Int("rows", len(rows)))

	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	editor, err := billing.EditorFrom(rows, catalog)
	if err != nil {
		return nil, err
	}
	normalized, err := editor.Submit()
	if err != nil {
		return nil, err
	}

	release, err := s.saving.acquire("service charge save", strconv.FormatInt(societyID, 10))
	if err != nil {
		return nil, err
	}
	defer release()

	req := domain.BulkServiceChargeRequest{SocietyID: societyID}
	for _, r := range normalized {
		req.ServiceCharges = append(req.ServiceCharges, domain.BulkServiceChargeRow{
			PredefinedServiceChargeID: r.PredefinedServiceChargeID,
			Amounts:                   r.Amounts,
		})
	}
	if err := s.api.BulkSaveServiceCharges(ctx, req); err != nil {
		s.metrics.IncrMatrixSave(observability.OutcomeRejected)
		s.metrics.IncrUpstreamError("BulkSaveServiceCharges")
		return nil, err
	}

	s.metrics.IncrMatrixSave(observability.OutcomeOK)
	s.state.Publish(Event{Kind: EventMatrixSaved, SocietyID: societyID})
	s.logger.Info("service charges saved",
		zap.Int64("society_id", societyID),
		zap.Int("rows", len(normalized)),
	)
	return normalized, nil
}

// AddExtra attaches a flat-level extra charge.
func (s *ChargeService) AddExtra(ctx context.Context, req domain.NewUserServiceCharge) (*domain.UserServiceCharge, error) {
	ctx, span := chargeTracer.Start(ctx, "ChargeService.AddExtra")
	defer span.End()
	span.SetAttributes(attribute.Int64("flat.id", req.FlatID))

	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := catalog.Lookup(req.PredefinedServiceChargeID); !ok {
		return nil, &domain.ErrValidation{Field: "predefined_service_charge_id", Message: "unknown service charge"}
	}

	extra, err := s.api.AddUserServiceCharge(ctx, req)
	if err != nil {
		s.metrics.IncrUpstreamError("AddUserServiceCharge")
		return nil, err
	}
	if extra.Predefined == nil {
		p, _ := catalog.Lookup(req.PredefinedServiceChargeID)
		extra.Predefined = &p
	}
	s.state.Publish(Event{Kind: EventFlatsChanged})
	s.logger.Info("extra charge added",
		zap.Int64("flat_id", req.FlatID),
		zap.Int64("predefined_service_charge_id", req.PredefinedServiceChargeID),
	)
	return extra, nil
}

// RemoveExtra deletes a flat-level extra charge.
func (s *ChargeService) RemoveExtra(ctx context.Context, id int64) error {
	ctx, span := chargeTracer.Start(ctx, "ChargeService.RemoveExtra")
	defer span.End()

	if id <= 0 {
		return &domain.ErrValidation{Field: "id", Message: "must be positive"}
	}
	if err := s.api.DeleteUserServiceCharge(ctx, id); err != nil {
		s.metrics.IncrUpstreamError("DeleteUserServiceCharge")
		return err
	}
	s.state.Publish(Event{Kind: EventFlatsChanged})
	return nil
}
