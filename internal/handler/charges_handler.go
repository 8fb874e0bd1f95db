package handler

import (
	"net/http"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Service charges: catalog, society matrix and flat extras
// ============================================================

type matrixRequest struct {
	ServiceCharges []domain.ServiceCharge `json:"service_charges" validate:"required"`
}

type extraChargeRequest struct {
	PredefinedServiceChargeID int64   `json:"predefined_service_charge_id" validate:"required,gt=0"`
	Amount                    float64 `json:"amount" validate:"gte=0"`
}

func catalogHandler(svc *service.ChargeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/service-charges/catalog")
		defer span.End()

		catalog, err := svc.Catalog(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, catalog.Entries())
	}
}

func matrixHandler(svc *service.ChargeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/service-charges")
		defer span.End()

		preview, err := svc.Matrix(ctx, sessionFromContext(ctx).SocietyID())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, preview)
	}
}

func matrixPreviewHandler(svc *service.ChargeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/service-charges/preview")
		defer span.End()

		var req matrixRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		preview, err := svc.Preview(ctx, req.ServiceCharges)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, preview)
	}
}

func saveMatrixHandler(svc *service.ChargeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/service-charges")
		defer span.End()

		var req matrixRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		saved, err := svc.SaveMatrix(ctx, sessionFromContext(ctx).SocietyID(), req.ServiceCharges)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, matrixRequest{ServiceCharges: saved})
	}
}

func addExtraHandler(svc *service.ChargeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/flats/{id}/extra-charges")
		defer span.End()

		flatID, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var req extraChargeRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		extra, err := svc.AddExtra(ctx, domain.NewUserServiceCharge{
			FlatID:                    flatID,
			PredefinedServiceChargeID: req.PredefinedServiceChargeID,
			Amount:                    req.Amount,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, extra)
	}
}

func removeExtraHandler(svc *service.ChargeService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/extra-charges/{id}")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.RemoveExtra(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
