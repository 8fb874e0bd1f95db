package handler

import (
	"net/http"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Flats
// ============================================================

type bulkFlatsRequest struct {
	Flats []domain.NewFlatRequest `json:"flats"`
}

func listFlatsHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/flats")
		defer span.End()

		flats, err := svc.ListSociety(ctx, sessionFromContext(ctx).SocietyID())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, flats)
	}
}

func getFlatHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/flats/{id}")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		flat, err := svc.Get(ctx, sessionFromContext(ctx).SocietyID(), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, flat)
	}
}

func billPreviewHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/flats/{id}/bill-preview")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		bill, err := svc.BillPreview(ctx, sessionFromContext(ctx).SocietyID(), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, bill)
	}
}

func createFlatHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/flats")
		defer span.End()

		var req domain.NewFlatRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		flat, err := svc.Create(ctx, sessionFromContext(ctx).SocietyID(), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, flat)
	}
}

func bulkCreateFlatsHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/flats/bulk")
		defer span.End()

		var req bulkFlatsRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		res, err := svc.CreateBulk(ctx, sessionFromContext(ctx).SocietyID(), req.Flats)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

// flatUpdate decodes a PATCH/PUT body and pins it to the path id and the
// caller's society.
func flatUpdate(r *http.Request) (domain.UpdateFlatRequest, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return domain.UpdateFlatRequest{}, err
	}
	var req domain.UpdateFlatRequest
	if err := decodeBody(r, &req); err != nil {
		return domain.UpdateFlatRequest{}, err
	}
	req.ID = id
	req.SocietyID = sessionFromContext(r.Context()).SocietyID()
	return req, nil
}

func updateFlatHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/flats/{id}")
		defer span.End()

		req, err := flatUpdate(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		flat, err := svc.Update(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, flat)
	}
}

func replaceFlatHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/flats/{id}")
		defer span.End()

		req, err := flatUpdate(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		flat, err := svc.Replace(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, flat)
	}
}

func deleteFlatHandler(svc *service.FlatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/flats/{id}")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.Delete(ctx, sessionFromContext(ctx).SocietyID(), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
