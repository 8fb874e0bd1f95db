package handler

import (
	"net/http"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/onboarding"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Members and the invitation wizard
// ============================================================

type inviteRequest struct {
	Step  onboarding.Step    `json:"step" validate:"required"`
	Users []onboarding.Entry `json:"users"`
}

type skipRequest struct {
	Step onboarding.Step `json:"step" validate:"required"`
}

func listUsersHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users")
		defer span.End()

		users, err := svc.Users(ctx, sessionFromContext(ctx).SocietyID())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, users)
	}
}

func cancelUserHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{id}/cancel")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.Cancel(ctx, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "User cancelled"})
	}
}

func submitInvitationsHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invitations")
		defer span.End()

		var req inviteRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		out, err := svc.Submit(ctx, sessionFromContext(ctx).SocietyID(), req.Step, req.Users)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func listBatchesHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invitations")
		defer span.End()

		batches, err := svc.Batches(ctx, sessionFromContext(ctx).SocietyID())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if batches == nil {
			batches = []onboarding.Batch{}
		}

		writeJSON(w, http.StatusOK, batches)
	}
}

func retryInvitationsHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invitations/{batchId}/retry")
		defer span.End()

		out, err := svc.Retry(ctx, sessionFromContext(ctx).SocietyID(), chi.URLParam(r, "batchId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func wizardHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invitations/wizard")
		defer span.End()

		state, err := svc.Wizard(ctx, sessionFromContext(ctx).SocietyID())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}

func skipStepHandler(svc *service.InvitationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invitations/wizard/skip")
		defer span.End()

		var req skipRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		state, err := svc.Skip(ctx, sessionFromContext(ctx).SocietyID(), req.Step)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, state)
	}
}
