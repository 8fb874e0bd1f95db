package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/flatwise-bfa-go/internal/billing"
	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Bills, transfers, statements and payments
// ============================================================

// billQuery reads scope, status and month from the query string.
func billQuery(r *http.Request) (service.BillQuery, error) {
	sess := sessionFromContext(r.Context())
	q := service.BillQuery{
		Scope:     service.ScopeUser,
		SocietyID: sess.SocietyID(),
		UserID:    sess.User.ID,
		CanManage: sess.CanManage(),
	}

	params := r.URL.Query()
	switch scope := params.Get("scope"); scope {
	case "", string(service.ScopeUser):
	case string(service.ScopeSociety):
		q.Scope = service.ScopeSociety
	default:
		return q, &domain.ErrValidation{Field: "scope", Message: fmt.Sprintf("unknown scope %q", scope)}
	}

	switch status := strings.ToUpper(params.Get("status")); status {
	case "", "ALL":
		q.Status = billing.StatusAll
	case string(domain.BillPending), string(domain.BillPaid):
		q.Status = status
	default:
		return q, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", params.Get("status"))}
	}

	if m := params.Get("month"); m != "" {
		month, err := billing.ParseMonth(m)
		if err != nil {
			return q, err
		}
		q.Month = month
	}
	return q, nil
}

func listBillsHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bills")
		defer span.End()

		q, err := billQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		listing, err := svc.List(ctx, q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, listing)
	}
}

func statementHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bills/statement.pdf")
		defer span.End()

		q, err := billQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		title := "Bill statement"
		if q.Month != nil {
			title += " " + q.Month.String()
		}
		pdf, err := svc.Statement(ctx, q, title)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="bills.pdf"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		w.WriteHeader(http.StatusOK)
		w.Write(pdf)
	}
}

func transferBillHandler(svc *service.BillService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/bills/{id}/transfer")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		q, err := billQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		q.Scope = service.ScopeSociety

		bill, err := svc.Transfer(ctx, q, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, bill)
	}
}

func payBillHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/bills/{id}/pay")
		defer span.End()

		id, err := pathID(r, "id")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		redirect, err := svc.InitiateBill(ctx, sessionFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, redirect)
	}
}

// paymentQuery reads scope and month. Managers see the society history by
// default, everyone else their own.
func paymentQuery(r *http.Request) (service.PaymentQuery, error) {
	sess := sessionFromContext(r.Context())
	q := service.PaymentQuery{
		Scope:     service.ScopeUser,
		SocietyID: sess.SocietyID(),
		UserID:    sess.User.ID,
		CanManage: sess.CanManage(),
	}
	if q.CanManage {
		q.Scope = service.ScopeSociety
	}

	params := r.URL.Query()
	switch scope := params.Get("scope"); scope {
	case "":
	case string(service.ScopeUser), string(service.ScopeSociety):
		q.Scope = service.BillScope(scope)
	default:
		return q, &domain.ErrValidation{Field: "scope", Message: fmt.Sprintf("unknown scope %q", scope)}
	}

	if m := params.Get("month"); m != "" {
		month, err := billing.ParseMonth(m)
		if err != nil {
			return q, err
		}
		q.Month = month
	}
	return q, nil
}

func paymentHistoryHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/payments")
		defer span.End()

		q, err := paymentQuery(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		history, err := svc.History(ctx, q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, history)
	}
}

func resumePaymentHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/payments/{id}/resume")
		defer span.End()

		redirect, err := svc.Resume(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, redirect)
	}
}

func initiateSubscriptionHandler(svc *service.PaymentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/subscriptions/initiate")
		defer span.End()

		var req domain.SubscriptionRequest
		if err := decodeBody(r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		redirect, err := svc.InitiateSubscription(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, redirect)
	}
}
