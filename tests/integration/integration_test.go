package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/handler"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/backend"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/cache"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/flatwise-bfa-go/internal/onboarding"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const backendToken = "backend-token-1"

// societyBackend is a minimal in-memory society REST backend.
type societyBackend struct {
	mu       sync.Mutex
	bill     domain.Bill
	assigns  int
	invites  int
	authSeen []string
}

func (b *societyBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	track := func(r *http.Request) {
		b.mu.Lock()
		b.authSeen = append(b.authSeen, r.Header.Get("Authorization"))
		b.mu.Unlock()
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, domain.LoginResponse{
			AccessToken: backendToken,
			User:        domain.User{ID: 2, Fullname: "Owner One", RoleID: domain.RoleOwner, SocietyID: 4},
			Society:     &domain.Society{ID: 4, Name: "Green Acres", Status: domain.SocietyActive},
		})
	})
	mux.HandleFunc("GET /bills/society/4", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		write(w, http.StatusOK, map[string]any{"bills": []domain.Bill{b.bill}})
	})
	mux.HandleFunc("GET /flats/11", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		write(w, http.StatusOK, map[string]any{
			"owner":     domain.User{ID: 2, Fullname: "Owner One"},
			"residents": map[string]any{"resident": domain.Resident{ID: 3, Fullname: "Resident Three"}},
		})
	})
	mux.HandleFunc("POST /bills/1/assign", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		var req domain.AssignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			write(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
			return
		}
		assert.Equal(t, domain.AssignRequest{OwnerID: 2, ResidentID: 3}, req)

		b.mu.Lock()
		defer b.mu.Unlock()
		b.assigns++
		b.bill.UserID = req.ResidentID
		write(w, http.StatusOK, b.bill)
	})
	mux.HandleFunc("POST /users/invite/bulk", func(w http.ResponseWriter, r *http.Request) {
		track(r)
		var req domain.BulkInviteRequest
		json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		b.invites++
		first := b.invites == 1
		b.mu.Unlock()

		var res domain.BulkInviteResult
		for i, u := range req.Users {
			if first && u.Email == "bilal@example.com" {
				res.Failed = append(res.Failed, domain.InviteFailure{Email: u.Email, Reason: "mailbox unavailable"})
				continue
			}
			res.Successful = append(res.Successful, domain.InviteSuccess{ID: int64(100 + i), Email: u.Email, InvitationID: int64(i + 1)})
		}
		write(w, http.StatusOK, res)
	})
	return mux
}

func newBFA(t *testing.T, backendURL string) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	api := backend.NewClient(&http.Client{Timeout: 5 * time.Second}, backendURL, nil,
		resilience.Config{MaxConcurrency: 4}, logger)

	store, err := sqlite.New(filepath.Join(t.TempDir(), "batches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	state := service.NewStateStore()
	parties := cache.New[domain.FlatParties](time.Minute)
	charges := service.NewChargeService(api, cache.New[[]domain.PredefinedServiceCharge](time.Minute), state, metrics, logger)
	bills := service.NewBillService(api, api, parties, cache.New[[]domain.Bill](time.Minute), state, metrics,
		service.NewStatementRenderer("Rs."), 4, logger)

	return handler.NewRouter(handler.Services{
		Auth:         service.NewAuthService(api, state, "", time.Hour, logger),
		Charges:      charges,
		Flats:        service.NewFlatService(api, charges, parties, state, metrics, logger),
		Bills:        bills,
		Payments:     service.NewPaymentService(api, bills, logger),
		Invitations:  service.NewInvitationService(api, store, state, metrics, logger),
		Registration: service.NewRegistrationService(api, api, api, logger),
		Checks:       map[string]handler.HealthCheck{"sqlite": store.Ping},
	}, []string{"*"}, metrics, logger)
}

func call(t *testing.T, h http.Handler, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out), rec.Body.String())
	}
	return rec.Code
}

// TestIntegration_TransferFlow logs in, lists society bills, moves the
// owner's pending bill to the resident and sees the change on the next list.
func TestIntegration_TransferFlow(t *testing.T) {
	be := &societyBackend{bill: domain.Bill{
		ID: 1, UserID: 2, FlatID: 11, SocietyID: 4, BillMonth: "2025-03-01T00:00:00Z",
		Status: domain.BillPending, TotalAmount: 150,
		CommonCharges: []domain.Charge{{Name: "Maintenance", Amount: 150}},
	}}
	server := httptest.NewServer(be.handler(t))
	defer server.Close()
	bfa := newBFA(t, server.URL)

	var session domain.SessionView
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodPost, "/v1/auth/login", "",
		domain.LoginRequest{Email: "owner@example.com", Password: "secret"}, &session))
	require.Equal(t, backendToken, session.AccessToken)

	var listing domain.BillListing
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodGet, "/v1/bills?scope=society&month=2025-03", session.AccessToken, nil, &listing))
	require.Len(t, listing.Bills, 1)
	assert.True(t, listing.Bills[0].CanTransfer)
	assert.Equal(t, "Owner One", listing.Bills[0].AssignedTo)
	assert.Equal(t, 150.0, listing.Summary.PendingAmount)

	var moved domain.Bill
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodPost, "/v1/bills/1/transfer", session.AccessToken, nil, &moved))
	assert.Equal(t, int64(3), moved.UserID)

	listing = domain.BillListing{}
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodGet, "/v1/bills?scope=society", session.AccessToken, nil, &listing))
	require.Len(t, listing.Bills, 1)
	assert.False(t, listing.Bills[0].CanTransfer, "a transferred bill cannot move again")
	assert.Equal(t, "Resident Three", listing.Bills[0].AssignedTo)

	status := call(t, bfa, http.MethodPost, "/v1/bills/1/transfer", session.AccessToken, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, 1, be.assigns, "a refused transfer never reaches the backend")

	be.mu.Lock()
	defer be.mu.Unlock()
	for _, h := range be.authSeen {
		assert.Equal(t, "Bearer "+backendToken, h)
	}
}

// TestIntegration_InvitationRetry submits a batch with one failure and
// retries only the failed entry.
func TestIntegration_InvitationRetry(t *testing.T) {
	be := &societyBackend{}
	server := httptest.NewServer(be.handler(t))
	defer server.Close()
	bfa := newBFA(t, server.URL)

	var session domain.SessionView
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodPost, "/v1/auth/login", "",
		domain.LoginRequest{Email: "owner@example.com", Password: "secret"}, &session))

	var out service.InvitationOutcome
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodPost, "/v1/invitations", session.AccessToken, map[string]any{
		"step": onboarding.StepOwners,
		"users": []onboarding.Entry{
			{Name: "Asha", Email: "asha@example.com"},
			{Name: "Bilal", Email: "bilal@example.com"},
		},
	}, &out))
	assert.Equal(t, onboarding.Counts{Sent: 1, Failed: 1}, out.Counts)
	assert.Equal(t, onboarding.StepRenters, out.Wizard.Current)

	var retried service.InvitationOutcome
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodPost, "/v1/invitations/"+out.Batch.ID+"/retry", session.AccessToken, nil, &retried))
	assert.Equal(t, onboarding.Counts{Sent: 2}, retried.Counts)

	var batches []onboarding.Batch
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodGet, "/v1/invitations", session.AccessToken, nil, &batches))
	require.Len(t, batches, 1)
	assert.True(t, batches[0].Complete())

	var health domain.HealthStatus
	require.Equal(t, http.StatusOK, call(t, bfa, http.MethodGet, "/healthz", "", nil, &health))
	assert.Equal(t, "healthy", health.Status)
}
