package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func signToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func loginBackend(token string, status domain.SocietyStatus) *fakeBackend {
	return &fakeBackend{login: func(domain.LoginRequest) (*domain.LoginResponse, error) {
		return &domain.LoginResponse{
			AccessToken: token,
			User:        domain.User{ID: 2, Fullname: "Owner One", RoleID: domain.RoleOwner, SocietyID: 4},
			Society:     &domain.Society{ID: 4, Status: status},
		}, nil
	}}
}

func TestAuthService_LoginCreatesSession(t *testing.T) {
	state := service.NewStateStore()
	svc := service.NewAuthService(loginBackend("opaque-token", domain.SocietyActive), state, "", time.Hour, zap.NewNop())

	var events []service.Event
	state.Subscribe(func(e service.Event) { events = append(events, e) })

	view, err := svc.Login(context.Background(), domain.LoginRequest{Email: " Owner@Example.com ", Password: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Role != "owner" || view.PaymentDue {
		t.Errorf("unexpected view %+v", view)
	}

	sess, err := svc.Session("opaque-token")
	if err != nil {
		t.Fatalf("expected session, got %v", err)
	}
	if sess.SocietyID() != 4 || !sess.CanManage() {
		t.Errorf("unexpected session %+v", sess)
	}
	if len(events) != 1 || events[0].Kind != service.EventLogin {
		t.Errorf("expected a login event, got %+v", events)
	}

	svc.Logout("opaque-token")
	if _, err := svc.Session("opaque-token"); err == nil {
		t.Error("expected no session after logout")
	}
	if state.Len() != 0 {
		t.Errorf("expected empty store, got %d", state.Len())
	}
}

func TestAuthService_InactiveSociety(t *testing.T) {
	state := service.NewStateStore()
	svc := service.NewAuthService(loginBackend("tok", domain.SocietyInactive), state, "", time.Hour, zap.NewNop())

	_, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.io", Password: "x"})

	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if forbidden.Error() != "Your society is currently inactive. Please contact support." {
		t.Errorf("unexpected message %q", forbidden.Error())
	}
	if state.Len() != 0 {
		t.Error("no session should be stored")
	}
}

func TestAuthService_PaymentDueLogsIn(t *testing.T) {
	svc := service.NewAuthService(loginBackend("tok", domain.SocietyPaymentDue), service.NewStateStore(), "", time.Hour, zap.NewNop())

	view, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.io", Password: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.PaymentDue {
		t.Error("expected payment_due flag")
	}
}

func TestAuthService_LoginRefreshesSocietyOnLiveSessions(t *testing.T) {
	status := domain.SocietyActive
	var n int
	be := &fakeBackend{login: func(domain.LoginRequest) (*domain.LoginResponse, error) {
		n++
		return &domain.LoginResponse{
			AccessToken: "tok-" + string(rune('0'+n)),
			User:        domain.User{ID: int64(n), RoleID: domain.RoleResident, SocietyID: 4},
			Society:     &domain.Society{ID: 4, Status: status},
		}, nil
	}}
	svc := service.NewAuthService(be, service.NewStateStore(), "", time.Hour, zap.NewNop())

	if _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.io", Password: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status = domain.SocietyPaymentDue
	if _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "c@d.io", Password: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, err := svc.Session("tok-1")
	if err != nil {
		t.Fatalf("expected the first session, got %v", err)
	}
	if first.Society.Status != domain.SocietyPaymentDue {
		t.Errorf("expected PAYMENT_DUE on the earlier session, got %s", first.Society.Status)
	}

	status = domain.SocietyInactive
	if _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "e@f.io", Password: "x"}); err == nil {
		t.Fatal("expected an inactive society to refuse login")
	}
	_, err = svc.Session("tok-1")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden for a session of an inactive society, got %v", err)
	}
	if _, err := svc.Session("tok-1"); !errors.As(err, new(*domain.ErrUnauthorized)) {
		t.Errorf("expected the session dropped, got %v", err)
	}
}

func TestAuthService_TokenExpiry(t *testing.T) {
	const secret = "s3cret"

	t.Run("expiry taken from a signed token", func(t *testing.T) {
		exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
		tok := signToken(t, secret, exp)
		svc := service.NewAuthService(loginBackend(tok, domain.SocietyActive), service.NewStateStore(), secret, 12*time.Hour, zap.NewNop())

		if _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.io", Password: "x"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sess, err := svc.Session(tok)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sess.ExpiresAt.Equal(exp) {
			t.Errorf("expected expiry %v, got %v", exp, sess.ExpiresAt)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		tok := signToken(t, secret, time.Now().Add(-time.Minute))
		svc := service.NewAuthService(loginBackend(tok, domain.SocietyActive), service.NewStateStore(), secret, time.Hour, zap.NewNop())

		_, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.io", Password: "x"})
		var unauth *domain.ErrUnauthorized
		if !errors.As(err, &unauth) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("wrong signature is rejected", func(t *testing.T) {
		tok := signToken(t, "other", time.Now().Add(time.Hour))
		svc := service.NewAuthService(loginBackend(tok, domain.SocietyActive), service.NewStateStore(), secret, time.Hour, zap.NewNop())

		if _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@b.io", Password: "x"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestAuthService_AcceptInvitationDefaultsAlias(t *testing.T) {
	var got domain.AcceptInvitationRequest
	be := &fakeBackend{acceptInvitation: func(req domain.AcceptInvitationRequest) error {
		got = req
		return nil
	}}
	svc := service.NewAuthService(be, service.NewStateStore(), "", time.Hour, zap.NewNop())

	err := svc.AcceptInvitation(context.Background(), domain.AcceptInvitationRequest{Token: "t1", Username: "asha", Password: "password1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Alias != "asha" || got.ServiceType != "RESIDENT" {
		t.Errorf("unexpected request %+v", got)
	}

	err = svc.AcceptInvitation(context.Background(), domain.AcceptInvitationRequest{Username: "asha"})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) || verr.Message != "Invalid or missing invitation token" {
		t.Errorf("expected token validation error, got %v", err)
	}
}

func TestStateStore_SubscribeAndSelect(t *testing.T) {
	store := service.NewStateStore()
	store.Put(&service.Session{Key: "a", User: domain.User{ID: 1, SocietyID: 4}})
	store.Put(&service.Session{Key: "b", User: domain.User{ID: 2, SocietyID: 5}})
	store.Put(&service.Session{Key: "c", User: domain.User{ID: 3, SocietyID: 4}, ExpiresAt: time.Now().Add(-time.Second)})

	inSociety := store.Select(func(s *service.Session) bool { return s.SocietyID() == 4 })
	if len(inSociety) != 1 || inSociety[0].User.ID != 1 {
		t.Errorf("expected only the live session of society 4, got %+v", inSociety)
	}

	var got []service.EventKind
	unsubscribe := store.Subscribe(func(e service.Event) { got = append(got, e.Kind) })
	store.Publish(service.Event{Kind: service.EventFlatsChanged})
	unsubscribe()
	store.Publish(service.Event{Kind: service.EventBillsChanged})

	if len(got) != 1 || got[0] != service.EventFlatsChanged {
		t.Errorf("unexpected events %v", got)
	}

	store.UpdateSociety(domain.Society{ID: 4, Status: domain.SocietyPaymentDue})
	sess, ok := store.Get("a")
	if !ok || sess.Society == nil || sess.Society.Status != domain.SocietyPaymentDue {
		t.Errorf("expected society status updated, got %+v", sess)
	}
}
