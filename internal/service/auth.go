package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

const (
	msgSocietyInactive = "Your society is currently inactive. Please contact support."
	residentService    = "RESIDENT"
)

// AuthService logs users in against the backend and keeps their sessions.
type AuthService struct {
	api    port.AuthAPI
	state  *StateStore
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates a new auth service. An empty jwtSecret accepts
// backend tokens without verifying their signature.
func NewAuthService(api port.AuthAPI, state *StateStore, jwtSecret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		api:    api,
		state:  state,
		secret: []byte(jwtSecret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// ============================================================
// Login: POST /v1/auth/login
// ============================================================

// Login authenticates with the backend. An INACTIVE society blocks login;
// PAYMENT_DUE logs in and flags the session.
func (s *AuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.SessionView, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	resp, err := s.api.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", resp.User.ID))

	if resp.Society != nil {
		s.refreshSociety(*resp.Society)
	}
	if resp.Society != nil && resp.Society.Status == domain.SocietyInactive {
		s.logger.Warn("login: society inactive",
			zap.Int64("user_id", resp.User.ID),
			zap.Int64("society_id", resp.Society.ID),
		)
		return nil, &domain.ErrForbidden{Action: "login", Message: msgSocietyInactive}
	}

	expiresAt, err := s.expiry(resp.AccessToken)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Key:       SessionKey(resp.AccessToken),
		Token:     resp.AccessToken,
		User:      resp.User,
		Society:   resp.Society,
		ExpiresAt: expiresAt,
	}
	s.state.Put(sess)
	s.state.Publish(Event{Kind: EventLogin, SocietyID: sess.SocietyID(), UserID: sess.User.ID})

	paymentDue := resp.Society != nil && resp.Society.Status == domain.SocietyPaymentDue
	s.logger.Info("user logged in",
		zap.Int64("user_id", resp.User.ID),
		zap.String("role", resp.User.RoleID.String()),
		zap.Bool("payment_due", paymentDue),
	)

	return &domain.SessionView{
		AccessToken: resp.AccessToken,
		User:        resp.User,
		Role:        resp.User.RoleID.String(),
		Society:     resp.Society,
		PaymentDue:  paymentDue,
	}, nil
}

// expiry reads exp from the token. Tokens that are not JWTs, or carry no
// exp, live for the configured session TTL.
func (s *AuthService) expiry(token string) (time.Time, error) {
	fallback := s.now().Add(s.ttl)
	claims := jwt.RegisteredClaims{}

	if len(s.secret) > 0 {
		_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		}, jwt.WithTimeFunc(s.now))
		if err != nil {
			return time.Time{}, &domain.ErrUnauthorized{Message: "invalid access token"}
		}
	} else if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fallback, nil
	}

	if claims.ExpiresAt == nil {
		return fallback, nil
	}
	exp := claims.ExpiresAt.Time
	if !exp.After(s.now()) {
		return time.Time{}, &domain.ErrUnauthorized{Message: "session expired"}
	}
	return exp, nil
}

// refreshSociety pushes the society block of a fresh login to every other
// live session of the same society.
func (s *AuthService) refreshSociety(soc domain.Society) {
	siblings := s.state.Select(func(o *Session) bool { return o.SocietyID() == soc.ID })
	if len(siblings) == 0 {
		return
	}
	s.state.UpdateSociety(soc)
	s.logger.Debug("society refreshed on live sessions",
		zap.Int64("society_id", soc.ID),
		zap.String("status", string(soc.Status)),
		zap.Int("sessions", len(siblings)),
	)
}

// Session resolves a bearer token to its session. A session whose society
// has since become INACTIVE is dropped.
func (s *AuthService) Session(token string) (*Session, error) {
	if token == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing access token"}
	}
	key := SessionKey(token)
	sess, ok := s.state.Get(key)
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "session expired"}
	}
	if sess.Society != nil && sess.Society.Status == domain.SocietyInactive {
		s.state.Delete(key)
		return nil, &domain.ErrForbidden{Action: "session", Message: msgSocietyInactive}
	}
	return sess, nil
}

// Logout drops the session for token.
func (s *AuthService) Logout(token string) {
	key := SessionKey(token)
	sess, ok := s.state.Get(key)
	s.state.Delete(key)
	if ok {
		s.state.Publish(Event{Kind: EventLogout, SocietyID: sess.SocietyID(), UserID: sess.User.ID})
	}
}

// ============================================================
// Invitation acceptance: POST /v1/invitations/{token}/accept
// ============================================================

// AcceptInvitation activates an invited account. Alias defaults to the
// username.
func (s *AuthService) AcceptInvitation(ctx context.Context, req domain.AcceptInvitationRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.AcceptInvitation")
	defer span.End()

	if req.Token == "" {
		return &domain.ErrValidation{Field: "token", Message: "Invalid or missing invitation token"}
	}
	req.Username = strings.TrimSpace(req.Username)
	if strings.TrimSpace(req.Alias) == "" {
		req.Alias = req.Username
	}
	req.ServiceType = residentService

	if err := s.api.AcceptInvitation(ctx, req); err != nil {
		return err
	}
	s.logger.Info("invitation accepted", zap.String("username", req.Username))
	return nil
}
