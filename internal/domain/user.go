package domain

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// Users & societies
// ============================================================

// Role is the backend role id.
type Role int

const (
	RoleAdmin    Role = 1
	RoleOwner    Role = 2
	RoleResident Role = 3
)

// String returns the role name used by the web client.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	}
	return "resident"
}

// CanManage reports whether the role may edit flats, charges and invitations.
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleOwner
}

// User is a society member as returned by the backend.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	Fullname  string `json:"fullname"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	RoleID    Role   `json:"role_id,omitempty"`
	SocietyID int64  `json:"society_id,omitempty"`
	FlatID    *int64 `json:"flat_id,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Validate rejects user payloads without an id.
func (u *User) Validate() error {
	if u.ID <= 0 {
		return &ErrDecode{Schema: "user", Reason: "missing id"}
	}
	return nil
}

// SocietyStatus gates login for every member of a society.
type SocietyStatus string

const (
	SocietyActive     SocietyStatus = "ACTIVE"
	SocietyInactive   SocietyStatus = "INACTIVE"
	SocietyPaymentDue SocietyStatus = "PAYMENT_DUE"
)

// Society is a residential society.
type Society struct {
	ID      int64         `json:"id"`
	Name    string        `json:"name"`
	Address string        `json:"address,omitempty"`
	City    string        `json:"city,omitempty"`
	State   string        `json:"state,omitempty"`
	Country string        `json:"country,omitempty"`
	Status  SocietyStatus `json:"status,omitempty"`
}

// SocietyUsers is the response of GET /users/society/:id.
type SocietyUsers struct {
	Owners    []User `json:"owners"`
	Residents []User `json:"residents"`
}

// ============================================================
// Auth
// ============================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the backend's answer to a login.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	User        User     `json:"user"`
	Society     *Society `json:"society,omitempty"`
}

// Validate enforces the login schema.
func (l *LoginResponse) Validate() error {
	if l.AccessToken == "" {
		return &ErrDecode{Schema: "login", Reason: "missing access_token"}
	}
	return l.User.Validate()
}

// SessionView is what the BFA returns to the browser after login.
type SessionView struct {
	AccessToken string   `json:"access_token"`
	User        User     `json:"user"`
	Role        string   `json:"role"`
	Society     *Society `json:"society,omitempty"`
	PaymentDue  bool     `json:"payment_due"`
}

// ============================================================
// Registration
// ============================================================

// NewUserRequest is the body of POST /users.
type NewUserRequest struct {
	Username  string `json:"username"`
	Fullname  string `json:"fullname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	RoleID    Role   `json:"role_id"`
	SocietyID int64  `json:"society_id"`
	Status    string `json:"status"`
}

// NewSocietyRequest is the body of POST /societies.
type NewSocietyRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
}

// RegistrationFlat is one flat entered in the registration wizard.
type RegistrationFlat struct {
	Number   string `json:"number" validate:"required"`
	FlatType string `json:"flat_type" validate:"required"`
}

// RegistrationRequest carries the admin and flat details collected by the
// registration wizard.
type RegistrationRequest struct {
	FirstName string             `json:"first_name" validate:"required"`
	LastName  string             `json:"last_name" validate:"required"`
	Email     string             `json:"email" validate:"required,email"`
	Phone     string             `json:"phone" validate:"required"`
	Password  string             `json:"password" validate:"required,min=6"`
	SocietyID int64              `json:"society_id" validate:"required,gt=0"`
	Flats     []RegistrationFlat `json:"flats" validate:"dive"`
}

// RegistrationResult reports each step of a registration.
type RegistrationResult struct {
	User  User           `json:"user"`
	Flats BulkFlatResult `json:"flats"`
}

// ============================================================
// Invitations
// ============================================================

// InviteUser is one entry of POST /users/invite/bulk.
type InviteUser struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	RoleID   Role   `json:"role_id"`
	FlatID   *int64 `json:"flat_id,omitempty"`
}

// BulkInviteRequest is the body of POST /users/invite/bulk.
type BulkInviteRequest struct {
	SocietyID int64        `json:"society_id"`
	Users     []InviteUser `json:"users"`
}

// InviteSuccess is a successfully invited user.
type InviteSuccess struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	InvitationID int64  `json:"invitationId"`
}

// InviteFailure is a rejected invitation. The backend sends either an
// object with an email or a bare string.
type InviteFailure struct {
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *InviteFailure) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f.Email = s
		return nil
	}
	var raw struct {
		Email   string `json:"email"`
		Reason  string `json:"reason"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	f.Email = raw.Email
	switch {
	case raw.Reason != "":
		f.Reason = raw.Reason
	case raw.Error != "":
		f.Reason = raw.Error
	default:
		f.Reason = raw.Message
	}
	return nil
}

// BulkInviteResult partitions an invitation batch.
type BulkInviteResult struct {
	Successful []InviteSuccess `json:"successful"`
	Failed     []InviteFailure `json:"failed"`
}

// Validate rejects a response that names no outcome for a non-empty batch.
func (r *BulkInviteResult) Validate() error {
	for i, s := range r.Successful {
		if s.Email == "" {
			return &ErrDecode{Schema: "invite_result", Reason: fmt.Sprintf("successful[%d] has no email", i)}
		}
	}
	return nil
}

// AcceptInvitationRequest is the body of POST /users/token/:token/accept.
type AcceptInvitationRequest struct {
	Token       string `json:"token"`
	Username    string `json:"username" validate:"required,min=3"`
	Password    string `json:"password" validate:"required,min=8"`
	Alias       string `json:"alias,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ServiceType string `json:"service_type"`
}
