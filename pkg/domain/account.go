package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role carried by a principal.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleMember:
		return true
	}
	return false
}

// IsAdministrative reports whether r belongs to the admin account store.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleStaff
}

// AuthProvider records how an account authenticates.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
)

// Admin is an administrative (admin or staff) account.
type Admin struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	PasswordHash   *string      `json:"-"`
	Role           Role         `json:"role"`
	Active         bool         `json:"active"`
	GoogleID       *string      `json:"googleId,omitempty"`
	AuthProvider   AuthProvider `json:"authProvider"`
	ProfilePicture *string      `json:"profilePicture,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Member is a gym member account.
type Member struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Email            string       `json:"email"`
	Phone            *string      `json:"phone,omitempty"`
	DocumentID       *string      `json:"documentId,omitempty"`
	BirthDate        *time.Time   `json:"birthDate,omitempty"`
	RegistrationDate time.Time    `json:"registrationDate"`
	Active           bool         `json:"active"`
	PasswordHash     *string      `json:"-"`
	HasAccount       bool         `json:"hasAccount"`
	GoogleID         *string      `json:"googleId,omitempty"`
	AuthProvider     AuthProvider `json:"authProvider"`
	ProfilePicture   *string      `json:"profilePicture,omitempty"`
	CompleteProfile  bool         `json:"completeProfile"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// ProfileComplete reports whether the fields a front desk needs are present.
func (m *Member) ProfileComplete() bool {
	return m.Phone != nil && *m.Phone != "" && m.DocumentID != nil && *m.DocumentID != ""
}

// ExternalIdentity is a federated sign-in credential returned by an identity provider.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}
