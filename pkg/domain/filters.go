package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberFilter narrows a member listing. Nil fields are ignored.
type MemberFilter struct {
	Active               *bool
	Name                 string // case-insensitive substring
	Email                string
	DocumentID           string
	HasAccount           *bool
	RegistrationDateFrom *time.Time
	RegistrationDateTo   *time.Time
	SortBy               string // name, email or registrationDate
	SortOrder            SortOrder
}

// SubscriptionFilter narrows a subscription listing. Nil fields are ignored.
type SubscriptionFilter struct {
	Active        *bool
	MemberID      *uuid.UUID
	MembershipID  *uuid.UUID
	PaymentStatus PaymentStatus
	StartDateFrom *time.Time
	StartDateTo   *time.Time
	EndDateFrom   *time.Time
	EndDateTo     *time.Time
	SortBy        string // startDate, endDate, paymentAmount or createdAt
	SortOrder     SortOrder
}
