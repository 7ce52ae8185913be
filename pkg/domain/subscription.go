package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement state of a subscription payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// Subscription binds a member to a membership plan for a coverage window.
type Subscription struct {
	ID             uuid.UUID     `json:"id"`
	MemberID       uuid.UUID     `json:"memberId"`
	MembershipID   uuid.UUID     `json:"membershipId"`
	MembershipName string        `json:"membershipName"`
	StartDate      time.Time     `json:"startDate"`
	EndDate        time.Time     `json:"endDate"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	PaymentAmount  float64       `json:"paymentAmount"`
	PaymentDate    *time.Time    `json:"paymentDate,omitempty"`
	Active         bool          `json:"active"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Covers reports whether the subscription is active and t falls inside its window.
func (s *Subscription) Covers(t time.Time) bool {
	return s.Active && !t.Before(s.StartDate) && !t.After(s.EndDate)
}
