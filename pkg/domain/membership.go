package domain

import (
	"time"

	"github.com/google/uuid"
)

// MembershipPlan is a priced catalog entry that subscriptions are bought against.
type MembershipPlan struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	DurationDays int       `json:"durationDays"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks the catalog invariants.
func (p *MembershipPlan) Validate() error {
	if p.Name == "" {
		return &Error{Kind: ErrValidation, Message: "name is required", Field: "name"}
	}
	if p.Price < 0 {
		return &Error{Kind: ErrValidation, Message: "price must not be negative", Field: "price"}
	}
	if p.DurationDays <= 0 {
		return &Error{Kind: ErrValidation, Message: "durationDays must be positive", Field: "durationDays"}
	}
	return nil
}
