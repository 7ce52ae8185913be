// Package subscriptions creates subscriptions that bind a member to a
// membership plan for a priced coverage window.
package subscriptions

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/gymdesk/pkg/domain"
)

// PriceTolerance is the largest accepted difference between a payment and the plan price.
const PriceTolerance = 0.01

// cents rounds an amount to whole cents, the precision amounts are stored at.
func cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// RoundToCents returns amount as it will be stored.
func RoundToCents(amount float64) float64 {
	return float64(cents(amount)) / 100
}

// MemberReader looks up members. A miss returns an error wrapping domain.ErrNotFound.
type MemberReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
}

// PlanReader looks up membership plans.
type PlanReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MembershipPlan, error)
}

// SubscriptionWriter persists new subscriptions.
type SubscriptionWriter interface {
	Create(ctx context.Context, s *domain.Subscription) error
}

// Service validates and records new subscriptions.
type Service struct {
	members MemberReader
	plans   PlanReader
	subs    SubscriptionWriter
	now     func() time.Time
}

// NewService creates a subscription service.
func NewService(members MemberReader, plans PlanReader, subs SubscriptionWriter) *Service {
	return &Service{
		members: members,
		plans:   plans,
		subs:    subs,
		now:     time.Now,
	}
}

// CreateRequest carries the inputs for a new subscription.
type CreateRequest struct {
	MemberID      uuid.UUID
	MembershipID  uuid.UUID
	StartDate     *time.Time // defaults to now
	PaymentStatus domain.PaymentStatus
	PaymentAmount float64
	PaymentDate   *time.Time
}

// Create checks the member and plan exist and that the payment matches the plan
// price, then stores an active subscription ending durationDays calendar days
// after its start.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Subscription, error) {
	if _, err := s.members.GetByID(ctx, req.MemberID); err != nil {
		return nil, err
	}
	plan, err := s.plans.GetByID(ctx, req.MembershipID)
	if err != nil {
		return nil, err
	}

	paid := cents(req.PaymentAmount)
	if diff := paid - cents(plan.Price); diff > cents(PriceTolerance) || -diff > cents(PriceTolerance) {
		return nil, &domain.Error{
			Kind:    domain.ErrValidation,
			Message: fmt.Sprintf("payment amount (%.2f) does not match membership price (%.2f)", req.PaymentAmount, plan.Price),
			Field:   "paymentAmount",
		}
	}

	status := req.PaymentStatus
	if status == "" {
		status = domain.PaymentPending
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidPaymentStatus
	}

	now := s.now()
	start := now
	if req.StartDate != nil {
		start = *req.StartDate
	}

	sub := &domain.Subscription{
		ID:             uuid.New(),
		MemberID:       req.MemberID,
		MembershipID:   plan.ID,
		MembershipName: plan.Name,
		StartDate:      start,
		EndDate:        EndDate(start, plan.DurationDays),
		PaymentStatus:  status,
		PaymentAmount:  float64(paid) / 100,
		PaymentDate:    req.PaymentDate,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// EndDate adds days calendar days to start, keeping its time of day.
func EndDate(start time.Time, days int) time.Time {
	return start.AddDate(0, 0, days)
}
