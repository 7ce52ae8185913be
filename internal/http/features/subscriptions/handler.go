// Package subscriptions serves subscription records.
package subscriptions

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/gymdesk/internal/http/features/common"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/domain"
	"github.com/tendant/gymdesk/pkg/subscriptions"
)

// Store reads and changes subscription records.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Subscription, error)
	GetActiveByMember(ctx context.Context, memberID uuid.UUID, at time.Time) (*domain.Subscription, error)
	List(ctx context.Context, f domain.SubscriptionFilter, p domain.PageRequest) (domain.Page[*domain.Subscription], error)
	Update(ctx context.Context, s *domain.Subscription) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Creator validates and records new subscriptions.
type Creator interface {
	Create(ctx context.Context, req subscriptions.CreateRequest) (*domain.Subscription, error)
}

// Handler handles subscription endpoints.
type Handler struct {
	logger  *slog.Logger
	subs    Store
	creator Creator
	now     func() time.Time
}

// NewHandler creates a new subscriptions handler.
func NewHandler(logger *slog.Logger, subs Store, creator Creator) *Handler {
	return &Handler{logger: logger, subs: subs, creator: creator, now: time.Now}
}

// CreateRequest represents a purchase of a membership plan.
type CreateRequest struct {
	MemberID      uuid.UUID            `json:"memberId"`
	MembershipID  uuid.UUID            `json:"membershipId"`
	StartDate     *httputil.Date       `json:"startDate"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	PaymentAmount float64              `json:"paymentAmount" validate:"gte=0"`
	PaymentDate   *httputil.Date       `json:"paymentDate"`
}

// Create subscribes a member to a plan. Members may only subscribe themselves
// and default to themselves when memberId is omitted.
// POST /api/subscriptions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := common.Caller(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	var req CreateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if req.MemberID == uuid.Nil && caller.Role == domain.RoleMember {
		req.MemberID = caller.UserID
	}
	if req.MemberID == uuid.Nil {
		httputil.WriteError(w, h.logger, r, domain.NewError(domain.ErrValidation, "memberId is required").WithField("memberId"))
		return
	}
	if req.MembershipID == uuid.Nil {
		httputil.WriteError(w, h.logger, r, domain.NewError(domain.ErrValidation, "membershipId is required").WithField("membershipId"))
		return
	}
	if err := common.CanActFor(caller, req.MemberID); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	sub, err := h.creator.Create(r.Context(), subscriptions.CreateRequest{
		MemberID:      req.MemberID,
		MembershipID:  req.MembershipID,
		StartDate:     req.StartDate.Ptr(),
		PaymentStatus: req.PaymentStatus,
		PaymentAmount: req.PaymentAmount,
		PaymentDate:   req.PaymentDate.Ptr(),
	})
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"member_id", sub.MemberID,
		"membership_id", sub.MembershipID,
		"payment_status", sub.PaymentStatus,
	)
	httputil.JSON(w, http.StatusCreated, sub)
}

var subscriptionSortFields = map[string]bool{"startDate": true, "endDate": true, "paymentAmount": true, "createdAt": true}

// List returns a filtered page of subscriptions.
// GET /api/subscriptions
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	page, err := h.subs.List(r.Context(), f, httputil.PageRequest(r))
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, page)
}

func parseFilter(r *http.Request) (domain.SubscriptionFilter, error) {
	q := r.URL.Query()
	f := domain.SubscriptionFilter{
		PaymentStatus: domain.PaymentStatus(q.Get("paymentStatus")),
		SortBy:        q.Get("sortBy"),
	}
	if f.PaymentStatus != "" && !f.PaymentStatus.Valid() {
		return f, domain.ErrInvalidPaymentStatus
	}
	if f.SortBy != "" && !subscriptionSortFields[f.SortBy] {
		return f, domain.NewError(domain.ErrValidation, "sortBy must be startDate, endDate, paymentAmount or createdAt").WithField("sortBy")
	}

	var err error
	if f.SortOrder, err = httputil.SortOrder(r); err != nil {
		return f, err
	}
	if f.Active, err = httputil.QueryBool(r, "active"); err != nil {
		return f, err
	}
	if f.MemberID, err = httputil.QueryUUID(r, "memberId"); err != nil {
		return f, err
	}
	if f.MembershipID, err = httputil.QueryUUID(r, "membershipId"); err != nil {
		return f, err
	}
	for key, dst := range map[string]**time.Time{
		"startDateFrom": &f.StartDateFrom,
		"startDateTo":   &f.StartDateTo,
		"endDateFrom":   &f.EndDateFrom,
		"endDateTo":     &f.EndDateTo,
	} {
		if *dst, err = httputil.QueryTime(r, key); err != nil {
			return f, err
		}
	}
	return f, nil
}

// Get returns one subscription. Members only see their own.
// GET /api/subscriptions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, err := common.Caller(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	sub, err := h.subs.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := common.CanActFor(caller, sub.MemberID); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sub)
}

// memberScope resolves {memberId} and checks the caller may see it.
func (h *Handler) memberScope(r *http.Request) (uuid.UUID, error) {
	caller, err := common.Caller(r)
	if err != nil {
		return uuid.Nil, err
	}
	memberID, err := httputil.PathUUID(chi.URLParam(r, "memberId"), "memberId")
	if err != nil {
		return uuid.Nil, err
	}
	return memberID, common.CanActFor(caller, memberID)
}

// ListByMember returns a member's subscriptions, newest start first.
// GET /api/subscriptions/member/{memberId}
func (h *Handler) ListByMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := h.memberScope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	subs, err := h.subs.ListByMember(r.Context(), memberID)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if subs == nil {
		subs = []*domain.Subscription{}
	}
	httputil.JSON(w, http.StatusOK, subs)
}

// Active returns the subscription covering now.
// GET /api/subscriptions/member/{memberId}/active
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	memberID, err := h.memberScope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	sub, err := h.subs.GetActiveByMember(r.Context(), memberID, h.now())
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sub)
}

// UpdateRequest changes the fields that are present. The plan and member are fixed.
type UpdateRequest struct {
	StartDate     *httputil.Date        `json:"startDate"`
	EndDate       *httputil.Date        `json:"endDate"`
	PaymentStatus *domain.PaymentStatus `json:"paymentStatus"`
	PaymentAmount *float64              `json:"paymentAmount" validate:"omitempty,gte=0"`
	PaymentDate   *httputil.Date        `json:"paymentDate"`
	Active        *bool                 `json:"active"`
}

// Update records administrative corrections, such as a completed payment.
// PUT /api/subscriptions/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	var req UpdateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	sub, err := h.subs.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	if req.StartDate != nil {
		sub.StartDate = req.StartDate.Time
	}
	if req.EndDate != nil {
		sub.EndDate = req.EndDate.Time
	}
	if req.PaymentStatus != nil {
		if !req.PaymentStatus.Valid() {
			httputil.WriteError(w, h.logger, r, domain.ErrInvalidPaymentStatus)
			return
		}
		sub.PaymentStatus = *req.PaymentStatus
	}
	if req.PaymentAmount != nil {
		sub.PaymentAmount = subscriptions.RoundToCents(*req.PaymentAmount)
	}
	if req.PaymentDate != nil {
		sub.PaymentDate = req.PaymentDate.Ptr()
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}
	if sub.EndDate.Before(sub.StartDate) {
		httputil.WriteError(w, h.logger, r, domain.NewError(domain.ErrValidation, "endDate must not be before startDate").WithField("endDate"))
		return
	}

	sub.UpdatedAt = h.now()
	if err := h.subs.Update(r.Context(), sub); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sub)
}

// Delete removes a subscription.
// DELETE /api/subscriptions/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := h.subs.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("subscription deleted", "subscription_id", id)
	w.WriteHeader(http.StatusNoContent)
}
