// Package memberships serves the membership plan catalog.
package memberships

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/domain"
)

// Store persists membership plans.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MembershipPlan, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.MembershipPlan, error)
	Create(ctx context.Context, plan *domain.MembershipPlan) error
	Update(ctx context.Context, plan *domain.MembershipPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Handler handles membership plan endpoints.
type Handler struct {
	logger *slog.Logger
	plans  Store
	now    func() time.Time
}

// NewHandler creates a new memberships handler.
func NewHandler(logger *slog.Logger, plans Store) *Handler {
	return &Handler{logger: logger, plans: plans, now: time.Now}
}

// List returns the catalog, cheapest first.
// GET /api/memberships?active=true
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	active, err := httputil.QueryBool(r, "active")
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	plans, err := h.plans.List(r.Context(), active != nil && *active)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, plans)
}

// Get returns one plan.
// GET /api/memberships/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.load(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, plan)
}

func (h *Handler) load(r *http.Request) (*domain.MembershipPlan, error) {
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		return nil, err
	}
	return h.plans.GetByID(r.Context(), id)
}

// CreateRequest represents a new catalog entry.
type CreateRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	Description  string  `json:"description" validate:"max=500"`
	Price        float64 `json:"price" validate:"gte=0"`
	DurationDays int     `json:"durationDays" validate:"gt=0"`
}

// Create adds an active plan.
// POST /api/memberships
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	now := h.now()
	plan := &domain.MembershipPlan{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := plan.Validate(); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := h.plans.Create(r.Context(), plan); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("membership plan created", "plan_id", plan.ID, "name", plan.Name)
	httputil.JSON(w, http.StatusCreated, plan)
}

// UpdateRequest changes the fields that are present.
type UpdateRequest struct {
	Name         *string  `json:"name" validate:"omitempty,max=100"`
	Description  *string  `json:"description" validate:"omitempty,max=500"`
	Price        *float64 `json:"price"`
	DurationDays *int     `json:"durationDays"`
	Active       *bool    `json:"active"`
}

// Update edits a plan. Existing subscriptions keep the dates and name they were created with.
// PUT /api/memberships/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	plan, err := h.load(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	var req UpdateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = *req.Description
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.DurationDays != nil {
		plan.DurationDays = *req.DurationDays
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}
	if err := plan.Validate(); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	plan.UpdatedAt = h.now()
	if err := h.plans.Update(r.Context(), plan); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, plan)
}

// Delete removes a plan no subscription references.
// DELETE /api/memberships/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := h.plans.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("membership plan deleted", "plan_id", id)
	w.WriteHeader(http.StatusNoContent)
}
