// Package members serves member records to the front desk and to members themselves.
package members

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/gymdesk/internal/http/features/common"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
)

// Store reads and changes member records.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	GetByDocumentID(ctx context.Context, documentID string) (*domain.Member, error)
	List(ctx context.Context, f domain.MemberFilter, p domain.PageRequest) (domain.Page[*domain.Member], error)
	Update(ctx context.Context, m *domain.Member) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Registrar creates members with the same uniqueness rules as self-registration.
type Registrar interface {
	RegisterMember(ctx context.Context, reg auth.MemberRegistration) (*domain.Member, error)
}

// Handler handles member endpoints.
type Handler struct {
	logger    *slog.Logger
	members   Store
	registrar Registrar
	rules     common.InputRules
	now       func() time.Time
}

// NewHandler creates a new members handler.
func NewHandler(logger *slog.Logger, members Store, registrar Registrar, rules common.InputRules) *Handler {
	return &Handler{
		logger:    logger,
		members:   members,
		registrar: registrar,
		rules:     rules,
		now:       time.Now,
	}
}

// CreateRequest represents a member added at the front desk.
type CreateRequest struct {
	Name       string         `json:"name" validate:"required"`
	Email      string         `json:"email" validate:"required"`
	Phone      string         `json:"phone"`
	DocumentID string         `json:"documentId"`
	BirthDate  *httputil.Date `json:"birthDate"`
}

// Create adds a member without login credentials.
// POST /api/members
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := h.rules.Account(&req.Name, req.Email); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	member, err := h.registrar.RegisterMember(r.Context(), auth.MemberRegistration{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      optional(req.Phone),
		DocumentID: optional(req.DocumentID),
		BirthDate:  req.BirthDate.Ptr(),
	})
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("member created", "member_id", member.ID)
	httputil.JSON(w, http.StatusCreated, member)
}

var memberSortFields = map[string]bool{"name": true, "email": true, "registrationDate": true}

// List returns a filtered page of members.
// GET /api/members?active=&name=&email=&documentId=&hasAccount=&registrationDateFrom=&registrationDateTo=&sortBy=&sortOrder=&page=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	page, err := h.members.List(r.Context(), f, httputil.PageRequest(r))
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, page)
}

func parseFilter(r *http.Request) (domain.MemberFilter, error) {
	q := r.URL.Query()
	f := domain.MemberFilter{
		Name:       q.Get("name"),
		Email:      q.Get("email"),
		DocumentID: q.Get("documentId"),
		SortBy:     q.Get("sortBy"),
	}
	if f.SortBy != "" && !memberSortFields[f.SortBy] {
		return f, domain.NewError(domain.ErrValidation, "sortBy must be name, email or registrationDate").WithField("sortBy")
	}

	var err error
	if f.SortOrder, err = httputil.SortOrder(r); err != nil {
		return f, err
	}
	if f.Active, err = httputil.QueryBool(r, "active"); err != nil {
		return f, err
	}
	if f.HasAccount, err = httputil.QueryBool(r, "hasAccount"); err != nil {
		return f, err
	}
	if f.RegistrationDateFrom, err = httputil.QueryTime(r, "registrationDateFrom"); err != nil {
		return f, err
	}
	if f.RegistrationDateTo, err = httputil.QueryTime(r, "registrationDateTo"); err != nil {
		return f, err
	}
	return f, nil
}

// load resolves the {id} member and checks the caller may act on it.
func (h *Handler) load(r *http.Request) (*domain.Member, *auth.Claims, error) {
	caller, err := common.Caller(r)
	if err != nil {
		return nil, nil, err
	}
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		return nil, nil, err
	}
	if err := common.CanActFor(caller, id); err != nil {
		return nil, nil, err
	}
	m, err := h.members.GetByID(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	return m, caller, nil
}

// Get returns one member.
// GET /api/members/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, _, err := h.load(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

// UpdateRequest changes the fields that are present.
type UpdateRequest struct {
	Name       *string        `json:"name"`
	Email      *string        `json:"email"`
	Phone      *string        `json:"phone"`
	DocumentID *string        `json:"documentId"`
	BirthDate  *httputil.Date `json:"birthDate"`
	Active     *bool          `json:"active"`
}

// Update edits a member. Only admins and staff may change the active flag.
// PUT /api/members/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	m, caller, err := h.load(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	var req UpdateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := h.apply(r.Context(), m, caller, req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	m.UpdatedAt = h.now()
	if err := h.members.Update(r.Context(), m); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, m)
}

func (h *Handler) apply(ctx context.Context, m *domain.Member, caller *auth.Claims, req UpdateRequest) error {
	if req.Active != nil && !caller.Role.IsAdministrative() {
		return domain.ErrNoPermission
	}

	name, email := m.Name, m.Email
	if req.Name != nil {
		name = *req.Name
	}
	if req.Email != nil {
		email = auth.NormalizeEmail(*req.Email)
	}
	if err := h.rules.Account(&name, email); err != nil {
		return err
	}
	m.Name, m.Email = name, email

	if req.DocumentID != nil {
		doc := optional(*req.DocumentID)
		if doc != nil {
			holder, err := h.members.GetByDocumentID(ctx, *doc)
			switch {
			case err == nil && holder.ID != m.ID:
				return domain.ErrDocumentIDAlreadyInUse
			case err != nil && !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}
		m.DocumentID = doc
	}
	if req.Phone != nil {
		m.Phone = optional(*req.Phone)
	}
	if req.BirthDate != nil {
		m.BirthDate = req.BirthDate.Ptr()
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
	m.CompleteProfile = m.ProfileComplete()
	return nil
}

// Delete removes a member and, with it, their subscriptions.
// DELETE /api/members/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := h.members.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("member deleted", "member_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
