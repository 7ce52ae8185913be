// Package account serves login, registration and the current account.
package account

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/gymdesk/internal/http/features/common"
	"github.com/tendant/gymdesk/internal/httputil"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
)

// Service is the part of auth.Service the handlers use.
type Service interface {
	ValidateCredentials(ctx context.Context, email, password string) (*domain.Principal, error)
	RegisterAdmin(ctx context.Context, reg auth.AdminRegistration) (*domain.Admin, error)
	RegisterMember(ctx context.Context, reg auth.MemberRegistration) (*domain.Member, error)
	GenerateToken(p *domain.Principal) (string, error)
	LoadPrincipal(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.Principal, error)
	CompleteMemberProfile(ctx context.Context, id uuid.UUID, pc auth.ProfileCompletion) (*domain.Member, error)
	TokenTTL() time.Duration
}

// Handler handles account endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	rules        common.InputRules
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, service Service, rules common.InputRules, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		rules:        rules,
		cookieConfig: cookieConfig,
	}
}

// UserSummary is the account shape returned to clients.
type UserSummary struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Role            domain.Role `json:"role"`
	CompleteProfile *bool       `json:"completeProfile,omitempty"`
}

func summarize(p *domain.Principal) UserSummary {
	u := UserSummary{ID: p.ID(), Name: p.Name(), Email: p.Email(), Role: p.Role()}
	if p.Kind == domain.PrincipalMember {
		complete := p.Member.CompleteProfile
		u.CompleteProfile = &complete
	}
	return u
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the token for clients that do not use the cookie.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

// Login handles email and password sign-in.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	principal, err := h.service.ValidateCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if principal == nil {
		h.logger.Info("login failed", "email", auth.NormalizeEmail(req.Email))
		httputil.WriteError(w, h.logger, r, domain.ErrInvalidCredentials)
		return
	}

	token, err := h.service.GenerateToken(principal)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.SetAuthCookie(w, token, h.service.TokenTTL(), h.cookieConfig)

	h.logger.Info("login succeeded", "user_id", principal.ID(), "role", principal.Role())
	httputil.JSON(w, http.StatusOK, LoginResponse{Token: token, User: summarize(principal)})
}

// Logout clears the auth cookie. Tokens are stateless and stay valid until they expire.
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.ClearAuthCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// RegisterRequest represents a self-service or admin-initiated registration.
type RegisterRequest struct {
	Name       string         `json:"name" validate:"required"`
	Email      string         `json:"email" validate:"required"`
	Password   string         `json:"password" validate:"required"`
	Role       domain.Role    `json:"role" validate:"omitempty,oneof=admin staff member"`
	Phone      string         `json:"phone"`
	DocumentID string         `json:"documentId"`
	BirthDate  *httputil.Date `json:"birthDate"`
}

// RegisterResponse describes the created account.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    UserSummary `json:"user"`
}

// Register creates a member, or an admin or staff account when an admin asks for one.
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	if req.Role.IsAdministrative() {
		caller, err := common.Caller(r)
		if err != nil || caller.Role != domain.RoleAdmin {
			httputil.WriteError(w, h.logger, r, domain.ErrNoPermission)
			return
		}
		h.registerAdmin(w, r, req.Name, req.Email, req.Password, req.Role)
		return
	}

	birth := ""
	if req.BirthDate != nil {
		birth = req.BirthDate.Format(time.DateOnly)
	}
	if err := common.Required("phone", req.Phone, "documentId", req.DocumentID, "birthDate", birth); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	if err := h.checkInput(&req.Name, req.Email, req.Password); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	member, err := h.service.RegisterMember(r.Context(), auth.MemberRegistration{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      &req.Phone,
		DocumentID: &req.DocumentID,
		BirthDate:  req.BirthDate.Ptr(),
		HasAccount: true,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("member registered", "member_id", member.ID)
	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		Message: "member registered",
		User:    summarize(domain.MemberPrincipal(member)),
	})
}

// RegisterAdminRequest represents an admin-only registration of staff.
type RegisterAdminRequest struct {
	Name     string      `json:"name" validate:"required"`
	Email    string      `json:"email" validate:"required"`
	Password string      `json:"password" validate:"required"`
	Role     domain.Role `json:"role" validate:"required,oneof=admin staff"`
}

// RegisterAdmin creates an admin or staff account.
// POST /api/auth/register-admin
func (h *Handler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req RegisterAdminRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	h.registerAdmin(w, r, req.Name, req.Email, req.Password, req.Role)
}

func (h *Handler) registerAdmin(w http.ResponseWriter, r *http.Request, name, email, password string, role domain.Role) {
	if err := h.checkInput(&name, email, password); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	admin, err := h.service.RegisterAdmin(r.Context(), auth.AdminRegistration{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	h.logger.Info("administrative account registered", "admin_id", admin.ID, "role", admin.Role)
	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		Message: "administrative account registered",
		User:    summarize(domain.AdminPrincipal(admin)),
	})
}

func (h *Handler) checkInput(name *string, email, password string) error {
	if err := h.rules.Account(name, email); err != nil {
		return err
	}
	return h.rules.Password(password)
}

// Me returns the signed-in account, reloaded from its store.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, err := common.Caller(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	principal, err := h.service.LoadPrincipal(r.Context(), caller.UserID, caller.Role)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"user": summarize(principal)})
}

// CompleteProfileRequest carries the details a federated member was missing.
type CompleteProfileRequest struct {
	Phone      string         `json:"phone" validate:"required"`
	DocumentID string         `json:"documentId" validate:"required"`
	BirthDate  *httputil.Date `json:"birthDate"`
}

// CompleteProfile records phone and document id for the signed-in member.
// PATCH /api/auth/complete-profile
func (h *Handler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	caller, err := common.Caller(r)
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	var req CompleteProfileRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}

	member, err := h.service.CompleteMemberProfile(r.Context(), caller.UserID, auth.ProfileCompletion{
		Phone:      req.Phone,
		DocumentID: req.DocumentID,
		BirthDate:  req.BirthDate.Ptr(),
	})
	if err != nil {
		httputil.WriteError(w, h.logger, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, member)
}
