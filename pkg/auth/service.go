package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

// AdminStore is the persistence the service needs for admin and staff accounts.
// Lookups that find nothing return an error wrapping domain.ErrNotFound.
type AdminStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.Admin, error)
	Create(ctx context.Context, admin *domain.Admin) error
	Update(ctx context.Context, admin *domain.Admin) error
}

// MemberStore is the persistence the service needs for member accounts.
type MemberStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	GetByDocumentID(ctx context.Context, documentID string) (*domain.Member, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.Member, error)
	Create(ctx context.Context, member *domain.Member) error
	Update(ctx context.Context, member *domain.Member) error
}

// Config holds the signing settings handed to the service at construction.
type Config struct {
	TokenSecret []byte
	TokenExpiry string // "<int><d|h|m|s>"
	TokenIssuer string
}

// Service authenticates principals across the admin and member stores,
// registers accounts and issues tokens.
type Service struct {
	admins  AdminStore
	members MemberStore
	hasher  PasswordHasher
	tokens  *TokenIssuer
	now     func() time.Time

	// dummyHash is compared against on every store miss.
	dummyHash string
}

// NewService creates an auth service.
func NewService(cfg Config, admins AdminStore, members MemberStore, hasher PasswordHasher) *Service {
	return &Service{
		admins:  admins,
		members: members,
		hasher:  hasher,
		tokens: NewTokenIssuer(TokenConfig{
			Secret: cfg.TokenSecret,
			Expiry: cfg.TokenExpiry,
			Issuer: cfg.TokenIssuer,
		}),
		now:       time.Now,
		dummyHash: dummyPasswordHash(hasher),
	}
}

// TokenTTL is the lifetime of tokens issued by GenerateToken.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// credentialSource resolves an email to an active principal holding a password hash.
// It returns a nil principal when the store has no such account.
type credentialSource func(ctx context.Context, email string) (*domain.Principal, string, error)

func (s *Service) credentialSources() []credentialSource {
	return []credentialSource{s.adminCredentials, s.memberCredentials}
}

func (s *Service) adminCredentials(ctx context.Context, email string) (*domain.Principal, string, error) {
	admin, err := absent(s.admins.GetByEmail(ctx, email))
	if err != nil || admin == nil || !admin.Active || admin.PasswordHash == nil {
		return nil, "", err
	}
	return domain.AdminPrincipal(admin), *admin.PasswordHash, nil
}

func (s *Service) memberCredentials(ctx context.Context, email string) (*domain.Principal, string, error) {
	member, err := absent(s.members.GetByEmail(ctx, email))
	if err != nil || member == nil || !member.Active || member.PasswordHash == nil {
		return nil, "", err
	}
	return domain.MemberPrincipal(member), *member.PasswordHash, nil
}

// ValidateCredentials checks email and password against the admin store, then
// the member store. A nil principal with a nil error means no account matched.
func (s *Service) ValidateCredentials(ctx context.Context, email, password string) (*domain.Principal, error) {
	email = NormalizeEmail(email)

	for _, lookup := range s.credentialSources() {
		principal, hash, err := lookup(ctx, email)
		if err != nil {
			return nil, err
		}
		if principal == nil {
			// Burn one comparison per store so the response time does not
			// reveal which store, if any, holds the email.
			s.hasher.Verify(password, s.dummyHash)
			continue
		}

		ok, err := s.hasher.Verify(password, hash)
		if err != nil {
			return nil, oops.Code("PASSWORD_VERIFY_FAILED").
				With("principal_id", principal.ID()).
				With("kind", principal.Kind).
				Wrap(err)
		}
		if ok {
			return principal, nil
		}
	}
	return nil, nil
}

// dummyPasswordHash hashes a random password at the hasher's cost.
func dummyPasswordHash(hasher PasswordHasher) string {
	b := make([]byte, 16)
	rand.Read(b)
	h, err := hasher.Hash(hex.EncodeToString(b))
	if err != nil {
		return ""
	}
	return h
}

// AdminRegistration carries the fields for a new admin or staff account.
type AdminRegistration struct {
	Name           string
	Email          string
	Password       string // empty for accounts that only sign in through an identity provider
	Role           domain.Role
	AuthProvider   domain.AuthProvider
	GoogleID       *string
	ProfilePicture *string
}

// RegisterAdmin creates an admin or staff account. The email must be unused among admins.
func (s *Service) RegisterAdmin(ctx context.Context, reg AdminRegistration) (*domain.Admin, error) {
	email := NormalizeEmail(reg.Email)

	existing, err := absent(s.admins.GetByEmail(ctx, email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyRegistered
	}

	role := reg.Role
	if role == "" {
		role = domain.RoleStaff
	}
	if !role.IsAdministrative() {
		return nil, &domain.Error{Kind: domain.ErrValidation, Message: "role must be admin or staff", Field: "role"}
	}
	provider := reg.AuthProvider
	if provider == "" {
		provider = domain.ProviderLocal
	}

	hash, err := s.hashOptional(reg.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	admin := &domain.Admin{
		ID:             uuid.New(),
		Name:           reg.Name,
		Email:          email,
		PasswordHash:   hash,
		Role:           role,
		Active:         true,
		GoogleID:       reg.GoogleID,
		AuthProvider:   provider,
		ProfilePicture: reg.ProfilePicture,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// MemberRegistration carries the fields for a new member account.
type MemberRegistration struct {
	Name         string
	Email        string
	Password     string // empty for front-desk created members without a login
	Phone        *string
	DocumentID   *string
	BirthDate    *time.Time
	HasAccount   bool
	AuthProvider domain.AuthProvider
}

// RegisterMember creates a member. Email and, when given, document id must be unused among members.
func (s *Service) RegisterMember(ctx context.Context, reg MemberRegistration) (*domain.Member, error) {
	email := NormalizeEmail(reg.Email)

	existing, err := absent(s.members.GetByEmail(ctx, email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyRegistered
	}

	if reg.DocumentID != nil && *reg.DocumentID != "" {
		holder, err := absent(s.members.GetByDocumentID(ctx, *reg.DocumentID))
		if err != nil {
			return nil, err
		}
		if holder != nil {
			return nil, domain.ErrDocumentIDAlreadyInUse
		}
	} else {
		reg.DocumentID = nil
	}

	provider := reg.AuthProvider
	if provider == "" {
		provider = domain.ProviderLocal
	}

	hash, err := s.hashOptional(reg.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	member := &domain.Member{
		ID:               uuid.New(),
		Name:             reg.Name,
		Email:            email,
		Phone:            reg.Phone,
		DocumentID:       reg.DocumentID,
		BirthDate:        reg.BirthDate,
		RegistrationDate: now,
		Active:           true,
		PasswordHash:     hash,
		HasAccount:       reg.HasAccount,
		AuthProvider:     provider,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	member.CompleteProfile = member.ProfileComplete()

	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) hashOptional(password string) (*string, error) {
	if password == "" {
		return nil, nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}
	return &hash, nil
}

// GenerateToken issues a signed token for p.
func (s *Service) GenerateToken(p *domain.Principal) (string, error) {
	return s.tokens.Generate(p)
}

// VerifyToken validates a token. Any failure is reported as domain.ErrInvalidToken.
func (s *Service) VerifyToken(token string) (*Claims, error) {
	return s.tokens.Verify(token)
}

// LoadPrincipal reloads the account a token refers to.
func (s *Service) LoadPrincipal(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.Principal, error) {
	if role.IsAdministrative() {
		admin, err := s.admins.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return domain.AdminPrincipal(admin), nil
	}
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.MemberPrincipal(member), nil
}

// FindOrCreateGoogleUser resolves a federated sign-in to a local account of the
// target role's kind: by external id, then by email (linking the identity),
// then by creating a new account. isNew reports whether an account was created.
func (s *Service) FindOrCreateGoogleUser(ctx context.Context, ident domain.ExternalIdentity, target domain.Role) (*domain.Principal, bool, error) {
	if ident.Subject == "" || ident.Email == "" {
		return nil, false, &domain.Error{Kind: domain.ErrValidation, Message: "external identity must carry a subject and an email"}
	}
	if target == "" {
		target = domain.RoleMember
	}
	if !target.Valid() {
		return nil, false, &domain.Error{Kind: domain.ErrValidation, Message: "unknown role", Field: "role"}
	}
	ident.Email = NormalizeEmail(ident.Email)

	if target.IsAdministrative() {
		return s.findOrCreateGoogleAdmin(ctx, ident, target)
	}
	return s.findOrCreateGoogleMember(ctx, ident)
}

func (s *Service) findOrCreateGoogleAdmin(ctx context.Context, ident domain.ExternalIdentity, role domain.Role) (*domain.Principal, bool, error) {
	admin, err := absent(s.admins.GetByGoogleID(ctx, ident.Subject))
	if err != nil {
		return nil, false, err
	}
	if admin != nil {
		return domain.AdminPrincipal(admin), false, nil
	}

	admin, err = absent(s.admins.GetByEmail(ctx, ident.Email))
	if err != nil {
		return nil, false, err
	}
	if admin != nil {
		admin.GoogleID = &ident.Subject
		admin.AuthProvider = domain.ProviderGoogle
		if ident.Picture != "" {
			admin.ProfilePicture = &ident.Picture
		}
		admin.UpdatedAt = s.now()
		if err := s.admins.Update(ctx, admin); err != nil {
			return nil, false, err
		}
		return domain.AdminPrincipal(admin), false, nil
	}

	now := s.now()
	admin = &domain.Admin{
		ID:             uuid.New(),
		Name:           ident.Name,
		Email:          ident.Email,
		Role:           role,
		Active:         true,
		GoogleID:       &ident.Subject,
		AuthProvider:   domain.ProviderGoogle,
		ProfilePicture: optional(ident.Picture),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	return domain.AdminPrincipal(admin), true, nil
}

func (s *Service) findOrCreateGoogleMember(ctx context.Context, ident domain.ExternalIdentity) (*domain.Principal, bool, error) {
	member, err := absent(s.members.GetByGoogleID(ctx, ident.Subject))
	if err != nil {
		return nil, false, err
	}
	if member != nil {
		return domain.MemberPrincipal(member), false, nil
	}

	member, err = absent(s.members.GetByEmail(ctx, ident.Email))
	if err != nil {
		return nil, false, err
	}
	if member != nil {
		member.GoogleID = &ident.Subject
		member.AuthProvider = domain.ProviderGoogle
		if ident.Picture != "" {
			member.ProfilePicture = &ident.Picture
		}
		member.HasAccount = true
		member.UpdatedAt = s.now()
		if err := s.members.Update(ctx, member); err != nil {
			return nil, false, err
		}
		return domain.MemberPrincipal(member), false, nil
	}

	now := s.now()
	member = &domain.Member{
		ID:               uuid.New(),
		Name:             ident.Name,
		Email:            ident.Email,
		RegistrationDate: now,
		Active:           true,
		HasAccount:       true,
		GoogleID:         &ident.Subject,
		AuthProvider:     domain.ProviderGoogle,
		ProfilePicture:   optional(ident.Picture),
		CompleteProfile:  false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, false, err
	}
	return domain.MemberPrincipal(member), true, nil
}

// ProfileCompletion carries the fields a federated member supplies after first sign-in.
type ProfileCompletion struct {
	Phone      string
	DocumentID string
	BirthDate  *time.Time
}

// CompleteMemberProfile records the contact and identity details a member
// created through an identity provider was missing.
func (s *Service) CompleteMemberProfile(ctx context.Context, id uuid.UUID, pc ProfileCompletion) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	holder, err := absent(s.members.GetByDocumentID(ctx, pc.DocumentID))
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.ID != member.ID {
		return nil, domain.ErrDocumentIDAlreadyInUse
	}

	member.Phone = &pc.Phone
	member.DocumentID = &pc.DocumentID
	if pc.BirthDate != nil {
		member.BirthDate = pc.BirthDate
	}
	member.CompleteProfile = true
	member.UpdatedAt = s.now()
	if err := s.members.Update(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// absent maps a not-found lookup to a nil value so callers can branch on presence.
func absent[T any](v *T, err error) (*T, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
