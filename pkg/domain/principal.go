package domain

import "github.com/google/uuid"

// PrincipalKind identifies which account store a principal came from.
type PrincipalKind string

const (
	PrincipalAdmin  PrincipalKind = "admin"
	PrincipalMember PrincipalKind = "member"
)

// Principal is an authenticated account of one of the two kinds.
// Exactly one of Admin and Member is set, matching Kind.
type Principal struct {
	Kind   PrincipalKind
	Admin  *Admin
	Member *Member
}

// AdminPrincipal wraps an admin or staff account.
func AdminPrincipal(a *Admin) *Principal {
	return &Principal{Kind: PrincipalAdmin, Admin: a}
}

// MemberPrincipal wraps a member account.
func MemberPrincipal(m *Member) *Principal {
	return &Principal{Kind: PrincipalMember, Member: m}
}

func (p *Principal) ID() uuid.UUID {
	if p.Kind == PrincipalAdmin {
		return p.Admin.ID
	}
	return p.Member.ID
}

func (p *Principal) Email() string {
	if p.Kind == PrincipalAdmin {
		return p.Admin.Email
	}
	return p.Member.Email
}

func (p *Principal) Name() string {
	if p.Kind == PrincipalAdmin {
		return p.Admin.Name
	}
	return p.Member.Name
}

// Role is the admin's stored role, or RoleMember for members.
func (p *Principal) Role() Role {
	if p.Kind == PrincipalAdmin {
		return p.Admin.Role
	}
	return RoleMember
}

// Account returns the underlying admin or member record.
func (p *Principal) Account() any {
	if p.Kind == PrincipalAdmin {
		return p.Admin
	}
	return p.Member
}
