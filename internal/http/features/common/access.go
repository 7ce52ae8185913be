package common

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/gymdesk/internal/http/middleware"
	"github.com/tendant/gymdesk/pkg/auth"
	"github.com/tendant/gymdesk/pkg/domain"
)

// Caller returns the authenticated claims or domain.ErrMissingAuthorization.
func Caller(r *http.Request) (*auth.Claims, error) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		return nil, domain.ErrMissingAuthorization
	}
	return claims, nil
}

// CanActFor allows admins and staff to act on any member and members only on themselves.
func CanActFor(claims *auth.Claims, memberID uuid.UUID) error {
	if claims.Role.IsAdministrative() || claims.UserID == memberID {
		return nil
	}
	return domain.ErrNoPermission
}
