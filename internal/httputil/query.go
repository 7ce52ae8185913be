package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/gymdesk/pkg/domain"
)

// PageRequest reads page and limit query parameters. Bad values fall back to defaults.
func PageRequest(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.PageRequest{Page: page, Limit: limit}.Normalize()
}

// SortOrder reads sortOrder, accepting only asc and desc.
func SortOrder(r *http.Request) (domain.SortOrder, error) {
	switch v := domain.SortOrder(r.URL.Query().Get("sortOrder")); v {
	case "", domain.SortAsc, domain.SortDesc:
		return v, nil
	}
	return "", domain.NewError(domain.ErrValidation, "sortOrder must be asc or desc").WithField("sortOrder")
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, "%s must be true or false", key).WithField(key)
	}
	return &v, nil
}

// QueryTime parses an optional RFC 3339 timestamp or YYYY-MM-DD date.
func QueryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := ParseTime(raw)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, "%s must be a date", key).WithField(key)
	}
	return &t, nil
}

// QueryUUID parses an optional identifier query parameter.
func QueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, "%s must be a valid id", key).WithField(key)
	}
	return &id, nil
}

// ParseTime accepts RFC 3339 or a bare YYYY-MM-DD date (midnight UTC).
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// PathUUID parses a path segment as an identifier.
func PathUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewError(domain.ErrValidation, "invalid %s", name).WithField(name)
	}
	return id, nil
}
