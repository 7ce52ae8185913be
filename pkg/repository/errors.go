package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

// uniqueFields maps unique constraint names to the attribute they protect.
var uniqueFields = map[string]*domain.Error{
	"admins_email_key":        domain.ErrEmailAlreadyRegistered,
	"admins_google_id_key":    domain.ErrExternalIDAlreadyLinked,
	"members_email_key":       domain.ErrEmailAlreadyRegistered,
	"members_document_id_key": domain.ErrDocumentIDAlreadyInUse,
	"members_google_id_key":   domain.ErrExternalIDAlreadyLinked,
}

// writeError turns a unique violation into a conflict and wraps anything else as a fault.
func writeError(err error, code string, kv ...any) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation {
		if conflict, ok := uniqueFields[pqErr.Constraint]; ok {
			return conflict
		}
		return &domain.Error{Kind: domain.ErrConflict, Message: "record already exists", Field: pqErr.Constraint}
	}
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.ForeignKeyViolation {
		return &domain.Error{Kind: domain.ErrConflict, Message: "record is still referenced", Field: pqErr.Constraint}
	}
	return oops.Code(code).With(kv...).Wrap(err)
}

// readError maps sql.ErrNoRows to notFound and wraps anything else as a fault.
func readError(err error, notFound error, code string, kv ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return oops.Code(code).With(kv...).Wrap(err)
}

// affected reports notFound when an update or delete touched no row.
func affected(result sql.Result, notFound error, code string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return oops.Code(code).Wrap(err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
