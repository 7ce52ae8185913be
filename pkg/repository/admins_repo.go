package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

const adminColumns = `id, name, email, password_hash, role, active, google_id, auth_provider,
	       profile_picture, created_at, updated_at`

// AdminsRepository handles admin and staff account persistence.
type AdminsRepository struct {
	db *sql.DB
}

// NewAdminsRepository creates a new admins repository.
func NewAdminsRepository(db *sql.DB) *AdminsRepository {
	return &AdminsRepository{db: db}
}

func scanAdmin(row interface{ Scan(...any) error }) (*domain.Admin, error) {
	a := &domain.Admin{}
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.Active, &a.GoogleID,
		&a.AuthProvider, &a.ProfilePicture, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new admin.
func (r *AdminsRepository) Create(ctx context.Context, admin *domain.Admin) error {
	return r.CreateTx(ctx, r.db, admin)
}

// CreateTx inserts a new admin using q.
func (r *AdminsRepository) CreateTx(ctx context.Context, q Querier, admin *domain.Admin) error {
	query := `
		INSERT INTO admins (id, name, email, password_hash, role, active, google_id, auth_provider,
		                    profile_picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.ExecContext(ctx, query,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash, admin.Role, admin.Active, admin.GoogleID,
		admin.AuthProvider, admin.ProfilePicture, admin.CreatedAt, admin.UpdatedAt,
	)
	return writeError(err, "ADMIN_CREATE_FAILED", "admin_id", admin.ID)
}

func (r *AdminsRepository) getOne(ctx context.Context, column string, value any) (*domain.Admin, error) {
	query := `SELECT ` + adminColumns + ` FROM admins WHERE ` + column + ` = $1`
	admin, err := scanAdmin(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, readError(err, domain.ErrAdminNotFound, "ADMIN_GET_FAILED", "by", column)
	}
	return admin, nil
}

// GetByID retrieves an admin by ID.
func (r *AdminsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves an admin by email.
func (r *AdminsRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return r.getOne(ctx, "email", email)
}

// GetByGoogleID retrieves an admin by linked Google subject.
func (r *AdminsRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.Admin, error) {
	return r.getOne(ctx, "google_id", googleID)
}

// List returns every admin ordered by name.
func (r *AdminsRepository) List(ctx context.Context) ([]*domain.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY name, id`)
	if err != nil {
		return nil, oops.Code("ADMIN_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var admins []*domain.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, oops.Code("ADMIN_LIST_FAILED").Wrap(err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ADMIN_LIST_FAILED").Wrap(err)
	}
	return admins, nil
}

// Count returns the number of admin accounts.
func (r *AdminsRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, oops.Code("ADMIN_COUNT_FAILED").Wrap(err)
	}
	return n, nil
}

// Update writes every mutable column of admin, including the caller-set UpdatedAt.
func (r *AdminsRepository) Update(ctx context.Context, admin *domain.Admin) error {
	query := `
		UPDATE admins
		SET name = $2, email = $3, password_hash = $4, role = $5, active = $6, google_id = $7,
		    auth_provider = $8, profile_picture = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		admin.ID, admin.Name, admin.Email, admin.PasswordHash, admin.Role, admin.Active, admin.GoogleID,
		admin.AuthProvider, admin.ProfilePicture, admin.UpdatedAt,
	)
	if err != nil {
		return writeError(err, "ADMIN_UPDATE_FAILED", "admin_id", admin.ID)
	}
	return affected(result, domain.ErrAdminNotFound, "ADMIN_UPDATE_FAILED")
}

// Delete permanently removes an admin.
func (r *AdminsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return writeError(err, "ADMIN_DELETE_FAILED", "admin_id", id)
	}
	return affected(result, domain.ErrAdminNotFound, "ADMIN_DELETE_FAILED")
}

// ReplaceAll removes every admin account and inserts admins in one transaction.
func (r *AdminsRepository) ReplaceAll(ctx context.Context, admins []*domain.Admin) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM admins`); err != nil {
			return oops.Code("ADMIN_DELETE_ALL_FAILED").Wrap(err)
		}
		for _, a := range admins {
			if err := r.CreateTx(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}
