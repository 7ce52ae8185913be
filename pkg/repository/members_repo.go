package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

const memberColumns = `id, name, email, phone, document_id, birth_date, registration_date, active,
	       password_hash, has_account, google_id, auth_provider, profile_picture, complete_profile,
	       created_at, updated_at`

var memberSortColumns = map[string]string{
	"name":             "name",
	"email":            "email",
	"registrationDate": "registration_date",
	"createdAt":        "created_at",
}

// MembersRepository handles member persistence.
type MembersRepository struct {
	db *sql.DB
}

// NewMembersRepository creates a new members repository.
func NewMembersRepository(db *sql.DB) *MembersRepository {
	return &MembersRepository{db: db}
}

func scanMember(row interface{ Scan(...any) error }) (*domain.Member, error) {
	m := &domain.Member{}
	err := row.Scan(
		&m.ID, &m.Name, &m.Email, &m.Phone, &m.DocumentID, &m.BirthDate, &m.RegistrationDate, &m.Active,
		&m.PasswordHash, &m.HasAccount, &m.GoogleID, &m.AuthProvider, &m.ProfilePicture, &m.CompleteProfile,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a new member.
func (r *MembersRepository) Create(ctx context.Context, m *domain.Member) error {
	query := `
		INSERT INTO members (id, name, email, phone, document_id, birth_date, registration_date, active,
		                     password_hash, has_account, google_id, auth_provider, profile_picture,
		                     complete_profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Email, m.Phone, m.DocumentID, m.BirthDate, m.RegistrationDate, m.Active,
		m.PasswordHash, m.HasAccount, m.GoogleID, m.AuthProvider, m.ProfilePicture,
		m.CompleteProfile, m.CreatedAt, m.UpdatedAt,
	)
	return writeError(err, "MEMBER_CREATE_FAILED", "member_id", m.ID)
}

func (r *MembersRepository) getOne(ctx context.Context, column string, value any) (*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE ` + column + ` = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		return nil, readError(err, domain.ErrMemberNotFound, "MEMBER_GET_FAILED", "by", column)
	}
	return m, nil
}

// GetByID retrieves a member by ID.
func (r *MembersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	return r.getOne(ctx, "id", id)
}

// GetByEmail retrieves a member by email.
func (r *MembersRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return r.getOne(ctx, "email", email)
}

// GetByDocumentID retrieves a member by identity document number.
func (r *MembersRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.Member, error) {
	return r.getOne(ctx, "document_id", documentID)
}

// GetByGoogleID retrieves a member by linked Google subject.
func (r *MembersRepository) GetByGoogleID(ctx context.Context, googleID string) (*domain.Member, error) {
	return r.getOne(ctx, "google_id", googleID)
}

// List returns one page of members matching f.
func (r *MembersRepository) List(ctx context.Context, f domain.MemberFilter, p domain.PageRequest) (domain.Page[*domain.Member], error) {
	p = p.Normalize()

	w := &where{}
	if f.Active != nil {
		w.add("active = ?", *f.Active)
	}
	if f.Name != "" {
		w.add(`name ILIKE '%' || ? || '%'`, escapeLike(f.Name))
	}
	if f.Email != "" {
		w.add("email = ?", f.Email)
	}
	if f.DocumentID != "" {
		w.add("document_id = ?", f.DocumentID)
	}
	if f.HasAccount != nil {
		w.add("has_account = ?", *f.HasAccount)
	}
	if f.RegistrationDateFrom != nil {
		w.add("registration_date >= ?", *f.RegistrationDateFrom)
	}
	if f.RegistrationDateTo != nil {
		w.add("registration_date <= ?", *f.RegistrationDateTo)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`+w.String(), w.args...).Scan(&total); err != nil {
		return domain.Page[*domain.Member]{}, oops.Code("MEMBER_LIST_FAILED").Wrap(err)
	}

	filter := w.String()
	order := orderBy(memberSortColumns, f.SortBy, f.SortOrder, "registration_date", domain.SortDesc)
	query := `SELECT ` + memberColumns + ` FROM members` + filter + order + w.page(p)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return domain.Page[*domain.Member]{}, oops.Code("MEMBER_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return domain.Page[*domain.Member]{}, oops.Code("MEMBER_LIST_FAILED").Wrap(err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[*domain.Member]{}, oops.Code("MEMBER_LIST_FAILED").Wrap(err)
	}
	return domain.NewPage(members, total, p), nil
}

// Update writes every mutable column of m, including the caller-set UpdatedAt.
func (r *MembersRepository) Update(ctx context.Context, m *domain.Member) error {
	query := `
		UPDATE members
		SET name = $2, email = $3, phone = $4, document_id = $5, birth_date = $6, active = $7,
		    password_hash = $8, has_account = $9, google_id = $10, auth_provider = $11,
		    profile_picture = $12, complete_profile = $13, updated_at = $14
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Email, m.Phone, m.DocumentID, m.BirthDate, m.Active,
		m.PasswordHash, m.HasAccount, m.GoogleID, m.AuthProvider,
		m.ProfilePicture, m.CompleteProfile, m.UpdatedAt,
	)
	if err != nil {
		return writeError(err, "MEMBER_UPDATE_FAILED", "member_id", m.ID)
	}
	return affected(result, domain.ErrMemberNotFound, "MEMBER_UPDATE_FAILED")
}

// Delete permanently removes a member. Their subscriptions cascade.
func (r *MembersRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return writeError(err, "MEMBER_DELETE_FAILED", "member_id", id)
	}
	return affected(result, domain.ErrMemberNotFound, "MEMBER_DELETE_FAILED")
}
