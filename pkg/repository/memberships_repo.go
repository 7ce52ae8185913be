package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

const planColumns = `id, name, description, price, duration_days, active, created_at, updated_at`

// MembershipsRepository handles the membership plan catalog.
type MembershipsRepository struct {
	db *sql.DB
}

// NewMembershipsRepository creates a new memberships repository.
func NewMembershipsRepository(db *sql.DB) *MembershipsRepository {
	return &MembershipsRepository{db: db}
}

func scanPlan(row interface{ Scan(...any) error }) (*domain.MembershipPlan, error) {
	p := &domain.MembershipPlan{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new plan.
func (r *MembershipsRepository) Create(ctx context.Context, plan *domain.MembershipPlan) error {
	return r.CreateTx(ctx, r.db, plan)
}

// CreateTx inserts a new plan using q.
func (r *MembershipsRepository) CreateTx(ctx context.Context, q Querier, plan *domain.MembershipPlan) error {
	query := `
		INSERT INTO memberships (id, name, description, price, duration_days, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.ExecContext(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.Price, plan.DurationDays, plan.Active, plan.CreatedAt, plan.UpdatedAt,
	)
	return writeError(err, "MEMBERSHIP_CREATE_FAILED", "membership_id", plan.ID)
}

// GetByID retrieves a plan by ID.
func (r *MembershipsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MembershipPlan, error) {
	plan, err := scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM memberships WHERE id = $1`, id))
	if err != nil {
		return nil, readError(err, domain.ErrMembershipNotFound, "MEMBERSHIP_GET_FAILED", "membership_id", id)
	}
	return plan, nil
}

// List returns the catalog ordered by price, optionally only active plans.
func (r *MembershipsRepository) List(ctx context.Context, activeOnly bool) ([]*domain.MembershipPlan, error) {
	query := `SELECT ` + planColumns + ` FROM memberships`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY price, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, oops.Code("MEMBERSHIP_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var plans []*domain.MembershipPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, oops.Code("MEMBERSHIP_LIST_FAILED").Wrap(err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("MEMBERSHIP_LIST_FAILED").Wrap(err)
	}
	return plans, nil
}

// Count returns the number of plans in the catalog.
func (r *MembershipsRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships`).Scan(&n); err != nil {
		return 0, oops.Code("MEMBERSHIP_COUNT_FAILED").Wrap(err)
	}
	return n, nil
}

// Update writes every mutable column of plan. Existing subscriptions keep their snapshot.
func (r *MembershipsRepository) Update(ctx context.Context, plan *domain.MembershipPlan) error {
	query := `
		UPDATE memberships
		SET name = $2, description = $3, price = $4, duration_days = $5, active = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		plan.ID, plan.Name, plan.Description, plan.Price, plan.DurationDays, plan.Active, plan.UpdatedAt,
	)
	if err != nil {
		return writeError(err, "MEMBERSHIP_UPDATE_FAILED", "membership_id", plan.ID)
	}
	return affected(result, domain.ErrMembershipNotFound, "MEMBERSHIP_UPDATE_FAILED")
}

// Delete removes a plan. Plans referenced by subscriptions cannot be deleted.
func (r *MembershipsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return writeError(err, "MEMBERSHIP_DELETE_FAILED", "membership_id", id)
	}
	return affected(result, domain.ErrMembershipNotFound, "MEMBERSHIP_DELETE_FAILED")
}

// ReplaceAll swaps the catalog for plans in one transaction. Plans that
// subscriptions still reference are deactivated rather than deleted.
func (r *MembershipsRepository) ReplaceAll(ctx context.Context, plans []*domain.MembershipPlan) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE memberships SET active = FALSE, updated_at = NOW()
			WHERE id IN (SELECT membership_id FROM subscriptions)
		`); err != nil {
			return writeError(err, "MEMBERSHIP_RETIRE_FAILED")
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM memberships
			WHERE id NOT IN (SELECT membership_id FROM subscriptions)
		`); err != nil {
			return writeError(err, "MEMBERSHIP_DELETE_ALL_FAILED")
		}
		for _, p := range plans {
			if err := r.CreateTx(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertAll adds plans in one transaction.
func (r *MembershipsRepository) InsertAll(ctx context.Context, plans []*domain.MembershipPlan) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		for _, p := range plans {
			if err := r.CreateTx(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}
