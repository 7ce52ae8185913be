package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

const subscriptionColumns = `id, member_id, membership_id, membership_name, start_date, end_date,
	       payment_status, payment_amount, payment_date, active, created_at, updated_at`

var subscriptionSortColumns = map[string]string{
	"startDate":     "start_date",
	"endDate":       "end_date",
	"paymentAmount": "payment_amount",
	"createdAt":     "created_at",
}

// SubscriptionsRepository handles subscription persistence.
type SubscriptionsRepository struct {
	db *sql.DB
}

// NewSubscriptionsRepository creates a new subscriptions repository.
func NewSubscriptionsRepository(db *sql.DB) *SubscriptionsRepository {
	return &SubscriptionsRepository{db: db}
}

func scanSubscription(row interface{ Scan(...any) error }) (*domain.Subscription, error) {
	s := &domain.Subscription{}
	err := row.Scan(
		&s.ID, &s.MemberID, &s.MembershipID, &s.MembershipName, &s.StartDate, &s.EndDate,
		&s.PaymentStatus, &s.PaymentAmount, &s.PaymentDate, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func collectSubscriptions(rows *sql.Rows, code string) ([]*domain.Subscription, error) {
	defer rows.Close()
	var subs []*domain.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, oops.Code(code).Wrap(err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code(code).Wrap(err)
	}
	return subs, nil
}

// Create inserts a new subscription.
func (r *SubscriptionsRepository) Create(ctx context.Context, s *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, member_id, membership_id, membership_name, start_date, end_date,
		                           payment_status, payment_amount, payment_date, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.MemberID, s.MembershipID, s.MembershipName, s.StartDate, s.EndDate,
		s.PaymentStatus, s.PaymentAmount, s.PaymentDate, s.Active, s.CreatedAt, s.UpdatedAt,
	)
	return writeError(err, "SUBSCRIPTION_CREATE_FAILED", "member_id", s.MemberID)
}

// GetByID retrieves a subscription by ID.
func (r *SubscriptionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
	if err != nil {
		return nil, readError(err, domain.ErrSubscriptionNotFound, "SUBSCRIPTION_GET_FAILED", "subscription_id", id)
	}
	return s, nil
}

// ListByMember returns a member's subscriptions, newest first.
func (r *SubscriptionsRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE member_id = $1 ORDER BY start_date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, oops.Code("SUBSCRIPTION_LIST_FAILED").With("member_id", memberID).Wrap(err)
	}
	return collectSubscriptions(rows, "SUBSCRIPTION_LIST_FAILED")
}

// GetActiveByMember returns the active subscription covering at with the latest end date.
func (r *SubscriptionsRepository) GetActiveByMember(ctx context.Context, memberID uuid.UUID, at time.Time) (*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE member_id = $1 AND active AND start_date <= $2 AND end_date >= $2
		ORDER BY end_date DESC
		LIMIT 1
	`
	s, err := scanSubscription(r.db.QueryRowContext(ctx, query, memberID, at))
	if err != nil {
		return nil, readError(err, domain.ErrNoActiveSubscription, "SUBSCRIPTION_GET_ACTIVE_FAILED", "member_id", memberID)
	}
	return s, nil
}

// List returns one page of subscriptions matching f.
func (r *SubscriptionsRepository) List(ctx context.Context, f domain.SubscriptionFilter, p domain.PageRequest) (domain.Page[*domain.Subscription], error) {
	p = p.Normalize()

	w := &where{}
	if f.Active != nil {
		w.add("active = ?", *f.Active)
	}
	if f.MemberID != nil {
		w.add("member_id = ?", *f.MemberID)
	}
	if f.MembershipID != nil {
		w.add("membership_id = ?", *f.MembershipID)
	}
	if f.PaymentStatus != "" {
		w.add("payment_status = ?", f.PaymentStatus)
	}
	if f.StartDateFrom != nil {
		w.add("start_date >= ?", *f.StartDateFrom)
	}
	if f.StartDateTo != nil {
		w.add("start_date <= ?", *f.StartDateTo)
	}
	if f.EndDateFrom != nil {
		w.add("end_date >= ?", *f.EndDateFrom)
	}
	if f.EndDateTo != nil {
		w.add("end_date <= ?", *f.EndDateTo)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`+w.String(), w.args...).Scan(&total); err != nil {
		return domain.Page[*domain.Subscription]{}, oops.Code("SUBSCRIPTION_LIST_FAILED").Wrap(err)
	}

	filter := w.String()
	order := orderBy(subscriptionSortColumns, f.SortBy, f.SortOrder, "start_date", domain.SortDesc)
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + filter + order + w.page(p)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return domain.Page[*domain.Subscription]{}, oops.Code("SUBSCRIPTION_LIST_FAILED").Wrap(err)
	}
	subs, err := collectSubscriptions(rows, "SUBSCRIPTION_LIST_FAILED")
	if err != nil {
		return domain.Page[*domain.Subscription]{}, err
	}
	return domain.NewPage(subs, total, p), nil
}

// Update writes every mutable column of s. No domain rules are re-checked.
func (r *SubscriptionsRepository) Update(ctx context.Context, s *domain.Subscription) error {
	query := `
		UPDATE subscriptions
		SET membership_name = $2, start_date = $3, end_date = $4, payment_status = $5,
		    payment_amount = $6, payment_date = $7, active = $8, updated_at = $9
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		s.ID, s.MembershipName, s.StartDate, s.EndDate, s.PaymentStatus,
		s.PaymentAmount, s.PaymentDate, s.Active, s.UpdatedAt,
	)
	if err != nil {
		return writeError(err, "SUBSCRIPTION_UPDATE_FAILED", "subscription_id", s.ID)
	}
	return affected(result, domain.ErrSubscriptionNotFound, "SUBSCRIPTION_UPDATE_FAILED")
}

// Delete permanently removes a subscription.
func (r *SubscriptionsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return writeError(err, "SUBSCRIPTION_DELETE_FAILED", "subscription_id", id)
	}
	return affected(result, domain.ErrSubscriptionNotFound, "SUBSCRIPTION_DELETE_FAILED")
}
