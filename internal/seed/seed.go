// Package seed loads the membership catalog and the default administrative
// accounts into an empty database.
package seed

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/tendant/gymdesk/pkg/domain"
)

// DefaultPassword is the password of the seeded admin and staff accounts.
const DefaultPassword = "password123"

// PlanStore is the catalog storage the seeder writes to.
type PlanStore interface {
	Count(ctx context.Context) (int, error)
	InsertAll(ctx context.Context, plans []*domain.MembershipPlan) error
	ReplaceAll(ctx context.Context, plans []*domain.MembershipPlan) error
}

// AdminStore is the administrative account storage the seeder writes to.
type AdminStore interface {
	Count(ctx context.Context) (int, error)
	ReplaceAll(ctx context.Context, admins []*domain.Admin) error
}

// Hasher hashes the default password.
type Hasher interface {
	Hash(password string) (string, error)
}

type planSpec struct {
	name        string
	description string
	price       float64
	days        int
}

var catalog = []planSpec{
	{"Day Pass", "Access to every facility for one full day", 10.00, 1},
	{"Weekly Pass", "Access to every facility for 7 consecutive days", 35.00, 7},
	{"Basic Monthly", "Cardio and weights areas for one month", 49.99, 30},
	{"Monthly Plus", "Every facility plus one group class a week for one month", 64.99, 30},
	{"Quarterly", "Full access for 3 months at a 10% discount", 149.99, 90},
	{"Semiannual", "Full access for 6 months at a 15% discount", 279.99, 180},
	{"Annual", "Full access for one year at a 25% discount", 499.99, 365},
	{"Family Monthly", "Access for 4 family members for one month", 159.99, 30},
	{"Student", "20% student discount, student ID required", 39.99, 30},
	{"Corporate", "Company package, 5 employees minimum, price per person", 34.99, 30},
	{"Senior", "For members over 60, includes adapted classes", 34.99, 30},
	{"VIP", "24/7 access, weekly personal trainer session and a private locker", 99.99, 30},
}

// Catalog returns fresh copies of the standard membership plans.
func Catalog(now time.Time) []*domain.MembershipPlan {
	plans := make([]*domain.MembershipPlan, 0, len(catalog))
	for _, c := range catalog {
		plans = append(plans, &domain.MembershipPlan{
			ID:           uuid.New(),
			Name:         c.name,
			Description:  c.description,
			Price:        c.price,
			DurationDays: c.days,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return plans
}

// Seeder inserts the standard data.
type Seeder struct {
	logger *slog.Logger
	plans  PlanStore
	admins AdminStore
	hasher Hasher
	now    func() time.Time
}

// New creates a seeder.
func New(logger *slog.Logger, plans PlanStore, admins AdminStore, hasher Hasher) *Seeder {
	return &Seeder{logger: logger, plans: plans, admins: admins, hasher: hasher, now: time.Now}
}

// Memberships inserts the catalog when no plans exist, or replaces every plan
// when reset is set. It returns how many plans were written.
func (s *Seeder) Memberships(ctx context.Context, reset bool) (int, error) {
	plans := Catalog(s.now())
	if reset {
		if err := s.plans.ReplaceAll(ctx, plans); err != nil {
			return 0, oops.Code("SEED_MEMBERSHIPS_FAILED").Wrap(err)
		}
		s.logger.Info("membership catalog replaced", "count", len(plans))
		return len(plans), nil
	}

	count, err := s.plans.Count(ctx)
	if err != nil {
		return 0, oops.Code("SEED_MEMBERSHIPS_FAILED").Wrap(err)
	}
	if count > 0 {
		s.logger.Info("membership catalog already present, skipping seed", "count", count)
		return 0, nil
	}
	if err := s.plans.InsertAll(ctx, plans); err != nil {
		return 0, oops.Code("SEED_MEMBERSHIPS_FAILED").Wrap(err)
	}
	s.logger.Info("membership catalog seeded", "count", len(plans))
	return len(plans), nil
}

// Admins creates the default admin and staff accounts when no administrative
// accounts exist, or replaces all of them when reset is set.
func (s *Seeder) Admins(ctx context.Context, reset bool) (int, error) {
	if !reset {
		count, err := s.admins.Count(ctx)
		if err != nil {
			return 0, oops.Code("SEED_ADMINS_FAILED").Wrap(err)
		}
		if count > 0 {
			s.logger.Info("administrative accounts already present, skipping seed", "count", count)
			return 0, nil
		}
	}

	hash, err := s.hasher.Hash(DefaultPassword)
	if err != nil {
		return 0, oops.Code("SEED_ADMINS_FAILED").Wrap(err)
	}
	now := s.now()
	admins := []*domain.Admin{
		{Name: "Admin User", Email: "admin@example.com", Role: domain.RoleAdmin},
		{Name: "Staff User", Email: "staff@example.com", Role: domain.RoleStaff},
	}
	for _, a := range admins {
		a.ID = uuid.New()
		a.PasswordHash = &hash
		a.Active = true
		a.AuthProvider = domain.ProviderLocal
		a.CreatedAt = now
		a.UpdatedAt = now
	}

	if err := s.admins.ReplaceAll(ctx, admins); err != nil {
		return 0, oops.Code("SEED_ADMINS_FAILED").Wrap(err)
	}
	s.logger.Warn("default administrative accounts created, change their passwords", "count", len(admins))
	return len(admins), nil
}
