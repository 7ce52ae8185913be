package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/gymdesk/internal/memstore"
	"github.com/tendant/gymdesk/pkg/domain"
)

type fixture struct {
	store  *memstore.Store
	svc    *Service
	member *domain.Member
	plan   *domain.MembershipPlan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	member := &domain.Member{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", Active: true}
	require.NoError(t, store.Members.Create(ctx, member))
	plan := &domain.MembershipPlan{ID: uuid.New(), Name: "Basic Monthly", Price: 49.99, DurationDays: 30, Active: true}
	require.NoError(t, store.Plans.Create(ctx, plan))

	svc := NewService(store.Members, store.Plans, store.Subscriptions)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	return &fixture{store: store, svc: svc, member: member, plan: plan}
}

func TestCreatePaymentTolerance(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		wantStored float64
		wantErr    bool
	}{
		{name: "exact", amount: 49.99, wantStored: 49.99},
		{name: "half cent rounds up", amount: 49.995, wantStored: 50.00},
		{name: "half cent under rounds up", amount: 49.985, wantStored: 49.99},
		{name: "one cent over", amount: 50.00, wantStored: 50.00},
		{name: "one cent under", amount: 49.98, wantStored: 49.98},
		{name: "two cents over", amount: 50.01, wantErr: true},
		{name: "two cents under", amount: 49.97, wantErr: true},
		{name: "one unit over", amount: 50.99, wantErr: true},
		{name: "zero", amount: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sub, err := f.svc.Create(context.Background(), CreateRequest{
				MemberID:      f.member.ID,
				MembershipID:  f.plan.ID,
				PaymentStatus: domain.PaymentCompleted,
				PaymentAmount: tt.amount,
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Contains(t, err.Error(), "49.99")
				assert.Equal(t, 0, f.store.Subscriptions.Writes)
				return
			}
			require.NoError(t, err)
			assert.True(t, sub.Active)
			assert.Equal(t, tt.wantStored, sub.PaymentAmount)
			assert.Equal(t, 1, f.store.Subscriptions.Writes)

			stored, err := f.store.Subscriptions.GetByID(context.Background(), sub.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStored, stored.PaymentAmount)
		})
	}
}

func TestCreateMismatchNamesBothAmounts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateRequest{
		MemberID:      f.member.ID,
		MembershipID:  f.plan.ID,
		PaymentAmount: 48.99,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "48.99")
	assert.Contains(t, err.Error(), "49.99")
}

func TestCreateEndDate(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2024, 1, 20, 14, 30, 0, 0, time.UTC)

	sub, err := f.svc.Create(context.Background(), CreateRequest{
		MemberID:      f.member.ID,
		MembershipID:  f.plan.ID,
		StartDate:     &start,
		PaymentAmount: 49.99,
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 2, 19, 14, 30, 0, 0, time.UTC), sub.EndDate)
	assert.Equal(t, "Basic Monthly", sub.MembershipName)
	assert.Equal(t, domain.PaymentPending, sub.PaymentStatus)

	stored, err := f.store.Subscriptions.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.EndDate, stored.EndDate)
}

func TestCreateDefaultsStartToNow(t *testing.T) {
	f := newFixture(t)
	sub, err := f.svc.Create(context.Background(), CreateRequest{
		MemberID:      f.member.ID,
		MembershipID:  f.plan.ID,
		PaymentAmount: 49.99,
	})
	require.NoError(t, err)
	assert.Equal(t, f.svc.now(), sub.StartDate)
	assert.Equal(t, time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC), sub.EndDate)
}

func TestEndDateCrossesYear(t *testing.T) {
	start := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC), EndDate(start, 365))
}

func TestCreateMissingReferences(t *testing.T) {
	t.Run("member", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(context.Background(), CreateRequest{
			MemberID:      uuid.New(),
			MembershipID:  f.plan.ID,
			PaymentAmount: 49.99,
		})
		assert.ErrorIs(t, err, domain.ErrMemberNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 0, f.store.Subscriptions.Writes)
	})

	t.Run("plan", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(context.Background(), CreateRequest{
			MemberID:      f.member.ID,
			MembershipID:  uuid.New(),
			PaymentAmount: 49.99,
		})
		assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
		assert.Equal(t, 0, f.store.Subscriptions.Writes)
	})
}

func TestCreateInvalidPaymentStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateRequest{
		MemberID:      f.member.ID,
		MembershipID:  f.plan.ID,
		PaymentStatus: "refunded",
		PaymentAmount: 49.99,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentStatus)
}

func TestCreateStoreFaultPropagates(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	f.store.Subscriptions.FailWith(boom)

	_, err := f.svc.Create(context.Background(), CreateRequest{
		MemberID:      f.member.ID,
		MembershipID:  f.plan.ID,
		PaymentAmount: 49.99,
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, domain.ErrValidation))
}
