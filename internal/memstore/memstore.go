// Package memstore provides in-memory stores with the same contracts as the
// PostgreSQL repositories, including unique constraints. Tests use it in place
// of a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/gymdesk/pkg/domain"
)

// Faults lets tests make every call of a store fail.
type Faults struct {
	mu  sync.Mutex
	err error
}

// FailWith makes subsequent calls return err. Pass nil to recover.
func (f *Faults) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *Faults) fault() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Admins is an in-memory admin store.
type Admins struct {
	Faults
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.Admin
	Writes int
}

// NewAdmins creates an empty admin store.
func NewAdmins() *Admins {
	return &Admins{byID: map[uuid.UUID]domain.Admin{}}
}

func (s *Admins) find(match func(a *domain.Admin) bool) (*domain.Admin, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if match(&a) {
			cp := a
			return &cp, nil
		}
	}
	return nil, domain.ErrAdminNotFound
}

func (s *Admins) GetByID(_ context.Context, id uuid.UUID) (*domain.Admin, error) {
	return s.find(func(a *domain.Admin) bool { return a.ID == id })
}

func (s *Admins) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	return s.find(func(a *domain.Admin) bool { return a.Email == email })
}

func (s *Admins) GetByGoogleID(_ context.Context, googleID string) (*domain.Admin, error) {
	return s.find(func(a *domain.Admin) bool { return a.GoogleID != nil && *a.GoogleID == googleID })
}

func (s *Admins) List(_ context.Context) ([]*domain.Admin, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Admin, 0, len(s.byID))
	for _, a := range s.byID {
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Admins) Count(_ context.Context) (int, error) {
	if err := s.fault(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID), nil
}

func (s *Admins) conflict(a *domain.Admin) error {
	for id, other := range s.byID {
		if id == a.ID {
			continue
		}
		if other.Email == a.Email {
			return domain.ErrEmailAlreadyRegistered
		}
		if a.GoogleID != nil && other.GoogleID != nil && *a.GoogleID == *other.GoogleID {
			return domain.ErrExternalIDAlreadyLinked
		}
	}
	return nil
}

func (s *Admins) Create(_ context.Context, a *domain.Admin) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conflict(a); err != nil {
		return err
	}
	s.byID[a.ID] = *a
	s.Writes++
	return nil
}

func (s *Admins) Update(_ context.Context, a *domain.Admin) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; !ok {
		return domain.ErrAdminNotFound
	}
	if err := s.conflict(a); err != nil {
		return err
	}
	s.byID[a.ID] = *a
	s.Writes++
	return nil
}

func (s *Admins) Delete(_ context.Context, id uuid.UUID) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrAdminNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *Admins) ReplaceAll(ctx context.Context, admins []*domain.Admin) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	s.byID = map[uuid.UUID]domain.Admin{}
	s.mu.Unlock()
	for _, a := range admins {
		if err := s.Create(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Members is an in-memory member store.
type Members struct {
	Faults
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.Member
	Writes int
	// OnDelete is called after a member is removed, so a subscription store can cascade.
	OnDelete func(id uuid.UUID)
}

// NewMembers creates an empty member store.
func NewMembers() *Members {
	return &Members{byID: map[uuid.UUID]domain.Member{}}
}

func (s *Members) find(match func(m *domain.Member) bool) (*domain.Member, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.byID {
		if match(&m) {
			cp := m
			return &cp, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

func (s *Members) GetByID(_ context.Context, id uuid.UUID) (*domain.Member, error) {
	return s.find(func(m *domain.Member) bool { return m.ID == id })
}

func (s *Members) GetByEmail(_ context.Context, email string) (*domain.Member, error) {
	return s.find(func(m *domain.Member) bool { return m.Email == email })
}

func (s *Members) GetByDocumentID(_ context.Context, documentID string) (*domain.Member, error) {
	return s.find(func(m *domain.Member) bool { return m.DocumentID != nil && *m.DocumentID == documentID })
}

func (s *Members) GetByGoogleID(_ context.Context, googleID string) (*domain.Member, error) {
	return s.find(func(m *domain.Member) bool { return m.GoogleID != nil && *m.GoogleID == googleID })
}

func (s *Members) List(_ context.Context, f domain.MemberFilter, p domain.PageRequest) (domain.Page[*domain.Member], error) {
	if err := s.fault(); err != nil {
		return domain.Page[*domain.Member]{}, err
	}
	p = p.Normalize()

	s.mu.Lock()
	var matched []*domain.Member
	for _, m := range s.byID {
		if !memberMatches(&m, f) {
			continue
		}
		cp := m
		matched = append(matched, &cp)
	}
	s.mu.Unlock()

	less := func(a, b *domain.Member) bool { return a.RegistrationDate.Before(b.RegistrationDate) }
	switch f.SortBy {
	case "name":
		less = func(a, b *domain.Member) bool { return a.Name < b.Name }
	case "email":
		less = func(a, b *domain.Member) bool { return a.Email < b.Email }
	}
	desc := f.SortOrder == domain.SortDesc || (f.SortBy == "" && f.SortOrder == "")
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	return domain.NewPage(window(matched, p), len(matched), p), nil
}

func memberMatches(m *domain.Member, f domain.MemberFilter) bool {
	if f.Active != nil && m.Active != *f.Active {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Email != "" && m.Email != f.Email {
		return false
	}
	if f.DocumentID != "" && (m.DocumentID == nil || *m.DocumentID != f.DocumentID) {
		return false
	}
	if f.HasAccount != nil && m.HasAccount != *f.HasAccount {
		return false
	}
	if f.RegistrationDateFrom != nil && m.RegistrationDate.Before(*f.RegistrationDateFrom) {
		return false
	}
	if f.RegistrationDateTo != nil && m.RegistrationDate.After(*f.RegistrationDateTo) {
		return false
	}
	return true
}

func (s *Members) conflict(m *domain.Member) error {
	for id, other := range s.byID {
		if id == m.ID {
			continue
		}
		if other.Email == m.Email {
			return domain.ErrEmailAlreadyRegistered
		}
		if m.DocumentID != nil && other.DocumentID != nil && *m.DocumentID == *other.DocumentID {
			return domain.ErrDocumentIDAlreadyInUse
		}
		if m.GoogleID != nil && other.GoogleID != nil && *m.GoogleID == *other.GoogleID {
			return domain.ErrExternalIDAlreadyLinked
		}
	}
	return nil
}

func (s *Members) Create(_ context.Context, m *domain.Member) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conflict(m); err != nil {
		return err
	}
	s.byID[m.ID] = *m
	s.Writes++
	return nil
}

func (s *Members) Update(_ context.Context, m *domain.Member) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[m.ID]; !ok {
		return domain.ErrMemberNotFound
	}
	if err := s.conflict(m); err != nil {
		return err
	}
	s.byID[m.ID] = *m
	s.Writes++
	return nil
}

func (s *Members) Delete(_ context.Context, id uuid.UUID) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.byID[id]; !ok {
		s.mu.Unlock()
		return domain.ErrMemberNotFound
	}
	delete(s.byID, id)
	onDelete := s.OnDelete
	s.mu.Unlock()

	if onDelete != nil {
		onDelete(id)
	}
	return nil
}

// Plans is an in-memory membership catalog.
type Plans struct {
	Faults
	mu   sync.Mutex
	byID map[uuid.UUID]domain.MembershipPlan
	// InUse reports whether a plan is referenced by a subscription.
	InUse func(id uuid.UUID) bool
}

// NewPlans creates an empty catalog.
func NewPlans() *Plans {
	return &Plans{byID: map[uuid.UUID]domain.MembershipPlan{}}
}

func (s *Plans) GetByID(_ context.Context, id uuid.UUID) (*domain.MembershipPlan, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrMembershipNotFound
	}
	return &p, nil
}

func (s *Plans) List(_ context.Context, activeOnly bool) ([]*domain.MembershipPlan, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.MembershipPlan
	for _, p := range s.byID {
		if activeOnly && !p.Active {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Plans) Count(_ context.Context) (int, error) {
	if err := s.fault(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID), nil
}

func (s *Plans) Create(_ context.Context, p *domain.MembershipPlan) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = *p
	return nil
}

func (s *Plans) Update(_ context.Context, p *domain.MembershipPlan) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; !ok {
		return domain.ErrMembershipNotFound
	}
	s.byID[p.ID] = *p
	return nil
}

func (s *Plans) Delete(_ context.Context, id uuid.UUID) error {
	if err := s.fault(); err != nil {
		return err
	}
	if s.InUse != nil && s.InUse(id) {
		return &domain.Error{Kind: domain.ErrConflict, Message: "record is still referenced"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrMembershipNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *Plans) InsertAll(ctx context.Context, plans []*domain.MembershipPlan) error {
	for _, p := range plans {
		if err := s.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAll installs plans as the catalog. Plans still referenced by a
// subscription are deactivated instead of removed.
func (s *Plans) ReplaceAll(ctx context.Context, plans []*domain.MembershipPlan) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	for id, p := range s.byID {
		if s.InUse != nil && s.InUse(id) {
			p.Active = false
			s.byID[id] = p
			continue
		}
		delete(s.byID, id)
	}
	s.mu.Unlock()
	return s.InsertAll(ctx, plans)
}

// Subscriptions is an in-memory subscription store.
type Subscriptions struct {
	Faults
	mu     sync.Mutex
	byID   map[uuid.UUID]domain.Subscription
	Writes int
}

// NewSubscriptions creates an empty subscription store.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{byID: map[uuid.UUID]domain.Subscription{}}
}

func (s *Subscriptions) Create(_ context.Context, sub *domain.Subscription) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[sub.ID] = *sub
	s.Writes++
	return nil
}

func (s *Subscriptions) GetByID(_ context.Context, id uuid.UUID) (*domain.Subscription, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *Subscriptions) matching(match func(sub *domain.Subscription) bool) []*domain.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Subscription
	for _, sub := range s.byID {
		if match(&sub) {
			cp := sub
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Subscriptions) ListByMember(_ context.Context, memberID uuid.UUID) ([]*domain.Subscription, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	out := s.matching(func(sub *domain.Subscription) bool { return sub.MemberID == memberID })
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (s *Subscriptions) GetActiveByMember(_ context.Context, memberID uuid.UUID, at time.Time) (*domain.Subscription, error) {
	if err := s.fault(); err != nil {
		return nil, err
	}
	out := s.matching(func(sub *domain.Subscription) bool { return sub.MemberID == memberID && sub.Covers(at) })
	if len(out) == 0 {
		return nil, domain.ErrNoActiveSubscription
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.After(out[j].EndDate) })
	return out[0], nil
}

func (s *Subscriptions) List(_ context.Context, f domain.SubscriptionFilter, p domain.PageRequest) (domain.Page[*domain.Subscription], error) {
	if err := s.fault(); err != nil {
		return domain.Page[*domain.Subscription]{}, err
	}
	p = p.Normalize()
	out := s.matching(func(sub *domain.Subscription) bool { return subscriptionMatches(sub, f) })

	less := func(a, b *domain.Subscription) bool { return a.StartDate.Before(b.StartDate) }
	switch f.SortBy {
	case "endDate":
		less = func(a, b *domain.Subscription) bool { return a.EndDate.Before(b.EndDate) }
	case "paymentAmount":
		less = func(a, b *domain.Subscription) bool { return a.PaymentAmount < b.PaymentAmount }
	case "createdAt":
		less = func(a, b *domain.Subscription) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	desc := f.SortOrder == domain.SortDesc || (f.SortBy == "" && f.SortOrder == "")
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})

	return domain.NewPage(window(out, p), len(out), p), nil
}

func subscriptionMatches(sub *domain.Subscription, f domain.SubscriptionFilter) bool {
	switch {
	case f.Active != nil && sub.Active != *f.Active:
		return false
	case f.MemberID != nil && sub.MemberID != *f.MemberID:
		return false
	case f.MembershipID != nil && sub.MembershipID != *f.MembershipID:
		return false
	case f.PaymentStatus != "" && sub.PaymentStatus != f.PaymentStatus:
		return false
	case f.StartDateFrom != nil && sub.StartDate.Before(*f.StartDateFrom):
		return false
	case f.StartDateTo != nil && sub.StartDate.After(*f.StartDateTo):
		return false
	case f.EndDateFrom != nil && sub.EndDate.Before(*f.EndDateFrom):
		return false
	case f.EndDateTo != nil && sub.EndDate.After(*f.EndDateTo):
		return false
	}
	return true
}

func (s *Subscriptions) Update(_ context.Context, sub *domain.Subscription) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sub.ID]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	s.byID[sub.ID] = *sub
	s.Writes++
	return nil
}

func (s *Subscriptions) Delete(_ context.Context, id uuid.UUID) error {
	if err := s.fault(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrSubscriptionNotFound
	}
	delete(s.byID, id)
	return nil
}

// DeleteByMember removes a member's subscriptions, mirroring ON DELETE CASCADE.
func (s *Subscriptions) DeleteByMember(memberID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.byID {
		if sub.MemberID == memberID {
			delete(s.byID, id)
		}
	}
}

// ReferencesPlan reports whether any subscription points at planID.
func (s *Subscriptions) ReferencesPlan(planID uuid.UUID) bool {
	return len(s.matching(func(sub *domain.Subscription) bool { return sub.MembershipID == planID })) > 0
}

// Store bundles the four stores with cascade and restrict rules wired up.
type Store struct {
	Admins        *Admins
	Members       *Members
	Plans         *Plans
	Subscriptions *Subscriptions
}

// New creates a Store with empty collections.
func New() *Store {
	s := &Store{
		Admins:        NewAdmins(),
		Members:       NewMembers(),
		Plans:         NewPlans(),
		Subscriptions: NewSubscriptions(),
	}
	s.Members.OnDelete = s.Subscriptions.DeleteByMember
	s.Plans.InUse = s.Subscriptions.ReferencesPlan
	return s
}

func window[T any](items []T, p domain.PageRequest) []T {
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
