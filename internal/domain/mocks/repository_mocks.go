package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/user/campuscore/internal/domain"
)

// MockSchoolRepository is an in-memory implementation of
// domain.SchoolRepository for use-case tests. Behavior can be overridden per
// method via the *Func fields.
type MockSchoolRepository struct {
	mu         sync.Mutex
	nextID     int64
	Schools    map[int64]*domain.School
	activeSubs map[int64]bool

	CreateFunc             func(ctx context.Context, s *domain.School) (int64, error)
	SweepExpiredTrialsFunc func(ctx context.Context, now time.Time) ([]int64, error)
	ListFunc               func(ctx context.Context, filter domain.SchoolFilter, page domain.Page) ([]domain.SchoolOverview, int, error)

	StatusUpdates []domain.SchoolStatus
}

func NewMockSchoolRepository() *MockSchoolRepository {
	return &MockSchoolRepository{Schools: map[int64]*domain.School{}}
}

func (m *MockSchoolRepository) Create(ctx context.Context, s *domain.School) (int64, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Schools {
		if existing.Slug == s.Slug {
			return 0, &domain.ConflictError{Constraint: "slug", Value: s.Slug}
		}
	}

	m.nextID++
	copied := *s
	copied.ID = m.nextID
	copied.CreatedAt = time.Now()
	m.Schools[copied.ID] = &copied
	return copied.ID, nil
}

func (m *MockSchoolRepository) GetByID(ctx context.Context, id int64) (*domain.School, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schools[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockSchoolRepository) AssignDatabaseName(ctx context.Context, id int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schools[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.DatabaseName != "" && s.DatabaseName != name {
		return domain.ErrNotFound
	}
	s.DatabaseName = name
	return nil
}

func (m *MockSchoolRepository) UpdateStatus(ctx context.Context, id int64, status domain.SchoolStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schools[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	m.StatusUpdates = append(m.StatusUpdates, status)
	return nil
}

func (m *MockSchoolRepository) BeginTrial(ctx context.Context, id int64, endsAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schools[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = domain.StatusTrial
	s.TrialEndsAt = &endsAt
	return nil
}

func (m *MockSchoolRepository) SetPlan(ctx context.Context, id int64, planID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schools[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.PlanID = &planID
	return nil
}

func (m *MockSchoolRepository) List(ctx context.Context, filter domain.SchoolFilter, page domain.Page) ([]domain.SchoolOverview, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, page)
	}
	return nil, 0, nil
}

func (m *MockSchoolRepository) SweepExpiredTrials(ctx context.Context, now time.Time) ([]int64, error) {
	if m.SweepExpiredTrialsFunc != nil {
		return m.SweepExpiredTrialsFunc(ctx, now)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, s := range m.Schools {
		if s.Status != domain.StatusTrial || s.TrialEndsAt == nil || !s.TrialEndsAt.Before(now) {
			continue
		}
		if m.activeSubs != nil && m.activeSubs[id] {
			continue
		}
		s.Status = domain.StatusSuspended
		ids = append(ids, id)
	}
	return ids, nil
}

// SetActiveSubscription marks a school as having an active subscription so the
// built-in SweepExpiredTrials skips it.
func (m *MockSchoolRepository) SetActiveSubscription(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeSubs == nil {
		m.activeSubs = map[int64]bool{}
	}
	m.activeSubs[id] = true
}

// MockPlanRepository serves plans from a map.
type MockPlanRepository struct {
	Plans map[int64]*domain.Plan
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id int64) (*domain.Plan, error) {
	p, ok := m.Plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *MockPlanRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	for _, p := range m.Plans {
		if activeOnly && !p.IsActive {
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// MockSubscriptionRepository records created subscriptions.
type MockSubscriptionRepository struct {
	mu        sync.Mutex
	nextID    int64
	Created   []*domain.Subscription
	CreateErr error
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	copied := *sub
	copied.ID = m.nextID
	m.Created = append(m.Created, &copied)
	return copied.ID, nil
}

func (m *MockSubscriptionRepository) LatestBySchool(ctx context.Context, schoolID int64) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Created) - 1; i >= 0; i-- {
		if m.Created[i].SchoolID == schoolID {
			copied := *m.Created[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MockInvoiceRepository records invoices in memory.
type MockInvoiceRepository struct {
	mu       sync.Mutex
	nextID   int64
	Invoices []*domain.Invoice
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	copied := *inv
	copied.ID = m.nextID
	if copied.Status == "" {
		copied.Status = domain.InvoicePending
	}
	copied.CreatedAt = time.Now()
	m.Invoices = append(m.Invoices, &copied)
	return copied.ID, nil
}

func (m *MockInvoiceRepository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.Invoices {
		if inv.ID == id && inv.Status != domain.InvoicePaid {
			inv.Status = domain.InvoicePaid
			inv.PaidAt = &paidAt
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockInvoiceRepository) ListBySchool(ctx context.Context, schoolID int64) ([]*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Invoice
	for i := len(m.Invoices) - 1; i >= 0; i-- {
		if m.Invoices[i].SchoolID == schoolID {
			copied := *m.Invoices[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}

// MockProvisioner simulates the tenant database provisioner. FailuresLeft
// makes the first N calls fail with Err, after which calls succeed; this
// models retry convergence.
type MockProvisioner struct {
	mu           sync.Mutex
	Calls        int
	FailuresLeft int
	Err          error
	Outcome      *domain.ProvisionOutcome

	// DatabasesCreated tracks which database names have been "created" so
	// tests can assert a retry does not recreate an existing one.
	DatabasesCreated map[string]int
}

func (m *MockProvisioner) Provision(ctx context.Context, school *domain.School, admin domain.AdminDraft) (*domain.ProvisionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	if m.DatabasesCreated == nil {
		m.DatabasesCreated = map[string]int{}
	}
	if _, exists := m.DatabasesCreated[school.DatabaseName]; !exists {
		m.DatabasesCreated[school.DatabaseName] = 0
	}
	m.DatabasesCreated[school.DatabaseName]++

	if m.FailuresLeft > 0 {
		m.FailuresLeft--
		return nil, m.Err
	}

	if m.Outcome != nil {
		return m.Outcome, nil
	}
	return &domain.ProvisionOutcome{
		DatabaseName:     school.DatabaseName,
		AdminUserID:      1,
		StorageAllocated: true,
		AdminLinked:      true,
	}, nil
}

// MockEventPublisher records published events.
type MockEventPublisher struct {
	mu         sync.Mutex
	Events     []domain.LifecycleEvent
	PublishErr error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}
