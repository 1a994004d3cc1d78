// Package mocks provides in-memory store implementations for handler tests.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
)

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrInvalidID
	}
	return oid, nil
}

type MockFeedbackStore struct {
	mu        sync.RWMutex
	Feedbacks map[primitive.ObjectID]models.Feedback
	ListFunc  func(ctx context.Context, q store.FeedbackQuery) ([]models.Feedback, error)
}

func NewMockFeedbackStore() *MockFeedbackStore {
	return &MockFeedbackStore{Feedbacks: make(map[primitive.ObjectID]models.Feedback)}
}

func (m *MockFeedbackStore) List(ctx context.Context, q store.FeedbackQuery) ([]models.Feedback, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := []models.Feedback{}
	for _, f := range m.Feedbacks {
		if q.Status != "" && q.Status != "all" && string(f.Status) != q.Status {
			continue
		}
		if q.Department != "" && q.Department != "all" && f.Department != q.Department {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(f.CallID), search) &&
			!strings.Contains(f.CitizenMobile, search) &&
			!strings.Contains(strings.ToLower(f.Description), search) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (m *MockFeedbackStore) Get(ctx context.Context, id string) (*models.Feedback, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.Feedbacks[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &f, nil
}

func (m *MockFeedbackStore) Create(ctx context.Context, f *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Feedbacks {
		if existing.CallID == f.CallID {
			return store.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	m.Feedbacks[f.ID] = *f
	return nil
}

func (m *MockFeedbackStore) UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) (*models.Feedback, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.Feedbacks[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	f.Status = status
	f.UpdatedAt = time.Now().UTC()
	m.Feedbacks[oid] = f
	return &f, nil
}

type MockUserStore struct {
	mu     sync.RWMutex
	Users  map[primitive.ObjectID]models.User
	Legacy map[string]models.User
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users:  make(map[primitive.ObjectID]models.User),
		Legacy: make(map[string]models.User),
	}
}

func (m *MockUserStore) List(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.User, 0, len(m.Users))
	for _, u := range m.Users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockUserStore) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.Users[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string, types ...models.UserType) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.Users {
		if u.Username != username {
			continue
		}
		if len(types) == 0 {
			return &u, nil
		}
		for _, t := range types {
			if strings.EqualFold(string(u.Type), string(t)) {
				return &u, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockUserStore) FindLegacyAdmin(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.Legacy[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Type = models.UserTypeAdmin
	u.Active = true
	return &u, nil
}

func (m *MockUserStore) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, u := range m.Users {
		if u.Username == username && id.Hex() != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserStore) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Users {
		if existing.Username == u.Username {
			return store.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.CreatedAt, u.UpdatedAt = now, now
	m.Users[u.ID] = *u
	return nil
}

func (m *MockUserStore) Update(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Username = u.Username
	existing.Type = u.Type
	existing.Active = u.Active
	if u.Password != "" {
		existing.Password = u.Password
	}
	existing.UpdatedAt = time.Now().UTC()
	m.Users[u.ID] = existing
	*u = existing
	return nil
}

func (m *MockUserStore) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.Users[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	m.Users[oid] = u
	return &u, nil
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Users[oid]; !ok {
		return store.ErrNotFound
	}
	delete(m.Users, oid)
	return nil
}

func (m *MockUserStore) CountActiveAdmins(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, u := range m.Users {
		if u.Active && strings.EqualFold(string(u.Type), string(models.UserTypeAdmin)) {
			n++
		}
	}
	return n, nil
}

func (m *MockUserStore) Upsert(ctx context.Context, u *models.User) (bool, error) {
	existing, err := m.FindByUsername(ctx, u.Username)
	if err == store.ErrNotFound {
		return true, m.Create(ctx, u)
	}
	if err != nil {
		return false, err
	}
	u.ID = existing.ID
	return false, m.Update(ctx, u)
}

type MockDepartmentStore struct {
	mu          sync.RWMutex
	Departments map[primitive.ObjectID]models.Department
	Lists       int // number of List calls, for cache tests
}

func NewMockDepartmentStore() *MockDepartmentStore {
	return &MockDepartmentStore{Departments: make(map[primitive.ObjectID]models.Department)}
}

func (m *MockDepartmentStore) List(ctx context.Context) ([]models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++

	out := make([]models.Department, 0, len(m.Departments))
	for _, d := range m.Departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockDepartmentStore) Get(ctx context.Context, id string) (*models.Department, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.Departments[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (m *MockDepartmentStore) FindByName(ctx context.Context, name string) (*models.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.Departments {
		if d.Name == name {
			return &d, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockDepartmentStore) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, d := range m.Departments {
		if strings.EqualFold(d.Name, name) && id.Hex() != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDepartmentStore) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	if email == "" {
		return false, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, d := range m.Departments {
		if d.Email != "" && strings.EqualFold(d.Email, email) && id.Hex() != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockDepartmentStore) Create(ctx context.Context, d *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	d.CreatedAt, d.UpdatedAt = now, now
	m.Departments[d.ID] = *d
	return nil
}

func (m *MockDepartmentStore) Update(ctx context.Context, d *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.Departments[d.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Name = d.Name
	existing.Description = d.Description
	existing.Email = d.Email
	existing.ContactNo = d.ContactNo
	existing.UpdatedAt = time.Now().UTC()
	m.Departments[d.ID] = existing
	*d = existing
	return nil
}

func (m *MockDepartmentStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.Departments[oid]; !ok {
		return store.ErrNotFound
	}
	delete(m.Departments, oid)
	return nil
}

func (m *MockDepartmentStore) Upsert(ctx context.Context, d *models.Department) (bool, error) {
	existing, err := m.FindByName(ctx, d.Name)
	if err == store.ErrNotFound {
		return true, m.Create(ctx, d)
	}
	if err != nil {
		return false, err
	}
	d.ID = existing.ID
	// seed entries without contact details keep what an admin entered
	if d.Email == "" {
		d.Email = existing.Email
	}
	if d.ContactNo == "" {
		d.ContactNo = existing.ContactNo
	}
	return false, m.Update(ctx, d)
}
