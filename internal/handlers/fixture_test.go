package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/cgportal/feedback-backend/internal/audit"
	"github.com/cgportal/feedback-backend/internal/handlers"
	"github.com/cgportal/feedback-backend/internal/middleware"
	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/routes"
	"github.com/cgportal/feedback-backend/internal/services"
	"github.com/cgportal/feedback-backend/internal/store/mocks"
	"github.com/cgportal/feedback-backend/pkg/utils"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

// memSessions is an in-process SessionStore.
type memSessions struct {
	mu     sync.Mutex
	tokens map[string]services.Principal
}

func newMemSessions() *memSessions {
	return &memSessions{tokens: map[string]services.Principal{}}
}

func (s *memSessions) Create(_ context.Context, p services.Principal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, existing := range s.tokens {
		if existing.UserID == p.UserID {
			delete(s.tokens, token)
		}
	}
	token := uuid.NewString()
	s.tokens[token] = p
	return token, nil
}

func (s *memSessions) Lookup(_ context.Context, token string) (*services.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tokens[token]
	if !ok {
		return nil, services.ErrSessionNotFound
	}
	return &p, nil
}

func (s *memSessions) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *memSessions) InvalidateUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, p := range s.tokens {
		if p.UserID == userID {
			delete(s.tokens, token)
		}
	}
	return nil
}

func (s *memSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// recordingPublisher captures published events and relays them to a hub.
type recordingPublisher struct {
	mu     sync.Mutex
	events []services.FeedbackEvent
	hub    *services.Hub
}

func (p *recordingPublisher) Publish(_ context.Context, e services.FeedbackEvent) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	if p.hub != nil {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		p.hub.Broadcast(data)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *memAudit) Record(_ context.Context, e audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append([]audit.Event{e}, a.events...)
	return nil
}

func (a *memAudit) Recent(_ context.Context, limit int) ([]audit.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit > len(a.events) {
		limit = len(a.events)
	}
	return append([]audit.Event(nil), a.events[:limit]...), nil
}

func (a *memAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeArchive struct {
	stored map[string][]byte
	err    error
}

func (a *fakeArchive) Store(_ context.Context, fileName string, content []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.stored[fileName] = content
	return "https://res.example.com/raw/upload/" + fileName, nil
}

type fixture struct {
	handler  *handlers.Handler
	feedback *mocks.MockFeedbackStore
	users    *mocks.MockUserStore
	depts    *mocks.MockDepartmentStore
	sessions *memSessions
	events   *recordingPublisher
	audit    *memAudit
	hub      *services.Hub
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	hub := services.NewHub(8)
	t.Cleanup(hub.Close)

	f := &fixture{
		feedback: mocks.NewMockFeedbackStore(),
		users:    mocks.NewMockUserStore(),
		depts:    mocks.NewMockDepartmentStore(),
		sessions: newMemSessions(),
		events:   &recordingPublisher{hub: hub},
		audit:    &memAudit{},
		hub:      hub,
	}
	f.handler = &handlers.Handler{
		Feedback:    f.feedback,
		Users:       f.users,
		Departments: f.depts,
		Sessions:    f.sessions,
		Events:      f.events,
		Hub:         hub,
		Audit:       f.audit,
		Location:    time.UTC,
		Log:         log,
		Now:         func() time.Time { return fixedNow },
	}
	auth := middleware.NewAuth(f.sessions, true, log)
	f.router = routes.NewRouter(f.handler, auth, routes.Options{AllowedOrigins: []string{"http://localhost:3000"}}, log)
	return f
}

func (f *fixture) addUser(t *testing.T, username, password string, typ models.UserType, active bool) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	u := models.User{Username: username, Password: hash, Type: typ, Active: active}
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u
}

// tokenFor opens a session without going through the login endpoint.
func (f *fixture) tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	token, err := f.sessions.Create(context.Background(), services.Principal{
		UserID:   u.ID.Hex(),
		Username: u.Username,
		Type:     u.Type,
	})
	require.NoError(t, err)
	return token
}

// adminToken seeds an active admin and returns a session for it.
func (f *fixture) adminToken(t *testing.T) string {
	return f.tokenFor(t, f.addUser(t, "admin", "admin123", models.UserTypeAdmin, true))
}

func (f *fixture) addDepartment(t *testing.T, name, email string) models.Department {
	t.Helper()
	d := models.Department{Name: name, Description: name + " department", Email: email}
	require.NoError(t, f.depts.Create(context.Background(), &d))
	return d
}

func (f *fixture) addFeedback(t *testing.T, fb models.Feedback) models.Feedback {
	t.Helper()
	if fb.Status == "" {
		fb.Status = models.DefaultStatus(fb.Satisfaction)
	}
	require.NoError(t, f.feedback.Create(context.Background(), &fb))
	return fb
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handlers.ErrorResponse](t, rec).Error
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

var errBoom = errors.New("boom")
