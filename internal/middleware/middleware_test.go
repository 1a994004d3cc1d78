package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/services"
)

type fakeSessions struct {
	principals map[string]*services.Principal
	err        error
}

func (f *fakeSessions) Create(context.Context, services.Principal) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeSessions) Lookup(_ context.Context, token string) (*services.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.principals[token]; ok {
		return p, nil
	}
	return nil, services.ErrSessionNotFound
}

func (f *fakeSessions) Invalidate(context.Context, string) error     { return nil }
func (f *fakeSessions) InvalidateUser(context.Context, string) error { return nil }

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func newTestAuth(t *testing.T, required bool) *Auth {
	sessions := &fakeSessions{principals: map[string]*services.Principal{
		"admin-token": {UserID: "1", Username: "admin", Type: models.UserTypeAdmin},
		"exec-token":  {UserID: "2", Username: "exec", Type: models.UserTypeExecutive},
	}}
	return NewAuth(sessions, required, zaptest.NewLogger(t))
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc ")
	assert.Equal(t, "abc", BearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, BearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws/feedback?token=xyz", nil)
	assert.Equal(t, "xyz", BearerToken(r))
}

func TestRequireRoles(t *testing.T) {
	auth := newTestAuth(t, true)
	h := auth.Authenticate(auth.RequireRoles(models.UserTypeAdmin, models.UserTypeManager)(okHandler))

	tests := map[string]struct {
		token  string
		status int
	}{
		"no token":      {"", http.StatusUnauthorized},
		"unknown token": {"nope", http.StatusUnauthorized},
		"wrong role":    {"exec-token", http.StatusForbidden},
		"allowed":       {"admin-token", http.StatusOK},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tc.token != "" {
				r.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := serve(h, r)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestRequireRolesAnyRole(t *testing.T) {
	auth := newTestAuth(t, true)
	h := auth.Authenticate(auth.RequireRoles()(okHandler))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer exec-token")
	assert.Equal(t, http.StatusOK, serve(h, r).Code)
}

func TestRequireRolesNotEnforced(t *testing.T) {
	auth := newTestAuth(t, false)
	var seen *services.Principal
	h := auth.Authenticate(auth.RequireRoles(models.UserTypeAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
	})))

	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Nil(t, seen)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer exec-token")
	serve(h, r)
	require.NotNil(t, seen)
	assert.Equal(t, "exec", seen.Username)
}

func TestAuthenticateStoreError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	auth := NewAuth(&fakeSessions{err: errors.New("redis down")}, true, zap.New(core))
	h := auth.Authenticate(auth.RequireRoles()(okHandler))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer admin-token")
	assert.Equal(t, http.StatusUnauthorized, serve(h, r).Code)
	assert.Equal(t, 1, logs.FilterMessage("session lookup failed").Len())
}

type fakeCounter struct {
	counts  map[string]int64
	blocked map[string]bool
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, blocked: map[string]bool{}}
}

func (c *fakeCounter) Blocked(_ context.Context, ip string) (bool, error) {
	return c.blocked[ip], c.err
}

func (c *fakeCounter) Hit(_ context.Context, ip string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[ip]++
	return c.counts[ip], nil
}

func (c *fakeCounter) Block(_ context.Context, ip string) error {
	c.blocked[ip] = true
	return nil
}

func (c *fakeCounter) Unblock(_ context.Context, ip string) error {
	if c.err != nil {
		return c.err
	}
	delete(c.blocked, ip)
	delete(c.counts, ip)
	return nil
}

func TestLoginAttemptLimit(t *testing.T) {
	counter := newFakeCounter()
	h := LoginAttemptLimit(counter, zaptest.NewLogger(t))(okHandler)

	newReq := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
		r.RemoteAddr = ip + ":5555"
		return r
	}

	var rec *httptest.ResponseRecorder
	for i := 0; i < AttemptMax; i++ {
		rec = serve(h, newReq("10.0.0.1"))
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(h, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.True(t, counter.blocked["10.0.0.1"])

	rec = serve(h, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "temporarily blocked")

	assert.Equal(t, http.StatusOK, serve(h, newReq("10.0.0.3")).Code)
}

func TestLoginAttemptLimitAfterUnblock(t *testing.T) {
	counter := newFakeCounter()
	h := LoginAttemptLimit(counter, zaptest.NewLogger(t))(okHandler)
	newReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
		r.RemoteAddr = "10.0.0.9:5555"
		return r
	}

	for i := 0; i <= AttemptMax; i++ {
		serve(h, newReq())
	}
	require.Equal(t, http.StatusTooManyRequests, serve(h, newReq()).Code)

	require.NoError(t, counter.Unblock(context.Background(), "10.0.0.9"))
	rec := serve(h, newReq())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, strconv.Itoa(AttemptMax-1), rec.Header().Get("X-RateLimit-Remaining"))
}

func TestLoginAttemptLimitFailsOpen(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("redis down")
	h := LoginAttemptLimit(counter, zaptest.NewLogger(t))(okHandler)

	r := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	assert.Equal(t, http.StatusOK, serve(h, r).Code)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(rate.Every(time.Hour), 2, "slow down")(okHandler)
	newReq := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		return r
	}

	assert.Equal(t, http.StatusOK, serve(h, newReq("1.1.1.1:1")).Code)
	assert.Equal(t, http.StatusOK, serve(h, newReq("1.1.1.1:2")).Code)
	rec := serve(h, newReq("1.1.1.1:3"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "slow down")

	assert.Equal(t, http.StatusOK, serve(h, newReq("2.2.2.2:1")).Code)
}

func TestIPLimitersSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiters(rate.Every(time.Second), 1)
	l.now = func() time.Time { return now }

	l.allow("a")
	l.allow("b")
	assert.Equal(t, 2, l.size())

	now = now.Add(limiterTTL + time.Minute)
	l.allow("c")
	assert.Equal(t, 1, l.size())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.5:4321"
	assert.Equal(t, "192.168.1.5", ClientIP(r))

	r.RemoteAddr = "192.168.1.6"
	assert.Equal(t, "192.168.1.6", ClientIP(r))
}

func TestSecurityHeaders(t *testing.T) {
	rec := serve(SecurityHeaders(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://portal.example.gov"})(okHandler)

	r := httptest.NewRequest(http.MethodOptions, "/api/feedback", nil)
	r.Header.Set("Origin", "https://portal.example.gov")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, r)
	assert.Equal(t, "https://portal.example.gov", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec = serve(h, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := RequestID(AccessLog(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/feedback/x", nil))
	id := rec.Header().Get("X-Request-Id")
	assert.NotEmpty(t, id)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/feedback/x", fields["path"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.Equal(t, id, fields["request_id"])
}

func TestRequestIDReusesInbound(t *testing.T) {
	const inbound = "6f1c1c1e-5d2a-4c3b-9a8e-2b7f0d3e4a51"
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = chimw.GetReqID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", inbound)
	rec := serve(h, r)
	assert.Equal(t, inbound, seen)
	assert.Equal(t, inbound, rec.Header().Get("X-Request-Id"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "not-a-uuid")
	serve(h, r)
	assert.NotEqual(t, "not-a-uuid", seen)
}
