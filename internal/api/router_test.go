package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/api/handler"
	"github.com/99minutos/accounts-api/internal/api/middleware"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// stubAuthn accepts "Bearer <userID>" for any userID in users.
type stubAuthn struct {
	users map[string]bool
}

func (s *stubAuthn) Authenticate(_ context.Context, token string) (*domain.Principal, error) {
	if !s.users[token] {
		return nil, domain.ErrSessionNotFound
	}
	return &domain.Principal{UserID: token}, nil
}

// stubAuthz knows one group, "g1", administered by "owner".
type stubAuthz struct{}

func (stubAuthz) Authorize(_ context.Context, actorID string, res domain.Resource, act domain.Action) error {
	if res == domain.SystemResource() {
		if actorID != "root" {
			return domain.ErrAdminRequired
		}
		return nil
	}
	if res != domain.GroupResource("g1") {
		return domain.ErrGroupNotFound
	}
	if actorID != "owner" {
		return domain.ErrGroupAdminRequired
	}
	return nil
}

type stubGroups struct {
	ports.GroupService
	deleted string
}

func (s *stubGroups) Delete(_ context.Context, _, groupID string) error {
	s.deleted = groupID
	return nil
}

type stubAdmin struct {
	ports.AdminService
}

func (stubAdmin) PurgeSessions(context.Context, string) (int64, error) { return 2, nil }

type stubPrefs struct {
	ports.PreferenceService
}

func (stubPrefs) Set(_ context.Context, userID, key, value string) (*domain.Preference, error) {
	return &domain.Preference{UserID: userID, Key: key, Value: value}, nil
}

func newTestRouter(t *testing.T, groups *stubGroups, rl middleware.RateLimitConfig) *echo.Echo {
	t.Helper()
	e, err := NewRouter(Dependencies{
		Log:               zerolog.Nop(),
		Authenticator:     &stubAuthn{users: map[string]bool{"root": true, "owner": true, "member": true}},
		Authorizer:        stubAuthz{},
		GroupService:      groups,
		AdminService:      stubAdmin{},
		PreferenceService: stubPrefs{},
		Health: map[string]handler.Pinger{
			"postgres": handler.PingFunc(func(context.Context) error { return nil }),
		},
		CORSAllowOrigins: []string{"*"},
		RateLimit:        rl,
		Registerer:       prometheus.NewRegistry(),
		Gatherer:         prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return e
}

func do(e *echo.Echo, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestRouter_PublicEndpoints(t *testing.T) {
	e := newTestRouter(t, &stubGroups{}, middleware.RateLimitConfig{})

	if rec := do(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("/health: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("/health/ready: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("/metrics: %d", rec.Code)
	}
}

func TestRouter_UnknownRouteIsJSON404(t *testing.T) {
	e := newTestRouter(t, &stubGroups{}, middleware.RateLimitConfig{})

	rec := do(e, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound || errorOf(t, rec) == "" {
		t.Fatalf("expected JSON 404, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	e := newTestRouter(t, &stubGroups{}, middleware.RateLimitConfig{})

	rec := do(e, http.MethodGet, "/preferences", "", "")
	if rec.Code != http.StatusUnauthorized || errorOf(t, rec) != "missing bearer token" {
		t.Fatalf("expected 401 missing token, got %d %q", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/auth/profile", "stale", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown session, got %d", rec.Code)
	}
}

func TestRouter_AdminGuard(t *testing.T) {
	e := newTestRouter(t, &stubGroups{}, middleware.RateLimitConfig{})

	if rec := do(e, http.MethodPost, "/admin/sessions/purge", "member", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
	rec := do(e, http.MethodPost, "/admin/sessions/purge", "root", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"purged":2`) {
		t.Fatalf("expected purge for admin, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_GroupAdminGuard(t *testing.T) {
	groups := &stubGroups{}
	e := newTestRouter(t, groups, middleware.RateLimitConfig{})

	if rec := do(e, http.MethodDelete, "/groups/missing", "owner", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing group, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/groups/g1", "member", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non group admin, got %d", rec.Code)
	}
	if groups.deleted != "" {
		t.Fatalf("service must not be reached when the guard denies")
	}
	if rec := do(e, http.MethodDelete, "/groups/g1", "owner", ""); rec.Code != http.StatusOK || groups.deleted != "g1" {
		t.Fatalf("expected delete by owner, got %d deleted=%q", rec.Code, groups.deleted)
	}
}

func TestRouter_PreferenceValueRequired(t *testing.T) {
	e := newTestRouter(t, &stubGroups{}, middleware.RateLimitConfig{})

	if rec := do(e, http.MethodPut, "/preferences/theme", "member", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, "/preferences/theme", "member", `{"value":"dark"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	e := newTestRouter(t, &stubGroups{}, middleware.RateLimitConfig{RPS: 1, Burst: 1})

	if rec := do(e, http.MethodGet, "/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("first request should pass the limiter, got %d", rec.Code)
	}
	rec := do(e, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must bypass the limiter, got %d", rec.Code)
	}
}
