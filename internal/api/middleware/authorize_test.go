package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/core/domain"
)

type recordingAuthorizer struct {
	err   error
	actor string
	res   domain.Resource
	act   domain.Action
}

func (a *recordingAuthorizer) Authorize(_ context.Context, actorID string, res domain.Resource, act domain.Action) error {
	a.actor, a.res, a.act = actorID, res, act
	return a.err
}

func groupContext(groupID string, principal *domain.Principal) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/groups/"+groupID, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("groupId")
	c.SetParamValues(groupID)
	if principal != nil {
		c.Set(PrincipalKey, principal)
	}
	return c
}

func TestRequireGroupAdmin_Allows(t *testing.T) {
	authz := &recordingAuthorizer{}
	c := groupContext("g-1", &domain.Principal{UserID: "u-1"})

	called := false
	err := RequireGroupAdmin(authz, "groupId")(func(echo.Context) error {
		called = true
		return nil
	})(c)
	if err != nil || !called {
		t.Fatalf("expected next to run, err=%v", err)
	}
	if authz.actor != "u-1" || authz.res != domain.GroupResource("g-1") || authz.act != domain.ActionManageMembers {
		t.Fatalf("unexpected authorize call: %+v", authz)
	}
}

func TestRequireGroupMember_Forbids(t *testing.T) {
	authz := &recordingAuthorizer{err: domain.ErrGroupMemberRequired}
	c := groupContext("g-1", &domain.Principal{UserID: "u-2"})

	err := RequireGroupMember(authz, "groupId")(func(echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})(c)
	if err != domain.ErrGroupMemberRequired {
		t.Fatalf("expected ErrGroupMemberRequired, got %v", err)
	}
	if authz.act != domain.ActionReadMembers {
		t.Fatalf("expected read_members check, got %s", authz.act)
	}
}

func TestRequireGroupAdmin_MissingGroup(t *testing.T) {
	authz := &recordingAuthorizer{err: domain.ErrGroupNotFound}
	c := groupContext("nope", &domain.Principal{UserID: "u-1"})

	err := RequireGroupAdmin(authz, "groupId")(func(echo.Context) error { return nil })(c)
	if err != domain.ErrGroupNotFound {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	authz := &recordingAuthorizer{err: domain.ErrAdminRequired}
	c := groupContext("", &domain.Principal{UserID: "u-1"})

	err := RequireAdmin(authz)(func(echo.Context) error { return nil })(c)
	if err != domain.ErrAdminRequired {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	if authz.res.Kind != domain.ResourceSystem || authz.act != domain.ActionAdminister {
		t.Fatalf("unexpected authorize call: %+v", authz)
	}

	lookup := errors.New("db down")
	authz.err = lookup
	if err := RequireAdmin(authz)(func(echo.Context) error { return nil })(c); err != lookup {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestGuard_RequiresPrincipal(t *testing.T) {
	authz := &recordingAuthorizer{}
	c := groupContext("g-1", nil)

	err := RequireGroupAdmin(authz, "groupId")(func(echo.Context) error { return nil })(c)
	if err != domain.ErrMissingToken {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}
