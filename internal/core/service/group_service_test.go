package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

type groupFixture struct {
	svc    *GroupService
	store  *memStore
	audit  *recordingAudit
	owner  *domain.User
	member *domain.User
	other  *domain.User
	group  *domain.Group
}

// newGroupFixture creates a group owned by owner with member holding the
// member role; other has no membership.
func newGroupFixture(t *testing.T) *groupFixture {
	t.Helper()
	st := newMemStore()
	audit := &recordingAudit{}
	f := &groupFixture{
		svc:    NewGroupService(st, audit, discardLogger),
		store:  st,
		audit:  audit,
		owner:  seedUser(t, st, "owner@example.com", false),
		member: seedUser(t, st, "member@example.com", false),
		other:  seedUser(t, st, "other@example.com", false),
	}
	g, err := f.svc.Create(context.Background(), f.owner.ID, ports.CreateGroupInput{Name: "Team", Description: "d"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	f.group = g
	if _, err := f.svc.AddMember(context.Background(), f.owner.ID, g.ID, ports.AddMemberInput{UserID: f.member.ID}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	return f
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestGroupService_Create_GrantsCreatorAdmin(t *testing.T) {
	f := newGroupFixture(t)

	m, err := f.store.Groups().FindMembership(context.Background(), f.group.ID, f.owner.ID)
	if err != nil {
		t.Fatalf("creator membership missing: %v", err)
	}
	if m.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", m.Role)
	}
	if f.group.CreatedBy == nil || *f.group.CreatedBy != f.owner.ID {
		t.Fatalf("unexpected creator: %v", f.group.CreatedBy)
	}
}

func TestGroupService_Create_IsAtomic(t *testing.T) {
	st := newMemStore()
	owner := seedUser(t, st, "owner@example.com", false)
	st.failAddMember = errors.New("membership insert failed")
	svc := NewGroupService(st, nil, discardLogger)

	if _, err := svc.Create(context.Background(), owner.ID, ports.CreateGroupInput{Name: "Team"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(st.data.groups) != 0 {
		t.Fatalf("group must not exist without its admin membership")
	}
}

func TestGroupService_Create_Validation(t *testing.T) {
	f := newGroupFixture(t)

	cases := []ports.CreateGroupInput{
		{Name: "  "},
		{Name: strings.Repeat("x", maxGroupNameLen+1)},
		{Name: "ops\x00"},
		{Name: "ops", Description: "a\x00b"},
		{Name: "ops", Description: strings.Repeat("ü", maxGroupDescriptionLen+1)},
	}
	for _, in := range cases {
		if _, err := f.svc.Create(context.Background(), f.owner.ID, in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("input %q: expected validation error, got %v", in.Name, err)
		}
	}

	name := strings.Repeat("ö", maxGroupNameLen)
	if _, err := f.svc.Create(context.Background(), f.owner.ID, ports.CreateGroupInput{Name: name}); err != nil {
		t.Fatalf("multibyte name at the limit must be accepted: %v", err)
	}
	bad := "x\x00"
	if _, err := f.svc.Update(context.Background(), f.owner.ID, f.group.ID, ports.UpdateGroupInput{Description: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("update with NUL: expected validation error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Mutations: admin only
// ---------------------------------------------------------------------------

func TestGroupService_MemberCannotMutate(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()
	name := "renamed"

	checks := map[string]error{
		"update": func() error {
			_, err := f.svc.Update(ctx, f.member.ID, f.group.ID, ports.UpdateGroupInput{Name: &name})
			return err
		}(),
		"delete": f.svc.Delete(ctx, f.member.ID, f.group.ID),
		"add": func() error {
			_, err := f.svc.AddMember(ctx, f.member.ID, f.group.ID, ports.AddMemberInput{UserID: f.other.ID})
			return err
		}(),
		"remove": f.svc.RemoveMember(ctx, f.member.ID, f.group.ID, f.owner.ID),
		"role": func() error {
			_, err := f.svc.ChangeRole(ctx, f.member.ID, f.group.ID, f.member.ID, domain.RoleAdmin)
			return err
		}(),
	}
	for op, err := range checks {
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("%s: expected forbidden, got %v", op, err)
		}
		if errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("%s: forbidden must not look like not-found", op)
		}
	}

	if _, err := f.store.Groups().FindByID(ctx, f.group.ID); err != nil {
		t.Fatalf("group must survive denied delete: %v", err)
	}
}

func TestGroupService_MissingGroupIsNotFound(t *testing.T) {
	f := newGroupFixture(t)

	err := f.svc.Delete(context.Background(), f.owner.ID, "nope")
	if err != domain.ErrGroupNotFound {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestGroupService_AdminMutations(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	desc := "new description"
	g, err := f.svc.Update(ctx, f.owner.ID, f.group.ID, ports.UpdateGroupInput{Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if g.Name != "Team" || g.Description != desc {
		t.Fatalf("partial update went wrong: %+v", g)
	}

	m, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, f.member.ID, domain.RoleAdmin)
	if err != nil || m.Role != domain.RoleAdmin {
		t.Fatalf("promote: %+v %v", m, err)
	}

	// The promoted member now passes the admin check on the next call.
	if _, err := f.svc.AddMember(ctx, f.member.ID, f.group.ID, ports.AddMemberInput{UserID: f.other.ID, Role: domain.RoleMember}); err != nil {
		t.Fatalf("promoted member add: %v", err)
	}

	if err := f.svc.RemoveMember(ctx, f.member.ID, f.group.ID, f.other.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.svc.Delete(ctx, f.owner.ID, f.group.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.store.Groups().FindByID(ctx, f.group.ID); err != domain.ErrGroupNotFound {
		t.Fatalf("expected group gone, got %v", err)
	}
	if len(f.store.data.members[f.group.ID]) != 0 {
		t.Fatalf("memberships must go with the group")
	}
}

func TestGroupService_DemotedAdminLosesRights(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, f.member.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if _, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, f.member.ID, domain.RoleMember); err != nil {
		t.Fatalf("demote: %v", err)
	}
	if err := f.svc.Delete(ctx, f.member.ID, f.group.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("demoted admin must be refused, got %v", err)
	}
}

func TestGroupService_AddMember_Errors(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.owner.ID, f.group.ID, ports.AddMemberInput{UserID: f.member.ID}); err != domain.ErrMembershipExists {
		t.Fatalf("expected ErrMembershipExists, got %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.owner.ID, f.group.ID, ports.AddMemberInput{UserID: "ghost"}); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.owner.ID, f.group.ID, ports.AddMemberInput{UserID: f.other.ID, Role: "owner"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.owner.ID, f.group.ID, ports.AddMemberInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for missing user id, got %v", err)
	}
}

func TestGroupService_ChangeRole_Validation(t *testing.T) {
	f := newGroupFixture(t)

	if _, err := f.svc.ChangeRole(context.Background(), f.owner.ID, f.group.ID, f.member.ID, ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.ChangeRole(context.Background(), f.owner.ID, f.group.ID, f.member.ID, "superuser"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.svc.ChangeRole(context.Background(), f.owner.ID, f.group.ID, f.other.ID, domain.RoleAdmin); err != domain.ErrMembershipNotFound {
		t.Fatalf("expected ErrMembershipNotFound, got %v", err)
	}
}

func TestGroupService_LastAdminProtected(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	if _, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, f.owner.ID, domain.RoleMember); err != domain.ErrLastGroupAdmin {
		t.Fatalf("expected ErrLastGroupAdmin on demote, got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.owner.ID, f.group.ID, f.owner.ID); err != domain.ErrLastGroupAdmin {
		t.Fatalf("expected ErrLastGroupAdmin on remove, got %v", err)
	}

	if _, err := f.svc.ChangeRole(ctx, f.owner.ID, f.group.ID, f.member.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.owner.ID, f.group.ID, f.owner.ID); err != nil {
		t.Fatalf("owner may leave once another admin exists: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestGroupService_ListMembers_MembersOnly(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	members, err := f.svc.ListMembers(ctx, f.member.ID, f.group.ID, 1, 10)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if _, err := f.svc.ListMembers(ctx, f.other.ID, f.group.ID, 1, 10); err != domain.ErrGroupMemberRequired {
		t.Fatalf("expected ErrGroupMemberRequired, got %v", err)
	}
}

func TestGroupService_GetAndList(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	detail, err := f.svc.Get(ctx, f.group.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Group.ID != f.group.ID || len(detail.Members) != 2 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if _, err := f.svc.Get(ctx, "missing"); err != domain.ErrGroupNotFound {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}

	groups, err := f.svc.List(ctx, 0, 0)
	if err != nil || len(groups) != 1 {
		t.Fatalf("list: %d %v", len(groups), err)
	}
	groups, _ = f.svc.List(ctx, 2, 10)
	if len(groups) != 0 {
		t.Fatalf("expected empty second page, got %d", len(groups))
	}

	mine, err := f.svc.ListUserGroups(ctx, f.member.ID)
	if err != nil || len(mine) != 1 || mine[0].Role != domain.RoleMember {
		t.Fatalf("unexpected user groups %+v %v", mine, err)
	}
}

func TestGroupService_Get_ReturnsEveryMember(t *testing.T) {
	f := newGroupFixture(t)
	ctx := context.Background()

	extra := membersPageSize + 25
	for i := 0; i < extra; i++ {
		u := seedUser(t, f.store, fmt.Sprintf("m%03d@example.com", i), false)
		if _, err := f.svc.AddMember(ctx, f.owner.ID, f.group.ID, ports.AddMemberInput{UserID: u.ID}); err != nil {
			t.Fatalf("add member %d: %v", i, err)
		}
	}

	detail, err := f.svc.Get(ctx, f.group.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := extra + 2; len(detail.Members) != want {
		t.Fatalf("expected %d members, got %d", want, len(detail.Members))
	}
	seen := make(map[string]bool, len(detail.Members))
	for _, m := range detail.Members {
		if seen[m.UserID] {
			t.Fatalf("member %s returned twice", m.UserID)
		}
		seen[m.UserID] = true
	}
}

func TestGroupService_AuditTrail(t *testing.T) {
	f := newGroupFixture(t)

	want := domain.AuditGroupCreated + "," + domain.AuditMemberAdded
	if f.audit.actions() != want {
		t.Fatalf("unexpected audit trail: %s", f.audit.actions())
	}
}

func TestPageBounds(t *testing.T) {
	cases := []struct{ page, limit, wantLimit, wantOffset int }{
		{0, 0, 10, 0},
		{1, 10, 10, 0},
		{3, 20, 20, 40},
		{1, 500, 100, 0},
		{-1, -5, 10, 0},
		{math.MaxInt, 10, 10, math.MaxInt/10*10 - 10},
		{math.MaxInt, 100, 100, math.MaxInt/100*100 - 100},
	}
	for _, c := range cases {
		l, off := pageBounds(c.page, c.limit)
		if l != c.wantLimit || off != c.wantOffset {
			t.Fatalf("pageBounds(%d,%d) = %d,%d; want %d,%d", c.page, c.limit, l, off, c.wantLimit, c.wantOffset)
		}
		if off < 0 {
			t.Fatalf("pageBounds(%d,%d) produced negative offset %d", c.page, c.limit, off)
		}
	}
}
