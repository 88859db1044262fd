package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/core/ports"
)

type GroupHandler struct {
	groupService ports.GroupService
}

func NewGroupHandler(groupService ports.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// Create makes a new group with the caller as its first admin.
//
// @Summary      Create group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createGroupRequest  true  "Group fields"
// @Success      201   {object}  groupResponse
// @Failure      400   {object}  map[string]string
// @Router       /groups [post]
func (h *GroupHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.groupService.Create(c.Request().Context(), p.UserID, ports.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, groupResponse{Message: "group created successfully", Group: group})
}

// List returns a page of groups.
//
// @Summary      List groups
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page (1-based)"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  groupListResponse
// @Router       /groups [get]
func (h *GroupHandler) List(c echo.Context) error {
	page, limit, err := pagination(c)
	if err != nil {
		return err
	}

	groups, err := h.groupService.List(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groupListResponse{Groups: groups})
}

// MyGroups lists the caller's groups with their role in each.
//
// @Summary      List caller's groups
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userGroupListResponse
// @Router       /groups/user [get]
func (h *GroupHandler) MyGroups(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return h.userGroups(c, p.UserID)
}

// UserGroups lists the groups of the user named in the path.
//
// @Summary      List a user's groups
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "User ID"
// @Success      200     {object}  userGroupListResponse
// @Router       /groups/user/{userId} [get]
func (h *GroupHandler) UserGroups(c echo.Context) error {
	return h.userGroups(c, c.Param("userId"))
}

func (h *GroupHandler) userGroups(c echo.Context, userID string) error {
	groups, err := h.groupService.ListUserGroups(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userGroupListResponse{Groups: groups})
}

// Get returns a group and its members.
//
// @Summary      Get group
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        groupId  path      string  true  "Group ID"
// @Success      200      {object}  groupDetailResponse
// @Failure      404      {object}  map[string]string
// @Router       /groups/{groupId} [get]
func (h *GroupHandler) Get(c echo.Context) error {
	detail, err := h.groupService.Get(c.Request().Context(), c.Param("groupId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groupDetailResponse{Group: detail.Group, Members: detail.Members})
}

// Update changes a group's name or description.
//
// @Summary      Update group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        groupId  path      string              true  "Group ID"
// @Param        body     body      updateGroupRequest  true  "Fields to change"
// @Success      200      {object}  groupResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /groups/{groupId} [put]
func (h *GroupHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.groupService.Update(c.Request().Context(), p.UserID, c.Param("groupId"), ports.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groupResponse{Message: "group updated successfully", Group: group})
}

// Delete removes a group and its memberships.
//
// @Summary      Delete group
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        groupId  path      string  true  "Group ID"
// @Success      200      {object}  messageResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /groups/{groupId} [delete]
func (h *GroupHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.groupService.Delete(c.Request().Context(), p.UserID, c.Param("groupId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "group deleted successfully"})
}

// Members lists the members of a group.
//
// @Summary      List group members
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        groupId  path      string  true   "Group ID"
// @Param        page     query     int     false  "Page (1-based)"
// @Param        limit    query     int     false  "Page size"
// @Success      200      {object}  membersResponse
// @Failure      403      {object}  map[string]string
// @Router       /groups/{groupId}/users [get]
func (h *GroupHandler) Members(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	page, limit, err := pagination(c)
	if err != nil {
		return err
	}

	members, err := h.groupService.ListMembers(c.Request().Context(), p.UserID, c.Param("groupId"), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, membersResponse{Members: members})
}

// AddMember adds a user to a group.
//
// @Summary      Add group member
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        groupId  path      string            true  "Group ID"
// @Param        body     body      addMemberRequest  true  "Member to add"
// @Success      201      {object}  membershipResponse
// @Failure      403      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /groups/{groupId}/users [post]
func (h *GroupHandler) AddMember(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req addMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	m, err := h.groupService.AddMember(c.Request().Context(), p.UserID, c.Param("groupId"), ports.AddMemberInput{
		UserID: req.UserID,
		Role:   req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, membershipResponse{Message: "member added successfully", Membership: m})
}

// RemoveMember removes a user from a group.
//
// @Summary      Remove group member
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        groupId  path      string  true  "Group ID"
// @Param        userId   path      string  true  "User ID"
// @Success      200      {object}  messageResponse
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /groups/{groupId}/users/{userId} [delete]
func (h *GroupHandler) RemoveMember(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	if err := h.groupService.RemoveMember(c.Request().Context(), p.UserID, c.Param("groupId"), c.Param("userId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "member removed successfully"})
}

// ChangeRole sets a member's role.
//
// @Summary      Change member role
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        groupId  path      string             true  "Group ID"
// @Param        userId   path      string             true  "User ID"
// @Param        body     body      changeRoleRequest  true  "New role"
// @Success      200      {object}  membershipResponse
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      409      {object}  map[string]string
// @Router       /groups/{groupId}/users/{userId}/role [put]
func (h *GroupHandler) ChangeRole(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	m, err := h.groupService.ChangeRole(c.Request().Context(), p.UserID, c.Param("groupId"), c.Param("userId"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, membershipResponse{Message: "role updated successfully", Membership: m})
}
