package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/core/ports"
)

type AdminHandler struct {
	adminService ports.AdminService
}

func NewAdminHandler(adminService ports.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers returns a page of accounts.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page (1-based)"
// @Param        limit  query     int  false  "Page size"
// @Success      200    {object}  userListResponse
// @Failure      403    {object}  map[string]string
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	page, limit, err := pagination(c)
	if err != nil {
		return err
	}

	res, err := h.adminService.ListUsers(c.Request().Context(), p.UserID, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userListResponse{
		Users: res.Users,
		Total: res.Total,
		Page:  res.Page,
		Limit: res.Limit,
	})
}

// SetActive activates or deactivates an account.
//
// @Summary      Set account active flag
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string            true  "User ID"
// @Param        body    body      setActiveRequest  true  "Active flag"
// @Success      200     {object}  userResponse
// @Failure      400     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Router       /admin/users/{userId}/active [put]
func (h *AdminHandler) SetActive(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req setActiveRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.adminService.SetActive(c.Request().Context(), p.UserID, c.Param("userId"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// PurgeSessions removes every expired session.
//
// @Summary      Purge expired sessions
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  purgeResponse
// @Failure      403  {object}  map[string]string
// @Router       /admin/sessions/purge [post]
func (h *AdminHandler) PurgeSessions(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	n, err := h.adminService.PurgeSessions(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, purgeResponse{Purged: n})
}
