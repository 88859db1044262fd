package handler

import (
	"math"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/middleware"
	"github.com/99minutos/accounts-api/internal/core/domain"
)

// ctxPrincipal extracts the principal injected by the Auth middleware. A
// missing principal means the route was wired without Auth; fail closed.
func ctxPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.Principal(c)
	if p == nil || p.UserID == "" {
		return nil, domain.ErrMissingToken
	}
	return p, nil
}

// bindAndValidate decodes the request body and runs struct validation.
// Both failures surface as validation errors (400).
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.Validation("invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return domain.Validation(err.Error())
	}
	return nil
}

const maxPage = math.MaxInt32

// pagination reads the optional page and limit query parameters.
func pagination(c echo.Context) (page, limit int, err error) {
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError(); err != nil {
		return 0, 0, domain.Validation("page and limit must be integers")
	}
	if page < 0 || limit < 0 {
		return 0, 0, domain.Validation("page and limit must not be negative")
	}
	if page > maxPage {
		return 0, 0, domain.Validation("page is out of range")
	}
	return page, limit, nil
}

type messageResponse struct {
	Message string `json:"message"`
}
