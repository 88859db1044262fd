package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// RequireAdmin admits callers whose persisted account carries the global
// admin flag. Must run after Auth.
func RequireAdmin(authz ports.Authorizer) echo.MiddlewareFunc {
	return guard(authz, "admin", func(echo.Context) (domain.Resource, domain.Action) {
		return domain.SystemResource(), domain.ActionAdminister
	})
}

// RequireGroupMember admits members of the group named by the path parameter.
func RequireGroupMember(authz ports.Authorizer, param string) echo.MiddlewareFunc {
	return guard(authz, "group_member", func(c echo.Context) (domain.Resource, domain.Action) {
		return domain.GroupResource(c.Param(param)), domain.ActionReadMembers
	})
}

// RequireGroupAdmin admits admins of the group named by the path parameter.
func RequireGroupAdmin(authz ports.Authorizer, param string) echo.MiddlewareFunc {
	return guard(authz, "group_admin", func(c echo.Context) (domain.Resource, domain.Action) {
		return domain.GroupResource(c.Param(param)), domain.ActionManageMembers
	})
}

func guard(authz ports.Authorizer, capability string, target func(echo.Context) (domain.Resource, domain.Action)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := Principal(c)
			if p == nil {
				return domain.ErrMissingToken
			}

			res, act := target(c)
			if err := authz.Authorize(c.Request().Context(), p.UserID, res, act); err != nil {
				result := "error"
				if errors.Is(err, domain.ErrForbidden) {
					result = "deny"
				}
				metrics.AuthzDecisionsTotal.WithLabelValues(capability, result).Inc()
				return err
			}

			metrics.AuthzDecisionsTotal.WithLabelValues(capability, "allow").Inc()
			return next(c)
		}
	}
}
