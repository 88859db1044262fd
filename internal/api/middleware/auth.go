package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-api/internal/api/metrics"
	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// PrincipalKey is the echo.Context key holding the authenticated *domain.Principal.
const PrincipalKey = "principal"

// Auth resolves the bearer token through the session registry and injects the
// principal into the context. Failures are returned to the error handler.
func Auth(authn ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c)
			if err != nil {
				metrics.AuthAttemptsTotal.WithLabelValues("token", "missing").Inc()
				return err
			}

			principal, err := authn.Authenticate(c.Request().Context(), token)
			if err != nil {
				metrics.AuthAttemptsTotal.WithLabelValues("token", tokenFailureLabel(err)).Inc()
				return err
			}

			metrics.AuthAttemptsTotal.WithLabelValues("token", "success").Inc()
			c.Set(PrincipalKey, principal)
			return next(c)
		}
	}
}

// BearerToken extracts the token from the Authorization header. A missing
// header yields domain.ErrMissingToken; any other scheme domain.ErrTokenInvalid.
func BearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", domain.ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", domain.ErrTokenInvalid
	}
	return token, nil
}

// Principal returns the principal injected by Auth, or nil.
func Principal(c echo.Context) *domain.Principal {
	p, _ := c.Get(PrincipalKey).(*domain.Principal)
	return p
}

func tokenFailureLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "no_session"
	case errors.Is(err, domain.ErrAccountInactive):
		return "inactive"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "invalid"
	default:
		return "error"
	}
}
