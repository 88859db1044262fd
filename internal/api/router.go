package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/accounts-api/docs" // Swagger docs
	"github.com/99minutos/accounts-api/internal/api/handler"
	"github.com/99minutos/accounts-api/internal/api/middleware"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

// Dependencies are the services and settings the HTTP layer is built from.
type Dependencies struct {
	Log zerolog.Logger

	Authenticator     ports.Authenticator
	Authorizer        ports.Authorizer
	AuthService       ports.AuthService
	GroupService      ports.GroupService
	PreferenceService ports.PreferenceService
	AdminService      ports.AdminService

	// Health lists the dependencies checked by /health/ready.
	Health map[string]handler.Pinger

	CORSAllowOrigins []string
	RateLimit        middleware.RateLimitConfig

	// Registerer and Gatherer back the HTTP metrics and /metrics. They
	// default to the Prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
//
//	@title						Accounts API
//	@version					1.0
//	@description				User accounts, sessions, groups and preferences.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func NewRouter(deps Dependencies) (*echo.Echo, error) {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	promMW, err := echoprometheus.MiddlewareConfig{
		Namespace:  "accounts",
		Registerer: deps.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
	}.ToMiddleware()
	if err != nil {
		return nil, err
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(echomiddleware.BodyLimit("1M"))
	e.Use(middleware.RateLimit(deps.RateLimit))
	e.Use(promMW)

	authn := middleware.Auth(deps.Authenticator)
	requireAdmin := middleware.RequireAdmin(deps.Authorizer)
	requireGroupMember := middleware.RequireGroupMember(deps.Authorizer, "groupId")
	requireGroupAdmin := middleware.RequireGroupAdmin(deps.Authorizer, "groupId")

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/profile", authHandler.Profile, authn)
	auth.PUT("/profile", authHandler.UpdateProfile, authn)
	auth.POST("/change-password", authHandler.ChangePassword, authn)

	// --- Group routes ---
	groupHandler := handler.NewGroupHandler(deps.GroupService)
	groups := e.Group("/groups", authn)
	groups.POST("", groupHandler.Create)
	groups.GET("", groupHandler.List)
	groups.GET("/user", groupHandler.MyGroups)
	groups.GET("/user/:userId", groupHandler.UserGroups)
	groups.GET("/:groupId", groupHandler.Get)
	groups.PUT("/:groupId", groupHandler.Update, requireGroupAdmin)
	groups.DELETE("/:groupId", groupHandler.Delete, requireGroupAdmin)
	groups.GET("/:groupId/users", groupHandler.Members, requireGroupMember)
	groups.POST("/:groupId/users", groupHandler.AddMember, requireGroupAdmin)
	groups.DELETE("/:groupId/users/:userId", groupHandler.RemoveMember, requireGroupAdmin)
	groups.PUT("/:groupId/users/:userId/role", groupHandler.ChangeRole, requireGroupAdmin)

	// --- Preference routes ---
	prefHandler := handler.NewPreferenceHandler(deps.PreferenceService)
	prefs := e.Group("/preferences", authn)
	prefs.GET("", prefHandler.List)
	prefs.GET("/:key", prefHandler.Get)
	prefs.PUT("/:key", prefHandler.Set)
	prefs.DELETE("/:key", prefHandler.Delete)

	// --- Admin routes ---
	adminHandler := handler.NewAdminHandler(deps.AdminService)
	admin := e.Group("/admin", authn, requireAdmin)
	admin.GET("/users", adminHandler.ListUsers)
	admin.PUT("/users/:userId/active", adminHandler.SetActive)
	admin.POST("/sessions/purge", adminHandler.PurgeSessions)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Health)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}
