package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"vn.io.arda/tenant-manager/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler, keycloakBaseURL, realm string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}))

	// Health (no auth required)
	e.GET("/health", h.Health)

	// API — requires authentication
	v1 := e.Group("")
	v1.Use(mw.JWTAuth(keycloakBaseURL, realm))

	// Tenant lifecycle
	v1.POST("/tenants", h.CreateTenant)
	v1.GET("/tenants", h.ListTenants)
	v1.POST("/tenants/sync", h.TriggerSync)
	v1.GET("/tenants/:id", h.GetTenant)
	v1.PATCH("/tenants/:id", h.UpdateTenant)
	v1.DELETE("/tenants/:id", h.DeleteTenant)
	v1.GET("/tenants/:id/access", h.CheckAccess)

	// Tenant admins
	v1.GET("/tenants/:id/admins", h.ListAdmins)
	v1.PUT("/tenants/:id/admins/:userId", h.AssignAdmin)
	v1.DELETE("/tenants/:id/admins/:userId", h.RemoveAdmin)
	v1.GET("/me/tenants", h.MyTenants)
	v1.GET("/users/:id/tenants", h.UserTenants)

	// Role catalog & audit trail
	v1.GET("/roles", h.ListRoles)
	v1.GET("/audit", h.ListAudit)

	// SSE endpoint
	v1.GET("/events/stream", h.Stream)

	return e
}
