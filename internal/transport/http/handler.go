package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"vn.io.arda/tenant-manager/internal/application"
	"vn.io.arda/tenant-manager/internal/domain"
	"vn.io.arda/tenant-manager/internal/transport/mw"
)

// Handler holds all HTTP handler methods.
type Handler struct {
	svc *application.Service
	hub *Hub
}

// NewHandler creates a new Handler.
func NewHandler(svc *application.Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// --- Tenant handlers ---

// CreateTenant POST /tenants
func (h *Handler) CreateTenant(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	tenant, err := h.svc.CreateTenant(c.Request().Context(), mw.Caller(c), req.Name, req.DisplayName)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, tenant)
}

// ListTenants GET /tenants
func (h *Handler) ListTenants(c echo.Context) error {
	tenants, err := h.svc.ListTenants(c.Request().Context(), mw.Caller(c))
	if err != nil {
		return httpError(err)
	}
	if tenants == nil {
		tenants = []*domain.Tenant{}
	}
	return c.JSON(http.StatusOK, map[string]any{"data": tenants})
}

// GetTenant GET /tenants/:id
func (h *Handler) GetTenant(c echo.Context) error {
	tenant, err := h.svc.GetTenant(c.Request().Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenant PATCH /tenants/:id
func (h *Handler) UpdateTenant(c echo.Context) error {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	tenant, err := h.svc.UpdateTenant(c.Request().Context(), mw.Caller(c), c.Param("id"), req.DisplayName)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant DELETE /tenants/:id
func (h *Handler) DeleteTenant(c echo.Context) error {
	if err := h.svc.DeleteTenant(c.Request().Context(), mw.Caller(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// TriggerSync POST /tenants/sync
func (h *Handler) TriggerSync(c echo.Context) error {
	report, err := h.svc.TriggerSync(c.Request().Context(), mw.Caller(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// CheckAccess GET /tenants/:id/access
func (h *Handler) CheckAccess(c echo.Context) error {
	caller := mw.Caller(c)
	tenantID := c.Param("id")

	read, err := h.svc.HasReadAccess(c.Request().Context(), caller, tenantID)
	if err != nil {
		return httpError(err)
	}
	manage, err := h.svc.HasManageAccess(c.Request().Context(), caller, tenantID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"read": read, "manage": manage})
}

// --- Admin registry handlers ---

// ListAdmins GET /tenants/:id/admins
func (h *Handler) ListAdmins(c echo.Context) error {
	admins, err := h.svc.ListAdmins(c.Request().Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": admins})
}

// AssignAdmin PUT /tenants/:id/admins/:userId
func (h *Handler) AssignAdmin(c echo.Context) error {
	admin, err := h.svc.AssignAdmin(c.Request().Context(), mw.Caller(c), c.Param("userId"), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, admin)
}

// RemoveAdmin DELETE /tenants/:id/admins/:userId
func (h *Handler) RemoveAdmin(c echo.Context) error {
	if err := h.svc.RemoveAdmin(c.Request().Context(), mw.Caller(c), c.Param("userId"), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MyTenants GET /me/tenants
func (h *Handler) MyTenants(c echo.Context) error {
	caller := mw.Caller(c)
	tenants, err := h.svc.ListUserTenants(c.Request().Context(), caller, caller.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": tenants})
}

// UserTenants GET /users/:id/tenants
func (h *Handler) UserTenants(c echo.Context) error {
	tenants, err := h.svc.ListUserTenants(c.Request().Context(), mw.Caller(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": tenants})
}

// --- Role catalog handler ---

// ListRoles GET /roles — realm roles, or one client's roles with ?client_id=
func (h *Handler) ListRoles(c echo.Context) error {
	var (
		roles []domain.Role
		err   error
	)
	if clientID := c.QueryParam("client_id"); clientID != "" {
		roles, err = h.svc.Catalog().ClientRoles(c.Request().Context(), clientID)
	} else {
		roles, err = h.svc.Catalog().RealmRoles(c.Request().Context())
	}
	if err != nil {
		return httpError(err)
	}
	if roles == nil {
		roles = []domain.Role{}
	}
	return c.JSON(http.StatusOK, map[string]any{"data": roles})
}

// --- Audit handler ---

// ListAudit GET /audit
func (h *Handler) ListAudit(c echo.Context) error {
	filter := domain.AuditFilter{
		TenantID: c.QueryParam("tenant_id"),
		Action:   domain.AuditAction(c.QueryParam("action")),
		Limit:    parseIntQuery(c, "limit", 20),
		Offset:   parseIntQuery(c, "offset", 0),
	}

	entries, err := h.svc.ListAudit(c.Request().Context(), mw.Caller(c), filter)
	if err != nil {
		return httpError(err)
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":   entries,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// --- SSE Handler ---

// Stream GET /events/stream — SSE endpoint for admin consoles
func (h *Handler) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	caller := mw.Caller(c)

	systemAdmin := h.svc.IsSystemAdmin(caller)
	var tenantIDs []string
	if !systemAdmin {
		tenants, err := h.svc.ListUserTenants(ctx, caller, caller.UserID)
		if err != nil {
			return httpError(err)
		}
		for _, t := range tenants {
			tenantIDs = append(tenantIDs, t.ID)
		}
	}

	// SSE headers
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable Nginx/APISIX buffering

	// Register client
	sendCh := make(chan []byte, 32)
	client := h.hub.Register(caller.UserID, systemAdmin, tenantIDs, sendCh)
	defer h.hub.Unregister(client)

	// Send initial "connected" event
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	w.Flush()

	log.Info().Str("user", caller.UserID).Bool("system_admin", systemAdmin).Msg("SSE stream opened")

	for {
		select {
		case msg, ok := <-sendCh:
			if !ok {
				return nil
			}
			if _, err := w.Write(msg); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Info().Str("user", caller.UserID).Msg("SSE stream closed by client")
			return nil
		}
	}
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"sse_clients": h.hub.ConnectedCount(),
	})
}

// --- Helpers ---

// httpError maps the domain error taxonomy to HTTP statuses, keeping the
// machine-readable code in the body so UIs can tell "forbidden" from
// "does not exist".
func httpError(err error) error {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case domain.CodeInvalidArgument:
		status = http.StatusBadRequest
	case domain.CodeAlreadyExists:
		status = http.StatusConflict
	case domain.CodeNotFound, domain.CodeNotATenant:
		status = http.StatusNotFound
	case domain.CodeAccessDenied:
		status = http.StatusForbidden
	case domain.CodeDirectory:
		status = http.StatusBadGateway
	}
	if code == "" {
		code = "INTERNAL"
	}
	return echo.NewHTTPError(status, map[string]string{
		"code":    string(code),
		"message": err.Error(),
	})
}

func parseIntQuery(c echo.Context, key string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
