package application

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"vn.io.arda/tenant-manager/internal/domain"
)

// defaultSystemAdminRole is used when no role name is configured.
const defaultSystemAdminRole = "PLATFORM_ADMIN"

// EventHub pushes administrative events to connected admin consoles.
// Implementation lives in transport/http (SSE hub); nil disables the
// stream.
type EventHub interface {
	Broadcast(event domain.AdminEvent)
}

// Service holds all tenant administration use-cases: the reconciler, the
// admin registry and the access evaluator. It owns no state of its own;
// the directory is the single source of truth.
type Service struct {
	dir             domain.Directory
	naming          domain.Naming
	tenants         *TenantRepository
	catalog         *RoleCatalog
	audit           domain.AuditRepository
	hub             EventHub
	systemAdminRole string
}

// NewService creates the application Service. audit and hub may be nil;
// the corresponding side channels are then skipped.
func NewService(dir domain.Directory, naming domain.Naming, catalog *RoleCatalog, audit domain.AuditRepository, hub EventHub, systemAdminRole string) *Service {
	if systemAdminRole == "" {
		systemAdminRole = defaultSystemAdminRole
	}
	return &Service{
		dir:             dir,
		naming:          naming,
		tenants:         NewTenantRepository(dir, naming),
		catalog:         catalog,
		audit:           audit,
		hub:             hub,
		systemAdminRole: systemAdminRole,
	}
}

// Catalog exposes the role catalog reader.
func (s *Service) Catalog() *RoleCatalog { return s.catalog }

// ListAudit returns the audit trail, newest first. System admins only.
func (s *Service) ListAudit(ctx context.Context, caller domain.Caller, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	if err := s.RequireSystemAdmin(caller); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return nil, nil
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	} else if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.audit.List(ctx, filter)
}

// recordAudit stores an audit entry. Audit failures are logged, never
// propagated: history must not fail the operation it describes.
func (s *Service) recordAudit(ctx context.Context, actorID string, action domain.AuditAction, tenantID, tenantName string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ActorID:    actorID,
		Action:     action,
		TenantID:   tenantID,
		TenantName: tenantName,
		Detail:     detail,
	}
	if _, err := s.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", string(action)).Str("tenant", tenantName).Msg("audit record failed")
	}
}

// publish broadcasts an admin event without blocking the caller.
func (s *Service) publish(event domain.AdminEvent) {
	if s.hub == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}
	go s.hub.Broadcast(event)
}
