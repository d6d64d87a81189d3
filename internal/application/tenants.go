package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"vn.io.arda/tenant-manager/internal/domain"
	"vn.io.arda/tenant-manager/internal/messages"
)

// CreateTenant provisions a new tenant: a top-level group carrying the
// derived name, plus one role subgroup per current realm role.
//
// There is no rollback on partial failure. If a subgroup creation fails
// midway the tenant group stays in place in a stale state; the next
// reconciliation run completes the missing subgroups.
func (s *Service) CreateTenant(ctx context.Context, caller domain.Caller, rawName, displayName string) (*domain.Tenant, error) {
	if err := s.RequireSystemAdmin(caller); err != nil {
		return nil, err
	}

	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return nil, domain.InvalidArgument("tenant name must not be blank")
	}

	existing, err := s.tenants.FindByRawName(ctx, rawName)
	if err != nil {
		return nil, fmt.Errorf("check existing tenant: %w", err)
	}
	if existing != nil {
		return nil, domain.AlreadyExists("tenant %q already exists", s.naming.GroupName(rawName))
	}

	if displayName == "" {
		displayName = rawName
	}
	created, err := s.dir.CreateGroup(ctx, domain.Group{
		Name:       s.naming.GroupName(rawName),
		Attributes: map[string][]string{domain.DisplayNameAttribute: {displayName}},
	})
	if err != nil {
		return nil, fmt.Errorf("create tenant group: %w", err)
	}

	roles, err := s.catalog.RealmRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list realm roles: %w", err)
	}
	for _, role := range roles {
		if err := s.createRoleSubgroup(ctx, created.ID, role); err != nil {
			return nil, err
		}
	}

	tenant, err := s.tenants.Get(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, caller.UserID, domain.AuditTenantCreated, tenant.ID, tenant.Name, map[string]any{
		"display_name":   tenant.DisplayName,
		"role_subgroups": len(tenant.RoleSubgroups),
	})
	title, body := messages.TenantCreated(tenant.DisplayName)
	s.publish(domain.AdminEvent{Type: "TENANT_CREATED", TenantID: tenant.ID, TenantName: tenant.Name, Title: title, Body: body})

	log.Info().
		Str("tenant", tenant.Name).
		Str("id", tenant.ID).
		Int("role_subgroups", len(tenant.RoleSubgroups)).
		Msg("tenant created")

	return tenant, nil
}

// UpdateTenant changes the tenant's display name. The derived group name
// is immutable; it is never touched by an update.
func (s *Service) UpdateTenant(ctx context.Context, caller domain.Caller, id, displayName string) (*domain.Tenant, error) {
	if err := s.RequireManageAccess(ctx, caller, id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(displayName) == "" {
		return nil, domain.InvalidArgument("display name must not be blank")
	}

	group, err := s.dir.GetGroup(ctx, id)
	if err != nil {
		if domain.IsDirectoryNotFound(err) {
			return nil, domain.NotFound("tenant %q not found", id)
		}
		return nil, fmt.Errorf("get group %q: %w", id, err)
	}
	if !s.naming.IsTenantGroup(group) {
		return nil, domain.NotATenant("group %q is not a tenant", group.Name)
	}

	if group.Attributes == nil {
		group.Attributes = map[string][]string{}
	}
	group.Attributes[domain.DisplayNameAttribute] = []string{displayName}
	if err := s.dir.UpdateGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("update tenant group: %w", err)
	}

	tenant, err := s.tenants.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, caller.UserID, domain.AuditTenantUpdated, tenant.ID, tenant.Name, map[string]any{
		"display_name": tenant.DisplayName,
	})
	title, body := messages.TenantUpdated(tenant.DisplayName)
	s.publish(domain.AdminEvent{Type: "TENANT_UPDATED", TenantID: tenant.ID, TenantName: tenant.Name, Title: title, Body: body})

	return tenant, nil
}

// DeleteTenant removes the tenant group. System admins only: tenant
// admins manage their tenant but cannot destroy it. Cascading deletion
// of the role subgroups is the directory's responsibility.
func (s *Service) DeleteTenant(ctx context.Context, caller domain.Caller, id string) error {
	if err := s.RequireSystemAdmin(caller); err != nil {
		return err
	}

	group, err := s.dir.GetGroup(ctx, id)
	if err != nil {
		if domain.IsDirectoryNotFound(err) {
			return domain.NotFound("tenant %q not found", id)
		}
		return fmt.Errorf("get group %q: %w", id, err)
	}
	if !s.naming.IsTenantGroup(group) {
		return domain.NotATenant("group %q is not a tenant", group.Name)
	}

	if err := s.dir.DeleteGroup(ctx, id); err != nil {
		return fmt.Errorf("delete tenant group: %w", err)
	}

	s.recordAudit(ctx, caller.UserID, domain.AuditTenantDeleted, id, group.Name, nil)
	title, body := messages.TenantDeleted(group.Name)
	s.publish(domain.AdminEvent{Type: "TENANT_DELETED", TenantID: id, TenantName: group.Name, Title: title, Body: body})

	log.Info().Str("tenant", group.Name).Str("id", id).Msg("tenant deleted")
	return nil
}

// GetTenant fetches one tenant, subject to read access.
func (s *Service) GetTenant(ctx context.Context, caller domain.Caller, id string) (*domain.Tenant, error) {
	if err := s.RequireReadAccess(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.tenants.Get(ctx, id)
}

// ListTenants returns the tenants visible to the caller: all of them for
// a system admin, otherwise only the tenants the caller administers.
func (s *Service) ListTenants(ctx context.Context, caller domain.Caller) ([]*domain.Tenant, error) {
	if s.IsSystemAdmin(caller) {
		return s.tenants.List(ctx)
	}
	return s.tenantsOfUser(ctx, caller.UserID)
}

// TriggerSync runs a full reconciliation on demand. System admins only.
func (s *Service) TriggerSync(ctx context.Context, caller domain.Caller) (*domain.SyncReport, error) {
	if err := s.RequireSystemAdmin(caller); err != nil {
		return nil, err
	}
	return s.SyncAllTenants(ctx)
}

// SyncAllTenants reconciles every tenant's role subgroups against the
// current realm role set. Tenants are processed one at a time, each as a
// single logical unit, so a failure leaves at most one tenant
// inconsistent — and the next run repairs it. The whole pass is
// idempotent: running it twice with no intervening role change is a
// no-op the second time.
func (s *Service) SyncAllTenants(ctx context.Context) (*domain.SyncReport, error) {
	roles, err := s.catalog.RealmRolesByName(ctx)
	if err != nil {
		return nil, err
	}
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.SyncReport{Tenants: len(tenants)}
	for _, listed := range tenants {
		// Group listings carry no subgroups; only a direct group fetch
		// does. Diff against the re-read tenant, never the listed one.
		tenant, err := s.tenants.Get(ctx, listed.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Deleted between the listing and now.
				continue
			}
			return report, fmt.Errorf("sync tenant %q: %w", listed.Name, err)
		}
		added, removed, err := s.syncTenant(ctx, tenant, roles)
		report.SubgroupsAdded += added
		report.SubgroupsRemoved += removed
		if err != nil {
			return report, fmt.Errorf("sync tenant %q: %w", tenant.Name, err)
		}
	}

	if report.SubgroupsAdded > 0 || report.SubgroupsRemoved > 0 {
		s.recordAudit(ctx, "system", domain.AuditSyncCompleted, "", "", map[string]any{
			"tenants": report.Tenants,
			"added":   report.SubgroupsAdded,
			"removed": report.SubgroupsRemoved,
		})
		title, body := messages.SyncCompleted(report.Tenants, report.SubgroupsAdded, report.SubgroupsRemoved)
		s.publish(domain.AdminEvent{Type: "SYNC_COMPLETED", Title: title, Body: body})
	}

	return report, nil
}

// syncTenant brings one tenant's subgroup set in line with the realm
// roles: missing roles gain a subgroup, subgroups for vanished roles are
// deleted. The two passes are independent; their relative order does not
// affect the end state.
func (s *Service) syncTenant(ctx context.Context, tenant *domain.Tenant, roles map[string]domain.Role) (added, removed int, err error) {
	have := make(map[string]domain.RoleSubgroup, len(tenant.RoleSubgroups))
	for _, sg := range tenant.RoleSubgroups {
		have[sg.Name] = sg
	}

	for name, role := range roles {
		if _, ok := have[name]; ok {
			continue
		}
		if err := s.createRoleSubgroup(ctx, tenant.ID, role); err != nil {
			return added, removed, err
		}
		added++
	}

	for name, sg := range have {
		if _, ok := roles[name]; ok {
			continue
		}
		if err := s.dir.DeleteGroup(ctx, sg.ID); err != nil {
			return added, removed, fmt.Errorf("delete role subgroup %q: %w", name, err)
		}
		removed++
	}

	if added > 0 || removed > 0 {
		log.Info().
			Str("tenant", tenant.Name).
			Int("added", added).
			Int("removed", removed).
			Msg("tenant role subgroups reconciled")
	}
	return added, removed, nil
}

// createRoleSubgroup creates a subgroup named after the role and grants
// it exactly that role.
func (s *Service) createRoleSubgroup(ctx context.Context, tenantGroupID string, role domain.Role) error {
	sub, err := s.dir.CreateChildGroup(ctx, tenantGroupID, domain.Group{Name: role.Name})
	if err != nil {
		return fmt.Errorf("create role subgroup %q: %w", role.Name, err)
	}
	if err := s.dir.AssignRealmRolesToGroup(ctx, sub.ID, []domain.Role{role}); err != nil {
		return fmt.Errorf("grant role %q to subgroup: %w", role.Name, err)
	}
	return nil
}
