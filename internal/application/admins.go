package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"vn.io.arda/tenant-manager/internal/domain"
	"vn.io.arda/tenant-manager/internal/messages"
)

// Tenant admin assignments are modeled as direct membership of the user
// in the tenant's top-level group. The directory owns the relation, so a
// deleted tenant takes its assignments with it — evaluated as revoked,
// never as an error.

// AssignAdmin grants userID management rights over the tenant.
// System admins only; reconciliation never creates assignments.
func (s *Service) AssignAdmin(ctx context.Context, caller domain.Caller, userID, tenantID string) (*domain.TenantAdmin, error) {
	if err := s.RequireSystemAdmin(caller); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	user, err := s.dir.GetUser(ctx, userID)
	if err != nil {
		if domain.IsDirectoryNotFound(err) {
			return nil, domain.NotFound("user %q not found", userID)
		}
		return nil, fmt.Errorf("get user %q: %w", userID, err)
	}

	if err := s.dir.AddUserToGroup(ctx, userID, tenantID); err != nil {
		return nil, fmt.Errorf("add user to tenant group: %w", err)
	}

	s.recordAudit(ctx, caller.UserID, domain.AuditAdminAssigned, tenant.ID, tenant.Name, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	title, body := messages.AdminAssigned(user.Username, tenant.DisplayName)
	s.publish(domain.AdminEvent{Type: "ADMIN_ASSIGNED", TenantID: tenant.ID, TenantName: tenant.Name, Title: title, Body: body})

	log.Info().Str("user", user.Username).Str("tenant", tenant.Name).Msg("tenant admin assigned")

	return &domain.TenantAdmin{
		UserID:     user.ID,
		Username:   user.Username,
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
	}, nil
}

// RemoveAdmin revokes a tenant admin assignment. Idempotent: removing an
// assignment that does not exist — including one whose tenant has since
// been deleted — is not an error. A non-tenant group id still fails with
// NotATenant; its memberships are not ours to touch.
func (s *Service) RemoveAdmin(ctx context.Context, caller domain.Caller, userID, tenantID string) error {
	if err := s.RequireSystemAdmin(caller); err != nil {
		return err
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.dir.RemoveUserFromGroup(ctx, userID, tenantID); err != nil {
		if domain.IsDirectoryNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove user from tenant group: %w", err)
	}

	s.recordAudit(ctx, caller.UserID, domain.AuditAdminRemoved, tenant.ID, tenant.Name, map[string]any{
		"user_id": userID,
	})
	title, body := messages.AdminRemoved(userID, tenant.DisplayName)
	s.publish(domain.AdminEvent{Type: "ADMIN_REMOVED", TenantID: tenant.ID, TenantName: tenant.Name, Title: title, Body: body})
	return nil
}

// ListAdmins returns the users administering a tenant.
func (s *Service) ListAdmins(ctx context.Context, caller domain.Caller, tenantID string) ([]domain.TenantAdmin, error) {
	if err := s.RequireReadAccess(ctx, caller, tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	users, err := s.dir.GroupMembers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant group members: %w", err)
	}

	admins := make([]domain.TenantAdmin, 0, len(users))
	for _, u := range users {
		admins = append(admins, domain.TenantAdmin{
			UserID:     u.ID,
			Username:   u.Username,
			TenantID:   tenant.ID,
			TenantName: tenant.Name,
		})
	}
	return admins, nil
}

// ListUserTenants returns the tenants administered by userID. Callers may
// always list their own tenants; listing someone else's requires system
// admin.
func (s *Service) ListUserTenants(ctx context.Context, caller domain.Caller, userID string) ([]*domain.Tenant, error) {
	if caller.UserID != userID {
		if err := s.RequireSystemAdmin(caller); err != nil {
			return nil, err
		}
	}
	return s.tenantsOfUser(ctx, userID)
}

// tenantsOfUser lists the tenant groups the user is a member of. A user
// administering no tenants gets an empty slice, not an error.
func (s *Service) tenantsOfUser(ctx context.Context, userID string) ([]*domain.Tenant, error) {
	groups, err := s.dir.UserGroups(ctx, userID)
	if err != nil {
		if domain.IsDirectoryNotFound(err) {
			return nil, domain.NotFound("user %q not found", userID)
		}
		return nil, fmt.Errorf("list user groups: %w", err)
	}

	tenants := make([]*domain.Tenant, 0, len(groups))
	for _, g := range groups {
		if !s.naming.IsTenantGroup(g) {
			continue
		}
		t, err := s.naming.ToTenant(g)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, nil
}

// IsAdminOf reports whether userID administers tenantID. A dangling
// assignment — the tenant has since been deleted, or the id points at a
// non-tenant group — evaluates to false.
func (s *Service) IsAdminOf(ctx context.Context, userID, tenantID string) (bool, error) {
	groups, err := s.dir.UserGroups(ctx, userID)
	if err != nil {
		if domain.IsDirectoryNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("list user groups: %w", err)
	}
	for _, g := range groups {
		if g.ID == tenantID && s.naming.IsTenantGroup(g) {
			return true, nil
		}
	}
	return false, nil
}
