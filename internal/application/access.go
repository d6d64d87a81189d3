package application

import (
	"context"

	"vn.io.arda/tenant-manager/internal/domain"
)

// Access evaluation. Pure decision logic: the only directory call is the
// group-membership lookup behind IsAdminOf.

// IsSystemAdmin reports whether the caller holds the system admin role.
func (s *Service) IsSystemAdmin(caller domain.Caller) bool {
	return caller.HasRole(s.systemAdminRole)
}

// HasReadAccess is true for system admins on any tenant, and for tenant
// admins on the tenants they are assigned to.
func (s *Service) HasReadAccess(ctx context.Context, caller domain.Caller, tenantID string) (bool, error) {
	if s.IsSystemAdmin(caller) {
		return true, nil
	}
	return s.IsAdminOf(ctx, caller.UserID, tenantID)
}

// HasManageAccess currently mirrors read access: tenant admins may both
// view and manage their own tenants. Kept as a separate predicate so the
// two policies can diverge without touching call sites.
func (s *Service) HasManageAccess(ctx context.Context, caller domain.Caller, tenantID string) (bool, error) {
	if s.IsSystemAdmin(caller) {
		return true, nil
	}
	return s.IsAdminOf(ctx, caller.UserID, tenantID)
}

// RequireReadAccess fails with AccessDenied where HasReadAccess is false.
func (s *Service) RequireReadAccess(ctx context.Context, caller domain.Caller, tenantID string) error {
	ok, err := s.HasReadAccess(ctx, caller, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.AccessDenied("no read access to tenant %q", tenantID)
	}
	return nil
}

// RequireManageAccess fails with AccessDenied where HasManageAccess is false.
func (s *Service) RequireManageAccess(ctx context.Context, caller domain.Caller, tenantID string) error {
	ok, err := s.HasManageAccess(ctx, caller, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.AccessDenied("no manage access to tenant %q", tenantID)
	}
	return nil
}

// RequireSystemAdmin fails with AccessDenied unless the caller holds the
// system admin role.
func (s *Service) RequireSystemAdmin(caller domain.Caller) error {
	if !s.IsSystemAdmin(caller) {
		return domain.AccessDenied("system admin role required")
	}
	return nil
}
