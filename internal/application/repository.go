package application

import (
	"context"
	"fmt"

	"vn.io.arda/tenant-manager/internal/domain"
)

// groupPageSize is the directory page size used when walking group lists.
const groupPageSize = 100

// TenantRepository resolves directory groups to Tenant entities. It holds
// no state: every lookup goes back to the directory, so results are
// always consistent with the IdP.
type TenantRepository struct {
	dir    domain.Directory
	naming domain.Naming
}

func NewTenantRepository(dir domain.Directory, naming domain.Naming) *TenantRepository {
	return &TenantRepository{dir: dir, naming: naming}
}

// FindByRawName returns the tenant whose group name equals the derived
// name, or nil when no such tenant exists. The directory search is fuzzy
// (searching "tenant_acme" also returns "tenant_acme-legacy"), so the
// result set is filtered for exact equality before concluding existence.
func (r *TenantRepository) FindByRawName(ctx context.Context, rawName string) (*domain.Tenant, error) {
	want := r.naming.GroupName(rawName)
	groups, _, err := r.dir.FindGroups(ctx, want, 0, groupPageSize)
	if err != nil {
		return nil, fmt.Errorf("search groups %q: %w", want, err)
	}
	for _, g := range groups {
		if g.Name == want && r.naming.IsTenantGroup(g) {
			return r.naming.ToTenant(g)
		}
	}
	return nil, nil
}

// Get fetches a tenant by group id, including its role subgroups.
// A group id that resolves to a non-tenant group yields NotATenant.
func (r *TenantRepository) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	g, err := r.dir.GetGroup(ctx, id)
	if err != nil {
		if domain.IsDirectoryNotFound(err) {
			return nil, domain.NotFound("tenant %q not found", id)
		}
		return nil, fmt.Errorf("get group %q: %w", id, err)
	}
	return r.naming.ToTenant(g)
}

// List returns every tenant group, paging through the directory.
// Order is directory-provided; callers must not rely on it. Listed
// tenants carry no role subgroups; Get returns the full view.
func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	for first := 0; ; first += groupPageSize {
		groups, _, err := r.dir.FindGroups(ctx, "", first, groupPageSize)
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		for _, g := range groups {
			if !r.naming.IsTenantGroup(g) {
				continue
			}
			t, err := r.naming.ToTenant(g)
			if err != nil {
				return nil, err
			}
			tenants = append(tenants, t)
		}
		if len(groups) < groupPageSize {
			return tenants, nil
		}
	}
}
