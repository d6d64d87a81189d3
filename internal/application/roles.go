package application

import (
	"context"
	"fmt"
	"strings"

	"vn.io.arda/tenant-manager/internal/domain"
)

const rolePageSize = 100

// defaultRolesPrefix marks Keycloak's per-realm composite default role.
const defaultRolesPrefix = "default-roles-"

// RoleCatalog reads the realm's current role set through the directory.
// Built-in directory roles are filtered out so they never get a tenant
// subgroup.
type RoleCatalog struct {
	dir      domain.Directory
	excluded map[string]struct{}
}

func NewRoleCatalog(dir domain.Directory, excludedRoles []string) *RoleCatalog {
	excluded := make(map[string]struct{}, len(excludedRoles))
	for _, name := range excludedRoles {
		excluded[name] = struct{}{}
	}
	return &RoleCatalog{dir: dir, excluded: excluded}
}

// RealmRoles lists all realm roles minus the excluded ones, paging
// through the directory.
func (c *RoleCatalog) RealmRoles(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	for first := 0; ; first += rolePageSize {
		page, err := c.dir.RealmRoles(ctx, "", first, rolePageSize)
		if err != nil {
			return nil, fmt.Errorf("list realm roles: %w", err)
		}
		for _, role := range page {
			if c.isExcluded(role.Name) {
				continue
			}
			roles = append(roles, role)
		}
		if len(page) < rolePageSize {
			return roles, nil
		}
	}
}

// ClientRoles lists the roles of one client. Client roles do not
// participate in tenant reconciliation; they are exposed for the admin
// console only.
func (c *RoleCatalog) ClientRoles(ctx context.Context, clientID string) ([]domain.Role, error) {
	var roles []domain.Role
	for first := 0; ; first += rolePageSize {
		page, err := c.dir.ClientRoles(ctx, clientID, "", first, rolePageSize)
		if err != nil {
			return nil, fmt.Errorf("list client roles %q: %w", clientID, err)
		}
		roles = append(roles, page...)
		if len(page) < rolePageSize {
			return roles, nil
		}
	}
}

// RealmRolesByName returns the current realm role set keyed by name.
// Subgroup identity is the role name, so this is the shape the
// reconciler works with.
func (c *RoleCatalog) RealmRolesByName(ctx context.Context) (map[string]domain.Role, error) {
	roles, err := c.RealmRoles(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]domain.Role, len(roles))
	for _, role := range roles {
		byName[role.Name] = role
	}
	return byName, nil
}

func (c *RoleCatalog) isExcluded(name string) bool {
	if _, ok := c.excluded[name]; ok {
		return true
	}
	return strings.HasPrefix(name, defaultRolesPrefix)
}
