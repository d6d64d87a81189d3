package domain

import "strings"

// DefaultTenantPrefix marks a top-level group as a tenant.
const DefaultTenantPrefix = "tenant_"

// DisplayNameAttribute is the group attribute holding the human label.
// Directory groups have no display-name field of their own.
const DisplayNameAttribute = "displayName"

// Tenant is an isolated administrative domain, backed 1:1 by a top-level
// directory group whose name carries the tenant prefix. The directory is
// the sole source of truth; a Tenant value is a snapshot, never a cache.
type Tenant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	// RoleSubgroups holds one entry per realm role known at the last
	// sync, in directory-provided order.
	RoleSubgroups []RoleSubgroup `json:"role_subgroups"`
}

// RoleSubgroup is a subgroup nested directly under a tenant's group,
// named identically to a realm role and granted exactly that role.
// Its identity is the role's name, not a stable role id: a role rename
// is observed as delete-old-name plus create-new-name.
type RoleSubgroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubgroupNames returns the tenant's current role subgroup names.
func (t *Tenant) SubgroupNames() []string {
	names := make([]string, 0, len(t.RoleSubgroups))
	for _, sg := range t.RoleSubgroups {
		names = append(names, sg.Name)
	}
	return names
}

// TenantAdmin relates a user to a tenant they administer. Username and
// TenantName are denormalized for display only.
type TenantAdmin struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
}

// Caller is the per-request identity derived from the bearer token.
type Caller struct {
	UserID string
	Roles  []string
}

// HasRole reports whether the caller holds the named realm role.
func (c Caller) HasRole(name string) bool {
	for _, r := range c.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Naming owns the tenant group naming convention and the "is this group
// a tenant" predicate.
type Naming struct {
	prefix string
}

func NewNaming(prefix string) Naming {
	if prefix == "" {
		prefix = DefaultTenantPrefix
	}
	return Naming{prefix: prefix}
}

// GroupName derives the internal group name for a raw tenant name.
func (n Naming) GroupName(rawName string) string {
	return n.prefix + rawName
}

// RawName strips the tenant prefix from a group name.
func (n Naming) RawName(groupName string) string {
	return strings.TrimPrefix(groupName, n.prefix)
}

// IsTenantGroup reports whether the group is a tenant: prefixed name and
// top-level. Any group missing either property is never a tenant.
func (n Naming) IsTenantGroup(g Group) bool {
	return strings.HasPrefix(g.Name, n.prefix) && topLevel(g)
}

// topLevel checks the group's path depth. Directory paths look like
// "/name" for top-level groups and "/parent/name" for subgroups.
func topLevel(g Group) bool {
	return strings.Count(g.Path, "/") <= 1
}

// ToTenant converts a directory group into a Tenant, failing with
// NotATenant when the group is not tenant-tagged.
func (n Naming) ToTenant(g Group) (*Tenant, error) {
	if !n.IsTenantGroup(g) {
		return nil, NotATenant("group %q is not a tenant", g.Name)
	}
	t := &Tenant{
		ID:          g.ID,
		Name:        g.Name,
		DisplayName: g.Name,
	}
	if vals := g.Attributes[DisplayNameAttribute]; len(vals) > 0 && vals[0] != "" {
		t.DisplayName = vals[0]
	}
	for _, sg := range g.SubGroups {
		t.RoleSubgroups = append(t.RoleSubgroups, RoleSubgroup{ID: sg.ID, Name: sg.Name})
	}
	return t, nil
}
