package domain

import (
	"context"
	"errors"
	"fmt"
)

// Group is the directory's generic group representation. Tenants and role
// subgroups are both plain groups on the wire; meaning is layered on top
// by the Naming convention.
type Group struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Path       string              `json:"path"`
	Attributes map[string][]string `json:"attributes,omitempty"`
	SubGroups  []Group             `json:"sub_groups,omitempty"`
	RealmRoles []string            `json:"realm_roles,omitempty"`
}

// Role is a realm or client role as reported by the directory.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ClientRole  bool   `json:"client_role,omitempty"`
}

// User is a directory user, reduced to what tenant administration needs.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// Directory is the port over the identity provider. The IdP is the sole
// owner of all persistent state; nothing here is cached across requests.
// Implementations live in infrastructure/keycloak.
//
// Every call may fail with *DirectoryError. Callers must not interpret
// the status beyond distinguishing "not found" from other failures.
type Directory interface {
	// FindGroups lists top-level groups. The search is provider-defined
	// fuzzy matching; callers needing exact identity must post-filter.
	// Also returns the directory's total count for the query.
	// Listed groups need not carry SubGroups; use GetGroup for those.
	FindGroups(ctx context.Context, search string, first, max int) ([]Group, int, error)

	// GetGroup fetches one group by id, including its immediate
	// subgroups and directly-assigned realm roles.
	GetGroup(ctx context.Context, id string) (Group, error)

	// CreateGroup creates a top-level group and returns it with the
	// directory-assigned id.
	CreateGroup(ctx context.Context, group Group) (Group, error)

	// CreateChildGroup creates a subgroup nested directly under parentID.
	CreateChildGroup(ctx context.Context, parentID string, group Group) (Group, error)

	UpdateGroup(ctx context.Context, group Group) error
	DeleteGroup(ctx context.Context, id string) error

	// RealmRoles lists realm-level roles, optionally fuzzy-filtered.
	RealmRoles(ctx context.Context, search string, first, max int) ([]Role, error)

	// ClientRoles lists roles belonging to the client with the given
	// clientID (the public client identifier, not the internal id).
	ClientRoles(ctx context.Context, clientID, search string, first, max int) ([]Role, error)

	AssignRealmRolesToGroup(ctx context.Context, groupID string, roles []Role) error
	RemoveRealmRolesFromGroup(ctx context.Context, groupID string, roles []Role) error
	AssignRealmRolesToUser(ctx context.Context, userID string, roles []Role) error
	RemoveRealmRolesFromUser(ctx context.Context, userID string, roles []Role) error

	GetUser(ctx context.Context, id string) (User, error)

	// UserGroups lists the groups the user is a direct member of.
	UserGroups(ctx context.Context, userID string) ([]Group, error)

	// GroupMembers lists the direct members of a group.
	GroupMembers(ctx context.Context, groupID string) ([]User, error)

	AddUserToGroup(ctx context.Context, userID, groupID string) error
	RemoveUserFromGroup(ctx context.Context, userID, groupID string) error
}

// DirectoryError is any failure surfaced by the Directory, including
// timeouts (Status 0 when no HTTP status is available).
type DirectoryError struct {
	Status  int
	Message string
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory: %s (status %d)", e.Message, e.Status)
}

// NotFound reports whether the directory answered 404.
func (e *DirectoryError) NotFound() bool { return e.Status == 404 }

// IsDirectoryNotFound reports whether err is a directory 404.
func IsDirectoryNotFound(err error) bool {
	var de *DirectoryError
	return errors.As(err, &de) && de.NotFound()
}
