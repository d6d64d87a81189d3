package application_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"vn.io.arda/tenant-manager/internal/application"
	"vn.io.arda/tenant-manager/internal/domain"
)

// fakeDirectory is an in-memory domain.Directory used to exercise the
// reconciler and evaluator without a Keycloak instance. Its FindGroups
// search is deliberately fuzzy (substring match) to mirror the real
// directory's behavior.
type fakeDirectory struct {
	mu      sync.Mutex
	seq     int
	groups  map[string]*fakeGroup      // by id
	roles   map[string]domain.Role     // by name
	users   map[string]domain.User     // by id
	members map[string]map[string]bool // groupID -> userID set

	// createChildErr, when set, fails the next CreateChildGroup call once.
	createChildErr error
}

type fakeGroup struct {
	id       string
	name     string
	parent   string // "" for top-level
	attrs    map[string][]string
	roles    []string
	children []string
}

func newFakeDirectory(roleNames ...string) *fakeDirectory {
	f := &fakeDirectory{
		groups:  map[string]*fakeGroup{},
		roles:   map[string]domain.Role{},
		users:   map[string]domain.User{},
		members: map[string]map[string]bool{},
	}
	for _, name := range roleNames {
		f.addRole(name)
	}
	return f
}

func (f *fakeDirectory) addRole(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[name] = domain.Role{ID: "role-" + name, Name: name}
}

func (f *fakeDirectory) removeRole(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.roles, name)
}

func (f *fakeDirectory) addUser(id, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = domain.User{ID: id, Username: username, Enabled: true}
}

func (f *fakeDirectory) nextID() string {
	f.seq++
	return fmt.Sprintf("g-%04d", f.seq)
}

func (f *fakeDirectory) path(g *fakeGroup) string {
	if g.parent == "" {
		return "/" + g.name
	}
	return f.path(f.groups[g.parent]) + "/" + g.name
}

// toDomain builds a shallow representation, mirroring the directory's
// list endpoints. Only toDomainDeep (the GetGroup path) carries the
// immediate subgroups.
func (f *fakeDirectory) toDomain(g *fakeGroup) domain.Group {
	return domain.Group{
		ID:         g.id,
		Name:       g.name,
		Path:       f.path(g),
		Attributes: g.attrs,
		RealmRoles: append([]string(nil), g.roles...),
	}
}

func (f *fakeDirectory) toDomainDeep(g *fakeGroup) domain.Group {
	dg := f.toDomain(g)
	for _, childID := range sortedCopy(g.children) {
		child := f.groups[childID]
		dg.SubGroups = append(dg.SubGroups, domain.Group{
			ID:   child.id,
			Name: child.name,
			Path: f.path(child),
		})
	}
	return dg
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func notFound(what string) error {
	return &domain.DirectoryError{Status: 404, Message: what + " not found"}
}

// ─── domain.Directory implementation ─────────────────────────────────────────

func (f *fakeDirectory) FindGroups(_ context.Context, search string, first, max int) ([]domain.Group, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for id, g := range f.groups {
		if g.parent != "" {
			continue
		}
		if search != "" && !strings.Contains(g.name, search) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := len(ids)
	if first >= total {
		return nil, total, nil
	}
	ids = ids[first:]
	if len(ids) > max {
		ids = ids[:max]
	}

	result := make([]domain.Group, 0, len(ids))
	for _, id := range ids {
		result = append(result, f.toDomain(f.groups[id]))
	}
	return result, total, nil
}

func (f *fakeDirectory) GetGroup(_ context.Context, id string) (domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return domain.Group{}, notFound("group " + id)
	}
	return f.toDomainDeep(g), nil
}

func (f *fakeDirectory) CreateGroup(_ context.Context, group domain.Group) (domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &fakeGroup{id: f.nextID(), name: group.Name, attrs: group.Attributes}
	f.groups[g.id] = g
	return f.toDomain(g), nil
}

func (f *fakeDirectory) CreateChildGroup(_ context.Context, parentID string, group domain.Group) (domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createChildErr != nil {
		err := f.createChildErr
		f.createChildErr = nil
		return domain.Group{}, err
	}
	parent, ok := f.groups[parentID]
	if !ok {
		return domain.Group{}, notFound("group " + parentID)
	}
	g := &fakeGroup{id: f.nextID(), name: group.Name, parent: parentID, attrs: group.Attributes}
	f.groups[g.id] = g
	parent.children = append(parent.children, g.id)
	return f.toDomain(g), nil
}

func (f *fakeDirectory) UpdateGroup(_ context.Context, group domain.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[group.ID]
	if !ok {
		return notFound("group " + group.ID)
	}
	g.name = group.Name
	g.attrs = group.Attributes
	return nil
}

func (f *fakeDirectory) DeleteGroup(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteGroupLocked(id)
}

func (f *fakeDirectory) deleteGroupLocked(id string) error {
	g, ok := f.groups[id]
	if !ok {
		return notFound("group " + id)
	}
	// The fake cascades like Keycloak does.
	for _, childID := range g.children {
		_ = f.deleteGroupLocked(childID)
	}
	if g.parent != "" {
		parent := f.groups[g.parent]
		kept := parent.children[:0]
		for _, childID := range parent.children {
			if childID != id {
				kept = append(kept, childID)
			}
		}
		parent.children = kept
	}
	delete(f.groups, id)
	delete(f.members, id)
	return nil
}

func (f *fakeDirectory) RealmRoles(_ context.Context, search string, first, max int) ([]domain.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for name := range f.roles {
		if search != "" && !strings.Contains(name, search) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if first >= len(names) {
		return nil, nil
	}
	names = names[first:]
	if len(names) > max {
		names = names[:max]
	}

	result := make([]domain.Role, 0, len(names))
	for _, name := range names {
		result = append(result, f.roles[name])
	}
	return result, nil
}

func (f *fakeDirectory) ClientRoles(_ context.Context, clientID, _ string, _, _ int) ([]domain.Role, error) {
	return nil, notFound("client " + clientID)
}

func (f *fakeDirectory) AssignRealmRolesToGroup(_ context.Context, groupID string, roles []domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return notFound("group " + groupID)
	}
	for _, r := range roles {
		g.roles = append(g.roles, r.Name)
	}
	return nil
}

func (f *fakeDirectory) RemoveRealmRolesFromGroup(_ context.Context, groupID string, roles []domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return notFound("group " + groupID)
	}
	for _, r := range roles {
		kept := g.roles[:0]
		for _, name := range g.roles {
			if name != r.Name {
				kept = append(kept, name)
			}
		}
		g.roles = kept
	}
	return nil
}

func (f *fakeDirectory) AssignRealmRolesToUser(_ context.Context, userID string, _ []domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return notFound("user " + userID)
	}
	return nil
}

func (f *fakeDirectory) RemoveRealmRolesFromUser(_ context.Context, userID string, _ []domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return notFound("user " + userID)
	}
	return nil
}

func (f *fakeDirectory) GetUser(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, notFound("user " + id)
	}
	return u, nil
}

func (f *fakeDirectory) UserGroups(_ context.Context, userID string) ([]domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return nil, notFound("user " + userID)
	}

	var ids []string
	for groupID, userSet := range f.members {
		if userSet[userID] {
			ids = append(ids, groupID)
		}
	}
	sort.Strings(ids)

	result := make([]domain.Group, 0, len(ids))
	for _, id := range ids {
		result = append(result, f.toDomain(f.groups[id]))
	}
	return result, nil
}

func (f *fakeDirectory) GroupMembers(_ context.Context, groupID string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[groupID]; !ok {
		return nil, notFound("group " + groupID)
	}

	var ids []string
	for userID := range f.members[groupID] {
		ids = append(ids, userID)
	}
	sort.Strings(ids)

	result := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		result = append(result, f.users[id])
	}
	return result, nil
}

func (f *fakeDirectory) AddUserToGroup(_ context.Context, userID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return notFound("user " + userID)
	}
	if _, ok := f.groups[groupID]; !ok {
		return notFound("group " + groupID)
	}
	if f.members[groupID] == nil {
		f.members[groupID] = map[string]bool{}
	}
	f.members[groupID][userID] = true
	return nil
}

func (f *fakeDirectory) RemoveUserFromGroup(_ context.Context, userID, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[groupID]; !ok {
		return notFound("group " + groupID)
	}
	delete(f.members[groupID], userID)
	return nil
}

// ─── shared helpers ──────────────────────────────────────────────────────────

var sysAdmin = domain.Caller{UserID: "root", Roles: []string{"PLATFORM_ADMIN"}}

func newTestService(f *fakeDirectory) *application.Service {
	return application.NewService(
		f,
		domain.NewNaming(""),
		application.NewRoleCatalog(f, nil),
		nil, // no audit trail in unit tests
		nil, // no event hub in unit tests
		"PLATFORM_ADMIN",
	)
}

func subgroupNames(t *domain.Tenant) []string {
	names := t.SubgroupNames()
	sort.Strings(names)
	return names
}
