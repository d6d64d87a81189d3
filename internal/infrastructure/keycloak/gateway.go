package keycloak

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"vn.io.arda/tenant-manager/internal/domain"
)

// Gateway implements domain.Directory against the Keycloak Admin REST API
// via gocloak. It holds no group/role state: every call goes to Keycloak,
// so reads are always consistent with the IdP.
type Gateway struct {
	client       *gocloak.GoCloak
	realm        string // realm whose groups/roles are managed
	adminRealm   string // realm used for admin login, usually "master"
	clientID     string
	clientSecret string

	// Admin token cache. Tokens are short-lived; refresh a little early
	// so an in-flight call never carries an expired token.
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

const tokenSlack = 10 * time.Second

// membersPageSize bounds how many users one membership page returns.
const membersPageSize = 100

func New(baseURL, realm, adminRealm, clientID, clientSecret string) *Gateway {
	return &Gateway{
		client:       gocloak.NewClient(baseURL),
		realm:        realm,
		adminRealm:   adminRealm,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// accessToken returns a cached service-account token, logging in again
// shortly before expiry.
func (g *Gateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.expiresAt) {
		return g.token, nil
	}

	jwt, err := g.client.LoginClient(ctx, g.clientID, g.clientSecret, g.adminRealm)
	if err != nil {
		return "", wrapErr(err)
	}
	g.token = jwt.AccessToken
	g.expiresAt = time.Now().Add(time.Duration(jwt.ExpiresIn)*time.Second - tokenSlack)
	return g.token, nil
}

// wrapErr converts a gocloak error into a *domain.DirectoryError. Network
// failures and timeouts carry no HTTP status and map to status 0.
func wrapErr(err error) error {
	var apiErr *gocloak.APIError
	if errors.As(err, &apiErr) {
		return &domain.DirectoryError{Status: apiErr.Code, Message: apiErr.Message}
	}
	return &domain.DirectoryError{Message: err.Error()}
}

// ─── Groups ──────────────────────────────────────────────────────────────────

func (g *Gateway) FindGroups(ctx context.Context, search string, first, max int) ([]domain.Group, int, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	params := gocloak.GetGroupsParams{
		First: gocloak.IntP(first),
		Max:   gocloak.IntP(max),
		// Full representation: the core needs attributes and subgroups.
		BriefRepresentation: gocloak.BoolP(false),
	}
	if search != "" {
		params.Search = gocloak.StringP(search)
	}

	groups, err := g.client.GetGroups(ctx, token, g.realm, params)
	if err != nil {
		return nil, 0, wrapErr(err)
	}
	count, err := g.client.GetGroupsCount(ctx, token, g.realm, params)
	if err != nil {
		return nil, 0, wrapErr(err)
	}

	result := make([]domain.Group, 0, len(groups))
	for _, kg := range groups {
		result = append(result, fromGroup(kg))
	}
	return result, count, nil
}

func (g *Gateway) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return domain.Group{}, err
	}
	kg, err := g.client.GetGroup(ctx, token, g.realm, id)
	if err != nil {
		return domain.Group{}, wrapErr(err)
	}
	return fromGroup(kg), nil
}

func (g *Gateway) CreateGroup(ctx context.Context, group domain.Group) (domain.Group, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return domain.Group{}, err
	}
	id, err := g.client.CreateGroup(ctx, token, g.realm, toGocloakGroup(group))
	if err != nil {
		return domain.Group{}, wrapErr(err)
	}
	return g.GetGroup(ctx, id)
}

func (g *Gateway) CreateChildGroup(ctx context.Context, parentID string, group domain.Group) (domain.Group, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return domain.Group{}, err
	}
	id, err := g.client.CreateChildGroup(ctx, token, g.realm, parentID, toGocloakGroup(group))
	if err != nil {
		return domain.Group{}, wrapErr(err)
	}
	return g.GetGroup(ctx, id)
}

func (g *Gateway) UpdateGroup(ctx context.Context, group domain.Group) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.UpdateGroup(ctx, token, g.realm, toGocloakGroup(group)); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (g *Gateway) DeleteGroup(ctx context.Context, id string) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.DeleteGroup(ctx, token, g.realm, id); err != nil {
		return wrapErr(err)
	}
	return nil
}

// ─── Roles ───────────────────────────────────────────────────────────────────

func (g *Gateway) RealmRoles(ctx context.Context, search string, first, max int) ([]domain.Role, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	params := gocloak.GetRoleParams{
		First: gocloak.IntP(first),
		Max:   gocloak.IntP(max),
	}
	if search != "" {
		params.Search = gocloak.StringP(search)
	}

	roles, err := g.client.GetRealmRoles(ctx, token, g.realm, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return fromRoles(roles), nil
}

func (g *Gateway) ClientRoles(ctx context.Context, clientID, search string, first, max int) ([]domain.Role, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	// Keycloak addresses client roles by the client's internal id, not
	// its public clientID; resolve it first.
	clients, err := g.client.GetClients(ctx, token, g.realm, gocloak.GetClientsParams{
		ClientID: gocloak.StringP(clientID),
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	if len(clients) == 0 || clients[0].ID == nil {
		return nil, &domain.DirectoryError{Status: 404, Message: "client " + clientID + " not found"}
	}

	params := gocloak.GetRoleParams{
		First: gocloak.IntP(first),
		Max:   gocloak.IntP(max),
	}
	if search != "" {
		params.Search = gocloak.StringP(search)
	}

	roles, err := g.client.GetClientRoles(ctx, token, g.realm, *clients[0].ID, params)
	if err != nil {
		return nil, wrapErr(err)
	}
	return fromRoles(roles), nil
}

func (g *Gateway) AssignRealmRolesToGroup(ctx context.Context, groupID string, roles []domain.Role) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.AddRealmRoleToGroup(ctx, token, g.realm, groupID, toGocloakRoles(roles)); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (g *Gateway) RemoveRealmRolesFromGroup(ctx context.Context, groupID string, roles []domain.Role) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.DeleteRealmRoleFromGroup(ctx, token, g.realm, groupID, toGocloakRoles(roles)); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (g *Gateway) AssignRealmRolesToUser(ctx context.Context, userID string, roles []domain.Role) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.AddRealmRoleToUser(ctx, token, g.realm, userID, toGocloakRoles(roles)); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (g *Gateway) RemoveRealmRolesFromUser(ctx context.Context, userID string, roles []domain.Role) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.DeleteRealmRoleFromUser(ctx, token, g.realm, userID, toGocloakRoles(roles)); err != nil {
		return wrapErr(err)
	}
	return nil
}

// ─── Users & membership ──────────────────────────────────────────────────────

func (g *Gateway) GetUser(ctx context.Context, id string) (domain.User, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return domain.User{}, err
	}
	ku, err := g.client.GetUserByID(ctx, token, g.realm, id)
	if err != nil {
		return domain.User{}, wrapErr(err)
	}
	return fromUser(ku), nil
}

func (g *Gateway) UserGroups(ctx context.Context, userID string) ([]domain.Group, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var result []domain.Group
	for first := 0; ; first += membersPageSize {
		groups, err := g.client.GetUserGroups(ctx, token, g.realm, userID, gocloak.GetGroupsParams{
			First:               gocloak.IntP(first),
			Max:                 gocloak.IntP(membersPageSize),
			BriefRepresentation: gocloak.BoolP(false),
		})
		if err != nil {
			return nil, wrapErr(err)
		}
		for _, kg := range groups {
			result = append(result, fromGroup(kg))
		}
		if len(groups) < membersPageSize {
			return result, nil
		}
	}
}

func (g *Gateway) GroupMembers(ctx context.Context, groupID string) ([]domain.User, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var result []domain.User
	for first := 0; ; first += membersPageSize {
		users, err := g.client.GetGroupMembers(ctx, token, g.realm, groupID, gocloak.GetGroupsParams{
			First: gocloak.IntP(first),
			Max:   gocloak.IntP(membersPageSize),
		})
		if err != nil {
			return nil, wrapErr(err)
		}
		for _, ku := range users {
			result = append(result, fromUser(ku))
		}
		if len(users) < membersPageSize {
			return result, nil
		}
	}
}

func (g *Gateway) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.AddUserToGroup(ctx, token, g.realm, userID, groupID); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (g *Gateway) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := g.client.DeleteUserFromGroup(ctx, token, g.realm, userID, groupID); err != nil {
		return wrapErr(err)
	}
	return nil
}

// ─── Representation mapping ──────────────────────────────────────────────────

func fromGroup(kg *gocloak.Group) domain.Group {
	g := domain.Group{
		ID:   gocloak.PString(kg.ID),
		Name: gocloak.PString(kg.Name),
		Path: gocloak.PString(kg.Path),
	}
	if kg.Attributes != nil {
		g.Attributes = *kg.Attributes
	}
	if kg.RealmRoles != nil {
		g.RealmRoles = *kg.RealmRoles
	}
	if kg.SubGroups != nil {
		for i := range *kg.SubGroups {
			g.SubGroups = append(g.SubGroups, fromGroup(&(*kg.SubGroups)[i]))
		}
	}
	return g
}

func toGocloakGroup(g domain.Group) gocloak.Group {
	kg := gocloak.Group{
		Name: gocloak.StringP(g.Name),
	}
	if g.ID != "" {
		kg.ID = gocloak.StringP(g.ID)
	}
	if g.Attributes != nil {
		attrs := g.Attributes
		kg.Attributes = &attrs
	}
	return kg
}

func fromRoles(roles []*gocloak.Role) []domain.Role {
	result := make([]domain.Role, 0, len(roles))
	for _, kr := range roles {
		result = append(result, domain.Role{
			ID:          gocloak.PString(kr.ID),
			Name:        gocloak.PString(kr.Name),
			Description: gocloak.PString(kr.Description),
			ClientRole:  gocloak.PBool(kr.ClientRole),
		})
	}
	return result
}

func toGocloakRoles(roles []domain.Role) []gocloak.Role {
	result := make([]gocloak.Role, 0, len(roles))
	for _, r := range roles {
		result = append(result, gocloak.Role{
			ID:   gocloak.StringP(r.ID),
			Name: gocloak.StringP(r.Name),
		})
	}
	return result
}

func fromUser(ku *gocloak.User) domain.User {
	return domain.User{
		ID:        gocloak.PString(ku.ID),
		Username:  gocloak.PString(ku.Username),
		Email:     gocloak.PString(ku.Email),
		FirstName: gocloak.PString(ku.FirstName),
		LastName:  gocloak.PString(ku.LastName),
		Enabled:   gocloak.PBool(ku.Enabled),
	}
}
