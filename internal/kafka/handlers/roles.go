package handlers

import (
	"encoding/json"

	"vn.io.arda/tenant-manager/internal/domain"
)

// Role lifecycle events from the IAM service. Subgroup identity is the
// role's name, so only events that change the realm's role name set ask
// for a reconciliation run.

func init() {
	Register("iam-events", "ROLE_CREATED", handleRoleCreated)
	Register("iam-events", "ROLE_UPDATED", handleRoleUpdated)
	Register("iam-events", "ROLE_DELETED", handleRoleDeleted)
}

type roleEnv struct {
	EventType string `json:"eventType"`
	EventID   string `json:"eventId"`
	Payload   struct {
		Role struct {
			Name string `json:"name"`
		} `json:"role"`
		OldRole struct {
			Name string `json:"name"`
		} `json:"oldRole"`
		NewRole struct {
			Name string `json:"name"`
		} `json:"newRole"`
	} `json:"payload"`
}

func parseRoleEnv(data []byte) (*roleEnv, bool) {
	var env roleEnv
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	return &env, true
}

func handleRoleCreated(data []byte) *domain.SyncRequest {
	env, ok := parseRoleEnv(data)
	if !ok {
		return nil
	}
	return &domain.SyncRequest{Reason: "role " + env.Payload.Role.Name + " created"}
}

// handleRoleUpdated triggers only on a rename: an unchanged name means the
// subgroup set is already correct, whatever else changed on the role.
func handleRoleUpdated(data []byte) *domain.SyncRequest {
	env, ok := parseRoleEnv(data)
	if !ok {
		return nil
	}
	if env.Payload.OldRole.Name == env.Payload.NewRole.Name {
		return nil
	}
	return &domain.SyncRequest{Reason: "role " + env.Payload.OldRole.Name + " renamed to " + env.Payload.NewRole.Name}
}

func handleRoleDeleted(data []byte) *domain.SyncRequest {
	env, ok := parseRoleEnv(data)
	if !ok {
		return nil
	}
	return &domain.SyncRequest{Reason: "role " + env.Payload.Role.Name + " deleted"}
}
