package messages

import "fmt"

// ─── Tenant builders ─────────────────────────────────────────────────────────

func TenantCreated(displayName string) (string, string) {
	return TenantCreatedTitle, fmt.Sprintf(TenantCreatedBody, displayName)
}

func TenantUpdated(displayName string) (string, string) {
	return TenantUpdatedTitle, fmt.Sprintf(TenantUpdatedBody, displayName)
}

func TenantDeleted(tenantName string) (string, string) {
	return TenantDeletedTitle, fmt.Sprintf(TenantDeletedBody, tenantName)
}

// ─── Admin builders ──────────────────────────────────────────────────────────

func AdminAssigned(username, tenantName string) (string, string) {
	return AdminAssignedTitle, fmt.Sprintf(AdminAssignedBody, username, tenantName)
}

func AdminRemoved(username, tenantName string) (string, string) {
	return AdminRemovedTitle, fmt.Sprintf(AdminRemovedBody, username, tenantName)
}

// ─── Sync builders ───────────────────────────────────────────────────────────

func SyncCompleted(tenants, added, removed int) (string, string) {
	return SyncCompletedTitle, fmt.Sprintf(SyncCompletedBody, tenants, added, removed)
}
