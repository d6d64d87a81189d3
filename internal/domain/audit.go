package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies what an audit entry records.
type AuditAction string

const (
	AuditTenantCreated AuditAction = "TENANT_CREATED"
	AuditTenantUpdated AuditAction = "TENANT_UPDATED"
	AuditTenantDeleted AuditAction = "TENANT_DELETED"
	AuditAdminAssigned AuditAction = "ADMIN_ASSIGNED"
	AuditAdminRemoved  AuditAction = "ADMIN_REMOVED"
	AuditSyncCompleted AuditAction = "SYNC_COMPLETED"
)

// AuditEntry is one administrative operation on record. The audit trail
// is write-only history for operators; tenant state itself lives only in
// the directory and is never reconstructed from here.
type AuditEntry struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     AuditAction    `json:"action"`
	TenantID   string         `json:"tenant_id,omitempty"`
	TenantName string         `json:"tenant_name,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditFilter holds query parameters for listing audit entries.
type AuditFilter struct {
	TenantID string
	Action   AuditAction
	Limit    int
	Offset   int
}

// AuditRepository is the port for audit persistence.
// Implementations live in infrastructure/postgres.
type AuditRepository interface {
	// Record stores a new audit entry and returns the saved entity.
	Record(ctx context.Context, entry AuditEntry) (*AuditEntry, error)

	// List fetches audit entries matching the filter, newest first.
	List(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
}
