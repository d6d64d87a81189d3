package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"vn.io.arda/tenant-manager/internal/domain"
)

// Repository is the PostgreSQL implementation of domain.AuditRepository.
// Assumes migrations already created the table:
//
//	CREATE TABLE tenant_audit (
//	    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    actor_id    TEXT NOT NULL,
//	    action      TEXT NOT NULL,
//	    tenant_id   TEXT NOT NULL DEFAULT '',
//	    tenant_name TEXT NOT NULL DEFAULT '',
//	    detail      JSONB,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new postgres Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts a new audit entry.
func (r *Repository) Record(ctx context.Context, entry domain.AuditEntry) (*domain.AuditEntry, error) {
	detailJSON, _ := json.Marshal(entry.Detail)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tenant_audit (actor_id, action, tenant_id, tenant_name, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, actor_id, action, tenant_id, tenant_name, detail, created_at
	`, entry.ActorID, string(entry.Action), entry.TenantID, entry.TenantName, detailJSON)

	return scanEntry(row)
}

// List fetches audit entries matching the filter, newest first.
func (r *Repository) List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, actor_id, action, tenant_id, tenant_name, detail, created_at
		FROM tenant_audit
		WHERE 1=1
	`
	var args []any
	paramIdx := 1

	if f.TenantID != "" {
		query += fmt.Sprintf(" AND tenant_id = $%d", paramIdx)
		args = append(args, f.TenantID)
		paramIdx++
	}
	if f.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", paramIdx)
		args = append(args, string(f.Action))
		paramIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", paramIdx, paramIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var results []*domain.AuditEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, nil
}

// scanEntry is a helper to scan a row into an AuditEntry struct.
type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*domain.AuditEntry, error) {
	var entry domain.AuditEntry
	var action string
	var detailJSON []byte

	err := row.Scan(&entry.ID, &entry.ActorID, &action, &entry.TenantID, &entry.TenantName, &detailJSON, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	entry.Action = domain.AuditAction(action)
	if len(detailJSON) > 0 {
		_ = json.Unmarshal(detailJSON, &entry.Detail)
	}
	return &entry, nil
}
