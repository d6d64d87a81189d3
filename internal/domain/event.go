package domain

import "time"

// AdminEvent is pushed to connected admin consoles over the event stream.
type AdminEvent struct {
	Type       string    `json:"type"`
	TenantID   string    `json:"tenant_id,omitempty"`
	TenantName string    `json:"tenant_name,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	At         time.Time `json:"at"`
}

// SyncReport summarizes one reconciliation run.
type SyncReport struct {
	Tenants          int `json:"tenants"`
	SubgroupsAdded   int `json:"subgroups_added"`
	SubgroupsRemoved int `json:"subgroups_removed"`
}

// SyncRequest asks for a reconciliation run. Produced by role lifecycle
// event handlers, consumed by the Syncer.
type SyncRequest struct {
	Reason string
}
