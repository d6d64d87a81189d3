package application

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Syncer serializes reconciliation runs on a single worker. Role
// lifecycle events hand their sync request here and return immediately;
// the triggering request completes independent of the sync outcome.
type Syncer struct {
	svc *Service
	// pending holds at most one queued run. Requests arriving while a
	// run is in flight coalesce into it: a burst of role events costs
	// one extra sync, not one per event.
	pending chan string
}

func NewSyncer(svc *Service) *Syncer {
	return &Syncer{svc: svc, pending: make(chan string, 1)}
}

// Request schedules a reconciliation run. Never blocks.
func (s *Syncer) Request(reason string) {
	select {
	case s.pending <- reason:
	default:
	}
}

// Start processes sync requests until ctx is cancelled.
func (s *Syncer) Start(ctx context.Context) {
	for {
		select {
		case reason := <-s.pending:
			report, err := s.svc.SyncAllTenants(ctx)
			if err != nil {
				log.Error().Err(err).Str("reason", reason).Msg("tenant sync failed")
				continue
			}
			log.Info().
				Str("reason", reason).
				Int("tenants", report.Tenants).
				Int("added", report.SubgroupsAdded).
				Int("removed", report.SubgroupsRemoved).
				Msg("tenant sync completed")

		case <-ctx.Done():
			return
		}
	}
}
