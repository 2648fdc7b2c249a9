package ledger

import (
	"context"
	"fmt"

	"saldo/internal/core"
	"saldo/internal/engine"
	"saldo/internal/log"
)

// StartSimulation snapshots the live dataset and switches the service
// into speculative mode. Starting while already simulating is a no-op
// that keeps the existing snapshot. Returns whether a new simulation
// was started.
func (s *Service) StartSimulation(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot != nil {
		return false
	}
	s.snapshot = s.data.Clone()
	s.logger.InfoContext(ctx, "Simulation started",
		log.FieldOperation, log.OpSnapshot, log.FieldRevision, s.revision)
	return true
}

// AcceptSimulation promotes every speculative record to committed, drops
// the snapshot, and mirrors the now-committed state to the sync queue.
// Accepting while idle is a no-op.
func (s *Service) AcceptSimulation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil
	}

	s.data.ClearSpeculative()
	if err := s.store.Replace(ctx, s.data); err != nil {
		return fmt.Errorf("persist accepted simulation: %w", err)
	}
	s.snapshot = nil
	s.revision++
	s.projections.Purge()
	s.notifyLocked()
	s.logger.InfoContext(ctx, "Simulation accepted",
		log.FieldOperation, log.OpAccept, log.FieldRevision, s.revision)

	if s.publisher != nil {
		if err := s.publisher.PublishLedgerSync(ctx, s.revision, "simulation_accept"); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sync message",
				log.FieldError, err, log.FieldRevision, s.revision)
		}
	}
	return nil
}

// DiscardSimulation restores the snapshot taken at StartSimulation, in
// memory and in the store, and drops it. Discarding while idle is a
// no-op.
func (s *Service) DiscardSimulation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshot == nil {
		return nil
	}

	if err := s.store.Replace(ctx, s.snapshot); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.data = s.snapshot
	s.snapshot = nil
	s.revision++
	s.projections.Purge()
	s.notifyLocked()
	s.logger.InfoContext(ctx, "Simulation discarded",
		log.FieldOperation, log.OpDiscard, log.FieldRevision, s.revision)
	return nil
}

// BaselineProjection projects the pre-simulation snapshot across
// [start, end] so callers can show speculative and committed outcomes
// side by side. The second return is false when no simulation is active.
func (s *Service) BaselineProjection(start, end core.Date) (engine.Projection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return engine.Projection{}, false
	}
	return engine.ProjectRange(s.snapshot, start, end), true
}
