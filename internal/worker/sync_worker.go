// Package worker mirrors the committed dataset to a remote target. It
// reacts to ledger sync messages and additionally reconciles on a timer,
// so a lost message only delays a push instead of losing it.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saldo/internal/amqp"
	"saldo/internal/log"
	"saldo/internal/remote"
	"saldo/internal/store"
)

type SyncWorker struct {
	store    store.Store
	pusher   remote.Pusher
	logger   *log.Logger
	interval time.Duration

	mu           sync.Mutex
	lastRevision uint64
	pushed       bool
}

// NewSyncWorker creates a worker that pushes the dataset from the store
// to the remote target. interval controls the periodic reconcile; zero
// disables it.
func NewSyncWorker(st store.Store, pusher remote.Pusher, logger *log.Logger, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		store:    st,
		pusher:   pusher,
		logger:   logger.WithComponent(log.ComponentWorker),
		interval: interval,
	}
}

// HandleMessage processes one ledger sync message. The message carries
// only the revision; the dataset itself is fetched fresh from the store.
// Returning an error requeues the delivery.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	w.mu.Lock()
	stale := w.pushed && msg.Revision <= w.lastRevision
	w.mu.Unlock()
	if stale {
		w.logger.Debug("Skipping stale sync message",
			log.FieldRevision, msg.Revision)
		return nil
	}

	if err := w.push(ctx); err != nil {
		return err
	}

	w.mu.Lock()
	if msg.Revision > w.lastRevision {
		w.lastRevision = msg.Revision
	}
	w.pushed = true
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Synced ledger to remote",
		log.FieldOperation, log.OpSync,
		log.FieldRevision, msg.Revision,
		"reason", msg.Reason)
	return nil
}

// RunPeriodic pushes the dataset on a fixed interval until the context
// ends. It returns the context error on shutdown.
func (w *SyncWorker) RunPeriodic(ctx context.Context) error {
	if w.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.push(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
				continue
			}
			w.logger.Debug("Periodic sync completed")
		}
	}
}

func (w *SyncWorker) push(ctx context.Context) error {
	data, err := w.store.LoadDataset(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if err := w.pusher.PushDataset(ctx, data); err != nil {
		return fmt.Errorf("push dataset: %w", err)
	}
	return nil
}
