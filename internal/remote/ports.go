// Package remote defines the port for the remote sync target. The engine
// never waits on a push: sync is fire-and-forget from its perspective,
// and only committed (never speculative) data crosses this boundary.
package remote

import (
	"context"

	"saldo/internal/core"
)

// Pusher mirrors the full committed dataset to a remote target.
type Pusher interface {
	// PushDataset overwrites the remote copy with the given dataset.
	PushDataset(ctx context.Context, data *core.Dataset) error
}
