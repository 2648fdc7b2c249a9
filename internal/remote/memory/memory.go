// Package memory implements the remote sync port in memory, for tests and
// for running without a configured remote target.
package memory

import (
	"context"
	"sync"

	"saldo/internal/core"
)

type Pusher struct {
	mu     sync.Mutex
	last   *core.Dataset
	pushes int
}

func New() *Pusher {
	return &Pusher{}
}

func (p *Pusher) PushDataset(_ context.Context, data *core.Dataset) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = data.Clone()
	p.pushes++
	return nil
}

// Last returns a copy of the most recently pushed dataset, or nil.
func (p *Pusher) Last() *core.Dataset {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	return p.last.Clone()
}

// Pushes returns how many times PushDataset was called.
func (p *Pusher) Pushes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pushes
}
