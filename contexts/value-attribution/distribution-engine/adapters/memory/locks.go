package memory

import (
	"context"
	"sync"

	domainerrors "tessera/contexts/value-attribution/distribution-engine/domain/errors"
	"tessera/contexts/value-attribution/distribution-engine/ports"
)

// LockTable serializes distribution runs per root asset within one process.
// Acquire fails fast instead of queueing so callers can surface a conflict
// to the client immediately.
type LockTable struct {
	mu     sync.Mutex
	locked map[string]struct{}
}

func NewLockTable() *LockTable {
	return &LockTable{locked: make(map[string]struct{})}
}

func (t *LockTable) Acquire(_ context.Context, assetID string) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, held := t.locked[assetID]; held {
		return nil, domainerrors.ErrDistributionInProgress
	}
	t.locked[assetID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.locked, assetID)
		})
	}
	return release, nil
}

var _ ports.AssetLocks = (*LockTable)(nil)
