package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// dateGuard serializes writers of one date, both inside this process and
// across processes sharing the data directory.
type dateGuard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDateGuard() *dateGuard {
	return &dateGuard{locks: make(map[string]*sync.Mutex)}
}

func (g *dateGuard) mutex(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.locks[key]
	if !ok {
		m = &sync.Mutex{}
		g.locks[key] = m
	}
	return m
}

// acquire takes the in-process mutex for key and then the flock at lockPath.
// The returned release undoes both.
func (g *dateGuard) acquire(ctx context.Context, key, lockPath string) (func(), error) {
	m := g.mutex(key)
	m.Lock()

	fl := flock.New(lockPath)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		m.Unlock()
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if !ok {
		m.Unlock()
		return nil, fmt.Errorf("lock %s: not acquired", lockPath)
	}
	return func() {
		_ = fl.Unlock()
		m.Unlock()
	}, nil
}
