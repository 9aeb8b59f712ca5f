package server

import (
	"sync"
	"time"
)

// Clock supplies the "now" used to validate request timestamps (§4.8 step
// 6). Consensus-driven nodes take it from the block header; standalone
// nodes read the wall clock.
type Clock interface {
	Now() time.Time
}

// WallClock reads the local system clock.
type WallClock struct{}

// Now implements Clock.
func (WallClock) Now() time.Time { return time.Now() }

// BlockClock is set once per begin_block call (§4.10) and held fixed for
// every check_tx/deliver_tx processed within that block, so identical input
// streams across replicas validate identical timestamps regardless of local
// clock skew.
type BlockClock struct {
	mu  sync.RWMutex
	now time.Time
}

// Set records the current block's timestamp.
func (c *BlockClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Now implements Clock.
func (c *BlockClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}
