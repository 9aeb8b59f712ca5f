package server

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/synnergy-chain/manynet/pkg/merkle"
)

var cachePrefix = []byte("/cache/")

// ResponseCache deduplicates envelope submissions by fingerprint (§4.8 step
// 2; §5 replay protection): a small in-process LRU in front of a
// bbolt-backed store, so a retried submission replays the exact same signed
// response both within the hot path and across process restarts (§9).
type ResponseCache struct {
	mu   sync.Mutex
	hot  *lru.Cache[string, cachedResponse]
	cold *merkle.Store
	ttl  time.Duration
}

type cachedResponse struct {
	envelope []byte
	expires  time.Time
}

// NewResponseCache builds a cache backed by cold (its own dedicated
// bbolt-backed store, distinct from any application state store) holding
// up to hotCapacity entries in memory, each valid for ttl.
func NewResponseCache(cold *merkle.Store, hotCapacity int, ttl time.Duration) (*ResponseCache, error) {
	hot, err := lru.New[string, cachedResponse](hotCapacity)
	if err != nil {
		return nil, fmt.Errorf("server: new response cache: %w", err)
	}
	return &ResponseCache{hot: hot, cold: cold, ttl: ttl}, nil
}

func cacheKey(fingerprint []byte) []byte {
	return append(append([]byte(nil), cachePrefix...), fingerprint...)
}

func encodeCacheEntry(envelope []byte, expires time.Time) []byte {
	out := make([]byte, 8+len(envelope))
	binary.BigEndian.PutUint64(out[:8], uint64(expires.UnixNano()))
	copy(out[8:], envelope)
	return out
}

func decodeCacheEntry(raw []byte) ([]byte, time.Time, bool) {
	if len(raw) < 8 {
		return nil, time.Time{}, false
	}
	expires := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
	return raw[8:], expires, true
}

// Lookup returns the cached response envelope for fingerprint, if present
// and still within the retention window.
func (c *ResponseCache) Lookup(fingerprint []byte, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := string(fingerprint)
	if entry, ok := c.hot.Get(key); ok {
		if now.After(entry.expires) {
			c.hot.Remove(key)
			return nil, false
		}
		return entry.envelope, true
	}
	raw, found, err := c.cold.Get(cacheKey(fingerprint))
	if err != nil || !found {
		return nil, false
	}
	env, expires, ok := decodeCacheEntry(raw)
	if !ok || now.After(expires) {
		return nil, false
	}
	c.hot.Add(key, cachedResponse{envelope: env, expires: expires})
	return env, true
}

// Store records envelope as the response for fingerprint, valid until
// now+ttl, in both the hot path and the durable store.
func (c *ResponseCache) Store(fingerprint, envelope []byte, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := now.Add(c.ttl)
	c.hot.Add(string(fingerprint), cachedResponse{envelope: envelope, expires: expires})
	c.cold.Apply([]merkle.Op{{Key: cacheKey(fingerprint), Value: encodeCacheEntry(envelope, expires)}})
	_, err := c.cold.Commit()
	return err
}
