package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edgehive/provisiond/internal/metrics"
)

// ProfileLookup resolves a provisioning key to its owning profile.
type ProfileLookup interface {
	ByProvisionKey(ctx context.Context, key string) (*DeviceProfile, error)
}

type cacheEntry struct {
	profile   *DeviceProfile // nil means the key is known to be absent
	expiresAt time.Time
}

// KeyIndex fronts a ProfileLookup with an in-memory, time-based cache.
// The lookup runs on every provisioning attempt, which during a fleet
// rollout means thousands of near-simultaneous reads of the same few keys.
// Absence is cached too, so a flood of requests with a bogus key does not
// hammer the store.
type KeyIndex struct {
	lookup  ProfileLookup
	mu      sync.RWMutex
	cache   map[string]cacheEntry
	ttl     time.Duration
	metrics *metrics.ProvisionMetrics
}

func NewKeyIndex(lookup ProfileLookup, ttl time.Duration, m *metrics.ProvisionMetrics) *KeyIndex {
	return &KeyIndex{
		lookup:  lookup,
		cache:   make(map[string]cacheEntry),
		ttl:     ttl,
		metrics: m,
	}
}

// ByProvisionKey returns the profile owning the key, consulting the cache
// first and falling back to the underlying store on miss or expiry.
func (idx *KeyIndex) ByProvisionKey(ctx context.Context, key string) (*DeviceProfile, error) {
	idx.mu.RLock()
	entry, found := idx.cache[key]
	idx.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		if idx.metrics != nil {
			idx.metrics.KeyCacheHits.Inc()
		}
		if entry.profile == nil {
			return nil, ErrProfileNotFound
		}
		return entry.profile, nil
	}

	if idx.metrics != nil {
		idx.metrics.KeyCacheMisses.Inc()
	}

	profile, err := idx.lookup.ByProvisionKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			idx.put(key, nil)
		}
		return nil, err
	}

	idx.put(key, profile)
	return profile, nil
}

// Invalidate drops a key from the cache. Called when a profile is changed
// or deleted through the admin API so policy changes converge immediately
// on this instance (other instances converge within the TTL).
func (idx *KeyIndex) Invalidate(key string) {
	idx.mu.Lock()
	delete(idx.cache, key)
	idx.mu.Unlock()
}

func (idx *KeyIndex) put(key string, profile *DeviceProfile) {
	idx.mu.Lock()
	idx.cache[key] = cacheEntry{profile: profile, expiresAt: time.Now().Add(idx.ttl)}
	idx.mu.Unlock()
}
