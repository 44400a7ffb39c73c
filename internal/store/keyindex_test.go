package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	profiles map[string]*DeviceProfile
	calls    int
}

func (c *countingLookup) ByProvisionKey(_ context.Context, key string) (*DeviceProfile, error) {
	c.calls++
	p, ok := c.profiles[key]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func testProfile(key string) *DeviceProfile {
	return &DeviceProfile{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		ProvisionType:      ProvisionAllowCreateNew,
		ProvisionDeviceKey: key,
	}
}

func TestKeyIndexCachesHits(t *testing.T) {
	lookup := &countingLookup{profiles: map[string]*DeviceProfile{
		"key-1": testProfile("key-1"),
	}}
	idx := NewKeyIndex(lookup, time.Minute, nil)

	for i := 0; i < 5; i++ {
		p, err := idx.ByProvisionKey(context.Background(), "key-1")
		require.NoError(t, err)
		assert.Equal(t, "key-1", p.ProvisionDeviceKey)
	}
	assert.Equal(t, 1, lookup.calls)
}

func TestKeyIndexCachesAbsence(t *testing.T) {
	lookup := &countingLookup{profiles: map[string]*DeviceProfile{}}
	idx := NewKeyIndex(lookup, time.Minute, nil)

	for i := 0; i < 5; i++ {
		_, err := idx.ByProvisionKey(context.Background(), "bogus")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	}
	assert.Equal(t, 1, lookup.calls)
}

func TestKeyIndexExpiry(t *testing.T) {
	lookup := &countingLookup{profiles: map[string]*DeviceProfile{
		"key-1": testProfile("key-1"),
	}}
	idx := NewKeyIndex(lookup, time.Millisecond, nil)

	_, err := idx.ByProvisionKey(context.Background(), "key-1")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = idx.ByProvisionKey(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.calls)
}

func TestKeyIndexInvalidate(t *testing.T) {
	lookup := &countingLookup{profiles: map[string]*DeviceProfile{}}
	idx := NewKeyIndex(lookup, time.Minute, nil)

	_, err := idx.ByProvisionKey(context.Background(), "key-1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	// Profile created through the admin API: the negative entry must go.
	lookup.profiles["key-1"] = testProfile("key-1")
	idx.Invalidate("key-1")

	p, err := idx.ByProvisionKey(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", p.ProvisionDeviceKey)
	assert.Equal(t, 2, lookup.calls)
}
