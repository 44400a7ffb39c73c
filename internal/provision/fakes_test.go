package provision

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgehive/provisiond/internal/store"
)

// fakeKeyIndex serves profiles from a map keyed by provision key.
type fakeKeyIndex struct {
	profiles map[string]*store.DeviceProfile
}

func newFakeKeyIndex(profiles ...*store.DeviceProfile) *fakeKeyIndex {
	idx := &fakeKeyIndex{profiles: make(map[string]*store.DeviceProfile)}
	for _, p := range profiles {
		idx.profiles[p.ProvisionDeviceKey] = p
	}
	return idx
}

func (f *fakeKeyIndex) ByProvisionKey(_ context.Context, key string) (*store.DeviceProfile, error) {
	p, ok := f.profiles[key]
	if !ok {
		return nil, store.ErrProfileNotFound
	}
	return p, nil
}

// fakeRegistry is an in-memory device/credentials store enforcing the same
// uniqueness guarantees as the real one.
type fakeRegistry struct {
	mu      sync.Mutex
	devices map[string]*store.Device // keyed by tenantID|name
	creds   map[uuid.UUID]*store.DeviceCredentials
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		devices: make(map[string]*store.Device),
		creds:   make(map[uuid.UUID]*store.DeviceCredentials),
	}
}

func deviceKey(tenantID uuid.UUID, name string) string {
	return tenantID.String() + "|" + name
}

func (f *fakeRegistry) ByName(_ context.Context, tenantID uuid.UUID, name string) (*store.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[deviceKey(tenantID, name)]
	if !ok {
		return nil, store.ErrDeviceNotFound
	}
	return d, nil
}

func (f *fakeRegistry) FindOrCreate(_ context.Context, tenantID, profileID uuid.UUID, name string) (*store.Device, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := deviceKey(tenantID, name)
	if d, ok := f.devices[key]; ok {
		return d, false, nil
	}
	d := &store.Device{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProfileID: profileID,
		Name:      name,
		CreatedAt: time.Now(),
	}
	f.devices[key] = d
	return d, true, nil
}

func (f *fakeRegistry) CredentialsByDeviceID(_ context.Context, deviceID uuid.UUID) (*store.DeviceCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[deviceID]
	if !ok {
		return nil, store.ErrCredentialsNotFound
	}
	return c, nil
}

func (f *fakeRegistry) CreateCredentials(_ context.Context, c *store.DeviceCredentials) (*store.DeviceCredentials, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.creds[c.DeviceID]; ok {
		return existing, false, nil
	}
	for _, other := range f.creds {
		if other.CredentialsID == c.CredentialsID {
			return nil, false, store.ErrDuplicateCredentialsID
		}
	}
	created := *c
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	f.creds[c.DeviceID] = &created
	return &created, true, nil
}

func (f *fakeRegistry) deviceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}
