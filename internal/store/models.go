package store

import (
	"time"

	"github.com/google/uuid"
)

// ProvisionType is the tenant policy controlling whether and how unknown
// devices may self-register against a profile.
type ProvisionType string

const (
	ProvisionDisabled            ProvisionType = "DISABLED"
	ProvisionCheckPreProvisioned ProvisionType = "CHECK_PRE_PROVISIONED_DEVICES"
	ProvisionAllowCreateNew      ProvisionType = "ALLOW_CREATE_NEW_DEVICES"
)

// DeviceProfile is the tenant-scoped policy record a provisioning key
// resolves to. The provision key is globally unique: the tenant is derived
// from whichever profile owns the key, not passed by the caller.
type DeviceProfile struct {
	ID                    uuid.UUID
	TenantID              uuid.UUID
	Name                  string
	ProvisionType         ProvisionType
	ProvisionDeviceKey    string
	ProvisionDeviceSecret string
	CreatedAt             time.Time
}

// Device is identified by (tenant_id, name), unique across the platform.
type Device struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	ProfileID uuid.UUID
	Name      string
	CreatedAt time.Time
}

// DeviceCredentials is the durable authentication material owned 1:1 by a
// device. CredentialsID is the value used for authentication lookup (the
// literal token, or a certificate hash); CredentialsValue is the auxiliary
// payload. Created once at device-creation time, never mutated from the
// provisioning path.
type DeviceCredentials struct {
	ID               uuid.UUID
	DeviceID         uuid.UUID
	CredentialsType  string
	CredentialsID    string
	CredentialsValue string
	CreatedAt        time.Time
}
