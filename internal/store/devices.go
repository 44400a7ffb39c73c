package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrDeviceNotFound         = errors.New("device not found")
	ErrCredentialsNotFound    = errors.New("device credentials not found")
	ErrDuplicateCredentialsID = errors.New("credentials id already in use")
)

const uniqueViolation = "23505"

// Constraint names from the schema. device_credentials carries two unique
// constraints, and a 23505 must be attributed to the right one.
const credentialsIDConstraint = "device_credentials_credentials_id_key"

// DeviceStore provides idempotent find-or-create access to devices and
// their credentials. Correctness under concurrent provisioning depends on
// the uniqueness constraints on (tenant_id, name) and on device_id, not on
// in-process locks: the platform runs multiple service instances behind a
// shared database.
type DeviceStore struct {
	pool *pgxpool.Pool
}

func NewDeviceStore(pool *pgxpool.Pool) *DeviceStore {
	return &DeviceStore{pool: pool}
}

const deviceColumns = `id, tenant_id, profile_id, name, created_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(&d.ID, &d.TenantID, &d.ProfileID, &d.Name, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scan device: %w", err)
	}
	return &d, nil
}

// ByName looks up a device by its (tenant, name) identity.
func (s *DeviceStore) ByName(ctx context.Context, tenantID uuid.UUID, name string) (*Device, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE tenant_id = $1 AND name = $2`, tenantID, name)
	return scanDevice(row)
}

// FindOrCreate inserts a device under the (tenant_id, name) uniqueness
// constraint. On conflict it re-reads and returns the existing row, so
// concurrent calls for the same name all observe the one device that won
// the insert. Read-after-conflict, not read-then-write: a lookup before
// the insert would leave a race window.
func (s *DeviceStore) FindOrCreate(ctx context.Context, tenantID, profileID uuid.UUID, name string) (*Device, bool, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO devices (tenant_id, profile_id, name) VALUES ($1, $2, $3)
		 RETURNING `+deviceColumns,
		tenantID, profileID, name)

	device, err := scanDevice(row)
	if err == nil {
		return device, true, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil, false, fmt.Errorf("create device: %w", err)
	}

	device, err = s.ByName(ctx, tenantID, name)
	if err != nil {
		return nil, false, fmt.Errorf("re-read device after conflict: %w", err)
	}
	return device, false, nil
}

const credentialsColumns = `id, device_id, credentials_type, credentials_id, credentials_value, created_at`

func scanCredentials(row pgx.Row) (*DeviceCredentials, error) {
	var c DeviceCredentials
	err := row.Scan(&c.ID, &c.DeviceID, &c.CredentialsType, &c.CredentialsID, &c.CredentialsValue, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("scan credentials: %w", err)
	}
	return &c, nil
}

// CredentialsByDeviceID returns the credentials owned by a device.
func (s *DeviceStore) CredentialsByDeviceID(ctx context.Context, deviceID uuid.UUID) (*DeviceCredentials, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+credentialsColumns+` FROM device_credentials WHERE device_id = $1`, deviceID)
	return scanCredentials(row)
}

// CreateCredentials inserts credentials for a device under the device_id
// uniqueness constraint. If another request already created credentials for
// the same device, the existing row is re-read and returned unchanged,
// matching the find-or-create semantics of the device itself. A conflict on
// the credentials_id constraint is a different animal: another device
// already authenticates with that id, and the caller gets
// ErrDuplicateCredentialsID instead of a silent re-read.
func (s *DeviceStore) CreateCredentials(ctx context.Context, c *DeviceCredentials) (*DeviceCredentials, bool, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO device_credentials (device_id, credentials_type, credentials_id, credentials_value)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+credentialsColumns,
		c.DeviceID, c.CredentialsType, c.CredentialsID, c.CredentialsValue)

	created, err := scanCredentials(row)
	if err == nil {
		return created, true, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil, false, fmt.Errorf("create credentials: %w", err)
	}
	if pgErr.ConstraintName == credentialsIDConstraint {
		return nil, false, ErrDuplicateCredentialsID
	}

	existing, err := s.CredentialsByDeviceID(ctx, c.DeviceID)
	if err != nil {
		return nil, false, fmt.Errorf("re-read credentials after conflict: %w", err)
	}
	return existing, false, nil
}
