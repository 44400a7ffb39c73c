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
	ErrProfileNotFound = errors.New("device profile not found")
	ErrDuplicateKey    = errors.New("provision key already in use")
)

// ProfileStore provides access to device profile records.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = `id, tenant_id, name, provision_type, provision_device_key, provision_device_secret, created_at`

func scanProfile(row pgx.Row) (*DeviceProfile, error) {
	var p DeviceProfile
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.ProvisionType,
		&p.ProvisionDeviceKey, &p.ProvisionDeviceSecret, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return &p, nil
}

// ByProvisionKey resolves a provisioning key to the owning profile. The key
// is globally unique (enforced by a DB constraint), so no tenant scoping.
func (s *ProfileStore) ByProvisionKey(ctx context.Context, key string) (*DeviceProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM device_profiles WHERE provision_device_key = $1`, key)
	return scanProfile(row)
}

func (s *ProfileStore) ByID(ctx context.Context, id uuid.UUID) (*DeviceProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM device_profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (s *ProfileStore) Create(ctx context.Context, p *DeviceProfile) (*DeviceProfile, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO device_profiles (tenant_id, name, provision_type, provision_device_key, provision_device_secret)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+profileColumns,
		p.TenantID, p.Name, p.ProvisionType, p.ProvisionDeviceKey, p.ProvisionDeviceSecret)

	created, err := scanProfile(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

func (s *ProfileStore) List(ctx context.Context) ([]DeviceProfile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM device_profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var result []DeviceProfile
	for rows.Next() {
		var p DeviceProfile
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.ProvisionType,
			&p.ProvisionDeviceKey, &p.ProvisionDeviceSecret, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *ProfileStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM device_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
