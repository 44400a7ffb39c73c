package provision

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edgehive/provisiond/internal/metrics"
	"github.com/edgehive/provisiond/internal/store"
)

// KeyIndex resolves a provisioning key to the owning profile.
type KeyIndex interface {
	ByProvisionKey(ctx context.Context, key string) (*store.DeviceProfile, error)
}

// DeviceRegistry is the device/credentials access the service needs.
type DeviceRegistry interface {
	ByName(ctx context.Context, tenantID uuid.UUID, name string) (*store.Device, error)
	FindOrCreate(ctx context.Context, tenantID, profileID uuid.UUID, name string) (*store.Device, bool, error)
	CredentialsByDeviceID(ctx context.Context, deviceID uuid.UUID) (*store.DeviceCredentials, error)
}

// Service runs the provisioning state machine: resolve the key to a
// profile, apply the profile's provision policy, and issue or retrieve the
// device credentials. It is transport- and encoding-agnostic; each request
// is a complete, independent transaction.
type Service struct {
	keys    KeyIndex
	devices DeviceRegistry
	issuer  *Issuer
	metrics *metrics.ProvisionMetrics
}

func NewService(keys KeyIndex, devices DeviceRegistry, issuer *Issuer, m *metrics.ProvisionMetrics) *Service {
	return &Service{
		keys:    keys,
		devices: devices,
		issuer:  issuer,
		metrics: m,
	}
}

// Provision handles one decoded provisioning request. Errors never escape:
// deliberate rejections map to NOT_FOUND, everything unexpected to FAILURE.
func (s *Service) Provision(ctx context.Context, req Request) Response {
	resp := s.provision(ctx, req)
	if s.metrics != nil {
		s.metrics.RequestsTotal.WithLabelValues(string(resp.Status)).Inc()
	}
	return resp
}

func (s *Service) provision(ctx context.Context, req Request) Response {
	profile, err := s.keys.ByProvisionKey(ctx, req.ProvisionDeviceKey)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			slog.Warn("Provisioning attempt with unknown key", "device", req.DeviceName)
			return NotFoundResponse()
		}
		slog.Error("Provision key lookup failed", "error", err)
		return FailureResponse()
	}

	switch profile.ProvisionType {
	case store.ProvisionCheckPreProvisioned:
		return s.checkPreProvisioned(ctx, profile, req)
	case store.ProvisionAllowCreateNew:
		return s.createOrReuse(ctx, profile, req)
	default:
		// DISABLED, or a provision type this build does not know: deny
		// without touching the device store.
		return NotFoundResponse()
	}
}

// checkPreProvisioned serves profiles whose devices were registered ahead
// of time. It never mutates credentials; a secret mismatch is
// indistinguishable from an unknown device in the response.
func (s *Service) checkPreProvisioned(ctx context.Context, profile *store.DeviceProfile, req Request) Response {
	device, err := s.devices.ByName(ctx, profile.TenantID, req.DeviceName)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return NotFoundResponse()
		}
		slog.Error("Device lookup failed", "error", err, "device", req.DeviceName)
		return FailureResponse()
	}

	if !secretMatches(req.ProvisionDeviceSecret, profile.ProvisionDeviceSecret) {
		slog.Warn("Provisioning attempt with wrong secret", "device", req.DeviceName, "tenant", profile.TenantID)
		return NotFoundResponse()
	}

	creds, err := s.devices.CredentialsByDeviceID(ctx, device.ID)
	if err != nil {
		slog.Error("Credentials lookup failed for pre-provisioned device", "error", err, "device_id", device.ID)
		return FailureResponse()
	}
	return successResponse(creds)
}

// createOrReuse serves profiles that allow unknown devices to self-register.
// A retry of a prior successful provisioning returns the existing device
// and its credentials unchanged rather than re-issuing.
func (s *Service) createOrReuse(ctx context.Context, profile *store.DeviceProfile, req Request) Response {
	if !secretMatches(req.ProvisionDeviceSecret, profile.ProvisionDeviceSecret) {
		slog.Warn("Provisioning attempt with wrong secret", "device", req.DeviceName, "tenant", profile.TenantID)
		return NotFoundResponse()
	}

	device, created, err := s.devices.FindOrCreate(ctx, profile.TenantID, profile.ID, req.DeviceName)
	if err != nil {
		slog.Error("Device find-or-create failed", "error", err, "device", req.DeviceName)
		return FailureResponse()
	}
	if created {
		if s.metrics != nil {
			s.metrics.DevicesCreated.Inc()
		}
		slog.Info("Device created through provisioning",
			"device_id", device.ID, "device", device.Name, "tenant", device.TenantID)
	}

	creds, err := s.issuer.Issue(ctx, device, req.CredentialsType, req.Credentials)
	if err != nil {
		if errors.Is(err, ErrUnsupportedCredentials) {
			slog.Warn("Provisioning request with unsupported credentials type",
				"type", req.CredentialsType, "device", req.DeviceName)
		} else if errors.Is(err, store.ErrDuplicateCredentialsID) {
			slog.Warn("Provisioning request with credentials id already in use",
				"device", req.DeviceName, "tenant", profile.TenantID)
		} else {
			slog.Error("Credential issuance failed", "error", err, "device_id", device.ID)
		}
		return FailureResponse()
	}
	return successResponse(creds)
}

func successResponse(creds *store.DeviceCredentials) Response {
	return Response{
		Status:           StatusSuccess,
		CredentialsType:  CredentialsType(creds.CredentialsType),
		CredentialsID:    creds.CredentialsID,
		CredentialsValue: creds.CredentialsValue,
	}
}

func secretMatches(supplied, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(expected)) == 1
}
