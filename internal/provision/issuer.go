package provision

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/edgehive/provisiond/internal/store"
)

// 15 random bytes encode to a 20-character URL-safe token.
const tokenByteLength = 15

var ErrUnsupportedCredentials = errors.New("unsupported credentials type")

// CredentialsStore is the slice of the device store the issuer needs.
type CredentialsStore interface {
	CredentialsByDeviceID(ctx context.Context, deviceID uuid.UUID) (*store.DeviceCredentials, error)
	CreateCredentials(ctx context.Context, c *store.DeviceCredentials) (*store.DeviceCredentials, bool, error)
}

// builder computes the credentials id/value pair for one credentials type.
type builder func(data CredentialsData) (id, value string, err error)

// Issuer computes and persists per-device credentials. A device that
// already has credentials gets them back unmodified no matter what the
// request carried; only first-time issuance consults the per-type builder
// table. Races between concurrent first issues are settled by the store's
// insert-or-reread path.
type Issuer struct {
	creds    CredentialsStore
	builders map[CredentialsType]builder
}

func NewIssuer(creds CredentialsStore) *Issuer {
	return &Issuer{
		creds: creds,
		builders: map[CredentialsType]builder{
			CredentialsAccessToken: buildAccessToken,
			CredentialsMqttBasic:   buildMqttBasic,
			CredentialsX509:        buildX509,
		},
	}
}

// Issue returns the credentials for the device, creating them if this is
// the first provisioning. An empty credentials type defaults to
// ACCESS_TOKEN.
func (i *Issuer) Issue(ctx context.Context, device *store.Device, ctype CredentialsType, data CredentialsData) (*store.DeviceCredentials, error) {
	// Existing credentials win before the request's credentials type is
	// even looked at: a retry must get the stored row back, not a
	// re-validation of its payload.
	existing, err := i.creds.CredentialsByDeviceID(ctx, device.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrCredentialsNotFound) {
		return nil, fmt.Errorf("look up credentials: %w", err)
	}

	if ctype == "" {
		ctype = CredentialsAccessToken
	}

	build, ok := i.builders[ctype]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCredentials, ctype)
	}

	id, value, err := build(data)
	if err != nil {
		return nil, fmt.Errorf("build %s credentials: %w", ctype, err)
	}

	creds, _, err := i.creds.CreateCredentials(ctx, &store.DeviceCredentials{
		DeviceID:         device.ID,
		CredentialsType:  string(ctype),
		CredentialsID:    id,
		CredentialsValue: value,
	})
	if err != nil {
		return nil, fmt.Errorf("persist credentials: %w", err)
	}
	return creds, nil
}

func buildAccessToken(data CredentialsData) (string, string, error) {
	if data.Token != "" {
		return data.Token, "", nil
	}
	token, err := generateToken()
	if err != nil {
		return "", "", err
	}
	return token, "", nil
}

// buildX509 stores the caller-supplied payload verbatim as the credentials
// value and derives the lookup id by hashing a newline-trimmed copy of it.
// The payload is expected to eventually hold a full PEM certificate; the
// mechanism works the same for any string.
func buildX509(data CredentialsData) (string, string, error) {
	return Sha3Hash(data.Hash), data.Hash, nil
}

type mqttBasicValue struct {
	ClientID string `json:"clientId,omitempty"`
	UserName string `json:"userName,omitempty"`
	Password string `json:"password,omitempty"`
}

func buildMqttBasic(data CredentialsData) (string, string, error) {
	value, err := json.Marshal(mqttBasicValue{
		ClientID: data.ClientID,
		UserName: data.Username,
		Password: data.Password,
	})
	if err != nil {
		return "", "", err
	}
	return Sha3Hash(data.ClientID + "|" + data.Username), string(value), nil
}

// generateToken produces a 20-character random bearer token from a
// cryptographically strong source.
func generateToken() (string, error) {
	b := make([]byte, tokenByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var newlineTrimmer = strings.NewReplacer("\n", "", "\r", "")

// Sha3Hash returns the hex-encoded SHA3-256 of the input with newlines
// removed, the canonical form used for certificate-based credential ids.
func Sha3Hash(s string) string {
	sum := sha3.Sum256([]byte(newlineTrimmer.Replace(s)))
	return hex.EncodeToString(sum[:])
}
