package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehive/provisiond/internal/store"
)

// Env carries the wired system under test plus direct store access for
// seeding and verification.
type Env struct {
	Engine   *gin.Engine
	Pool     *pgxpool.Pool
	Profiles *store.ProfileStore
	Devices  *store.DeviceStore
}

func (e *Env) seedProfile(t *testing.T, provisionType store.ProvisionType, key, secret string) *store.DeviceProfile {
	t.Helper()
	profile, err := e.Profiles.Create(context.Background(), &store.DeviceProfile{
		TenantID:              uuid.New(),
		Name:                  "systemtest-" + key,
		ProvisionType:         provisionType,
		ProvisionDeviceKey:    key,
		ProvisionDeviceSecret: secret,
	})
	require.NoError(t, err)
	return profile
}

func (e *Env) postJSON(t *testing.T, body string) map[string]string {
	t.Helper()
	req, _ := http.NewRequest("POST", "/api/v1/provision", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.Engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type cborResponse struct {
	Status           int    `cbor:"1,keyasint"`
	CredentialsType  *int   `cbor:"2,keyasint"`
	CredentialsID    string `cbor:"3,keyasint"`
	CredentialsValue string `cbor:"4,keyasint"`
	ErrorMsg         string `cbor:"5,keyasint"`
}

func (e *Env) postCBOR(t *testing.T, body interface{}) cborResponse {
	t.Helper()
	payload, err := cbor.Marshal(body)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/api/v1/provision", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/cbor")
	w := httptest.NewRecorder()
	e.Engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp cborResponse
	require.NoError(t, cbor.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// UnknownKey checks that a provisioning key that matches no profile is
// rejected with the fixed not-found message, in both media types.
func UnknownKey(t *testing.T, env *Env) {
	env.seedProfile(t, store.ProvisionCheckPreProvisioned, "testProvisionKeyOrig", "testProvisionSecret")

	resp := env.postJSON(t, `{"deviceName":"device-unknown-key","provisionDeviceKey":"testProvisionKey","provisionDeviceSecret":"testProvisionSecret"}`)
	assert.Equal(t, "NOT_FOUND", resp["status"])
	assert.Equal(t, "Provision data was not found!", resp["errorMsg"])

	binResp := env.postCBOR(t, map[int]interface{}{
		1: "device-unknown-key",
		4: map[int]interface{}{1: "testProvisionKey", 2: "testProvisionSecret"},
	})
	assert.Equal(t, 2, binResp.Status) // NOT_FOUND
	assert.Equal(t, "Provision data was not found!", binResp.ErrorMsg)
}

// DisabledProfile checks that a DISABLED profile rejects every request and
// creates nothing.
func DisabledProfile(t *testing.T, env *Env) {
	profile := env.seedProfile(t, store.ProvisionDisabled, "disabledKey", "disabledSecret")

	resp := env.postJSON(t, `{"deviceName":"device-disabled","provisionDeviceKey":"disabledKey","provisionDeviceSecret":"disabledSecret","credentialsType":"ACCESS_TOKEN","token":"t"}`)
	assert.Equal(t, "NOT_FOUND", resp["status"])
	assert.Equal(t, "Provision data was not found!", resp["errorMsg"])

	_, err := env.Devices.ByName(context.Background(), profile.TenantID, "device-disabled")
	assert.ErrorIs(t, err, store.ErrDeviceNotFound)
}

// PreProvisionedDevice checks the CHECK_PRE_PROVISIONED_DEVICES policy:
// existing devices get their stored credentials back, wrong secrets and
// unknown devices are indistinguishable rejections.
func PreProvisionedDevice(t *testing.T, env *Env) {
	profile := env.seedProfile(t, store.ProvisionCheckPreProvisioned, "preProvKey", "preProvSecret")

	device, created, err := env.Devices.FindOrCreate(context.Background(), profile.TenantID, profile.ID, "pre-device")
	require.NoError(t, err)
	require.True(t, created)
	_, _, err = env.Devices.CreateCredentials(context.Background(), &store.DeviceCredentials{
		DeviceID:        device.ID,
		CredentialsType: "ACCESS_TOKEN",
		CredentialsID:   "pre_provisioned_token",
	})
	require.NoError(t, err)

	resp := env.postJSON(t, `{"deviceName":"pre-device","provisionDeviceKey":"preProvKey","provisionDeviceSecret":"preProvSecret"}`)
	assert.Equal(t, "SUCCESS", resp["status"])
	assert.Equal(t, "ACCESS_TOKEN", resp["credentialsType"])
	assert.Equal(t, "pre_provisioned_token", resp["credentialsId"])

	resp = env.postJSON(t, `{"deviceName":"pre-device","provisionDeviceKey":"preProvKey","provisionDeviceSecret":"wrongSecret"}`)
	assert.Equal(t, "NOT_FOUND", resp["status"])

	resp = env.postJSON(t, `{"deviceName":"never-registered","provisionDeviceKey":"preProvKey","provisionDeviceSecret":"preProvSecret"}`)
	assert.Equal(t, "NOT_FOUND", resp["status"])
}

// CreateDeviceTokenEcho checks ALLOW_CREATE_NEW_DEVICES with a supplied
// token, retry idempotence, and JSON/CBOR equivalence.
func CreateDeviceTokenEcho(t *testing.T, env *Env) {
	env.seedProfile(t, store.ProvisionAllowCreateNew, "createKey", "createSecret")

	first := env.postJSON(t, `{"deviceName":"new-device","provisionDeviceKey":"createKey","provisionDeviceSecret":"createSecret","credentialsType":"ACCESS_TOKEN","token":"test_token"}`)
	assert.Equal(t, "SUCCESS", first["status"])
	assert.Equal(t, "ACCESS_TOKEN", first["credentialsType"])
	assert.Equal(t, "test_token", first["credentialsId"])

	// Device-side retry: same response, no second device or credentials.
	second := env.postJSON(t, `{"deviceName":"new-device","provisionDeviceKey":"createKey","provisionDeviceSecret":"createSecret","credentialsType":"ACCESS_TOKEN","token":"other_token"}`)
	assert.Equal(t, "SUCCESS", second["status"])
	assert.Equal(t, "test_token", second["credentialsId"])

	// The identical logical request over CBOR must carry the same outcome.
	binResp := env.postCBOR(t, map[int]interface{}{
		1: "new-device",
		3: map[int]interface{}{1: map[int]interface{}{1: "test_token"}},
		4: map[int]interface{}{1: "createKey", 2: "createSecret"},
	})
	assert.Equal(t, 1, binResp.Status) // SUCCESS
	assert.Equal(t, "test_token", binResp.CredentialsID)
}

// CreateDeviceCertificate checks X509 issuance: value stored verbatim, id
// derived by hashing the newline-trimmed value.
func CreateDeviceCertificate(t *testing.T, env *Env) {
	env.seedProfile(t, store.ProvisionAllowCreateNew, "certKey", "certSecret")

	resp := env.postJSON(t, `{"deviceName":"cert-device","provisionDeviceKey":"certKey","provisionDeviceSecret":"certSecret","credentialsType":"X509_CERTIFICATE","hash":"testHash"}`)
	assert.Equal(t, "SUCCESS", resp["status"])
	assert.Equal(t, "X509_CERTIFICATE", resp["credentialsType"])
	assert.Equal(t, "testHash", resp["credentialsValue"])
	assert.Equal(t, "57f6600424d6553263f1f32e0117012894a36fbf07e3e9c3c556272f86b7d985", resp["credentialsId"])
}

// DuplicateToken checks that a second device cannot claim a token another
// device already authenticates with, and that the rejection leaves the
// original holder untouched.
func DuplicateToken(t *testing.T, env *Env) {
	env.seedProfile(t, store.ProvisionAllowCreateNew, "dupTokenKey", "dupTokenSecret")

	first := env.postJSON(t, `{"deviceName":"dup-device-1","provisionDeviceKey":"dupTokenKey","provisionDeviceSecret":"dupTokenSecret","credentialsType":"ACCESS_TOKEN","token":"shared_token"}`)
	require.Equal(t, "SUCCESS", first["status"])

	second := env.postJSON(t, `{"deviceName":"dup-device-2","provisionDeviceKey":"dupTokenKey","provisionDeviceSecret":"dupTokenSecret","credentialsType":"ACCESS_TOKEN","token":"shared_token"}`)
	assert.Equal(t, "FAILURE", second["status"])
	assert.Equal(t, "Failed to provision device!", second["errorMsg"])

	retry := env.postJSON(t, `{"deviceName":"dup-device-1","provisionDeviceKey":"dupTokenKey","provisionDeviceSecret":"dupTokenSecret"}`)
	assert.Equal(t, "SUCCESS", retry["status"])
	assert.Equal(t, "shared_token", retry["credentialsId"])
}

// ConcurrentCreation fires parallel requests for one device name against
// the real database and verifies the single-creation invariant end to end.
func ConcurrentCreation(t *testing.T, env *Env) {
	profile := env.seedProfile(t, store.ProvisionAllowCreateNew, "concurrentKey", "concurrentSecret")

	const workers = 20
	responses := make([]map[string]string, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest("POST", "/api/v1/provision",
				bytes.NewBufferString(`{"deviceName":"concurrent-device","provisionDeviceKey":"concurrentKey","provisionDeviceSecret":"concurrentSecret","credentialsType":"ACCESS_TOKEN","token":"concurrent_token"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			env.Engine.ServeHTTP(w, req)

			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err == nil {
				responses[i] = resp
			}
		}(i)
	}
	wg.Wait()

	for _, resp := range responses {
		require.NotNil(t, resp)
		assert.Equal(t, "SUCCESS", resp["status"])
		assert.Equal(t, "concurrent_token", resp["credentialsId"])
	}

	var count int
	err := env.Pool.QueryRow(context.Background(),
		`SELECT count(*) FROM devices WHERE tenant_id = $1 AND name = $2`,
		profile.TenantID, "concurrent-device").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
