package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehive/provisiond/internal/provision"
)

func TestJSONDecodeTokenRequest(t *testing.T) {
	payload := `{"deviceName":"device-1","provisionDeviceKey":"testProvisionKey","provisionDeviceSecret":"testProvisionSecret","credentialsType":"ACCESS_TOKEN","token":"test_token"}`

	req, err := JSON{}.DecodeRequest([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "device-1", req.DeviceName)
	assert.Equal(t, "testProvisionKey", req.ProvisionDeviceKey)
	assert.Equal(t, "testProvisionSecret", req.ProvisionDeviceSecret)
	assert.Equal(t, provision.CredentialsAccessToken, req.CredentialsType)
	assert.Equal(t, "test_token", req.Credentials.Token)
}

func TestJSONDecodeCertificateRequest(t *testing.T) {
	payload := `{"deviceName":"device-1","provisionDeviceKey":"k","provisionDeviceSecret":"s","credentialsType":"X509_CERTIFICATE","hash":"testHash"}`

	req, err := JSON{}.DecodeRequest([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, provision.CredentialsX509, req.CredentialsType)
	assert.Equal(t, "testHash", req.Credentials.Hash)
}

func TestJSONDecodeDefaultsCredentialsType(t *testing.T) {
	payload := `{"deviceName":"device-1","provisionDeviceKey":"k","provisionDeviceSecret":"s"}`

	req, err := JSON{}.DecodeRequest([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, provision.CredentialsAccessToken, req.CredentialsType)
}

func TestJSONDecodeMissingKey(t *testing.T) {
	_, err := JSON{}.DecodeRequest([]byte(`{"deviceName":"device-1","provisionDeviceSecret":"s"}`))
	assert.ErrorIs(t, err, ErrMissingProvisionKey)

	_, err = JSON{}.DecodeRequest([]byte(`{"deviceName":"device-1","provisionDeviceKey":"k"}`))
	assert.ErrorIs(t, err, ErrMissingProvisionSecret)
}

func TestJSONDecodeMalformed(t *testing.T) {
	_, err := JSON{}.DecodeRequest([]byte(`not json`))
	assert.Error(t, err)
}

func TestJSONEncodeNotFound(t *testing.T) {
	data, err := JSON{}.EncodeResponse(provision.NotFoundResponse())
	require.NoError(t, err)

	assert.JSONEq(t, `{"errorMsg":"Provision data was not found!","status":"NOT_FOUND"}`, string(data))
}

func TestJSONEncodeSuccess(t *testing.T) {
	data, err := JSON{}.EncodeResponse(provision.Response{
		Status:          provision.StatusSuccess,
		CredentialsType: provision.CredentialsAccessToken,
		CredentialsID:   "test_token",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"credentialsType":"ACCESS_TOKEN","credentialsId":"test_token","status":"SUCCESS"}`, string(data))
}

func TestJSONEncodeFailureOmitsCredentials(t *testing.T) {
	resp := provision.FailureResponse()
	// Credential fields left over from a partial issue must never leak.
	resp.CredentialsID = "should_not_appear"

	data, err := JSON{}.EncodeResponse(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errorMsg":"Failed to provision device!","status":"FAILURE"}`, string(data))
}
