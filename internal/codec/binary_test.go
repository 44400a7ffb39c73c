package codec

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgehive/provisiond/internal/provision"
)

func encodeBinaryRequest(t *testing.T, wire binaryRequest) []byte {
	t.Helper()
	data, err := encMode.Marshal(wire)
	require.NoError(t, err)
	return data
}

func TestBinaryDecodeTokenRequest(t *testing.T) {
	data := encodeBinaryRequest(t, binaryRequest{
		DeviceName:      "device-1",
		CredentialsType: wireCredAccessToken,
		CredentialsData: &binaryCredentialsData{
			Token: &binaryTokenMsg{Token: "test_token"},
		},
		ProvisionCredentials: &binaryProvisionCredentials{
			ProvisionDeviceKey:    "testProvisionKey",
			ProvisionDeviceSecret: "testProvisionSecret",
		},
	})

	req, err := Binary{}.DecodeRequest(data)
	require.NoError(t, err)

	assert.Equal(t, "device-1", req.DeviceName)
	assert.Equal(t, "testProvisionKey", req.ProvisionDeviceKey)
	assert.Equal(t, "testProvisionSecret", req.ProvisionDeviceSecret)
	assert.Equal(t, provision.CredentialsAccessToken, req.CredentialsType)
	assert.Equal(t, "test_token", req.Credentials.Token)
}

func TestBinaryDecodeCertificateRequest(t *testing.T) {
	data := encodeBinaryRequest(t, binaryRequest{
		DeviceName:      "device-1",
		CredentialsType: wireCredX509,
		CredentialsData: &binaryCredentialsData{
			X509: &binaryCertMsg{Hash: "testHash"},
		},
		ProvisionCredentials: &binaryProvisionCredentials{
			ProvisionDeviceKey:    "k",
			ProvisionDeviceSecret: "s",
		},
	})

	req, err := Binary{}.DecodeRequest(data)
	require.NoError(t, err)

	assert.Equal(t, provision.CredentialsX509, req.CredentialsType)
	assert.Equal(t, "testHash", req.Credentials.Hash)
}

func TestBinaryDecodeAbsentTypeDefaultsToAccessToken(t *testing.T) {
	data := encodeBinaryRequest(t, binaryRequest{
		DeviceName: "device-1",
		ProvisionCredentials: &binaryProvisionCredentials{
			ProvisionDeviceKey:    "k",
			ProvisionDeviceSecret: "s",
		},
	})

	req, err := Binary{}.DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, provision.CredentialsAccessToken, req.CredentialsType)
}

func TestBinaryDecodeMissingProvisionCredentials(t *testing.T) {
	data := encodeBinaryRequest(t, binaryRequest{DeviceName: "device-1"})

	_, err := Binary{}.DecodeRequest(data)
	assert.ErrorIs(t, err, ErrMissingProvisionKey)
}

func TestBinaryDecodeMalformed(t *testing.T) {
	_, err := Binary{}.DecodeRequest([]byte{0xff, 0x00, 0x13})
	assert.Error(t, err)
}

func TestBinaryEncodeNotFound(t *testing.T) {
	data, err := Binary{}.EncodeResponse(provision.NotFoundResponse())
	require.NoError(t, err)

	var wire binaryResponse
	require.NoError(t, cbor.Unmarshal(data, &wire))
	assert.Equal(t, wireStatusNotFound, wire.Status)
	assert.Nil(t, wire.CredentialsType)
	assert.Equal(t, "Provision data was not found!", wire.ErrorMsg)
}

func TestBinaryEncodeSuccess(t *testing.T) {
	data, err := Binary{}.EncodeResponse(provision.Response{
		Status:           provision.StatusSuccess,
		CredentialsType:  provision.CredentialsX509,
		CredentialsID:    "hashed",
		CredentialsValue: "testHash",
	})
	require.NoError(t, err)

	var wire binaryResponse
	require.NoError(t, cbor.Unmarshal(data, &wire))
	assert.Equal(t, wireStatusSuccess, wire.Status)
	require.NotNil(t, wire.CredentialsType)
	assert.Equal(t, wireCredX509, *wire.CredentialsType)
	assert.Equal(t, "hashed", wire.CredentialsID)
	assert.Equal(t, "testHash", wire.CredentialsValue)
	assert.Empty(t, wire.ErrorMsg)
}

func TestBinaryEncodeDeterministic(t *testing.T) {
	resp := provision.Response{
		Status:          provision.StatusSuccess,
		CredentialsType: provision.CredentialsAccessToken,
		CredentialsID:   "test_token",
	}

	a, err := Binary{}.EncodeResponse(resp)
	require.NoError(t, err)
	b, err := Binary{}.EncodeResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
