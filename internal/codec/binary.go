package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/edgehive/provisiond/internal/provision"
)

const ContentTypeCBOR = "application/cbor"

// Wire enum values. The credentials-type numbering makes ACCESS_TOKEN the
// zero value, so a message that omits the field decodes to the default
// credentials type.
const (
	wireCredAccessToken = 0
	wireCredMqttBasic   = 1
	wireCredX509        = 2

	wireStatusSuccess  = 1
	wireStatusNotFound = 2
	wireStatusFailure  = 3
)

type binaryTokenMsg struct {
	Token string `cbor:"1,keyasint,omitempty"`
}

type binaryMqttBasicMsg struct {
	ClientID string `cbor:"1,keyasint,omitempty"`
	Username string `cbor:"2,keyasint,omitempty"`
	Password string `cbor:"3,keyasint,omitempty"`
}

type binaryCertMsg struct {
	Hash string `cbor:"1,keyasint,omitempty"`
}

// binaryCredentialsData is the tagged union: at most one sub-message is
// present, matching the request's credentials type.
type binaryCredentialsData struct {
	Token     *binaryTokenMsg     `cbor:"1,keyasint,omitempty"`
	MqttBasic *binaryMqttBasicMsg `cbor:"2,keyasint,omitempty"`
	X509      *binaryCertMsg      `cbor:"3,keyasint,omitempty"`
}

type binaryProvisionCredentials struct {
	ProvisionDeviceKey    string `cbor:"1,keyasint,omitempty"`
	ProvisionDeviceSecret string `cbor:"2,keyasint,omitempty"`
}

type binaryRequest struct {
	DeviceName           string                      `cbor:"1,keyasint,omitempty"`
	CredentialsType      int                         `cbor:"2,keyasint,omitempty"`
	CredentialsData      *binaryCredentialsData      `cbor:"3,keyasint,omitempty"`
	ProvisionCredentials *binaryProvisionCredentials `cbor:"4,keyasint,omitempty"`
}

type binaryResponse struct {
	Status           int    `cbor:"1,keyasint"`
	CredentialsType  *int   `cbor:"2,keyasint,omitempty"`
	CredentialsID    string `cbor:"3,keyasint,omitempty"`
	CredentialsValue string `cbor:"4,keyasint,omitempty"`
	ErrorMsg         string `cbor:"5,keyasint,omitempty"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Binary is the compact schema'd codec: CBOR maps with integer field keys.
type Binary struct{}

func (Binary) ContentType() string { return ContentTypeCBOR }

func (Binary) DecodeRequest(data []byte) (provision.Request, error) {
	var wire binaryRequest
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return provision.Request{}, fmt.Errorf("parse provision request: %w", err)
	}
	if wire.ProvisionCredentials == nil {
		return provision.Request{}, ErrMissingProvisionKey
	}

	ctype, err := credentialsTypeFromWire(wire.CredentialsType)
	if err != nil {
		return provision.Request{}, err
	}

	req := provision.Request{
		DeviceName:            wire.DeviceName,
		ProvisionDeviceKey:    wire.ProvisionCredentials.ProvisionDeviceKey,
		ProvisionDeviceSecret: wire.ProvisionCredentials.ProvisionDeviceSecret,
		CredentialsType:       ctype,
	}
	if d := wire.CredentialsData; d != nil {
		if d.Token != nil {
			req.Credentials.Token = d.Token.Token
		}
		if d.MqttBasic != nil {
			req.Credentials.ClientID = d.MqttBasic.ClientID
			req.Credentials.Username = d.MqttBasic.Username
			req.Credentials.Password = d.MqttBasic.Password
		}
		if d.X509 != nil {
			req.Credentials.Hash = d.X509.Hash
		}
	}
	return req, nil
}

func (Binary) EncodeResponse(resp provision.Response) ([]byte, error) {
	wire := binaryResponse{
		Status:   statusToWire(resp.Status),
		ErrorMsg: resp.ErrorMsg,
	}
	if resp.Status == provision.StatusSuccess {
		ct := credentialsTypeToWire(resp.CredentialsType)
		wire.CredentialsType = &ct
		wire.CredentialsID = resp.CredentialsID
		wire.CredentialsValue = resp.CredentialsValue
	}
	return encMode.Marshal(wire)
}

func credentialsTypeFromWire(v int) (provision.CredentialsType, error) {
	switch v {
	case wireCredAccessToken:
		return provision.CredentialsAccessToken, nil
	case wireCredMqttBasic:
		return provision.CredentialsMqttBasic, nil
	case wireCredX509:
		return provision.CredentialsX509, nil
	default:
		return "", fmt.Errorf("unknown credentials type %d", v)
	}
}

func credentialsTypeToWire(t provision.CredentialsType) int {
	switch t {
	case provision.CredentialsMqttBasic:
		return wireCredMqttBasic
	case provision.CredentialsX509:
		return wireCredX509
	default:
		return wireCredAccessToken
	}
}

func statusToWire(s provision.ResponseStatus) int {
	switch s {
	case provision.StatusSuccess:
		return wireStatusSuccess
	case provision.StatusNotFound:
		return wireStatusNotFound
	default:
		return wireStatusFailure
	}
}
