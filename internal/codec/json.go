package codec

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/edgehive/provisiond/internal/provision"
)

const ContentTypeJSON = "application/json"

// jsonRequest is the loosely-typed wire object: credential payload fields
// for every type are flattened into the same object and only the ones
// matching credentialsType are meaningful.
type jsonRequest struct {
	DeviceName            string  `json:"deviceName"`
	ProvisionDeviceKey    *string `json:"provisionDeviceKey"`
	ProvisionDeviceSecret *string `json:"provisionDeviceSecret"`
	CredentialsType       string  `json:"credentialsType"`
	Token                 string  `json:"token"`
	Hash                  string  `json:"hash"`
	ClientID              string  `json:"clientId"`
	Username              string  `json:"username"`
	Password              string  `json:"password"`
}

type jsonResponse struct {
	CredentialsType  string `json:"credentialsType,omitempty"`
	CredentialsID    string `json:"credentialsId,omitempty"`
	CredentialsValue string `json:"credentialsValue,omitempty"`
	Status           string `json:"status"`
	ErrorMsg         string `json:"errorMsg,omitempty"`
}

// JSON is the human-readable codec.
type JSON struct{}

func (JSON) ContentType() string { return ContentTypeJSON }

// DecodeRequest parses the flattened JSON object. The provisioning key and
// secret are required; an absent credentialsType means ACCESS_TOKEN.
func (JSON) DecodeRequest(data []byte) (provision.Request, error) {
	var wire jsonRequest
	if err := json.Unmarshal(data, &wire); err != nil {
		return provision.Request{}, fmt.Errorf("parse provision request: %w", err)
	}
	if wire.ProvisionDeviceKey == nil {
		return provision.Request{}, ErrMissingProvisionKey
	}
	if wire.ProvisionDeviceSecret == nil {
		return provision.Request{}, ErrMissingProvisionSecret
	}

	ctype := provision.CredentialsAccessToken
	if wire.CredentialsType != "" {
		ctype = provision.CredentialsType(wire.CredentialsType)
	}

	return provision.Request{
		DeviceName:            wire.DeviceName,
		ProvisionDeviceKey:    *wire.ProvisionDeviceKey,
		ProvisionDeviceSecret: *wire.ProvisionDeviceSecret,
		CredentialsType:       ctype,
		Credentials: provision.CredentialsData{
			Token:    wire.Token,
			Hash:     wire.Hash,
			ClientID: wire.ClientID,
			Username: wire.Username,
			Password: wire.Password,
		},
	}, nil
}

func (JSON) EncodeResponse(resp provision.Response) ([]byte, error) {
	wire := jsonResponse{
		Status:   string(resp.Status),
		ErrorMsg: resp.ErrorMsg,
	}
	if resp.Status == provision.StatusSuccess {
		wire.CredentialsType = string(resp.CredentialsType)
		wire.CredentialsID = resp.CredentialsID
		wire.CredentialsValue = resp.CredentialsValue
	}
	return json.Marshal(wire)
}
