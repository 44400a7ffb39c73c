// Package codec translates wire bytes to and from the provisioning value
// types. Two symmetric encodings are supported: a human-readable JSON
// object and a compact CBOR message with integer field keys. The two are
// semantically equivalent; any request expressible in one can be expressed
// in the other.
package codec

import (
	"errors"

	"github.com/edgehive/provisiond/internal/provision"
)

var (
	ErrMissingProvisionKey    = errors.New("provisionDeviceKey is required")
	ErrMissingProvisionSecret = errors.New("provisionDeviceSecret is required")
)

// Codec decodes provisioning requests and encodes responses for one media
// type.
type Codec interface {
	ContentType() string
	DecodeRequest(data []byte) (provision.Request, error)
	EncodeResponse(resp provision.Response) ([]byte, error)
}

// ForContentType selects the codec serving the given media type.
func ForContentType(contentType string) (Codec, bool) {
	switch contentType {
	case ContentTypeJSON:
		return JSON{}, true
	case ContentTypeCBOR:
		return Binary{}, true
	default:
		return nil, false
	}
}
