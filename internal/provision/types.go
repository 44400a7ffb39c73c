package provision

// CredentialsType selects which authentication scheme a device will use
// after provisioning.
type CredentialsType string

const (
	CredentialsAccessToken CredentialsType = "ACCESS_TOKEN"
	CredentialsMqttBasic   CredentialsType = "MQTT_BASIC"
	CredentialsX509        CredentialsType = "X509_CERTIFICATE"
)

// ResponseStatus is the outcome of a provisioning attempt.
type ResponseStatus string

const (
	StatusSuccess  ResponseStatus = "SUCCESS"
	StatusNotFound ResponseStatus = "NOT_FOUND"
	StatusFailure  ResponseStatus = "FAILURE"
)

// Response error messages are fixed strings. Every deliberate rejection
// (unknown key, disabled policy, unknown device, secret mismatch) shares
// the same NOT_FOUND message so the response does not reveal which
// provisioning keys are valid to an unauthenticated caller.
const (
	msgNotFound = "Provision data was not found!"
	msgFailure  = "Failed to provision device!"
)

// CredentialsData is the caller-supplied credential payload, one field set
// per credentials type.
type CredentialsData struct {
	Token    string // ACCESS_TOKEN: literal token to issue; empty means generate
	Hash     string // X509_CERTIFICATE: certificate payload / hash
	ClientID string // MQTT_BASIC
	Username string // MQTT_BASIC
	Password string // MQTT_BASIC
}

// Request is a decoded provisioning request. Transient, one per inbound
// message; it has no identity beyond the request itself.
type Request struct {
	DeviceName            string
	ProvisionDeviceKey    string
	ProvisionDeviceSecret string
	CredentialsType       CredentialsType
	Credentials           CredentialsData
}

// Response is the provisioning outcome sent back to the device. On SUCCESS
// it mirrors the issued credentials; on rejection or failure it carries a
// short human-readable error message.
type Response struct {
	Status           ResponseStatus
	CredentialsType  CredentialsType
	CredentialsID    string
	CredentialsValue string
	ErrorMsg         string
}

// NotFoundResponse is the uniform rejection for every policy denial.
func NotFoundResponse() Response {
	return Response{Status: StatusNotFound, ErrorMsg: msgNotFound}
}

// FailureResponse reports an unexpected internal error without surfacing
// any detail to the caller.
func FailureResponse() Response {
	return Response{Status: StatusFailure, ErrorMsg: msgFailure}
}
