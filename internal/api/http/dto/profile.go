package dto

import "time"

type CreateProfileRequest struct {
	TenantID              string `json:"tenant_id" binding:"required,uuid"`
	Name                  string `json:"name" binding:"required,min=1,max=255"`
	ProvisionType         string `json:"provision_type" binding:"required,oneof=DISABLED CHECK_PRE_PROVISIONED_DEVICES ALLOW_CREATE_NEW_DEVICES"`
	ProvisionDeviceKey    string `json:"provision_device_key" binding:"required,min=1"`
	ProvisionDeviceSecret string `json:"provision_device_secret" binding:"required,min=1"`
}

type ProfileResponse struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenant_id"`
	Name               string    `json:"name"`
	ProvisionType      string    `json:"provision_type"`
	ProvisionDeviceKey string    `json:"provision_device_key"`
	CreatedAt          time.Time `json:"created_at"`
}

type ListProfilesResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
