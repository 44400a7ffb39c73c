package tests

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func login(t *testing.T, env *Env, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, _ := http.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.Engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func adminRequest(t *testing.T, env *Env, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.Engine.ServeHTTP(w, req)
	return w
}

// AdminProfileLifecycle walks the admin API end to end: login, create a
// profile, provision against it, then delete it and verify provisioning
// stops immediately.
func AdminProfileLifecycle(t *testing.T, env *Env) {
	// Unauthenticated and bad-password access must be rejected first.
	w := adminRequest(t, env, "", "GET", "/api/v1/profiles", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	req, _ := http.NewRequest("POST", "/api/v1/auth/login", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.Engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := login(t, env, "admin", "system-test-password")

	tenantID := uuid.New().String()
	w = adminRequest(t, env, token, "POST", "/api/v1/profiles", map[string]string{
		"tenant_id":               tenantID,
		"name":                    "lifecycle-profile",
		"provision_type":          "ALLOW_CREATE_NEW_DEVICES",
		"provision_device_key":    "lifecycleKey",
		"provision_device_secret": "lifecycleSecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID                 string `json:"id"`
		ProvisionDeviceKey string `json:"provision_device_key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "lifecycleKey", created.ProvisionDeviceKey)
	// The secret never leaves the server.
	assert.NotContains(t, w.Body.String(), "lifecycleSecret")

	// Re-using the provisioning key must be refused.
	w = adminRequest(t, env, token, "POST", "/api/v1/profiles", map[string]string{
		"tenant_id":               uuid.New().String(),
		"name":                    "lifecycle-duplicate",
		"provision_type":          "DISABLED",
		"provision_device_key":    "lifecycleKey",
		"provision_device_secret": "otherSecret",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// The freshly created profile accepts provisioning.
	resp := env.postJSON(t, `{"deviceName":"lifecycle-device","provisionDeviceKey":"lifecycleKey","provisionDeviceSecret":"lifecycleSecret","credentialsType":"ACCESS_TOKEN","token":"lifecycle_token"}`)
	require.Equal(t, "SUCCESS", resp["status"])

	w = adminRequest(t, env, token, "GET", "/api/v1/profiles/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = adminRequest(t, env, token, "DELETE", "/api/v1/profiles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Deletion invalidates the key cache, so the very next request sees it.
	resp = env.postJSON(t, `{"deviceName":"lifecycle-device-2","provisionDeviceKey":"lifecycleKey","provisionDeviceSecret":"lifecycleSecret"}`)
	assert.Equal(t, "NOT_FOUND", resp["status"])

	w = adminRequest(t, env, token, "GET", "/api/v1/profiles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
