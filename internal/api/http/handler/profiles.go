package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edgehive/provisiond/internal/api/http/dto"
	"github.com/edgehive/provisiond/internal/store"
)

// ProfileHandler serves the admin device-profile API.
type ProfileHandler struct {
	profiles *store.ProfileStore
	keyIndex *store.KeyIndex
}

func NewProfileHandler(profiles *store.ProfileStore, keyIndex *store.KeyIndex) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, keyIndex: keyIndex}
}

// Create handles POST /api/v1/profiles.
func (h *ProfileHandler) Create(c *gin.Context) {
	var req dto.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tenant_id"})
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), &store.DeviceProfile{
		TenantID:              tenantID,
		Name:                  req.Name,
		ProvisionType:         store.ProvisionType(req.ProvisionType),
		ProvisionDeviceKey:    req.ProvisionDeviceKey,
		ProvisionDeviceSecret: req.ProvisionDeviceSecret,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "provision key already in use"})
			return
		}
		slog.Error("Failed to create device profile", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
		return
	}

	// A stale negative entry would otherwise hide the new profile for a TTL.
	h.keyIndex.Invalidate(profile.ProvisionDeviceKey)

	slog.Info("Device profile created", "profile_id", profile.ID, "tenant", profile.TenantID, "type", profile.ProvisionType)
	c.JSON(http.StatusCreated, toProfileResponse(profile))
}

// List handles GET /api/v1/profiles.
func (h *ProfileHandler) List(c *gin.Context) {
	profiles, err := h.profiles.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list device profiles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list profiles"})
		return
	}

	resp := dto.ListProfilesResponse{Profiles: make([]dto.ProfileResponse, len(profiles))}
	for i := range profiles {
		resp.Profiles[i] = toProfileResponse(&profiles[i])
	}
	c.JSON(http.StatusOK, resp)
}

// Get handles GET /api/v1/profiles/:id.
func (h *ProfileHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	profile, err := h.profiles.ByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		slog.Error("Failed to load device profile", "error", err, "profile_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(profile))
}

// Delete handles DELETE /api/v1/profiles/:id.
func (h *ProfileHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	profile, err := h.profiles.ByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		slog.Error("Failed to load device profile", "error", err, "profile_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete profile"})
		return
	}

	if err := h.profiles.Delete(c.Request.Context(), id); err != nil {
		slog.Error("Failed to delete device profile", "error", err, "profile_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete profile"})
		return
	}
	h.keyIndex.Invalidate(profile.ProvisionDeviceKey)

	slog.Info("Device profile deleted", "profile_id", id)
	c.JSON(http.StatusOK, gin.H{"message": "profile deleted"})
}

func toProfileResponse(p *store.DeviceProfile) dto.ProfileResponse {
	// The provisioning secret is write-only through this API.
	return dto.ProfileResponse{
		ID:                 p.ID.String(),
		TenantID:           p.TenantID.String(),
		Name:               p.Name,
		ProvisionType:      string(p.ProvisionType),
		ProvisionDeviceKey: p.ProvisionDeviceKey,
		CreatedAt:          p.CreatedAt,
	}
}
