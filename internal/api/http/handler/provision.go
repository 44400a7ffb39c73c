package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edgehive/provisiond/internal/codec"
	"github.com/edgehive/provisiond/internal/provision"
)

// maxPayloadBytes bounds the provisioning payload; certificates fit well
// under this.
const maxPayloadBytes = 64 * 1024

// ProvisionHandler terminates the device-facing provisioning endpoint:
// raw bytes in, codec decode, one pass through the provisioning service,
// codec encode, raw bytes out in the caller's media type.
type ProvisionHandler struct {
	service *provision.Service
}

func NewProvisionHandler(service *provision.Service) *ProvisionHandler {
	return &ProvisionHandler{service: service}
}

// Provision handles POST /api/v1/provision.
func (h *ProvisionHandler) Provision(ctx *gin.Context) {
	mediaType := contentMediaType(ctx)
	c, ok := codec.ForContentType(mediaType)
	if !ok {
		ctx.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported content type"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxPayloadBytes))
	if err != nil {
		h.reply(ctx, c, provision.FailureResponse())
		return
	}

	req, err := c.DecodeRequest(body)
	if err != nil {
		slog.Warn("Malformed provisioning payload", "error", err, "content_type", mediaType)
		h.reply(ctx, c, provision.FailureResponse())
		return
	}

	h.reply(ctx, c, h.service.Provision(ctx.Request.Context(), req))
}

// reply always answers 200: the provisioning outcome travels in the
// payload's status field, not in the HTTP status, so all transports
// carrying this exchange behave identically.
func (h *ProvisionHandler) reply(ctx *gin.Context, c codec.Codec, resp provision.Response) {
	data, err := c.EncodeResponse(resp)
	if err != nil {
		slog.Error("Failed to encode provision response", "error", err)
		ctx.Status(http.StatusInternalServerError)
		return
	}
	ctx.Data(http.StatusOK, c.ContentType(), data)
}

func contentMediaType(ctx *gin.Context) string {
	ct := ctx.GetHeader("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
