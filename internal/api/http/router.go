package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgehive/provisiond/internal/api/http/handler"
	"github.com/edgehive/provisiond/internal/api/http/middleware"
	"github.com/edgehive/provisiond/internal/auth"
	"github.com/edgehive/provisiond/internal/provision"
	"github.com/edgehive/provisiond/internal/store"
)

type Services struct {
	Provisioning *provision.Service
	Auth         *auth.Service
	Profiles     *store.ProfileStore
	KeyIndex     *store.KeyIndex
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler()
	engine.GET("/health", healthHandler.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")

	provisionHandler := handler.NewProvisionHandler(srvs.Provisioning)
	v1.POST("/provision", provisionHandler.Provision)

	authHandler := handler.NewAuthHandler(srvs.Auth)
	v1.POST("/auth/login", authHandler.Login)

	profileHandler := handler.NewProfileHandler(srvs.Profiles, srvs.KeyIndex)
	admin := v1.Group("", middleware.JWTAuth(srvs.Auth))
	admin.POST("/profiles", profileHandler.Create)
	admin.GET("/profiles", profileHandler.List)
	admin.GET("/profiles/:id", profileHandler.Get)
	admin.DELETE("/profiles/:id", profileHandler.Delete)
}
