package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"incentivehub/internal/config"
	"incentivehub/pkg/middleware"
)

// ProvideRouter builds the gin engine with the shared middleware chain.
// Route registration happens per domain via the handler invokes below.
func ProvideRouter(cfg *config.Config, logger *zap.Logger) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Channel())
	r.Use(middleware.Error())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// AsHandler exposes the engine as the http.Handler the server expects.
func AsHandler(r *gin.Engine) http.Handler {
	return r
}

var Module = fx.Module("httpapi",
	fx.Provide(
		ProvideRouter,
		AsHandler,
	),
	fx.Invoke(
		RegisterCampaignRoutes,
		RegisterUserRoutes,
		RegisterKitRoutes,
		RegisterSubmissionRoutes,
		RegisterImporterRoutes,
		RegisterEarningRoutes,
	),
)
