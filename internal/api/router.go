package api

import (
	"net/http"

	"lending-core/internal/common/config"
	"lending-core/internal/common/logger"
	"lending-core/internal/common/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the gin engine with shared middleware, the
// operational endpoints, and every registered handler group.
func NewRouter(cfg config.AppConfig, log logger.Logger, obs *observability.Observability, handlers ...interface{ Register(gin.IRouter) }) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(requestMetrics(obs))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": cfg.Name,
			"version": cfg.Version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
