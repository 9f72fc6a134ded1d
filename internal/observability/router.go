package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthFunc reports a short state label and whether the process is healthy.
type HealthFunc func() (state string, ok bool)

// NewRouter serves /healthz and /metrics for one node.
func NewRouter(logger zerolog.Logger, node string, health HealthFunc) *gin.Engine {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), RequestMetricsMiddleware(node))
	r.GET("/healthz", func(c *gin.Context) {
		state, ok := "up", true
		if health != nil {
			state, ok = health()
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"node": node, "state": state})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
