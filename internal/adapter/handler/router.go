package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/sales-api/internal/health"
)

// NewRouter assembles the gin engine: middleware, the REST API, Prometheus
// metrics and the health checks. observer may be nil.
func NewRouter(h *HTTPHandler, healthHandler *health.Handler, observer HTTPObserver, logger *log.Entry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	if observer != nil {
		r.Use(HTTPMetrics(observer))
	}

	h.Register(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/livez", gin.WrapF(health.LivenessHandler))
	if healthHandler != nil {
		r.GET("/healthz", gin.WrapH(healthHandler))
		r.GET("/readyz", gin.WrapF(healthHandler.ReadinessHandler))
	}

	return r
}
