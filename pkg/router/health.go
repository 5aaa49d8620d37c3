package router

import "github.com/gin-gonic/gin"

// setupHealthRoutes registers the health report and the Prometheus scrape
// endpoint. Neither is rate limited.
func (r *Router) setupHealthRoutes() {
	handler := r.Container.Health.Handler()
	r.Engine.GET("/health", handler)
	r.Engine.GET("/api/health", handler)

	if m := r.Container.Metrics; m != nil {
		r.Engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
}
