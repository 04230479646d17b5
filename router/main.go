package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adcanvas/adcanvas/controller"
)

// SetRouter registers every HTTP route of the service.
func SetRouter(server *gin.Engine, flow *controller.Flow, proxy *controller.Proxy) {
	server.GET("/health", controller.Health)
	server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := server.Group("/api")
	{
		api.POST("/image-flow", flow.Handle)
		api.GET("/image-proxy", proxy.Handle)
	}
}
