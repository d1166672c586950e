package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tokamak-network/trh-pipeline/pkg/api/handlers"
	"github.com/tokamak-network/trh-pipeline/pkg/api/middlewares"
	"github.com/tokamak-network/trh-pipeline/pkg/api/servers"

	swaggerFiles "github.com/swaggo/files"
)

func SetupRoutes(server *servers.Server) {
	server.Use(middlewares.Metrics(server.Metrics))

	apiV1 := server.Router.Group("/api/v1")
	setupV1Routes(apiV1, server)

	server.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	server.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func setupV1Routes(router *gin.RouterGroup, server *servers.Server) {
	// Health routes
	setupHealthRoutes(router.Group("/health"), server)

	// Deployment routes
	setupDeploymentRoutes(router.Group("/deployments"), server)
}

func setupHealthRoutes(router *gin.RouterGroup, server *servers.Server) {
	handler := handlers.NewHealthHandler(server)
	router.GET("", handler.GetHealth)
}

func setupDeploymentRoutes(router *gin.RouterGroup, server *servers.Server) {
	handler := handlers.NewDeploymentHandler(server)
	router.POST("", handler.Create)
	router.GET("", handler.List)
	router.GET("/:id", handler.GetByID)
	router.GET("/:id/status", handler.GetStatus)
	router.DELETE("/:id", handler.Delete)
}
