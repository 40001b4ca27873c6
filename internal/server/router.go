package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/outboundiq/personalize-backend/internal/handlers"
)

type RouterConfig struct {
	ExportsHandler  *handlers.ExportsHandler
	WebsitesHandler *handlers.WebsitesHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/exports/create", cfg.ExportsHandler.Create)
		api.GET("/exports/:id/status", cfg.ExportsHandler.Status)

		api.POST("/websites/process", cfg.WebsitesHandler.Process)
		api.POST("/websites/generate-personalizations", cfg.WebsitesHandler.GeneratePersonalizations)
	}

	return router
}
