package http

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the controllers the router wires up.
type RouterConfig struct {
	Health *HealthController
	Import *ImportController
	Export *ExportController
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", cfg.Health.Status)

	api := router.Group("/api")
	{
		api.POST("/import/preview", cfg.Import.Preview)
		api.POST("/import/duplicates", cfg.Import.Duplicates)
		api.POST("/import/confirm", cfg.Import.Confirm)
		api.GET("/topics/:id/export", cfg.Export.Download)
	}

	return router
}
