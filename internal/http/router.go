package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mlukasik/filmlog/internal/database/users"
)

// RouterConfig carries the controllers and middleware dependencies for the
// HTTP router.
type RouterConfig struct {
	Users             *users.Repository
	ImportController  *ImportController
	LibraryController *LibraryController
	AuditController   *AuditController
	HealthController  *HealthController
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", cfg.HealthController.Status)

	api := router.Group("/api")
	api.Use(TokenAuthMiddleware(cfg.Users))
	{
		api.POST("/imports", cfg.ImportController.Upload)
		api.GET("/imports", cfg.ImportController.ListJobs)
		api.GET("/imports/:id", cfg.ImportController.GetJob)

		api.GET("/library", cfg.LibraryController.List)

		api.GET("/audit", cfg.AuditController.ListEvents)
	}

	return router
}
