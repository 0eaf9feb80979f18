package handlers

import (
	"net/http"

	"file-converter/internal/config"
	"file-converter/internal/models"

	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config, convertHandler *ConvertHandler, jobHandler *JobHandler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/convert", convertHandler.Convert)
		api.GET("/jobs/:id", jobHandler.GetJob)
		api.DELETE("/jobs/:id", AuthMiddleware(cfg.Token), jobHandler.DeleteJob)
	}

	// Produced artifacts, without directory listings.
	router.StaticFS(cfg.Storage.PublicPrefix, gin.Dir(cfg.Storage.OutputDir, false))

	var frontend http.Handler
	if cfg.Storage.PublicDir != "" {
		frontend = http.FileServer(gin.Dir(cfg.Storage.PublicDir, false))
	}
	router.NoRoute(func(c *gin.Context) {
		if frontend != nil && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			frontend.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
	})

	return router
}
