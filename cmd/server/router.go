package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"moodboard-backend/internal/config"
	"moodboard-backend/internal/handlers"
	"moodboard-backend/internal/middleware"
	"moodboard-backend/internal/objectstore"
	"moodboard-backend/internal/session"
)

func newRouter(cfg *config.Config, manager *session.Manager, blobs objectstore.Store) *gin.Engine {
	boardsHandler := handlers.NewBoardsHandler(manager)
	uploadsHandler := handlers.NewUploadsHandler(manager)
	quotaHandler := handlers.NewQuotaHandler(manager)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSAllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	if cfg.EnablePprof {
		pprof.Register(router)
	}

	// Health check (no auth)
	router.GET("/health", handlers.NewHealthHandler(manager).Get)

	if mem, ok := blobs.(*objectstore.Memory); ok {
		router.GET("/blobs/*path", handlers.NewBlobsHandler(mem).Get)
	}

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	// Boards
	api.GET("/boards", boardsHandler.List)
	api.POST("/boards", boardsHandler.Create)
	api.PATCH("/boards/:board_id", boardsHandler.Rename)
	api.DELETE("/boards/:board_id", boardsHandler.Delete)
	api.PUT("/boards/:board_id/tags", boardsHandler.SetTags)
	api.POST("/boards/:board_id/tags", boardsHandler.AddTags)
	api.PUT("/selection", boardsHandler.Select)

	// Images and uploads
	api.POST("/boards/:board_id/images", uploadsHandler.Upload)
	api.PATCH("/boards/:board_id/images/:index", boardsHandler.UpdateImage)
	api.DELETE("/boards/:board_id/images/:index", boardsHandler.RemoveImage)
	api.GET("/uploads", uploadsHandler.List)
	api.DELETE("/uploads", uploadsHandler.Cancel)

	// Quota
	api.GET("/quota", quotaHandler.Get)

	return router
}
