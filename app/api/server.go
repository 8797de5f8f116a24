package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classmind/classmind/app/cfg"
)

// NewServer builds the HTTP server with all routes configured. The feed of
// truth for course and category toggles is the dashboard talking to these
// endpoints; the sync engine itself never listens here.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/courses", handler.ListCourses)
			api.POST("/courses/:id/enable", handler.EnableCourse)
			api.POST("/courses/:id/disable", handler.DisableCourse)
			api.PATCH("/courses/:id/settings", handler.UpdateCourseSettings)
			api.DELETE("/courses/:id/assignments", handler.PurgeCourseAssignments)

			api.GET("/courses/:id/categories", handler.ListCategories)
			api.POST("/categories/:id/enable", handler.EnableCategory)
			api.POST("/categories/:id/disable", handler.DisableCategory)

			api.GET("/runs", handler.ListRuns)
			api.POST("/sync", handler.TriggerSync)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "ClassMind",
			"version": cfg.GetVersion(),
			"endpoints": gin.H{
				"health": "/health",
				"stats":  "/stats",
				"api":    "/api (requires X-API-Key header)",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
