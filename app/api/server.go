package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
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

	r.GET("/topics", handler.ListTopics)
	r.GET("/topics/top", handler.GetTopTopics)
	r.GET("/topics/:id", handler.GetTopic)
	r.POST("/topics/:id/ask", handler.AskTopic)
	r.GET("/topics/:id/similar", handler.GetSimilarArticles)
	r.GET("/topics/:id/images", handler.GetTopicImages)

	// Trigger endpoints. Authentication is enforced only when an access
	// key is configured.
	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("Trigger endpoints enabled with authentication")
	} else {
		slog.Warn("Trigger endpoints enabled without authentication (API_ACCESS_KEY not set)")
	}
	{
		api.POST("/analyze", handler.APITriggerAnalysis)
		api.POST("/topics/refresh", handler.APIRefreshTopics)
		api.POST("/topics/rebuild", handler.APIRebuildTopics)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "NewsPulse",
			"description": "News aggregation pipeline with AI-assisted topic clustering and ranking",
			"endpoints": map[string]string{
				"health":         "/health",
				"stats":          "/stats",
				"topics":         "/topics",
				"topic":          "/topics/<id>",
				"ask":            "/topics/<id>/ask (POST)",
				"similar":        "/topics/<id>/similar",
				"images":         "/topics/<id>/images",
				"top_stories":    "/topics/top",
				"analyze":        "/api/analyze (POST)",
				"refresh_topics": "/api/topics/refresh (POST)",
				"rebuild_topics": "/api/topics/rebuild (POST)",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for trigger endpoints
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
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
