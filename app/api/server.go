package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		slog.Warn("Ignoring trusted proxies", "proxies", opts.TrustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
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

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, "+SessionHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, opts)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, opts Options) {
	r.GET("/health", handler.GetHealth)
	r.GET("/metrics", gin.WrapH(handler.metrics.Handler()))
	r.GET("/", handler.GetIndex)

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	api := r.Group("/api")
	if opts.APIAccessKey != "" {
		api.Use(authMiddleware(opts.APIAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled (API_ACCESS_KEY not set)")
	}
	api.Use(sessionMiddleware())
	if opts.RateLimit > 0 {
		api.Use(rateLimitMiddleware(opts.RateLimit, max(opts.RateBurst, 1)))
	}

	{
		api.GET("/saved", handler.ListSaved)
		api.POST("/saved", handler.SaveItem)
		api.DELETE("/saved", handler.ClearSaved)
		api.GET("/saved/counts", handler.GetSavedCounts)
		api.GET("/saved/feed.xml", handler.GetSavedFeed)
		api.GET("/saved/status/:id", handler.GetSavedStatus)
		api.DELETE("/saved/:id", handler.RemoveSaved)

		api.GET("/search", handler.Search)
		api.POST("/search/results/save", handler.SaveSearchResult)

		api.GET("/search/session", handler.GetSearchSession)
		api.PUT("/search/session/query", handler.SetSearchQuery)
		api.PATCH("/search/session/filters", handler.SetSearchFilters)
		api.DELETE("/search/session/filters", handler.ClearSearchFilters)
		api.POST("/search/session/execute", handler.ExecuteSearch)

		api.GET("/searches", handler.ListSavedSearches)
		api.POST("/searches", handler.SaveSearch)
		api.POST("/searches/:id/run", handler.RunSavedSearch)
		api.DELETE("/searches/:id", handler.DeleteSavedSearch)

		api.GET("/sources", handler.ListSources)
		api.POST("/sources/:name/import", handler.ImportSource)
	}
}
