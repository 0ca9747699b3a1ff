package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pokstore/backend/internal/api/handlers"
	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/config"
	"github.com/pokstore/backend/internal/services"
)

// Services groups what the router needs. PriceWorker may be nil when market
// prices are not configured.
type Services struct {
	Auth         *services.AuthService
	Inventory    *services.InventoryService
	Preferences  *services.PreferenceService
	PriceWorker  *services.PriceWorker
	Snapshots    *services.SnapshotService
	ImageStorage *services.ImageStorageService
	Prober       services.Prober
}

func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.Default()
	router.Use(RequestMetrics())

	locale := apperrors.ParseLocale(cfg.Locale)

	frontendPath := cfg.FrontendDistPath
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	authHandler := handlers.NewAuthHandler(svc.Auth, locale)
	itemHandler := handlers.NewItemHandler(svc.Inventory, svc.ImageStorage, locale)
	statsHandler := handlers.NewStatsHandler(svc.Inventory, svc.Snapshots, locale)
	priceHandler := handlers.NewPriceHandler(svc.PriceWorker, locale)
	preferenceHandler := handlers.NewPreferenceHandler(svc.Preferences, locale)

	// Serve uploaded item photos
	if svc.ImageStorage != nil {
		router.Static(strings.TrimSuffix(services.ImagePathPrefix, "/"), svc.ImageStorage.GetStorageDir())
	}

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signin", authHandler.SignIn)
			auth.POST("/signup", authHandler.SignUp)
			auth.POST("/signout", authHandler.SignOut)
		}

		protected := api.Group("")
		protected.Use(RequireSession(svc.Auth, locale))

		items := protected.Group("/items")
		{
			items.GET("", itemHandler.ListItems)
			items.POST("", itemHandler.CreateItem)
			items.POST("/import", itemHandler.ImportCSV)
			items.GET("/export", itemHandler.ExportCSV)
			items.GET("/:id", itemHandler.GetItem)
			items.PUT("/:id", itemHandler.UpdateItem)
			items.DELETE("/:id", itemHandler.DeleteItem)
			items.POST("/:id/tags", itemHandler.AddTag)
			items.DELETE("/:id/tags/:tag", itemHandler.RemoveTag)
			items.GET("/:id/price-history", itemHandler.GetPriceHistory)
			items.POST("/:id/refresh-price", priceHandler.RefreshItemPrice)
			items.POST("/:id/image", itemHandler.UploadImage)
		}

		stats := protected.Group("/stats")
		{
			stats.GET("", statsHandler.GetStats)
			stats.GET("/history", statsHandler.GetValueHistory)
			stats.POST("/snapshot", statsHandler.TakeSnapshot)
		}

		protected.GET("/prices/status", priceHandler.GetPriceStatus)

		prefs := protected.Group("/preferences")
		{
			prefs.GET("", preferenceHandler.GetPreferences)
			prefs.PUT("/dark-mode", preferenceHandler.SetDarkMode)
		}
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check, reports whether the backing store answers
	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "store": "online"}
		if svc.Prober != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			if !svc.Prober.Online(ctx) {
				status["status"] = "degraded"
				status["store"] = "offline"
			}
		}
		c.JSON(http.StatusOK, status)
	})

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.StaticFile("/vite.svg", filepath.Join(frontendPath, "vite.svg"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
