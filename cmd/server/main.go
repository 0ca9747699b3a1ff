package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pokstore/backend/internal/api"
	"github.com/pokstore/backend/internal/config"
	"github.com/pokstore/backend/internal/database"
	"github.com/pokstore/backend/internal/services"
	"github.com/pokstore/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Snapshots always live in the local database, items too with the sql backend
	if err := database.Initialize(cfg.DBPath, cfg.DatabaseURL, cfg.DBLogLevel); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	var store services.RemoteStore
	switch cfg.StoreBackend {
	case config.BackendREST:
		store = services.NewRESTStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTable, cfg.RESTRequestsPerSecond)
		log.Printf("Using REST store at %s (table %s)", cfg.SupabaseURL, cfg.SupabaseTable)
	default:
		store = services.NewSQLStore(database.GetDB(), cfg.JWTSecret, cfg.SessionTTL)
		log.Println("Using SQL store")
	}

	retrier := services.NewRetrier(store, cfg.RetryMaxAttempts, cfg.RetryBaseDelay)
	authService := services.NewAuthService(store, retrier, services.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMaxAttempts))
	inventoryService := services.NewInventoryService(store, retrier)

	// An expired session signs the user out and drops its cached collection
	retrier.OnSessionExpired(func(ctx context.Context) {
		authService.ForceSignOut(ctx)
		inventoryService.Invalidate(ctx)
	})

	preferenceStore, err := storage.NewJSONStore(cfg.PreferencesPath)
	if err != nil {
		log.Fatalf("Failed to open preferences store: %v", err)
	}
	preferenceService := services.NewPreferenceService(preferenceStore)

	imageStorageService := services.NewImageStorageService(cfg.ImagesDir)

	// Initialize snapshot service for daily value tracking
	snapshotService := services.NewSnapshotService(database.GetDB(), inventoryService, cfg.SnapshotHour)

	// Market prices are optional: without an eBay app ID the worker stays off
	var priceWorker *services.PriceWorker
	ebayService := services.NewEbayPriceService(cfg.EbayAppID, cfg.EbayDailyLimit)
	if ebayService.Enabled() {
		priceWorker = services.NewPriceWorker(inventoryService, ebayService, cfg.PriceWorkerInterval, cfg.PriceWorkerBatch)
	} else {
		log.Println("EBAY_APP_ID not set, market price lookups disabled")
	}

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Workers read the collection under their own identity
	workerCtx := ctx
	if cfg.StoreBackend == config.BackendREST {
		if cfg.SupabaseServiceKey != "" {
			workerCtx = services.WithAccessToken(ctx, cfg.SupabaseServiceKey)
		} else {
			log.Println("SUPABASE_SERVICE_KEY not set, background workers only see rows readable with the anon key")
		}
	}

	// Start price worker in background with panic recovery
	if priceWorker != nil && cfg.PriceWorkerEnabled {
		go func() {
			for {
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in price worker: %v - restarting in 30 seconds", r)
						}
					}()
					priceWorker.Start(workerCtx)
				}()

				select {
				case <-ctx.Done():
					return // Graceful shutdown
				case <-time.After(30 * time.Second):
					log.Println("Price worker restarting after panic recovery...")
				}
			}
		}()
	}

	// Start snapshot service in background
	go snapshotService.Start(workerCtx)

	router := api.SetupRouter(cfg, api.Services{
		Auth:         authService,
		Inventory:    inventoryService,
		Preferences:  preferenceService,
		PriceWorker:  priceWorker,
		Snapshots:    snapshotService,
		ImageStorage: imageStorageService,
		Prober:       store,
	})

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the background workers
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
