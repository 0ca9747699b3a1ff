// import-csv bulk loads inventory items from a CSV export into the store
// configured by the environment (STORE_BACKEND, DB_PATH, SUPABASE_URL...).
//
// Usage: import-csv -file=<path> [-dry-run] [-execute] [-email=<email> -password=<password>]
//
// The tool:
// 1. Parses the file with the same column rules as the web import
// 2. With -dry-run, reports which rows would be imported or skipped
// 3. With -execute, signs in if credentials are given and creates the items
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pokstore/backend/internal/config"
	"github.com/pokstore/backend/internal/database"
	"github.com/pokstore/backend/internal/models"
	"github.com/pokstore/backend/internal/services"
)

func main() {
	filePath := flag.String("file", "", "Path to the CSV file (required)")
	dryRun := flag.Bool("dry-run", false, "Validate rows without writing anything")
	execute := flag.Bool("execute", false, "Create the items (required to make changes)")
	email := flag.String("email", "", "Account email, needed by the rest backend")
	password := flag.String("password", "", "Account password")
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: import-csv -file=<path> [options]")
		fmt.Println("")
		fmt.Println("Imports inventory items from a CSV file.")
		fmt.Println("")
		fmt.Println("Options:")
		fmt.Println("  -file      Path to the CSV file (required)")
		fmt.Println("  -dry-run   Validate rows without writing anything")
		fmt.Println("  -execute   Create the items (required to make changes)")
		fmt.Println("  -email     Account email, needed by the rest backend")
		fmt.Println("  -password  Account password")
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Println("  import-csv -file=./pokstore_export.csv -dry-run")
		fmt.Println("  STORE_BACKEND=sql import-csv -file=./pokstore_export.csv -execute")
		os.Exit(1)
	}

	if !*dryRun && !*execute {
		fmt.Println("Error: Must specify either -dry-run or -execute")
		os.Exit(1)
	}

	if *dryRun {
		if err := preview(*filePath); err != nil {
			log.Fatalf("Preview failed: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *filePath, *email, *password); err != nil {
		log.Fatalf("Import failed: %v", err)
	}
}

// preview reports every row without touching the store
func preview(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := services.ParseCSV(f)
	if err != nil {
		return err
	}

	valid := 0
	for _, row := range rows {
		if err := services.ValidateItemInput(row.Input); err != nil {
			fmt.Printf("  ❌ line %d: %v\n", row.Line, err)
			continue
		}
		valid++
		fmt.Printf("  ✓ line %d: %s (%s)\n", row.Line, row.Input.Name, row.Input.Set)
	}

	fmt.Printf("\n%d rows, %d would be imported, %d skipped\n", len(rows), valid, len(rows)-valid)
	return nil
}

func run(ctx context.Context, path, email, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var store services.RemoteStore
	switch cfg.StoreBackend {
	case config.BackendREST:
		store = services.NewRESTStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseTable, cfg.RESTRequestsPerSecond)
	default:
		if err := database.Initialize(cfg.DBPath, cfg.DatabaseURL, cfg.DBLogLevel); err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		store = services.NewSQLStore(database.GetDB(), cfg.JWTSecret, cfg.SessionTTL)
	}

	retrier := services.NewRetrier(store, cfg.RetryMaxAttempts, cfg.RetryBaseDelay)

	if email != "" {
		auth := services.NewAuthService(store, retrier, services.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMaxAttempts))
		session, err := auth.SignIn(ctx, models.Credentials{Email: email, Password: password})
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
		ctx = services.WithAccessToken(ctx, session.Token)
		log.Printf("Signed in as %s", session.Email)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	inventory := services.NewInventoryService(store, retrier)
	result, err := inventory.Import(ctx, f)
	for _, skipped := range result.Skipped {
		fmt.Printf("  ⚠ line %d skipped: %s\n", skipped.Line, skipped.Reason)
	}
	fmt.Printf("\nImported %d items, skipped %d rows\n", result.Imported, len(result.Skipped))
	return err
}
