package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/chalkline-data/edufinance.report/internal/api"
	"github.com/chalkline-data/edufinance.report/internal/config"
	"github.com/chalkline-data/edufinance.report/internal/dashboard"
	"github.com/chalkline-data/edufinance.report/internal/db"
	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/session"
	"github.com/chalkline-data/edufinance.report/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	devMode    = flag.Bool("dev", false, "Run in dev mode")
)

func main() {
	flag.Parse()

	cfg := config.EmptyConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			// fall through to the server below
		case "migrate":
			db.RunMigrateCommand(args[1:], cfg.GetDBPath())
			return
		case "ingest":
			db.RunIngestCommand(args[1:], cfg.GetDBPath())
			return
		case "help":
			printUsage()
			return
		default:
			fmt.Printf("Unknown command: %s\n\n", args[0])
			printUsage()
			os.Exit(1)
		}
	}

	serve(cfg)
}

func serve(cfg *config.Config) {
	addr := cfg.GetListenAddr()
	if *listen != "" {
		addr = *listen
	}
	db.DevMode = *devMode || cfg.GetDevMode()

	database, err := db.Open(cfg.GetDriver(), cfg.GetWarehouseDSN())
	if err != nil {
		log.Fatalf("Failed to connect to warehouse: %v", err)
	}
	defer database.Close()
	database.SetCatalogSchema(cfg.GetCatalogSchema())

	// sqlite warehouses are migrated in place; a postgres warehouse is
	// provisioned by the data pipeline and served as found.
	if database.Driver() == "sqlite" {
		migrationsFS, err := db.MigrationsFS()
		if err != nil {
			log.Fatalf("Failed to load migrations: %v", err)
		}
		unserveable, err := database.CheckAndPromptMigrations(migrationsFS)
		if unserveable {
			log.Fatalf("Warehouse schema is not serveable: %v", err)
		}
		if err != nil {
			log.Fatalf("Migration check failed: %v", err)
		}
	}

	exec := db.NewCachedExecutor(database, cfg.GetQueryTTL(), nil)
	warehouse := db.NewWarehouse(exec, database.Driver(), cfg.GetCatalogSchema())
	sessions := session.NewStore(warehouse, cfg.GetMetadataTTL(), nil)

	// Resolve the shared default session up front: a warehouse whose catalog
	// cannot be read at all should fail startup, not the first request.
	res, err := sessions.Resolve(api.DefaultSessionID)
	if err != nil {
		log.Fatalf("Failed to resolve warehouse schema: %v", err)
	}
	log.Printf("Resolved warehouse schema: variant=%s national_baseline=%s", res.Variant, res.Provenance)

	if n := cfg.GetConsistencySample(); n > 0 && res.Variant == metrics.VariantCurated {
		ev, err := metrics.NewEvaluator()
		if err != nil {
			log.Fatalf("Failed to build metric evaluator: %v", err)
		}
		rows, err := warehouse.CheckCuratedConsistency(ev, n)
		if err != nil {
			log.Fatalf("Curated view failed consistency check: %v", err)
		}
		log.Printf("Curated view consistency verified over %d rows", rows)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// expire idle sessions in the background
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.GetMetadataTTL())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessions.PurgeExpired(); n > 0 {
					log.Printf("Purged %d expired sessions", n)
				}
			case <-ctx.Done():
				log.Printf("session purge routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(warehouse, sessions, cfg).ServeMux()
		dashboard.NewHandler(warehouse, sessions, cfg).Attach(mux)
		database.AttachAdminRoutes(mux)

		// CORS - Allow the hosted frontend
		handler := api.LoggingMiddleware(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Session-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300,
		})(mux))

		server := &http.Server{
			Addr:    addr,
			Handler: handler,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("dashboard %s listening on %s", version.Get().Version, addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func printUsage() {
	fmt.Println("Usage: dashboard [flags] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve            Start the dashboard server (default)")
	fmt.Println("  migrate <cmd>    Manage warehouse schema migrations")
	fmt.Println("  ingest <csv>     Import a states_all CSV into the warehouse")
	fmt.Println("  help             Show this help")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	db.PrintMigrateHelp()
}
