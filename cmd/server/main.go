/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave quota engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Create quota engine and API handler
  4. Configure HTTP router
  5. Start rollover scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: leave.db)
                   Use ":memory:" for in-memory database
  -sweep-interval  Rollover sweep interval (default: 1h)
  -no-scheduler    Disable the background rollover sweep

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the rollover scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port, sweep every ten minutes
  ./server -port=3000 -sweep-interval=10m

ENVIRONMENT:
  No environment variables currently. All config via flags.

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Rollover scheduler
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sunthorn/leave-engine/api"
	"github.com/sunthorn/leave-engine/quota"
	"github.com/sunthorn/leave-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	sweepInterval := flag.Duration("sweep-interval", time.Hour, "Rollover sweep interval")
	noScheduler := flag.Bool("no-scheduler", false, "Disable the background rollover sweep")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize engine and handler
	engine := quota.NewEngine(store)
	handler := api.NewHandler(engine)

	// Create router
	router := api.NewRouter(handler)

	// Start the background rollover sweep
	scheduler := api.NewRolloverScheduler(engine)
	scheduler.CheckInterval = *sweepInterval
	scheduler.Enabled = !*noScheduler
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
