// cmd/server/main.go
package main

import (
	"os"
	"time"

	"github.com/quasarhq/quasar-backend/api"
	"github.com/quasarhq/quasar-backend/config"
	"github.com/quasarhq/quasar-backend/internal/cleanup"
	"github.com/quasarhq/quasar-backend/internal/logger"
	"github.com/quasarhq/quasar-backend/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting Quasar Backend server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// 2. Initialize Backing Store
	store, err := storage.Connect(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	defer func() {
		customLog.Println("Closing database connection...")
		if err := store.DB.Close(); err != nil {
			customLog.Printf("Error closing database: %v", err)
		}
	}()

	// 3. Start the deferred cleanup worker
	queue := cleanup.NewQueue(64, 30*time.Second)
	defer queue.Close()

	// 4. Setup Router (passing dependencies)
	router := api.SetupRouter(store, cfg, queue)

	// 5. Start Server
	customLog.Printf("Server listening on %s", cfg.ServerPort)
	if err := router.Run(cfg.ServerPort); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
