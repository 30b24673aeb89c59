package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tendant/content-catalog/pkg/catalog/api"
	"github.com/tendant/content-catalog/pkg/catalog/config"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Build components from configuration
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := cfg.Build(ctx)
	if err != nil {
		log.Fatalf("Failed to build components: %v", err)
	}
	defer comps.Close()

	// Start index-sync workers
	comps.Pipeline.Start(ctx)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: api.NewRouter(comps.Catalog, comps.Discovery),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Content Catalog Server starting on port %s (env: %s)", cfg.Port, cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Create a deadline to wait for
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown server gracefully
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Stop workers and let in-flight jobs finish
	cancel()
	comps.Pipeline.Wait()

	log.Println("Server exiting")
}
