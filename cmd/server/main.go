package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sheetforge/sheetforge/internal/infrastructure/config"
	"github.com/sheetforge/sheetforge/internal/server"
)

func main() {
	// Parse flags; flags override environment configuration
	port := flag.String("port", "", "Server port")
	storeDSN := flag.String("store", "", "SQLite DSN (empty for in-memory store)")
	rulesPath := flag.String("rules", "", "YAML rules file")
	entitiesDir := flag.String("entities", "", "Directory of entity seed files")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *storeDSN != "" {
		cfg.Store.DSN = *storeDSN
	}
	if *rulesPath != "" {
		cfg.Seed.RulesPath = *rulesPath
	}
	if *entitiesDir != "" {
		cfg.Seed.EntitiesDir = *entitiesDir
	}

	// Create server
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
