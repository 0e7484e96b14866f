// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command resilience starts the supply chain resilience API server.
//
// The server exposes the risk calculator, scenario planner, disruption
// state, event log, and similarity retrieval as tool-call endpoints:
//
//	go run ./cmd/resilience
//	go run ./cmd/resilience -port 9090 -data-dir /var/lib/resilience
//
// With the Weaviate vector backend (requires OPENAI_API_KEY for the
// embedding collaborator):
//
//	go run ./cmd/resilience -similarity vector -weaviate-host localhost:8080
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8090/v1/resilience/health
//
//	# Inventory runway for the critical MCU
//	curl http://localhost:8090/v1/resilience/inventory/SEMI-MCU-32/runway
//
//	# Revenue at risk for a 16 day delay
//	curl "http://localhost:8090/v1/resilience/risk/revenue-at-risk?supplier_id=SUP-001&delay_days=16"
//
//	# Declare the Suez lane disrupted
//	curl -X POST http://localhost:8090/v1/resilience/state/initiate \
//	  -H "Content-Type: application/json" \
//	  -d '{"lane": "suez_canal", "delay_days": 16, "severity": "High"}'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/AleutianAI/resilience/pkg/logging"
	"github.com/AleutianAI/resilience/services/resilience"
	"github.com/AleutianAI/resilience/services/resilience/embedding"
	"github.com/AleutianAI/resilience/services/resilience/similarity"
	"github.com/AleutianAI/resilience/services/resilience/storage/badger"
)

func main() {
	port := flag.Int("port", 8090, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	dataDir := flag.String("data-dir", "./data/resilience", "Directory for durable state (Badger)")
	inMemory := flag.Bool("in-memory", false, "Keep state in memory only (no persistence)")
	profilePath := flag.String("profile", "", "Override the embedded master data file")
	ledgerPath := flag.String("ledger", "", "Override the embedded inventory ledger")
	plannerPath := flag.String("planner-config", "", "Override the embedded planner configuration")
	backendName := flag.String("similarity", similarity.BackendKeyword, "Similarity backend: keyword or vector")
	weaviateHost := flag.String("weaviate-host", "localhost:8080", "Weaviate host for the vector backend")
	weaviateScheme := flag.String("weaviate-scheme", "http", "Weaviate scheme for the vector backend")
	logDir := flag.String("log-dir", "", "Directory for JSON log files (stderr only when empty)")
	logLevel := flag.String("log-level", "info", "Minimum log level: debug, info, warn, error")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(*logLevel),
		Service: "resilience",
		LogDir:  *logDir,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open the durable store
	storeCfg := badger.DefaultConfig()
	storeCfg.Path = *dataDir
	storeCfg.Logger = logger.Slog()
	if *inMemory {
		storeCfg = badger.InMemoryConfig()
		storeCfg.Logger = logger.Slog()
	}
	db, err := badger.Open(storeCfg)
	if err != nil {
		slog.Error("Failed to open state store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// Wire the optional vector backend collaborators
	var weaviateClient *weaviate.Client
	var embedder embedding.Embedder
	if *backendName == similarity.BackendVector {
		weaviateClient, err = weaviate.NewClient(weaviate.Config{
			Host:   *weaviateHost,
			Scheme: *weaviateScheme,
		})
		if err != nil {
			slog.Error("Failed to create Weaviate client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		embedder, err = embedding.NewOpenAIEmbedder("", "")
		if err != nil {
			slog.Error("Vector backend requires an OpenAI key", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	cfg := resilience.DefaultServiceConfig()
	cfg.ProfilePath = *profilePath
	cfg.LedgerPath = *ledgerPath
	cfg.PlannerPath = *plannerPath
	cfg.SimilarityBackend = *backendName

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := resilience.NewService(ctx, cfg, db, weaviateClient, embedder, logger.Slog())
	cancel()
	if err != nil {
		slog.Error("Failed to start resilience service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers := resilience.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	resilience.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, *backendName)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down resilience server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Forced shutdown", slog.String("error", err.Error()))
		}
	}()

	slog.Info("Starting resilience server",
		slog.String("address", server.Addr),
		slog.String("similarity_backend", *backendName))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(port int, backend string) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                 SUPPLY CHAIN RESILIENCE SERVER                    ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Risk, planning, and disruption memory for supply operations.     ║
║  Similarity backend: %-44s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/resilience/health             │  ║
║  │                                                             │  ║
║  │ # Inventory runway                                          │  ║
║  │ curl http://localhost:%d/v1/resilience/inventory/\        │  ║
║  │   SEMI-MCU-32/runway                                        │  ║
║  │                                                             │  ║
║  │ # Declare a disruption                                      │  ║
║  │ curl -X POST http://localhost:%d/v1/resilience/state/\    │  ║
║  │   initiate -H "Content-Type: application/json" \            │  ║
║  │   -d '{"lane": "suez_canal", "delay_days": 16}'             │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Risk: /inventory/:id/runway, /risk/revenue-at-risk          ║
║  ├── Planner: /scenarios/simulate, /scenarios/rank               ║
║  ├── Events: /events, /events/similar, /events/patterns          ║
║  └── State: /state/initiate, /state/clear, /state                ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, backend, port, port, port)
}
