// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command collab starts the AleutianCollab session server.
//
// This is the main entry point for the containerized collab service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - COLLAB_PORT: HTTP server port (default: 12240)
//   - COLLAB_ARCHIVE_PATH: Session archive directory (default: ./data/collab-archive)
//   - COLLAB_REAPER_INTERVAL: Sweep interval for ended sessions, Go duration (default: 1m)
//   - COLLAB_ENABLE_TRACING: "true" enables OTLP trace export (default: false)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: aleutian-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o collab ./cmd/collab
//
//	# Run
//	./collab
//
//	# Or via container
//	podman-compose up collab
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianCollab/services/collab"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := collab.Config{
		Port:           getEnvInt("COLLAB_PORT", 12240),
		ArchivePath:    getEnvString("COLLAB_ARCHIVE_PATH", "./data/collab-archive"),
		ReaperInterval: getEnvDuration("COLLAB_REAPER_INTERVAL", time.Minute),
		EnableTracing:  os.Getenv("COLLAB_ENABLE_TRACING") == "true",
		OTelEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "aleutian-otel-collector:4317"),
	}

	slog.Info("Starting collab service",
		"port", cfg.Port,
		"archive_path", cfg.ArchivePath,
		"reaper_interval", cfg.ReaperInterval.String(),
	)

	// Create the service with default (no-op) extension options
	// Enterprise builds will pass custom ServiceOptions here
	svc, err := collab.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create collab service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Collab service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", value)
	}
	return defaultValue
}
