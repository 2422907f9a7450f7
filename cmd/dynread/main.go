// Package main implements the dynread plan inspector. It loads a schema
// definition, computes the projection tree and fetch plan for an entity
// under a selection, and prints both as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/GirishKotra/dynamic-read/metric"
	"github.com/GirishKotra/dynamic-read/plancache"
	"github.com/GirishKotra/dynamic-read/schema"
	"github.com/GirishKotra/dynamic-read/selection"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "dynread"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("dynread failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Printf("%s %s (build %s)\n", appName, Version, BuildTime)
		return nil
	}
	if cfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	if err := validateFlags(cfg); err != nil {
		return err
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	graph, err := loadGraph(cfg.SchemaPath)
	if err != nil {
		return err
	}
	logger.Debug("Loaded schema", "path", cfg.SchemaPath, "entities", graph.Len())

	if cfg.Validate {
		logger.Info("Schema definition is valid",
			"path", cfg.SchemaPath,
			"entities", graph.Len())
		return nil
	}

	registry := metric.NewMetricsRegistry()
	cache, err := plancache.New(plancache.Config{
		Strict:    cfg.Strict,
		RefSuffix: cfg.RefSuffix,
	}, plancache.Deps{
		Graph:    graph,
		Logger:   logger,
		Registry: registry,
	})
	if err != nil {
		return err
	}

	spec, err := selection.Parse(splitList(cfg.Fields), splitList(cfg.Omit))
	if err != nil {
		return err
	}

	entry, err := cache.GetOrCompute(cfg.Entity, spec)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	fmt.Println(string(output))

	if cfg.ShowStats {
		summary := cache.Stats().Summary()
		_, _ = fmt.Fprintf(os.Stderr, "cache: size=%d hits=%d misses=%d hit_ratio=%.2f\n",
			summary.CurrentSize, summary.Hits, summary.Misses, summary.HitRatio)
	}

	if cfg.MetricsPort > 0 {
		return serveMetrics(cfg.MetricsPort, registry, logger)
	}
	return nil
}

func loadGraph(path string) (*schema.Graph, error) {
	def, err := schema.LoadDefinition(path)
	if err != nil {
		return nil, err
	}
	return def.Build()
}

// serveMetrics exposes the Prometheus registry until interrupted, for
// scraping or manual inspection after planning.
func serveMetrics(port int, registry *metric.MetricsRegistry, logger *slog.Logger) error {
	server := metric.NewServer(port, "/metrics", registry)
	if err := server.Start(); err != nil {
		return err
	}
	logger.Info("Serving metrics", "port", port, "path", "/metrics")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(ctx)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
