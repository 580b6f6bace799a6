// Package main loads the travel catalog into Qdrant and Neo4j in one
// batch run: embed every item, upsert the vectors, then build the graph
// with its derived relationships.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/embedding"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/graph"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/ingest"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/semantic"
	"github.com/VietVoyageAI/vietvoyage-mvp/pkg/config"
)

func main() {
	var (
		dataFile   = flag.String("data", "", "dataset path (overrides config)")
		recreate   = flag.Bool("recreate", false, "drop and recreate the collection on dimension mismatch")
		clearGraph = flag.Bool("clear-graph", false, "wipe the graph before loading")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := embedding.NewCache(cfg.Embedding.CachePath, logger)
	if err := cache.Load(); err != nil {
		logger.Warn("embedding cache unavailable, starting cold", "error", err)
	}

	embedClient := embedding.NewClient(newProvider(cfg), cache, cfg.Embedding.RatePerSec, logger)

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		logger.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	graphStore, err := graph.New(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		logger.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer graphStore.Close(context.Background())

	path := cfg.Pipeline.DataFile
	if *dataFile != "" {
		path = *dataFile
	}

	runner := ingest.NewRunner(ingest.Deps{
		Embedder: embedClient,
		Vectors:  store,
		Graph:    graphStore,
		Logger:   logger,
	}, ingest.Options{
		DataFile:   path,
		Recreate:   *recreate,
		ClearGraph: *clearGraph,
	})

	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("\nIngest complete.")
	fmt.Printf("  Items:    %d (%d skipped)\n", summary.Items, summary.Skipped)
	fmt.Printf("  Vectors:  %d\n", summary.Vectors)
	fmt.Printf("  Elapsed:  %s\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Println("  Graph:")
	for k, v := range summary.GraphStats {
		fmt.Printf("    %-14s %d\n", k, v)
	}
}

func newProvider(cfg *config.Config) embedding.Provider {
	e := cfg.Embedding
	if e.Provider == "google" {
		return embedding.NewGoogleProvider(e.APIKey, e.BaseURL, e.Model, e.Dimension)
	}
	return embedding.NewOpenAIProvider(e.APIKey, e.BaseURL, e.Model, e.Dimension)
}
