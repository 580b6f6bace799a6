// Package main checks connectivity to every external collaborator: the
// embedding provider, Qdrant, Neo4j and the chat provider. Exit status is
// non-zero when any check fails.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/embedding"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/graph"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/rag"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/semantic"
	"github.com/VietVoyageAI/vietvoyage-mvp/pkg/config"
)

const checkTimeout = 15 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	ok := true
	ok = report("config", func(context.Context) error { return cfg.Validate() }) && ok
	ok = report("embeddings", func(ctx context.Context) error { return checkEmbeddings(ctx, cfg, logger) }) && ok
	ok = report("qdrant", func(ctx context.Context) error { return checkQdrant(ctx, cfg) }) && ok
	ok = report("neo4j", func(ctx context.Context) error { return checkNeo4j(ctx, cfg) }) && ok
	ok = report("chat", func(ctx context.Context) error { return checkChat(ctx, cfg) }) && ok

	if !ok {
		os.Exit(1)
	}
}

func report(name string, check func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	if err := check(ctx); err != nil {
		fmt.Printf("FAIL  %-12s %v\n", name, err)
		return false
	}
	fmt.Printf("ok    %s\n", name)
	return true
}

func checkEmbeddings(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	e := cfg.Embedding
	var provider embedding.Provider
	if e.Provider == "google" {
		provider = embedding.NewGoogleProvider(e.APIKey, e.BaseURL, e.Model, e.Dimension)
	} else {
		provider = embedding.NewOpenAIProvider(e.APIKey, e.BaseURL, e.Model, e.Dimension)
	}

	client := embedding.NewClient(provider, embedding.NewCache("", logger), e.RatePerSec, logger)
	vec, err := client.Embed(ctx, "test connection")
	if err != nil {
		return err
	}
	if len(vec) != e.Dimension {
		return fmt.Errorf("got %d dims, want %d", len(vec), e.Dimension)
	}
	return nil
}

func checkQdrant(ctx context.Context, cfg *config.Config) error {
	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Ping(ctx)
}

func checkNeo4j(ctx context.Context, cfg *config.Config) error {
	store, err := graph.New(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())
	return store.VerifyConnectivity(ctx)
}

func checkChat(ctx context.Context, cfg *config.Config) error {
	client := rag.NewOpenAIChat(cfg.Chat.APIKey, cfg.Chat.BaseURL, cfg.Chat.Model)
	_, err := client.Complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "test"},
	}, 5, 0)
	return err
}
