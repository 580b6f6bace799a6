// Package main implements the interactive travel assistant. Each question
// runs the full hybrid pipeline: embed, vector search, graph enrichment,
// then a chat completion grounded in the retrieved context.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/VietVoyageAI/vietvoyage-mvp/engine/domain"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/embedding"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/graph"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/rag"
	"github.com/VietVoyageAI/vietvoyage-mvp/engine/semantic"
	"github.com/VietVoyageAI/vietvoyage-mvp/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := embedding.NewCache(cfg.Embedding.CachePath, logger)
	if err := cache.Load(); err != nil {
		logger.Warn("embedding cache unavailable, starting cold", "error", err)
	}
	defer cache.Flush()

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

	enricher := graph.NewEnricher(graphStore, cfg.Pipeline.EnrichWorkers, logger)
	chatClient := rag.NewOpenAIChat(cfg.Chat.APIKey, cfg.Chat.BaseURL, cfg.Chat.Model)
	generator := rag.NewGenerator(chatClient, cfg.Chat.MaxTokens, cfg.Chat.Temperature, logger)

	svc := rag.New(embedClient, store, enricher, generator, rag.Options{TopK: cfg.Pipeline.TopK}, logger)
	history := rag.NewHistory(cfg.Pipeline.HistoryTurns)

	runLoop(ctx, svc, history, cfg.Pipeline.HistoryTurns, os.Stdin, os.Stdout)
	fmt.Println("\nGoodbye!")
}

// answerer is the pipeline surface the loop needs.
type answerer interface {
	Query(ctx context.Context, question string, history []domain.Turn) (*rag.Answer, error)
}

// runLoop drives the interactive session. Input is read on its own
// goroutine so an interrupt while blocked at the prompt ends the session
// immediately; a blocked Scan does not observe context cancellation.
func runLoop(ctx context.Context, svc answerer, history *rag.History, historyTurns int, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, "\n--- Vietnam Travel Hybrid Assistant ---")
	fmt.Fprintln(out, "Type 'exit' to quit.")
	fmt.Fprintln(out)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "You: ")

		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = l
		}

		q := strings.TrimSpace(line)
		if q == "" {
			continue
		}
		if strings.EqualFold(q, "exit") || strings.EqualFold(q, "quit") {
			return
		}

		answer, err := svc.Query(ctx, q, history.Recent(historyTurns))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintln(out, "Sorry, I couldn't answer that one:", err)
			continue
		}

		fmt.Fprintln(out, "\nAI:", answer.Text)
		fmt.Fprintln(out)

		history.Append(domain.RoleUser, q)
		history.Append(domain.RoleAssistant, answer.Text)
	}
}

func newProvider(cfg *config.Config) embedding.Provider {
	e := cfg.Embedding
	if e.Provider == "google" {
		return embedding.NewGoogleProvider(e.APIKey, e.BaseURL, e.Model, e.Dimension)
	}
	return embedding.NewOpenAIProvider(e.APIKey, e.BaseURL, e.Model, e.Dimension)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	out := os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = f
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
