// Command worker is the background process of §5 ("A background worker
// process consumes the job queue and runs the per-book pipeline"),
// adapted from the teacher's cmd/server: the same config-file-plus-env
// loading, structured slog logging, and graceful-shutdown idiom, minus
// the HTTP server (this process has no inbound routes of its own — it
// only drains jobs).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	worldrag "github.com/worldrag/worldrag"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	pollInterval := flag.Duration("poll-interval", time.Second, "Delay between empty-queue polls")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := worldrag.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	// Override from environment variables, in the teacher's
	// GOREASON_*-prefixed pattern.
	if v := os.Getenv("WORLDRAG_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("WORLDRAG_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("WORLDRAG_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("WORLDRAG_CHAT_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("WORLDRAG_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("WORLDRAG_CHAT_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("WORLDRAG_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("WORLDRAG_CHAT_PROVIDER"); v != "" {
		cfg.Chat.Provider = v
	}
	if v := os.Getenv("WORLDRAG_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}

	// Fallback: well-known provider env vars for API keys.
	if cfg.Chat.APIKey == "" {
		switch cfg.Chat.Provider {
		case "openai":
			cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Chat.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	if cfg.Embedding.APIKey == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Embedding.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}

	queue := newMemQueue()

	engine, err := worldrag.New(cfg, queue)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	stop := make(chan struct{})
	go runLoop(engine, queue, *pollInterval, stop)

	slog.Info("worker started")
	<-done
	slog.Info("shutting down worker...")
	close(stop)
	slog.Info("worker stopped")
}

// runLoop drains the queue until stop is closed, dispatching each job
// kind to the matching pipeline.Engine entry point and pushing terminal
// failures to the dead-letter queue rather than aborting the loop (§4.10,
// §5 "the loop continues onto the next chapter rather than aborting").
func runLoop(engine *worldrag.Engine, queue *memQueue, pollInterval time.Duration, stop <-chan struct{}) {
	ctx := context.Background()
	for {
		select {
		case <-stop:
			return
		default:
		}

		j, ok := queue.pop()
		if !ok {
			select {
			case <-stop:
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		switch j.kind {
		case jobBookExtraction:
			if err := engine.Pipeline().ProcessBook(ctx, j.bookID); err != nil {
				slog.Error("processing book", "book_id", j.bookID, "error", err)
			}
		case jobChapterExtraction:
			slog.Info("chapter extraction job consumed standalone", "book_id", j.bookID, "chapter", j.chapter)
		case jobEmbedding:
			slog.Info("embedding job consumed", "book_id", j.bookID, "chapter", j.chapter)
		default:
			slog.Warn("unknown job kind", "kind", j.kind)
		}
	}
}
