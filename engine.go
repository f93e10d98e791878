package worldrag

import (
	"fmt"
	"time"

	"github.com/worldrag/worldrag/graphstore"
	"github.com/worldrag/worldrag/llm"
	"github.com/worldrag/worldrag/ontology"
	"github.com/worldrag/worldrag/pipeline"
	"github.com/worldrag/worldrag/resilience"
	"github.com/worldrag/worldrag/retrieval"
	"github.com/worldrag/worldrag/router"
)

// Engine wires every package into one process, mirroring the teacher's
// goreason.New(cfg): open the store, build both LLM providers, assemble
// the resilience collaborators, and hand them to pipeline.Engine and
// retrieval.Engine.
type Engine struct {
	cfg       Config
	store     *graphstore.Store
	pipeline  *pipeline.Engine
	retriever *retrieval.Engine
}

// New builds an Engine from a Config, opening the sqlite-vec+FTS5 store
// and the configured LLM providers.
func New(cfg Config, queue pipeline.JobQueue, extraPatterns ...ontology.Pattern) (*Engine, error) {
	store, err := graphstore.New(cfg.DBPath, cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("worldrag: opening store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Chat.Provider, Model: cfg.Chat.Model, BaseURL: cfg.Chat.BaseURL, APIKey: cfg.Chat.APIKey,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("worldrag: creating chat provider: %w", err)
	}

	embedLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Embedding.Provider, Model: cfg.Embedding.Model, BaseURL: cfg.Embedding.BaseURL, APIKey: cfg.Embedding.APIKey,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("worldrag: creating embedding provider: %w", err)
	}

	var rerankLLM llm.Provider
	if cfg.Rerank.Provider != "" {
		rerankLLM, err = llm.NewProvider(llm.Config{
			Provider: cfg.Rerank.Provider, Model: cfg.Rerank.Model, BaseURL: cfg.Rerank.BaseURL, APIKey: cfg.Rerank.APIKey,
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("worldrag: creating rerank provider: %w", err)
		}
	}

	breaker := resilience.NewCircuitBreaker(cfg.BreakerFailureThreshold,
		time.Duration(cfg.BreakerRecoveryTimeoutS*float64(time.Second)), cfg.BreakerHalfOpenMaxCalls)
	cost := resilience.NewCostTracker(defaultPriceTable(), cfg.CeilingPerChapterUSD, cfg.CeilingPerBookUSD)
	dlq := resilience.NewDeadLetterQueue(queueDispatcher{queue})

	pipelineEngine := pipeline.NewEngine(store, chatLLM, embedLLM, breaker, cost, dlq, queue, extraPatterns...)
	pipelineEngine.ChatModel = cfg.Chat.Model
	pipelineEngine.Thresholds = router.Thresholds{
		ShortChapterChars:  cfg.ShortChapterChars,
		SystemsKeywordMin:  cfg.SystemsKeywordMin,
		EventsKeywordMin:   cfg.EventsKeywordMin,
		LoreKeywordMin:     cfg.LoreKeywordMin,
		SystemsGenreMinHit: cfg.SystemsGenreMinHit,
	}

	retriever := retrieval.New(store, embedLLM, chatLLM, rerankLLM, cfg.Chat.Model, cfg.Rerank.Model, retrieval.Config{
		TopK:         cfg.RetrievalTopK,
		RerankTopN:   cfg.RetrievalRerankTopN,
		MinRelevance: cfg.RetrievalMinRelevance,
		MaxEntities:  cfg.RetrievalMaxEntities,
	})

	return &Engine{cfg: cfg, store: store, pipeline: pipelineEngine, retriever: retriever}, nil
}

// Pipeline exposes the extraction orchestrator (§2, §4.1-§4.9).
func (e *Engine) Pipeline() *pipeline.Engine { return e.pipeline }

// Retrieval exposes the hybrid retrieval core (§4.12).
func (e *Engine) Retrieval() *retrieval.Engine { return e.retriever }

// Store exposes the underlying graph store for diagnostic access,
// mirroring the teacher's Engine.Store() accessor.
func (e *Engine) Store() *graphstore.Store { return e.store }

// Close cleanly shuts down the engine's store connection.
func (e *Engine) Close() error { return e.store.Close() }

// queueDispatcher adapts pipeline.JobQueue to resilience.JobDispatcher
// for DLQ retry/retry-all, forwarding to the queue's own extraction
// methods when it implements resilience.JobDispatcher and returning an
// error otherwise (§6 "Job queue contract").
type queueDispatcher struct {
	queue pipeline.JobQueue
}

func (d queueDispatcher) EnqueueChapterExtraction(bookID string, chapter int) error {
	if jd, ok := d.queue.(resilience.JobDispatcher); ok {
		return jd.EnqueueChapterExtraction(bookID, chapter)
	}
	return fmt.Errorf("worldrag: job queue cannot enqueue chapter extraction for book %s", bookID)
}

func (d queueDispatcher) EnqueueBookExtraction(bookID string) error {
	if jd, ok := d.queue.(resilience.JobDispatcher); ok {
		return jd.EnqueueBookExtraction(bookID)
	}
	return fmt.Errorf("worldrag: job queue cannot enqueue book extraction for book %s", bookID)
}

// defaultPriceTable prices a handful of common chat/embedding model
// families with a conservative fallback (§6 "provider price table").
func defaultPriceTable() *resilience.PriceTable {
	return resilience.NewPriceTable(map[string][2]float64{
		"gpt-4o":         {2.50, 10.00},
		"gpt-4o-mini":    {0.15, 0.60},
		"claude-3-5":     {3.00, 15.00},
		"llama3.1":       {0.00, 0.00},
		"nomic-embed":    {0.01, 0.00},
	}, [2]float64{5.00, 15.00})
}
