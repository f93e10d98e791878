// Package retrieval implements the hybrid retrieval core (spec §4.12):
// embed the query, vector-search the chunk index, optionally rerank,
// enrich with one hop of the knowledge graph, and generate a cited
// answer. Adapted from the teacher's retrieval.Engine (vector+FTS+graph
// fusion) onto the spec's simpler, strictly-ordered pipeline.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/worldrag/worldrag/errs"
	"github.com/worldrag/worldrag/graphstore"
	"github.com/worldrag/worldrag/llm"
)

// Config holds the retrieval engine's tunable knobs, mirroring
// worldrag.Config's Retrieval* fields (§6 "Hybrid-retrieval API surface").
type Config struct {
	TopK         int
	RerankTopN   int
	MinRelevance float64
	MaxEntities  int
}

// DefaultConfig mirrors worldrag.DefaultConfig's retrieval defaults.
func DefaultConfig() Config {
	return Config{TopK: 20, RerankTopN: 8, MinRelevance: 0.3, MaxEntities: 30}
}

// structuralRelTypes are excluded from the one-hop KG enrichment walk
// since they describe bookkeeping relationships rather than narrative
// context worth surfacing to the generation step.
var structuralRelTypes = []string{}

// Engine runs the non-streaming and streaming retrieval pipelines.
// Rerank may be nil, in which case step 3 (§4.12) is skipped and the
// vector/FTS score itself is used as the relevance threshold.
type Engine struct {
	Store  *graphstore.Store
	Embed  llm.Provider
	Chat   llm.Provider
	Rerank llm.Provider

	ChatModel   string
	RerankModel string
	Cfg         Config
}

// New builds a retrieval Engine, mirroring the teacher's New(store,
// embedder, chatLLM, cfg) constructor shape.
func New(store *graphstore.Store, embed, chat, rerank llm.Provider, chatModel, rerankModel string, cfg Config) *Engine {
	if cfg.TopK == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{Store: store, Embed: embed, Chat: chat, Rerank: rerank, ChatModel: chatModel, RerankModel: rerankModel, Cfg: cfg}
}

// Source is one surviving chunk surfaced in the answer (§6 "sources[]").
type Source struct {
	ChunkID       int64   `json:"chunk_id"`
	ChapterNumber int     `json:"chapter_number"`
	ChapterTitle  string  `json:"chapter_title"`
	Text          string  `json:"text"`
	Relevance     float64 `json:"relevance"`
}

// QueryOptions configures a single Query/QueryStream call (§6).
type QueryOptions struct {
	TopK           int
	RerankTopN     int
	MinRelevance   float64
	IncludeSources bool
	MaxChapter     *int
}

func (o QueryOptions) withDefaults(cfg Config) QueryOptions {
	if o.TopK == 0 {
		o.TopK = cfg.TopK
	}
	if o.RerankTopN == 0 {
		o.RerankTopN = cfg.RerankTopN
	}
	if o.MinRelevance == 0 {
		o.MinRelevance = cfg.MinRelevance
	}
	return o
}

// QueryResult is the non-streaming response shape (§6).
type QueryResult struct {
	Answer            string                    `json:"answer"`
	Sources           []Source                  `json:"sources,omitempty"`
	RelatedEntities   []graphstore.RelatedEntity `json:"related_entities"`
	ChunksRetrieved   int                       `json:"chunks_retrieved"`
	ChunksAfterRerank int                       `json:"chunks_after_rerank"`
}

const (
	msgNoRelevantContent = "I found no relevant content in this book to answer that question."
	msgNotRelevantEnough = "I found some content, but nothing relevant enough to confidently answer that question."
)

// anti-uncited-claims system prompt (§4.12 step 6), grounded on the
// teacher's reasoning.systemPrompt.
const generationSystemPrompt = `You are a world-building assistant answering questions about a single novel using only the retrieved passages and related entities provided below.
Rules:
1. State only facts directly supported by the provided passages or entity list.
2. Cite the chapter number for every claim (e.g. "(Chapter 12)").
3. If the passages do not contain enough information, say so explicitly rather than guessing.
4. Do not invent plot events, character traits, or relationships not present in the context.
5. Be concise.`

// Query runs the full non-streaming pipeline (§4.12 steps 1-6).
func (e *Engine) Query(ctx context.Context, bookID, query string, opts QueryOptions) (*QueryResult, error) {
	opts = opts.withDefaults(e.Cfg)

	chunks, err := e.retrieveChunks(ctx, bookID, query, opts.TopK, opts.MaxChapter)
	if err != nil {
		return nil, fmt.Errorf("retrieval: retrieving chunks: %w", err)
	}
	if len(chunks) == 0 {
		return &QueryResult{Answer: msgNoRelevantContent}, nil
	}

	reranked, err := e.rerank(ctx, query, chunks, opts.RerankTopN, opts.MinRelevance)
	if err != nil {
		return nil, fmt.Errorf("retrieval: reranking: %w", err)
	}
	if len(reranked) == 0 {
		return &QueryResult{Answer: msgNotRelevantEnough, ChunksRetrieved: len(chunks)}, nil
	}

	entities, err := e.relatedEntities(ctx, bookID, reranked)
	if err != nil {
		return nil, fmt.Errorf("retrieval: fetching related entities: %w", err)
	}

	answer, err := e.generate(ctx, query, reranked, entities)
	if err != nil {
		return nil, fmt.Errorf("retrieval: generating answer: %w", err)
	}

	result := &QueryResult{
		Answer:            answer,
		RelatedEntities:   entities,
		ChunksRetrieved:   len(chunks),
		ChunksAfterRerank: len(reranked),
	}
	if opts.IncludeSources {
		result.Sources = toSources(reranked)
	}
	return result, nil
}

// retrieveChunks runs §4.12 steps 1-2: embed the query, vector-search
// top-K chunks, and fall back to FTS when the vector index returns
// nothing (e.g. before any chapter has been embedded).
func (e *Engine) retrieveChunks(ctx context.Context, bookID, query string, topK int, maxChapter *int) ([]graphstore.RetrievalResult, error) {
	embeddings, err := e.Embed.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("embedding query: %w", errs.ErrDownstreamUnknown)
	}

	chunks, err := e.Store.VectorSearch(ctx, bookID, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(chunks) == 0 {
		chunks, err = e.Store.FTSSearch(ctx, bookID, query, topK)
		if err != nil {
			return nil, fmt.Errorf("fts fallback search: %w", err)
		}
	}
	if maxChapter != nil {
		filtered := chunks[:0]
		for _, c := range chunks {
			if c.ChapterNumber <= *maxChapter {
				filtered = append(filtered, c)
			}
		}
		chunks = filtered
	}
	return chunks, nil
}

// rerankScore is the structured output the rerank LLM call is forced
// into, one relevance score per input chunk index.
type rerankScore struct {
	Scores []float64 `json:"scores"`
}

// rerank implements §4.12 step 3: when a reranker is configured, score
// every candidate chunk for cross-encoder-style relevance and keep the
// top-N above min_relevance; with no reranker, the vector/FTS score
// itself is used as the threshold so the pipeline still degenerates
// correctly into "not relevant enough".
func (e *Engine) rerank(ctx context.Context, query string, chunks []graphstore.RetrievalResult, topN int, minRelevance float64) ([]graphstore.RetrievalResult, error) {
	scores := make([]float64, len(chunks))
	if e.Rerank == nil {
		for i, c := range chunks {
			scores[i] = c.Score
		}
	} else {
		var b strings.Builder
		for i, c := range chunks {
			fmt.Fprintf(&b, "[%d] %s\n\n", i, c.Text)
		}
		var out rerankScore
		req := llm.ChatRequest{
			Model: e.RerankModel,
			Messages: []llm.Message{
				{Role: "system", Content: "Score each numbered passage's relevance to the question on a 0.0-1.0 scale. Respond with JSON {\"scores\": [..]} in passage order."},
				{Role: "user", Content: fmt.Sprintf("Question: %s\n\nPassages:\n%s", query, b.String())},
			},
		}
		if _, err := llm.StructuredChat(ctx, e.Rerank, req, &out); err != nil {
			return nil, fmt.Errorf("rerank call: %w", err)
		}
		for i := range chunks {
			if i < len(out.Scores) {
				scores[i] = out.Scores[i]
			}
		}
	}

	type scored struct {
		chunk graphstore.RetrievalResult
		score float64
	}
	var kept []scored
	for i, c := range chunks {
		if scores[i] >= minRelevance {
			kept = append(kept, scored{chunk: c, score: scores[i]})
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > topN {
		kept = kept[:topN]
	}

	out := make([]graphstore.RetrievalResult, len(kept))
	for i, k := range kept {
		k.chunk.Score = k.score
		out[i] = k.chunk
	}
	return out, nil
}

// relatedEntities implements §4.12 step 4: collect every entity
// mentioned in the surviving chunks' chapters, then expand one hop
// through the relationship graph, bounded to MaxEntities total.
func (e *Engine) relatedEntities(ctx context.Context, bookID string, chunks []graphstore.RetrievalResult) ([]graphstore.RelatedEntity, error) {
	chapterSeen := map[int]bool{}
	var mentionedNames []string
	nameSeen := map[string]bool{}
	for _, c := range chunks {
		if chapterSeen[c.ChapterNumber] {
			continue
		}
		chapterSeen[c.ChapterNumber] = true
		names, err := e.Store.EntitiesMentionedInChapter(ctx, bookID, c.ChapterNumber)
		if err != nil {
			return nil, fmt.Errorf("entities mentioned in chapter %d: %w", c.ChapterNumber, err)
		}
		for _, n := range names {
			if !nameSeen[n] {
				nameSeen[n] = true
				mentionedNames = append(mentionedNames, n)
			}
		}
	}
	if len(mentionedNames) == 0 {
		return nil, nil
	}

	direct, err := e.Store.GetEntitiesByNames(ctx, bookID, mentionedNames, e.Cfg.MaxEntities)
	if err != nil {
		return nil, fmt.Errorf("loading mentioned entities: %w", err)
	}
	if len(direct) >= e.Cfg.MaxEntities {
		return direct[:e.Cfg.MaxEntities], nil
	}

	related, err := e.Store.GetRelatedEntities(ctx, bookID, mentionedNames, structuralRelTypes, e.Cfg.MaxEntities-len(direct))
	if err != nil {
		return nil, fmt.Errorf("expanding related entities: %w", err)
	}

	seen := map[int64]bool{}
	out := make([]graphstore.RelatedEntity, 0, len(direct)+len(related))
	for _, ent := range direct {
		if !seen[ent.ID] {
			seen[ent.ID] = true
			out = append(out, ent)
		}
	}
	for _, ent := range related {
		if !seen[ent.ID] {
			seen[ent.ID] = true
			out = append(out, ent)
		}
	}
	return out, nil
}

// generate implements §4.12 step 5-6: build the labeled-passage prompt
// and call the chat LLM under the anti-uncited-claims system prompt.
func (e *Engine) generate(ctx context.Context, query string, chunks []graphstore.RetrievalResult, entities []graphstore.RelatedEntity) (string, error) {
	prompt := buildPrompt(query, chunks, entities)
	resp, err := e.Chat.Chat(ctx, llm.ChatRequest{
		Model: e.ChatModel,
		Messages: []llm.Message{
			{Role: "system", Content: generationSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("generation call: %w", err)
	}
	return resp.Content, nil
}

func buildPrompt(query string, chunks []graphstore.RetrievalResult, entities []graphstore.RelatedEntity) string {
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "--- Passage %d: Chapter %d \"%s\" (relevance %.2f) ---\n", i+1, c.ChapterNumber, c.ChapterTitle, c.Score)
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	if len(entities) > 0 {
		b.WriteString("Related entities:\n")
		for _, ent := range entities {
			fmt.Fprintf(&b, "- %s (%s): %s\n", ent.Name, ent.EntityType, ent.Description)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}

func toSources(chunks []graphstore.RetrievalResult) []Source {
	out := make([]Source, len(chunks))
	for i, c := range chunks {
		out[i] = Source{ChunkID: c.ChunkID, ChapterNumber: c.ChapterNumber, ChapterTitle: c.ChapterTitle, Text: c.Text, Relevance: c.Score}
	}
	return out
}
