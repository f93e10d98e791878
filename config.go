package worldrag

// Config is the single flat configuration struct, in the teacher's pattern
// (config.go: one struct, JSON/YAML tags, a DefaultConfig constructor),
// extended with the knobs SPEC_FULL.md's ambient/domain stack need: cost
// ceilings, dedup thresholds, router thresholds, circuit breaker knobs,
// retry profiles, ontology layer paths, and retrieval weights.
type Config struct {
	DBPath string `json:"db_path" yaml:"db_path"`

	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`
	Rerank    LLMConfig `json:"rerank" yaml:"rerank"`

	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// Router thresholds (§4.2).
	ShortChapterChars  int `json:"short_chapter_chars" yaml:"short_chapter_chars"`
	SystemsKeywordMin  int `json:"systems_keyword_min" yaml:"systems_keyword_min"`
	EventsKeywordMin   int `json:"events_keyword_min" yaml:"events_keyword_min"`
	LoreKeywordMin     int `json:"lore_keyword_min" yaml:"lore_keyword_min"`
	SystemsGenreMinHit int `json:"systems_genre_min_hit" yaml:"systems_genre_min_hit"`

	// Dedup thresholds (§4.5).
	FuzzyAutoMergeScore int     `json:"fuzzy_auto_merge_score" yaml:"fuzzy_auto_merge_score"`
	FuzzyCandidateScore int     `json:"fuzzy_candidate_score" yaml:"fuzzy_candidate_score"`
	LLMMergeConfidence  float64 `json:"llm_merge_confidence" yaml:"llm_merge_confidence"`

	// Cost ceilings (§6).
	CeilingPerChapterUSD float64 `json:"ceiling_per_chapter_usd" yaml:"ceiling_per_chapter_usd"`
	CeilingPerBookUSD    float64 `json:"ceiling_per_book_usd" yaml:"ceiling_per_book_usd"`

	// Circuit breaker (§4.10).
	BreakerFailureThreshold int     `json:"breaker_failure_threshold" yaml:"breaker_failure_threshold"`
	BreakerRecoveryTimeoutS float64 `json:"breaker_recovery_timeout_s" yaml:"breaker_recovery_timeout_s"`
	BreakerHalfOpenMaxCalls int     `json:"breaker_half_open_max_calls" yaml:"breaker_half_open_max_calls"`

	// Retry profiles (§4.10).
	LLMRetryAttempts    int     `json:"llm_retry_attempts" yaml:"llm_retry_attempts"`
	LLMRetryInitialS    float64 `json:"llm_retry_initial_s" yaml:"llm_retry_initial_s"`
	LLMRetryCapS        float64 `json:"llm_retry_cap_s" yaml:"llm_retry_cap_s"`
	LLMRetryJitterS     float64 `json:"llm_retry_jitter_s" yaml:"llm_retry_jitter_s"`
	GraphRetryAttempts  int     `json:"graph_retry_attempts" yaml:"graph_retry_attempts"`
	GraphRetryInitialS  float64 `json:"graph_retry_initial_s" yaml:"graph_retry_initial_s"`
	GraphRetryCapS      float64 `json:"graph_retry_cap_s" yaml:"graph_retry_cap_s"`
	GraphRetryJitterS   float64 `json:"graph_retry_jitter_s" yaml:"graph_retry_jitter_s"`

	// Retrieval (§4.12).
	RetrievalTopK         int     `json:"retrieval_top_k" yaml:"retrieval_top_k"`
	RetrievalRerankTopN   int     `json:"retrieval_rerank_top_n" yaml:"retrieval_rerank_top_n"`
	RetrievalMinRelevance float64 `json:"retrieval_min_relevance" yaml:"retrieval_min_relevance"`
	RetrievalMaxEntities  int     `json:"retrieval_max_entities" yaml:"retrieval_max_entities"`

	// Ontology (§9 "layer source visible").
	OntologySeriesPatternsPath string `json:"ontology_series_patterns_path" yaml:"ontology_series_patterns_path"`

	// Pipeline concurrency (§5, §9 "idiomatic concurrency primitive").
	PassConcurrency int `json:"pass_concurrency" yaml:"pass_concurrency"`
}

// LLMConfig names one provider/model pairing, mirroring the teacher's
// LLMConfig shape (config.go).
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns the teacher's concrete-defaults pattern extended
// with every SPEC_FULL.md knob at its spec-stated default.
func DefaultConfig() Config {
	return Config{
		DBPath: "worldrag.db",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		EmbeddingDim: 768,

		ShortChapterChars:  2000,
		SystemsKeywordMin:  2,
		EventsKeywordMin:   2,
		LoreKeywordMin:     3,
		SystemsGenreMinHit: 1,

		FuzzyAutoMergeScore: 95,
		FuzzyCandidateScore: 85,
		LLMMergeConfidence:  0.8,

		CeilingPerChapterUSD: 0.50,
		CeilingPerBookUSD:    50.00,

		BreakerFailureThreshold: 3,
		BreakerRecoveryTimeoutS: 60,
		BreakerHalfOpenMaxCalls: 2,

		LLMRetryAttempts:   3,
		LLMRetryInitialS:   1,
		LLMRetryCapS:       30,
		LLMRetryJitterS:    5,
		GraphRetryAttempts: 4,
		GraphRetryInitialS: 0.2,
		GraphRetryCapS:     10,
		GraphRetryJitterS:  2,

		RetrievalTopK:         20,
		RetrievalRerankTopN:   8,
		RetrievalMinRelevance: 0.3,
		RetrievalMaxEntities:  30,

		PassConcurrency: 5,
	}
}
