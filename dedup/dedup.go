// Package dedup implements the 3-tier deduplication described in spec
// §4.5: exact normalize, fuzzy ratio, and LLM batch tie-break, operating
// generically over any entity type via a caller-supplied name accessor.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/worldrag/worldrag/llm"
)

// Config holds the tier thresholds (§4.5, §8 boundary behaviors: "Fuzzy
// score exactly 95 auto-merges; exactly 85 becomes a candidate; 84 is
// ignored").
type Config struct {
	FuzzyAutoMergeScore int
	FuzzyCandidateScore int
	LLMConfidence       float64
}

// DefaultConfig mirrors spec §4.5's stated defaults.
func DefaultConfig() Config {
	return Config{FuzzyAutoMergeScore: 95, FuzzyCandidateScore: 85, LLMConfidence: 0.8}
}

var leadingArticles = []string{"the ", "a ", "an ", "le ", "la ", "les ", "un ", "une "}

// normalize implements §4.5 Tier 1: "strip + lowercase + strip leading
// {the, a, an}" (extended with the French equivalents the ontology layer
// already carries elsewhere).
func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, art := range leadingArticles {
		if strings.HasPrefix(n, art) {
			n = strings.TrimPrefix(n, art)
			break
		}
	}
	return strings.TrimSpace(n)
}

// Result is the Tier 1-3 output contract (§4.5 "Output contract"):
// the deduped entity slice plus a single-step alias map from surface name
// to the surviving canonical name.
type Result[T any] struct {
	Entities []T
	AliasMap map[string]string
	Candidates [][2]string // unresolved Tier 2 candidate pairs, for callers without an LLM client
}

// candidatePair is an unresolved Tier-2 pair awaiting Tier 3.
type candidatePair struct {
	a, b       T2Entry
	score      int
}

// T2Entry pairs a surviving entity with its normalized name, threaded
// through Tier 2/3.
type T2Entry struct {
	Name string
	Idx  int
}

// Dedup runs all three tiers over entities, using nameOf to read each
// entity's display name and merge to combine two entities into one
// canonical record (merge should keep the longer/more complete fields).
// llmClient may be nil: "No LLM client configured for Tier 3 dedup: the
// pipeline completes on Tier 1+2 only" (§8).
func Dedup[T any](ctx context.Context, entities []T, nameOf func(T) string,
	merge func(canonical, alias T) T, llmClient llm.Provider, model string, cfg Config) (Result[T], error) {

	// Tier 1: exact normalize.
	type bucket struct {
		canonical T
		idx       int
	}
	buckets := map[string]*bucket{}
	order := []string{}
	aliasMap := map[string]string{}

	for i, e := range entities {
		key := normalize(nameOf(e))
		if key == "" {
			continue
		}
		if b, ok := buckets[key]; ok {
			merged := merge(b.canonical, e)
			b.canonical = merged
			if nameOf(e) != nameOf(merged) {
				aliasMap[nameOf(e)] = nameOf(merged)
			}
		} else {
			buckets[key] = &bucket{canonical: e, idx: i}
			order = append(order, key)
		}
	}

	survivors := make([]T, 0, len(order))
	for _, key := range order {
		survivors = append(survivors, buckets[key].canonical)
	}

	// Tier 2: fuzzy ratio over surviving normalized names.
	var candidates []candidatePair
	merged := map[int]bool{}
	for i := 0; i < len(survivors); i++ {
		if merged[i] {
			continue
		}
		for j := i + 1; j < len(survivors); j++ {
			if merged[j] {
				continue
			}
			score := fuzzyRatio(normalize(nameOf(survivors[i])), normalize(nameOf(survivors[j])))
			if score >= cfg.FuzzyAutoMergeScore {
				canonicalIdx, aliasIdx := i, j
				if len(nameOf(survivors[j])) > len(nameOf(survivors[i])) {
					canonicalIdx, aliasIdx = j, i
				}
				aliasName := nameOf(survivors[aliasIdx])
				survivors[canonicalIdx] = merge(survivors[canonicalIdx], survivors[aliasIdx])
				aliasMap[aliasName] = nameOf(survivors[canonicalIdx])
				merged[aliasIdx] = true
			} else if score >= cfg.FuzzyCandidateScore {
				candidates = append(candidates, candidatePair{
					a:     T2Entry{Name: nameOf(survivors[i]), Idx: i},
					b:     T2Entry{Name: nameOf(survivors[j]), Idx: j},
					score: score,
				})
			}
		}
	}

	final := lo.Filter(survivors, func(_ T, i int) bool { return !merged[i] })

	result := Result[T]{Entities: final, AliasMap: aliasMap}
	for _, c := range candidates {
		if merged[c.a.Idx] || merged[c.b.Idx] {
			continue
		}
		result.Candidates = append(result.Candidates, [2]string{c.a.Name, c.b.Name})
	}

	if len(result.Candidates) == 0 {
		return result, nil
	}

	// Tier 3: LLM batch tie-break.
	if llmClient == nil {
		slog.Warn("dedup: no LLM client configured, leaving Tier 2 candidates unresolved", "count", len(result.Candidates))
		return result, nil
	}

	decisions, err := tier3Resolve(ctx, llmClient, model, result.Candidates)
	if err != nil {
		// On LLM failure, fall back to confidence = score/100. The
		// fallback is only logged; no per-merge reason is recorded on
		// the Result.
		slog.Warn("dedup: tier 3 LLM call failed, falling back to fuzzy score", "error", err)
		for _, c := range candidates {
			conf := float64(c.score) / 100.0
			if conf >= cfg.LLMConfidence {
				applyMerge(&result, nameOf, merge, c.a.Name, c.b.Name, c.a.Name)
			}
		}
		return result, nil
	}

	byPair := map[string]mergeDecision{}
	for _, d := range decisions {
		byPair[pairKey(d.A, d.B)] = d
	}
	for _, c := range candidates {
		d, ok := byPair[pairKey(c.a.Name, c.b.Name)]
		if !ok || d.Confidence < cfg.LLMConfidence {
			continue
		}
		applyMerge(&result, nameOf, merge, c.a.Name, c.b.Name, d.CanonicalName)
	}

	return result, nil
}

func applyMerge[T any](result *Result[T], nameOf func(T) string, merge func(a, b T) T, nameA, nameB, canonicalName string) {
	var aIdx, bIdx = -1, -1
	for i, e := range result.Entities {
		if nameOf(e) == nameA {
			aIdx = i
		}
		if nameOf(e) == nameB {
			bIdx = i
		}
	}
	if aIdx == -1 || bIdx == -1 || aIdx == bIdx {
		return
	}
	canonicalIdx, aliasIdx := aIdx, bIdx
	if nameOf(result.Entities[aIdx]) != canonicalName {
		canonicalIdx, aliasIdx = bIdx, aIdx
	}
	result.Entities[canonicalIdx] = merge(result.Entities[canonicalIdx], result.Entities[aliasIdx])
	aliasName := nameOf(result.Entities[aliasIdx])
	result.Entities = append(result.Entities[:aliasIdx], result.Entities[aliasIdx+1:]...)
	result.AliasMap[aliasName] = canonicalName
}

func pairKey(a, b string) string {
	if a < b {
		return a + "\x00" + b
	}
	return b + "\x00" + a
}

type mergeDecision struct {
	A             string  `json:"a"`
	B             string  `json:"b"`
	Type          string  `json:"type"`
	Confidence    float64 `json:"confidence"`
	CanonicalName string  `json:"canonical_name"`
	Reason        string  `json:"reason"`
}

func tier3Resolve(ctx context.Context, p llm.Provider, model string, pairs [][2]string) ([]mergeDecision, error) {
	var sb strings.Builder
	sb.WriteString("Decide whether each candidate pair refers to the same entity. Pairs:\n")
	for _, pair := range pairs {
		fmt.Fprintf(&sb, "- %q vs %q\n", pair[0], pair[1])
	}
	sb.WriteString("Respond with JSON: {\"decisions\": [{\"a\":..,\"b\":..,\"type\":..,\"confidence\":0..1,\"canonical_name\":..,\"reason\":..}]}")

	req := llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: "You resolve entity-alias candidate pairs for a novel's knowledge graph."},
			{Role: "user", Content: sb.String()},
		},
		Temperature: 0,
	}

	var out struct {
		Decisions []mergeDecision `json:"decisions"`
	}
	if _, err := llm.StructuredChat(ctx, p, req, &out); err != nil {
		return nil, err
	}
	return out.Decisions, nil
}
