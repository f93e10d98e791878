// Package pipeline implements the extraction graph orchestrator (spec
// §2, §4.1-§4.9, §5): the per-chapter DAG (regex → router → parallel
// passes → merge → reconcile → filter → write → mentions → registry
// update) and the book-level sequential chapter loop, grounded in the
// teacher's cmd/server wiring and its use of errgroup for fan-out.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/worldrag/worldrag/dedup"
	"github.com/worldrag/worldrag/errs"
	"github.com/worldrag/worldrag/extract"
	"github.com/worldrag/worldrag/graphstore"
	"github.com/worldrag/worldrag/ledger"
	"github.com/worldrag/worldrag/llm"
	"github.com/worldrag/worldrag/mention"
	"github.com/worldrag/worldrag/ontology"
	"github.com/worldrag/worldrag/paragraph"
	"github.com/worldrag/worldrag/quality"
	"github.com/worldrag/worldrag/reconcile"
	"github.com/worldrag/worldrag/regexpre"
	"github.com/worldrag/worldrag/resilience"
	"github.com/worldrag/worldrag/router"
)

// JobQueue is the narrow interface the book-level loop uses to trigger
// the out-of-scope embedding job once extraction finishes a chapter
// (§1 Non-goals "the concrete job-queue broker").
type JobQueue interface {
	EnqueueEmbedding(bookID string, chapterNumber int) error
}

// Engine wires every package into the chapter/book processing graph
// (§2's Mermaid flow), the counterpart to the teacher's cmd/server main
// wiring collapsed into one struct for testability.
type Engine struct {
	Store     *graphstore.Store
	Chat      llm.Provider
	Embed     llm.Provider
	Breaker   *resilience.CircuitBreaker
	Cost      *resilience.CostTracker
	DLQ       *resilience.DeadLetterQueue
	Extractor *regexpre.Extractor
	Queue     JobQueue

	ChatModel      string
	Thresholds     router.Thresholds
	DedupCfg       dedup.Config
	Genre          string
	SeriesTypeName string // empty disables the series pass
	MaxChapterAttempts int
}

// NewEngine assembles an Engine from its collaborators, mirroring the
// teacher's explicit-dependency-injection constructor shape.
func NewEngine(store *graphstore.Store, chat, embed llm.Provider, breaker *resilience.CircuitBreaker,
	cost *resilience.CostTracker, dlq *resilience.DeadLetterQueue, queue JobQueue, extraPatterns ...ontology.Pattern) *Engine {

	return &Engine{
		Store:              store,
		Chat:               chat,
		Embed:              embed,
		Breaker:            breaker,
		Cost:               cost,
		DLQ:                dlq,
		Extractor:          regexpre.NewExtractor(extraPatterns...),
		Queue:              queue,
		Thresholds:         router.DefaultThresholds(),
		DedupCfg:           dedup.DefaultConfig(),
		MaxChapterAttempts: 3,
	}
}

// passByName dispatches the router's pass-name strings onto concrete
// extract.Pass values, avoiding a type switch per call site (mirrors the
// descriptor-table dispatch pattern used in ledger).
var passByName = map[string]extract.Pass{
	router.PassCharacters: extract.CharactersPass{},
	router.PassSystems:    extract.SystemsPass{},
	router.PassEvents:     extract.EventsPass{},
	router.PassLore:       extract.LorePass{},
	router.PassSeries:     extract.SeriesPass{},
}

// runPass wraps one extract.Pass.Run call in a resilience.GuardedProvider
// scoped to (bookID, chapter, pass name) so the pass's LLM call is
// ceiling-checked, circuit-breaker-guarded, retried, and cost-recorded by
// the guard itself (§4.10, §9: ceilings are checked "before every LLM
// call charged against a (book, chapter) pair", not just once per
// chapter).
func (e *Engine) runPass(ctx context.Context, p extract.Pass, in extract.Input, bookID string, chapter int) (any, []extract.GroundedEntity, error) {
	guarded := resilience.NewGuardedProvider(e.Chat, e.Breaker, e.Cost, p.Name(), bookID, chapter)
	out, grounded, err := p.Run(ctx, guarded, e.ChatModel, in)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: pass %s: %w", p.Name(), err)
	}
	return out, grounded, nil
}

// ProcessChapter runs the full per-chapter DAG (§2, §4.1-§4.9): regex
// pre-extraction, routing, the selected passes fanned out concurrently
// via errgroup, merge, reconciliation, quality filtering, and the write
// of entities/StateChanges/mentions, finishing with a registry update.
// The write is not transactional: each upsert/insert is its own
// statement, so a failure partway leaves the earlier rows written.
// Passes are independent: one pass's failure is
// captured in PassErrors and does not fail the others (§4.3).
func (e *Engine) ProcessChapter(ctx context.Context, bookID string, chapterNumber int, registry *reconcile.EntityRegistry) (*extract.ChapterExtractionResult, []reconcile.Conflict, error) {
	if !e.Cost.CheckChapterCeiling(bookID, chapterNumber) {
		return nil, nil, fmt.Errorf("pipeline: chapter %d of book %s: %w", chapterNumber, bookID, errs.ErrCostCeilingExceeded)
	}

	chapter, err := e.Store.GetChapter(ctx, bookID, chapterNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: loading chapter: %w", err)
	}
	if chapter.Text == "" {
		return nil, nil, fmt.Errorf("pipeline: chapter %d: %w", chapterNumber, errs.ErrEmptyChapterText)
	}

	batchID := uuid.NewString()
	if err := e.Store.UpdateChapterStatus(ctx, bookID, chapterNumber, "processing"); err != nil {
		return nil, nil, fmt.Errorf("pipeline: marking chapter processing: %w", err)
	}

	matches := e.Extractor.Extract(chapter.Text, chapterNumber)
	passNames := router.Route(chapter.Text, e.Genre, matches, e.Thresholds)

	in := extract.Input{
		ChapterText:     chapter.Text,
		RegistrySummary: registry.Summary(30),
		RegexMatches:    matches,
		SeriesTypeName:  e.SeriesTypeName,
	}

	results := make(map[string]any, len(passNames))
	var passErrors []extract.PassResult

	g, gctx := errgroup.WithContext(ctx)
	type outcome struct {
		name   string
		result any
		err    error
	}
	outcomes := make(chan outcome, len(passNames))
	for _, name := range passNames {
		p, ok := passByName[name]
		if !ok || (name == router.PassSeries && e.SeriesTypeName == "") {
			continue
		}
		name, p := name, p
		g.Go(func() error {
			res, _, err := e.runPass(gctx, p, in, bookID, chapterNumber)
			outcomes <- outcome{name: name, result: res, err: err}
			return nil // per-pass errors never fail the group (§4.3)
		})
	}
	_ = g.Wait()
	close(outcomes)
	for o := range outcomes {
		if o.err != nil {
			passErrors = append(passErrors, extract.PassResult{PassName: o.name, Err: o.err})
			continue
		}
		results[o.name] = o.result
	}

	var characters extract.CharactersResult
	if v, ok := results[router.PassCharacters].(extract.CharactersResult); ok {
		characters = v
	}
	var systems extract.SystemsResult
	if v, ok := results[router.PassSystems].(extract.SystemsResult); ok {
		systems = v
	}
	var events extract.EventsResult
	if v, ok := results[router.PassEvents].(extract.EventsResult); ok {
		events = v
	}
	var lore extract.LoreResult
	if v, ok := results[router.PassLore].(extract.LoreResult); ok {
		lore = v
	}
	var series *extract.SeriesResult
	if v, ok := results[router.PassSeries].(extract.SeriesResult); ok {
		series = &v
	}

	merged := extract.Merge(bookID, chapterNumber, characters, systems, events, lore, series, passErrors)

	guardedReconcileChat := resilience.NewGuardedProvider(e.Chat, e.Breaker, e.Cost, "reconcile", bookID, chapterNumber)
	rc := reconcile.New(guardedReconcileChat, e.ChatModel, e.DedupCfg)
	conflicts, err := rc.Reconcile(ctx, merged, registry)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: reconciling chapter %d: %w", chapterNumber, err)
	}

	quality.Filter(merged)
	merged.TotalCostUSD = e.Cost.TotalForChapter(bookID, chapterNumber)

	if err := e.writeChapterResult(ctx, bookID, chapterNumber, merged, batchID); err != nil {
		return nil, nil, fmt.Errorf("pipeline: writing chapter %d: %w", chapterNumber, err)
	}

	if err := e.writeMentions(ctx, bookID, chapterNumber, merged, merged.GroundedEntities); err != nil {
		return nil, nil, fmt.Errorf("pipeline: writing mentions for chapter %d: %w", chapterNumber, err)
	}

	updateRegistry(registry, merged, chapterNumber)
	registryJSON, err := registry.ToJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: serializing registry: %w", err)
	}
	if err := e.Store.UpdateBookRegistry(ctx, bookID, string(registryJSON)); err != nil {
		return nil, nil, fmt.Errorf("pipeline: persisting registry: %w", err)
	}

	status := "extracted"
	if len(passErrors) > 0 {
		status = "partial"
	}
	if err := e.Store.UpdateChapterStatus(ctx, bookID, chapterNumber, status); err != nil {
		return nil, nil, fmt.Errorf("pipeline: marking chapter %s: %w", status, err)
	}

	return merged, conflicts, nil
}

// updateRegistry folds a chapter's surviving characters into the running
// registry (§4.6 "the registry grows monotonically across chapters").
func updateRegistry(registry *reconcile.EntityRegistry, r *extract.ChapterExtractionResult, chapter int) {
	for _, c := range r.Characters.Characters {
		existing, ok := registry.Lookup(c.CanonicalName)
		first := chapter
		if ok {
			first = existing.FirstSeenChapter
		}
		registry.Upsert(c.CanonicalName, reconcile.RegistryEntity{
			CanonicalName:    c.CanonicalName,
			EntityType:       "Character",
			Aliases:          c.Aliases,
			FirstSeenChapter: first,
			LastSeenChapter:  chapter,
			Description:      c.Description,
		})
	}
}

// paragraphsAndScenes exposes paragraph segmentation for the mention
// coreference pass, kept as a small helper so ProcessChapter stays
// readable.
func paragraphsAndScenes(text string) ([]paragraph.Paragraph, []int) {
	paras := paragraph.Segment(text)
	return paras, paragraph.SceneBoundaries(paras)
}

// mentionEntities mirrors mention.KnownEntity derivation from the merged
// extraction result, used by writeMentions.
func mentionEntities(r *extract.ChapterExtractionResult) []mention.KnownEntity {
	var out []mention.KnownEntity
	for _, c := range r.Characters.Characters {
		out = append(out, mention.KnownEntity{Key: c.CanonicalName, Name: c.CanonicalName})
		for _, a := range c.Aliases {
			out = append(out, mention.KnownEntity{Key: c.CanonicalName, Name: a, IsAlias: true})
		}
	}
	for _, s := range r.Systems.Skills {
		out = append(out, mention.KnownEntity{Key: s.Name, Name: s.Name})
	}
	for _, loc := range r.Lore.Locations {
		out = append(out, mention.KnownEntity{Key: loc.Name, Name: loc.Name})
	}
	return out
}
