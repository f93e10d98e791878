package resilience

import (
	"context"
	"fmt"

	"github.com/worldrag/worldrag/errs"
	"github.com/worldrag/worldrag/llm"
)

// GuardedProvider wraps an llm.Provider so that every Chat call made
// through it is cost-ceiling-checked, circuit-breaker-guarded, retried,
// and cost-recorded (§4.10, §6, §9: a faithful implementation checks the
// cost ceilings "before every LLM call charged against a (book, chapter)
// pair" — not just once at the top of the chapter). pipeline.Engine wraps
// e.Chat in one of these, scoped to the chapter being processed, before
// handing it to the extraction passes and the reconciler, so Tier-3 dedup
// and reconciliation LLM calls go through the identical resilience path
// as extraction instead of bypassing it.
type GuardedProvider struct {
	Inner     llm.Provider
	Breaker   *CircuitBreaker
	Cost      *CostTracker
	Operation string
	BookID    string
	Chapter   int
}

// NewGuardedProvider builds a GuardedProvider scoped to one (book,
// chapter, operation) triple.
func NewGuardedProvider(inner llm.Provider, breaker *CircuitBreaker, cost *CostTracker, operation, bookID string, chapter int) *GuardedProvider {
	return &GuardedProvider{Inner: inner, Breaker: breaker, Cost: cost, Operation: operation, BookID: bookID, Chapter: chapter}
}

// Chat checks both the chapter and book cost ceilings, runs the call
// through the circuit breaker and the LLM retry profile, and records the
// resulting cost on success (§4.10 "Records every LLM call").
func (g *GuardedProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if !g.Cost.CheckChapterCeiling(g.BookID, g.Chapter) {
		return nil, fmt.Errorf("resilience: chapter %d of book %s: %w", g.Chapter, g.BookID, errs.ErrCostCeilingExceeded)
	}
	if !g.Cost.CheckBookCeiling(g.BookID) {
		return nil, fmt.Errorf("resilience: book %s: %w", g.BookID, errs.ErrCostCeilingExceeded)
	}

	var resp *llm.ChatResponse
	callErr := g.Breaker.Call(func() error {
		_, err := Retry(ctx, LLMRetryProfile(), DefaultIsTransient, func(ctx context.Context) (struct{}, error) {
			var runErr error
			resp, runErr = g.Inner.Chat(ctx, req)
			return struct{}{}, runErr
		})
		return err
	})
	if callErr != nil {
		return nil, fmt.Errorf("resilience: guarded chat call (%s): %w", g.Operation, callErr)
	}

	inputChars := 0
	for _, m := range req.Messages {
		inputChars += len(m.Content)
	}
	outputChars := 0
	if resp != nil {
		outputChars = len(resp.Content)
	}
	g.Cost.Record("chat", req.Model, inputChars/4, outputChars/4, g.Operation, g.BookID, g.Chapter)
	return resp, nil
}

// Embed passes straight through, unguarded: dedup and reconcile never
// embed, and the embedding job's own cost accounting happens where it is
// actually invoked (outside this package's scope).
func (g *GuardedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return g.Inner.Embed(ctx, texts)
}
