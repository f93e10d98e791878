package pipeline

import (
	"context"
	"fmt"

	"github.com/worldrag/worldrag/reconcile"
)

// ProcessBook runs the sequential per-chapter loop (§5: "chapters within
// a book are processed in narrative order since the registry and
// temporal relationships are order-dependent"). A chapter that fails
// after MaxChapterAttempts is pushed to the dead-letter queue and the
// loop continues onto the next chapter rather than aborting the book.
func (e *Engine) ProcessBook(ctx context.Context, bookID string) error {
	book, err := e.Store.GetBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("pipeline: loading book %s: %w", bookID, err)
	}

	registry := reconcile.NewRegistry()
	if book.RegistryJSON != "" {
		registry, err = reconcile.FromJSON([]byte(book.RegistryJSON))
		if err != nil {
			return fmt.Errorf("pipeline: decoding registry for %s: %w", bookID, err)
		}
	}

	if err := e.Store.UpdateBookStatus(ctx, bookID, "extracting"); err != nil {
		return fmt.Errorf("pipeline: marking book extracting: %w", err)
	}

	anyFailed := false
	for chapter := 1; chapter <= book.TotalChapters; chapter++ {
		if err := e.processChapterWithRetry(ctx, bookID, chapter, registry); err != nil {
			anyFailed = true
			e.DLQ.Push(bookID, chapter, "ChapterFailedTerminally", err.Error(), e.MaxChapterAttempts)
			continue
		}
		if e.Queue != nil {
			if err := e.Queue.EnqueueEmbedding(bookID, chapter); err != nil {
				return fmt.Errorf("pipeline: enqueuing embedding job for chapter %d: %w", chapter, err)
			}
		}
	}

	finalStatus := "extracted"
	if anyFailed {
		finalStatus = "partial"
	}
	return e.Store.UpdateBookStatus(ctx, bookID, finalStatus)
}

// processChapterWithRetry retries a whole-chapter failure up to
// MaxChapterAttempts times before giving up (§4.10 "terminal failures are
// routed to the dead-letter queue after the retry budget is exhausted").
func (e *Engine) processChapterWithRetry(ctx context.Context, bookID string, chapter int, registry *reconcile.EntityRegistry) error {
	var lastErr error
	for attempt := 1; attempt <= e.MaxChapterAttempts; attempt++ {
		_, _, err := e.ProcessChapter(ctx, bookID, chapter, registry)
		if err == nil {
			return nil
		}
		lastErr = err
		if err := e.Store.UpdateChapterStatus(ctx, bookID, chapter, "failed"); err != nil {
			return fmt.Errorf("pipeline: marking chapter %d failed: %w", chapter, err)
		}
	}
	return fmt.Errorf("pipeline: chapter %d exhausted %d attempts: %w", chapter, e.MaxChapterAttempts, lastErr)
}
