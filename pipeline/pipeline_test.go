//go:build cgo

package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/worldrag/worldrag/extract"
	"github.com/worldrag/worldrag/graphstore"
	"github.com/worldrag/worldrag/llm"
	"github.com/worldrag/worldrag/reconcile"
	"github.com/worldrag/worldrag/resilience"
)

// fakeProvider answers every Chat call with a canned JSON body keyed by a
// substring of the system prompt, and returns a fixed-width embedding for
// every Embed call. It stands in for the teacher's real provider clients
// in tests that never touch a network.
type fakeProvider struct {
	responses map[string]string // system-prompt substring -> JSON body
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	sys := ""
	if len(req.Messages) > 0 {
		sys = req.Messages[0].Content
	}
	for needle, body := range f.responses {
		if strings.Contains(sys, needle) {
			return &llm.ChatResponse{Content: body}, nil
		}
	}
	return &llm.ChatResponse{Content: "{}"}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	}
	return out, nil
}

type fakeDispatcher struct{}

func (fakeDispatcher) EnqueueChapterExtraction(bookID string, chapter int) error { return nil }
func (fakeDispatcher) EnqueueBookExtraction(bookID string) error                 { return nil }

type fakeQueue struct{ enqueued []int }

func (q *fakeQueue) EnqueueEmbedding(bookID string, chapterNumber int) error {
	q.enqueued = append(q.enqueued, chapterNumber)
	return nil
}

func newTestEngine(t *testing.T, responses map[string]string) (*Engine, *graphstore.Store, *fakeQueue) {
	t.Helper()
	store, err := graphstore.New(filepath.Join(t.TempDir(), "test.db"), 8)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	provider := &fakeProvider{responses: responses}
	breaker := resilience.NewCircuitBreaker(5, time.Minute, 1)
	cost := resilience.NewCostTracker(resilience.NewPriceTable(nil, [2]float64{1, 2}), 10.0, 100.0)
	dlq := resilience.NewDeadLetterQueue(fakeDispatcher{})
	queue := &fakeQueue{}

	e := NewEngine(store, provider, provider, breaker, cost, dlq, queue)
	e.ChatModel = "fake-model"
	return e, store, queue
}

func charactersJSON(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(extract.CharactersResult{
		Characters: []extract.Character{
			{Name: "Jake", CanonicalName: "Jake", Description: "the protagonist", Role: "protagonist"},
		},
	})
	if err != nil {
		t.Fatalf("marshaling characters fixture: %v", err)
	}
	return string(b)
}

func TestProcessChapterWritesCharacterAndAdvancesStatus(t *testing.T) {
	e, store, _ := newTestEngine(t, map[string]string{
		"character": charactersJSON(t),
	})
	ctx := context.Background()

	if err := store.UpsertBook(ctx, graphstore.Book{ID: "B1", Title: "Test Book", Genre: "litrpg", TotalChapters: 1, Status: "pending"}); err != nil {
		t.Fatalf("seeding book: %v", err)
	}
	if err := store.UpsertChapter(ctx, graphstore.Chapter{BookID: "B1", Number: 1, Title: "Ch1", Text: "Jake walked into the dungeon.", Status: "pending"}); err != nil {
		t.Fatalf("seeding chapter: %v", err)
	}

	registry := reconcile.NewRegistry()
	result, conflicts, err := e.ProcessChapter(ctx, "B1", 1, registry)
	if err != nil {
		t.Fatalf("ProcessChapter: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts on a fresh registry, got %+v", conflicts)
	}
	if len(result.Characters.Characters) != 1 || result.Characters.Characters[0].CanonicalName != "Jake" {
		t.Fatalf("expected Jake in the merged result, got %+v", result.Characters)
	}

	id, err := store.FindEntityByCanonicalName(ctx, "B1", "Character", "Jake")
	if err != nil {
		t.Fatalf("expected Jake to be persisted: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected a valid row id, got %d", id)
	}

	chapter, err := store.GetChapter(ctx, "B1", 1)
	if err != nil {
		t.Fatalf("reloading chapter: %v", err)
	}
	if chapter.Status != "extracted" {
		t.Fatalf("expected chapter status extracted, got %q", chapter.Status)
	}

	if _, ok := registry.Lookup("Jake"); !ok {
		t.Fatalf("expected the registry to be updated with Jake")
	}
}

func TestProcessChapterRejectsEmptyChapterText(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	ctx := context.Background()

	if err := store.UpsertBook(ctx, graphstore.Book{ID: "B1", Title: "Empty", TotalChapters: 1, Status: "pending"}); err != nil {
		t.Fatalf("seeding book: %v", err)
	}
	if err := store.UpsertChapter(ctx, graphstore.Chapter{BookID: "B1", Number: 1, Title: "Ch1", Text: "", Status: "pending"}); err != nil {
		t.Fatalf("seeding chapter: %v", err)
	}

	_, _, err := e.ProcessChapter(ctx, "B1", 1, reconcile.NewRegistry())
	if err == nil {
		t.Fatalf("expected an error for an empty chapter")
	}
}

func TestProcessBookRunsChaptersInOrderAndEnqueuesEmbeddings(t *testing.T) {
	e, store, queue := newTestEngine(t, map[string]string{
		"character": charactersJSON(t),
	})
	ctx := context.Background()

	if err := store.UpsertBook(ctx, graphstore.Book{ID: "B1", Title: "Multi", TotalChapters: 2, Status: "pending"}); err != nil {
		t.Fatalf("seeding book: %v", err)
	}
	for n := 1; n <= 2; n++ {
		if err := store.UpsertChapter(ctx, graphstore.Chapter{BookID: "B1", Number: n, Title: "Ch", Text: "Jake trained in the dungeon.", Status: "pending"}); err != nil {
			t.Fatalf("seeding chapter %d: %v", n, err)
		}
	}

	if err := e.ProcessBook(ctx, "B1"); err != nil {
		t.Fatalf("ProcessBook: %v", err)
	}

	if len(queue.enqueued) != 2 || queue.enqueued[0] != 1 || queue.enqueued[1] != 2 {
		t.Fatalf("expected embeddings enqueued for both chapters in order, got %v", queue.enqueued)
	}

	book, err := store.GetBook(ctx, "B1")
	if err != nil {
		t.Fatalf("reloading book: %v", err)
	}
	if book.Status != "extracted" {
		t.Fatalf("expected book status extracted, got %q", book.Status)
	}
}

func TestProcessBookPushesExhaustedChapterToDLQAndContinues(t *testing.T) {
	e, store, queue := newTestEngine(t, map[string]string{
		"character": charactersJSON(t),
	})
	e.MaxChapterAttempts = 1
	ctx := context.Background()

	if err := store.UpsertBook(ctx, graphstore.Book{ID: "B1", Title: "Partial", TotalChapters: 2, Status: "pending"}); err != nil {
		t.Fatalf("seeding book: %v", err)
	}
	// Chapter 1 has no text, forcing ProcessChapter to fail before any
	// pass runs; chapter 2 is well-formed and should still be processed.
	if err := store.UpsertChapter(ctx, graphstore.Chapter{BookID: "B1", Number: 1, Title: "Ch1", Text: "", Status: "pending"}); err != nil {
		t.Fatalf("seeding chapter 1: %v", err)
	}
	if err := store.UpsertChapter(ctx, graphstore.Chapter{BookID: "B1", Number: 2, Title: "Ch2", Text: "Jake trained in the dungeon.", Status: "pending"}); err != nil {
		t.Fatalf("seeding chapter 2: %v", err)
	}

	if err := e.ProcessBook(ctx, "B1"); err != nil {
		t.Fatalf("ProcessBook: %v", err)
	}

	if len(e.DLQ.List()) != 1 || e.DLQ.List()[0].Chapter != 1 {
		t.Fatalf("expected chapter 1 pushed to the DLQ, got %+v", e.DLQ.List())
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != 2 {
		t.Fatalf("expected chapter 2 to still be processed and enqueued, got %v", queue.enqueued)
	}

	book, err := store.GetBook(ctx, "B1")
	if err != nil {
		t.Fatalf("reloading book: %v", err)
	}
	if book.Status != "partial" {
		t.Fatalf("expected book status partial after a chapter exhausts retries, got %q", book.Status)
	}
}
