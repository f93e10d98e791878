//go:build cgo

package retrieval

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/worldrag/worldrag/graphstore"
	"github.com/worldrag/worldrag/llm"
)

type fakeProvider struct {
	embedding []float32
	answer    string
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: f.answer}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.embedding
	}
	return out, nil
}

func newTestEngine(t *testing.T, answer string) (*Engine, *graphstore.Store) {
	t.Helper()
	store, err := graphstore.New(filepath.Join(t.TempDir(), "test.db"), 8)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedding := make([]float32, 8)
	for i := range embedding {
		embedding[i] = float32(i) / 8
	}
	provider := &fakeProvider{embedding: embedding, answer: answer}

	e := New(store, provider, provider, nil, "fake-chat", "", DefaultConfig())
	return e, store
}

func seedChunk(t *testing.T, store *graphstore.Store, bookID string, chapter int, text string) {
	t.Helper()
	ctx := context.Background()
	if err := store.UpsertBook(ctx, graphstore.Book{ID: bookID, Title: "Test Book", Genre: "litrpg", TotalChapters: chapter, Status: "extracted"}); err != nil {
		t.Fatalf("seeding book: %v", err)
	}
	if err := store.UpsertChapter(ctx, graphstore.Chapter{BookID: bookID, Number: chapter, Title: "Ch", Text: text, Status: "extracted"}); err != nil {
		t.Fatalf("seeding chapter: %v", err)
	}
	chunkID, err := store.InsertChunk(ctx, bookID, chapter, 0, text, len(strings.Fields(text)), 0, len(text))
	if err != nil {
		t.Fatalf("inserting chunk: %v", err)
	}
	embedding := make([]float32, 8)
	for i := range embedding {
		embedding[i] = float32(i) / 8
	}
	if err := store.InsertEmbedding(ctx, chunkID, embedding); err != nil {
		t.Fatalf("inserting embedding: %v", err)
	}
}

func TestQueryReturnsAnswerWithSources(t *testing.T) {
	e, store := newTestEngine(t, "Jake cast a fireball spell. (Chapter 1)")
	seedChunk(t, store, "B1", 1, "Jake cast a mighty fireball spell in the dungeon.")

	result, err := e.Query(context.Background(), "B1", "What spell did Jake cast?", QueryOptions{IncludeSources: true})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.ChunksRetrieved != 1 || result.ChunksAfterRerank != 1 {
		t.Fatalf("expected one chunk retrieved and kept, got %+v", result)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("expected sources to be included, got %+v", result.Sources)
	}
	if !strings.Contains(result.Answer, "fireball") {
		t.Fatalf("expected the fake answer to surface, got %q", result.Answer)
	}
}

func TestQueryDegradesToNoRelevantContent(t *testing.T) {
	e, store := newTestEngine(t, "irrelevant")
	ctx := context.Background()
	if err := store.UpsertBook(ctx, graphstore.Book{ID: "B1", Title: "Empty Book", TotalChapters: 1, Status: "extracted"}); err != nil {
		t.Fatalf("seeding book: %v", err)
	}

	result, err := e.Query(ctx, "B1", "What happened?", QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Answer != msgNoRelevantContent {
		t.Fatalf("expected the no-relevant-content message, got %q", result.Answer)
	}
}

func TestQueryDegradesToNotRelevantEnoughWhenThresholdExcludesEverything(t *testing.T) {
	e, store := newTestEngine(t, "irrelevant")
	seedChunk(t, store, "B1", 1, "Jake cast a mighty fireball spell in the dungeon.")

	result, err := e.Query(context.Background(), "B1", "What spell did Jake cast?", QueryOptions{MinRelevance: 2.0})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Answer != msgNotRelevantEnough {
		t.Fatalf("expected the not-relevant-enough message, got %q", result.Answer)
	}
}

func TestQueryStreamEmitsEventsInOrder(t *testing.T) {
	e, store := newTestEngine(t, "Jake cast a fireball spell.")
	seedChunk(t, store, "B1", 1, "Jake cast a mighty fireball spell in the dungeon.")

	events := e.QueryStream(context.Background(), "B1", "What spell did Jake cast?", QueryOptions{IncludeSources: true})

	var types []EventType
	var tokens []string
	for ev := range events {
		types = append(types, ev.Type)
		if ev.Type == EventToken {
			tokens = append(tokens, ev.Token)
		}
		if ev.Type == EventError {
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
	}

	if len(types) < 3 || types[0] != EventSources || types[len(types)-1] != EventDone {
		t.Fatalf("expected sources...done ordering, got %v", types)
	}
	if len(tokens) == 0 {
		t.Fatalf("expected at least one token event")
	}
}
