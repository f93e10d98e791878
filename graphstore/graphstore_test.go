//go:build cgo

package graphstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/worldrag/worldrag/mention"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 8)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertCharacterIsIdempotentOnCanonicalName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertCharacter(ctx, "B1", "Jake", "Jake", "the protagonist", []string{"Jakey"}, "protagonist", "human", "alive", 1, "batch-1")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	id2, err := s.UpsertCharacter(ctx, "B1", "Jake", "Jake", "updated description", []string{"Jakey", "JB"}, "protagonist", "human", "alive", 5, "batch-2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	found, err := s.FindEntityByCanonicalName(ctx, "B1", "Character", "Jake")
	if err != nil {
		t.Fatalf("finding entity: %v", err)
	}
	if found != id1 || found != id2 {
		t.Fatalf("expected both upserts to resolve to the same row, got %d and %d (lookup %d)", id1, id2, found)
	}
}

func TestUpsertRelationshipMergesOnCompositeKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	srcID, _ := s.UpsertCharacter(ctx, "B1", "Jake", "Jake", "", nil, "", "", "", 1, "b1")
	tgtID, err := s.UpsertOwnedEntity(ctx, "B1", "Skill", "Fireball", "", "b1")
	if err != nil {
		t.Fatalf("upserting skill: %v", err)
	}

	if err := s.UpsertRelationship(ctx, "B1", srcID, tgtID, "HAS_SKILL", 1, nil, nil); err != nil {
		t.Fatalf("first relationship upsert: %v", err)
	}
	toChapter := 10
	if err := s.UpsertRelationship(ctx, "B1", srcID, tgtID, "HAS_SKILL", 1, &toChapter, nil); err != nil {
		t.Fatalf("second relationship upsert: %v", err)
	}

	names, err := s.TemporalRelationsAt(ctx, "Jake", "B1", "HAS_SKILL", 5)
	if err != nil {
		t.Fatalf("temporal relations: %v", err)
	}
	if len(names) != 1 || names[0] != "Fireball" {
		t.Fatalf("expected Fireball active at chapter 5, got %v", names)
	}

	names, err = s.TemporalRelationsAt(ctx, "Jake", "B1", "HAS_SKILL", 15)
	if err != nil {
		t.Fatalf("temporal relations after expiry: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no active skill after valid_to_chapter, got %v", names)
	}
}

func TestChangesUpToFiltersByCategoryAndChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	delta := 10
	after := 10
	if err := s.InsertStateChange(ctx, "B1", 1, "Jake", "stat", "STR", "gain", &delta, &after, "", "b1"); err != nil {
		t.Fatalf("inserting state change: %v", err)
	}
	delta2, after2 := 5, 15
	if err := s.InsertStateChange(ctx, "B1", 3, "Jake", "stat", "STR", "gain", &delta2, &after2, "", "b1"); err != nil {
		t.Fatalf("inserting second state change: %v", err)
	}

	changes, err := s.ChangesUpTo(ctx, "Jake", "B1", 2, "stat")
	if err != nil {
		t.Fatalf("changes up to: %v", err)
	}
	if len(changes) != 1 || *changes[0].ValueDelta != 10 {
		t.Fatalf("expected exactly the chapter-1 change, got %+v", changes)
	}
}

func TestInsertMentionAllowsRepeatedSpans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.UpsertCharacter(ctx, "B1", "Jake", "Jake", "", nil, "", "", "", 1, "b1")
	if err != nil {
		t.Fatalf("upserting character: %v", err)
	}

	m := mention.Mention{EntityKey: "jake", CharStart: 0, CharEnd: 4, MentionText: "Jake", MentionType: "direct_name", Confidence: 1.0, AlignmentStatus: "exact"}
	if err := s.InsertMention(ctx, "B1", 1, id, m, "characters"); err != nil {
		t.Fatalf("first mention insert: %v", err)
	}
	if err := s.InsertMention(ctx, "B1", 1, id, m, "characters"); err != nil {
		t.Fatalf("second identical mention insert: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM mentions WHERE entity_id = ?`, id).Scan(&count); err != nil {
		t.Fatalf("counting mentions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected both mention inserts to create independent rows, got %d", count)
	}
}

func TestVectorAndFTSSearchReturnInsertedChunk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertBook(ctx, Book{ID: "B1", Title: "Test Book", Genre: "litrpg", Status: "processing"}); err != nil {
		t.Fatalf("upserting book: %v", err)
	}
	if err := s.UpsertChapter(ctx, Chapter{BookID: "B1", Number: 1, Title: "Ch1", Text: "Jake cast fireball", Status: "processing"}); err != nil {
		t.Fatalf("upserting chapter: %v", err)
	}
	chunkID, err := s.InsertChunk(ctx, "B1", 1, 0, "Jake cast a mighty fireball spell", 6, 0, 34)
	if err != nil {
		t.Fatalf("inserting chunk: %v", err)
	}
	embedding := make([]float32, 8)
	for i := range embedding {
		embedding[i] = float32(i) / 8
	}
	if err := s.InsertEmbedding(ctx, chunkID, embedding); err != nil {
		t.Fatalf("inserting embedding: %v", err)
	}

	vecResults, err := s.VectorSearch(ctx, "B1", embedding, 5)
	if err != nil {
		t.Fatalf("vector search: %v", err)
	}
	if len(vecResults) != 1 || vecResults[0].ChunkID != chunkID {
		t.Fatalf("expected the inserted chunk back from vector search, got %+v", vecResults)
	}

	ftsResults, err := s.FTSSearch(ctx, "B1", "fireball", 5)
	if err != nil {
		t.Fatalf("fts search: %v", err)
	}
	if len(ftsResults) != 1 || ftsResults[0].ChunkID != chunkID {
		t.Fatalf("expected the inserted chunk back from fts search, got %+v", ftsResults)
	}
}
