package graphstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// InsertChunk persists one chapter chunk (teacher's InsertChunk, §4.11
// "chapters are split into retrieval chunks").
func (s *Store) InsertChunk(ctx context.Context, bookID string, chapterNumber, position int, text string, tokenCount, charStart, charEnd int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (book_id, chapter_number, position, text, token_count, char_offset_start, char_offset_end)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, bookID, chapterNumber, position, text, tokenCount, charStart, charEnd)
	if err != nil {
		return 0, fmt.Errorf("graphstore: inserting chunk: %w", err)
	}
	return res.LastInsertId()
}

// InsertEmbedding stores a chunk's vector embedding (teacher's
// InsertEmbedding, adapted to this package's embedding-dim-agnostic blob
// serialization).
func (s *Store) InsertEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)
	`, chunkID, serializeFloat32(embedding))
	if err != nil {
		return fmt.Errorf("graphstore: inserting embedding: %w", err)
	}
	return nil
}

// VectorSearch performs a KNN search over vec_chunks, joined back onto
// chapter metadata, returning the top-k nearest chunks (§4.12 step 2,
// grounded on the teacher's VectorSearch).
func (s *Store) VectorSearch(ctx context.Context, bookID string, queryEmbedding []float32, k int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance, c.chapter_number, ch.title, c.text, c.char_offset_start, c.char_offset_end
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN chapters ch ON ch.book_id = c.book_id AND ch.number = c.chapter_number
		WHERE v.embedding MATCH ? AND k = ? AND c.book_id = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k, bookID)
	if err != nil {
		return nil, fmt.Errorf("graphstore: vector search: %w", err)
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var distance float64
		if err := rows.Scan(&r.ChunkID, &distance, &r.ChapterNumber, &r.ChapterTitle, &r.Text, &r.CharOffsetStart, &r.CharOffsetEnd); err != nil {
			return nil, fmt.Errorf("graphstore: scanning vector search row: %w", err)
		}
		r.Score = 1.0 / (1.0 + distance)
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch runs a full-text query over chunks_fts, used as the keyword
// leg of hybrid retrieval and as the degenerate-path fallback when vector
// search returns nothing (§4.12, grounded on the teacher's FTSSearch).
func (s *Store) FTSSearch(ctx context.Context, bookID, query string, limit int) ([]RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.chapter_number, ch.title, c.text, c.char_offset_start, c.char_offset_end, f.rank
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		JOIN chapters ch ON ch.book_id = c.book_id AND ch.number = c.chapter_number
		WHERE chunks_fts MATCH ? AND c.book_id = ?
		ORDER BY f.rank
		LIMIT ?
	`, query, bookID, limit)
	if err != nil {
		return nil, fmt.Errorf("graphstore: fts search: %w", err)
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var rank float64
		if err := rows.Scan(&r.ChunkID, &r.ChapterNumber, &r.ChapterTitle, &r.Text, &r.CharOffsetStart, &r.CharOffsetEnd, &rank); err != nil {
			return nil, fmt.Errorf("graphstore: scanning fts row: %w", err)
		}
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// RelatedEntity is one KG-neighborhood hit returned by GetRelatedEntities.
type RelatedEntity struct {
	ID          int64
	EntityType  string
	Name        string
	Description string
	RelType     string
}

// GetRelatedEntities walks one hop of relationships from the entities
// named in mentionedNames, bounded to maxEntities and excluding purely
// structural relationship types, feeding §4.12's KG-enrichment step.
func (s *Store) GetRelatedEntities(ctx context.Context, bookID string, mentionedNames []string, excludeRelTypes []string, maxEntities int) ([]RelatedEntity, error) {
	if len(mentionedNames) == 0 {
		return nil, nil
	}
	excluded := map[string]bool{}
	for _, t := range excludeRelTypes {
		excluded[t] = true
	}

	placeholders := make([]any, 0, len(mentionedNames)+1)
	placeholders = append(placeholders, bookID)
	q := "SELECT e.id, e.entity_type, e.name, e.description, r.rel_type FROM relationships r " +
		"JOIN entities e ON e.id = r.target_id " +
		"JOIN entities src ON src.id = r.source_id AND src.book_id = ? " +
		"WHERE src.name IN ("
	for i, n := range mentionedNames {
		if i > 0 {
			q += ","
		}
		q += "?"
		placeholders = append(placeholders, n)
	}
	q += ")"

	rows, err := s.db.QueryContext(ctx, q, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("graphstore: related entities: %w", err)
	}
	defer rows.Close()

	var out []RelatedEntity
	seen := map[int64]bool{}
	for rows.Next() {
		var r RelatedEntity
		if err := rows.Scan(&r.ID, &r.EntityType, &r.Name, &r.Description, &r.RelType); err != nil {
			return nil, fmt.Errorf("graphstore: scanning related entity: %w", err)
		}
		if excluded[r.RelType] || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
		if len(out) >= maxEntities {
			break
		}
	}
	return out, rows.Err()
}

// GetEntitiesByNames loads entity summaries for an explicit name set,
// bounded to maxEntities, used by §4.12 step 4 to describe entities
// mentioned in the chunks surviving rerank before the one-hop expansion
// in GetRelatedEntities runs.
func (s *Store) GetEntitiesByNames(ctx context.Context, bookID string, names []string, maxEntities int) ([]RelatedEntity, error) {
	if len(names) == 0 {
		return nil, nil
	}
	placeholders := make([]any, 0, len(names)+1)
	placeholders = append(placeholders, bookID)
	q := "SELECT id, entity_type, name, description, '' FROM entities WHERE book_id = ? AND name IN ("
	for i, n := range names {
		if i > 0 {
			q += ","
		}
		q += "?"
		placeholders = append(placeholders, n)
	}
	q += ")"

	rows, err := s.db.QueryContext(ctx, q, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("graphstore: entities by names: %w", err)
	}
	defer rows.Close()

	var out []RelatedEntity
	for rows.Next() {
		var r RelatedEntity
		if err := rows.Scan(&r.ID, &r.EntityType, &r.Name, &r.Description, &r.RelType); err != nil {
			return nil, fmt.Errorf("graphstore: scanning entity by name: %w", err)
		}
		out = append(out, r)
		if len(out) >= maxEntities {
			break
		}
	}
	return out, rows.Err()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for
// sqlite-vec, identical to the teacher's serializeFloat32.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
