package graphstore

import (
	"context"
	"fmt"

	"github.com/worldrag/worldrag/mention"
	"github.com/worldrag/worldrag/resilience"
)

// InsertMention writes one mention span. Mentions are always CREATEd,
// never MERGEd — repeated scans of the same chapter would otherwise
// collapse distinct spans onto one row (§4.9 "mentions are insert-only").
func (s *Store) InsertMention(ctx context.Context, bookID string, chapterNumber int, entityID int64, m mention.Mention, passName string) error {
	_, err := resilience.Retry(ctx, resilience.GraphRetryProfile(), isTransient, func(ctx context.Context) (struct{}, error) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO mentions (book_id, chapter_number, entity_id, char_start, char_end, mention_text, mention_type, confidence, alignment_status, pass_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, bookID, chapterNumber, entityID, m.CharStart, m.CharEnd, m.MentionText, m.MentionType, m.Confidence, m.AlignmentStatus, passName)
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("graphstore: inserting mention: %w", err)
	}
	return nil
}

// EntitiesMentionedInChapter returns the canonical names of every entity
// with at least one mention in the given chapter, feeding §4.12 step 4's
// KG-enrichment seed set ("entities MENTIONED_IN the remaining chapters").
func (s *Store) EntitiesMentionedInChapter(ctx context.Context, bookID string, chapterNumber int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.name
		FROM mentions m
		JOIN entities e ON e.id = m.entity_id
		WHERE m.book_id = ? AND m.chapter_number = ?
	`, bookID, chapterNumber)
	if err != nil {
		return nil, fmt.Errorf("graphstore: entities mentioned in chapter: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("graphstore: scanning mentioned entity: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
