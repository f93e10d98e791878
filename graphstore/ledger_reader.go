package graphstore

import (
	"context"
	"fmt"

	"github.com/worldrag/worldrag/ledger"
)

// ChangesUpTo implements ledger.Reader, returning every StateChange for a
// character/category with chapter <= chapter (§4.11); an empty category
// matches every category.
func (s *Store) ChangesUpTo(ctx context.Context, character, bookID string, chapter int, category string) ([]ledger.StateChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, chapter, category, name, action, value_delta, value_after, detail, character_name, batch_id
		FROM state_changes
		WHERE book_id = ? AND character_name = ? AND (? = '' OR category = ?) AND chapter <= ?
	`, bookID, character, category, category, chapter)
	if err != nil {
		return nil, fmt.Errorf("graphstore: changes up to: %w", err)
	}
	defer rows.Close()
	return scanStateChanges(rows)
}

// ChangesBetween implements ledger.Reader, returning every StateChange in
// (from, to] regardless of category (§4.11).
func (s *Store) ChangesBetween(ctx context.Context, character, bookID string, from, to int) ([]ledger.StateChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, chapter, category, name, action, value_delta, value_after, detail, character_name, batch_id
		FROM state_changes
		WHERE book_id = ? AND character_name = ? AND chapter > ? AND chapter <= ?
	`, bookID, character, from, to)
	if err != nil {
		return nil, fmt.Errorf("graphstore: changes between: %w", err)
	}
	defer rows.Close()
	return scanStateChanges(rows)
}

// TemporalRelationsAt implements ledger.Reader, returning target entity
// names for relationships of relType from character valid at chapter
// (valid_from_chapter <= chapter AND (valid_to_chapter IS NULL OR
// valid_to_chapter > chapter), §4.11).
func (s *Store) TemporalRelationsAt(ctx context.Context, character, bookID, relType string, chapter int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name
		FROM relationships r
		JOIN entities src ON src.id = r.source_id
		JOIN entities t ON t.id = r.target_id
		WHERE src.book_id = ? AND src.name = ? AND r.rel_type = ?
			AND r.valid_from_chapter <= ?
			AND (r.valid_to_chapter IS NULL OR r.valid_to_chapter > ?)
	`, bookID, character, relType, chapter, chapter)
	if err != nil {
		return nil, fmt.Errorf("graphstore: temporal relations at: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("graphstore: scanning temporal relation: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanStateChanges(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]ledger.StateChange, error) {
	var out []ledger.StateChange
	for rows.Next() {
		var c ledger.StateChange
		if err := rows.Scan(&c.BookID, &c.Chapter, &c.Category, &c.Name, &c.Action, &c.ValueDelta, &c.ValueAfter, &c.Detail, &c.CharacterName, &c.BatchID); err != nil {
			return nil, fmt.Errorf("graphstore: scanning state change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
