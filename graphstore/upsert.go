package graphstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/worldrag/worldrag/resilience"
)

// UpsertCharacter MERGEs a Character on canonical_name, merging in any
// new aliases (§3 "canonical_name is the MERGE key for Characters", §4.8
// step 1). Transient sqlite errors are retried under the graph retry
// profile (§4.10).
func (s *Store) UpsertCharacter(ctx context.Context, bookID, name, canonicalName, description string,
	aliases []string, role, species, status string, lastSeenChapter int, batchID string) (int64, error) {

	aliasJSON, err := json.Marshal(aliases)
	if err != nil {
		return 0, fmt.Errorf("graphstore: marshaling aliases: %w", err)
	}

	id, err := resilience.Retry(ctx, resilience.GraphRetryProfile(), isTransient, func(ctx context.Context) (int64, error) {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO entities (book_id, entity_type, name, canonical_name, description, aliases_json, role, species, status, last_seen_chapter, batch_id)
			VALUES (?, 'Character', ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(book_id, entity_type, canonical_name) DO UPDATE SET
				description=excluded.description,
				aliases_json=excluded.aliases_json,
				status=excluded.status,
				last_seen_chapter=excluded.last_seen_chapter,
				batch_id=excluded.batch_id
		`, bookID, name, canonicalName, description, string(aliasJSON), role, species, status, lastSeenChapter, batchID)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, fmt.Errorf("graphstore: upserting character: %w", err)
	}
	return id, nil
}

// UpsertRelationship MERGEs a relationship keyed on (source, type,
// target, valid_from_chapter) (§4.8 step 2, §3 "temporal edges carry
// valid_from_chapter").
func (s *Store) UpsertRelationship(ctx context.Context, bookID string, sourceID, targetID int64, relType string,
	validFromChapter int, validToChapter *int, value *int) error {

	_, err := resilience.Retry(ctx, resilience.GraphRetryProfile(), isTransient, func(ctx context.Context) (struct{}, error) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO relationships (book_id, source_id, target_id, rel_type, valid_from_chapter, valid_to_chapter, value)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_id, rel_type, target_id, valid_from_chapter) DO UPDATE SET
				valid_to_chapter=excluded.valid_to_chapter, value=excluded.value
		`, bookID, sourceID, targetID, relType, validFromChapter, validToChapter, value)
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("graphstore: upserting relationship: %w", err)
	}
	return nil
}

// UpsertOwnedEntity MERGEs a non-Character entity keyed on (book_id,
// entity_type, name) — the generic path for Skill/Class/Title/Location/
// Item/Creature/Faction/Concept/series types (§3 "name for the rest").
func (s *Store) UpsertOwnedEntity(ctx context.Context, bookID, entityType, name, description, batchID string) (int64, error) {
	id, err := resilience.Retry(ctx, resilience.GraphRetryProfile(), isTransient, func(ctx context.Context) (int64, error) {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO entities (book_id, entity_type, name, canonical_name, description, batch_id)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(book_id, entity_type, canonical_name) DO UPDATE SET description=excluded.description, batch_id=excluded.batch_id
		`, bookID, entityType, name, name, description, batchID)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	})
	if err != nil {
		return 0, fmt.Errorf("graphstore: upserting %s: %w", entityType, err)
	}
	return id, nil
}

// FindEntityByCanonicalName looks up an entity id by (book_id,
// entity_type, canonical_name); returns sql.ErrNoRows wrapped when absent.
func (s *Store) FindEntityByCanonicalName(ctx context.Context, bookID, entityType, canonicalName string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM entities WHERE book_id = ? AND entity_type = ? AND canonical_name = ?
	`, bookID, entityType, canonicalName).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("graphstore: finding entity: %w", err)
	}
	return id, nil
}

// InsertStateChange writes one immutable ledger record (§3, §4.8).
func (s *Store) InsertStateChange(ctx context.Context, bookID string, chapter int, characterName, category, name, action string,
	valueDelta, valueAfter *int, detail, batchID string) error {

	_, err := resilience.Retry(ctx, resilience.GraphRetryProfile(), isTransient, func(ctx context.Context) (struct{}, error) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO state_changes (book_id, chapter, character_name, category, name, action, value_delta, value_after, detail, batch_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, bookID, chapter, characterName, category, name, action, valueDelta, valueAfter, detail, batchID)
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("graphstore: inserting state change: %w", err)
	}
	return nil
}
