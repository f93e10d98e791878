package pipeline

import (
	"context"
	"fmt"

	"github.com/worldrag/worldrag/extract"
	"github.com/worldrag/worldrag/ledger"
	"github.com/worldrag/worldrag/mention"
)

// writeChapterResult performs §4.8's write step: every surviving entity
// is upserted, and every progression-relevant upsert is paired with a
// StateChange insert via ledger.BuildStateChange/Descriptors (§9 "Dynamic
// dispatch over entity types"). Upserts with no owner skip the
// StateChange write per BuildStateChange's ok=false contract.
func (e *Engine) writeChapterResult(ctx context.Context, bookID string, chapter int, r *extract.ChapterExtractionResult, batchID string) error {
	charIDs := map[string]int64{}
	for _, c := range r.Characters.Characters {
		id, err := e.Store.UpsertCharacter(ctx, bookID, c.Name, c.CanonicalName, c.Description, c.Aliases, c.Role, c.Species, c.Status, chapter, batchID)
		if err != nil {
			return fmt.Errorf("writing character %s: %w", c.CanonicalName, err)
		}
		charIDs[c.CanonicalName] = id
	}

	for _, rel := range r.Characters.Relationships {
		srcID, ok1 := charIDs[rel.Source]
		tgtID, ok2 := charIDs[rel.Target]
		if !ok1 || !ok2 {
			continue
		}
		if err := e.Store.UpsertRelationship(ctx, bookID, srcID, tgtID, rel.Type, chapter, nil, nil); err != nil {
			return fmt.Errorf("writing relationship %s->%s: %w", rel.Source, rel.Target, err)
		}
	}

	for _, s := range r.Systems.Skills {
		id, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Skill", s.Name, s.Description, batchID)
		if err != nil {
			return fmt.Errorf("writing skill %s: %w", s.Name, err)
		}
		if ownerID, ok := charIDs[s.Owner]; ok {
			if err := e.Store.UpsertRelationship(ctx, bookID, ownerID, id, "HAS_SKILL", chapter, nil, nil); err != nil {
				return fmt.Errorf("linking skill %s: %w", s.Name, err)
			}
		}
		if sc, ok := ledger.BuildStateChange(ledger.UpsertSkill, bookID, chapter, s.Owner, s.Name, nil, nil, nil, s.Rank, batchID); ok {
			if err := e.Store.InsertStateChange(ctx, sc.BookID, sc.Chapter, sc.CharacterName, sc.Category, sc.Name, sc.Action, sc.ValueDelta, sc.ValueAfter, sc.Detail, sc.BatchID); err != nil {
				return fmt.Errorf("writing skill state change %s: %w", s.Name, err)
			}
		}
	}

	for _, c := range r.Systems.Classes {
		id, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Class", c.Name, c.Description, batchID)
		if err != nil {
			return fmt.Errorf("writing class %s: %w", c.Name, err)
		}
		if ownerID, ok := charIDs[c.Owner]; ok {
			_ = e.Store.UpsertRelationship(ctx, bookID, ownerID, id, "HAS_CLASS", chapter, nil, nil)
		}
		if sc, ok := ledger.BuildStateChange(ledger.UpsertClass, bookID, chapter, c.Owner, c.Name, nil, nil, nil, "", batchID); ok {
			if err := e.Store.InsertStateChange(ctx, sc.BookID, sc.Chapter, sc.CharacterName, sc.Category, sc.Name, sc.Action, sc.ValueDelta, sc.ValueAfter, sc.Detail, sc.BatchID); err != nil {
				return fmt.Errorf("writing class state change %s: %w", c.Name, err)
			}
		}
	}

	for _, t := range r.Systems.Titles {
		id, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Title", t.Name, t.Description, batchID)
		if err != nil {
			return fmt.Errorf("writing title %s: %w", t.Name, err)
		}
		if ownerID, ok := charIDs[t.Owner]; ok {
			_ = e.Store.UpsertRelationship(ctx, bookID, ownerID, id, "HAS_TITLE", chapter, nil, nil)
		}
		if sc, ok := ledger.BuildStateChange(ledger.UpsertTitle, bookID, chapter, t.Owner, t.Name, nil, nil, nil, "", batchID); ok {
			if err := e.Store.InsertStateChange(ctx, sc.BookID, sc.Chapter, sc.CharacterName, sc.Category, sc.Name, sc.Action, sc.ValueDelta, sc.ValueAfter, sc.Detail, sc.BatchID); err != nil {
				return fmt.Errorf("writing title state change %s: %w", t.Name, err)
			}
		}
	}

	for _, lc := range r.Systems.LevelChanges {
		if sc, ok := ledger.BuildStateChange(ledger.UpsertLevelChange, bookID, chapter, lc.Owner, "", nil, lc.OldVal, lc.NewVal, lc.Realm, batchID); ok {
			if err := e.Store.InsertStateChange(ctx, sc.BookID, sc.Chapter, sc.CharacterName, sc.Category, sc.Name, sc.Action, sc.ValueDelta, sc.ValueAfter, sc.Detail, sc.BatchID); err != nil {
				return fmt.Errorf("writing level change for %s: %w", lc.Owner, err)
			}
		}
	}

	for _, stc := range r.Systems.StatChanges {
		value := stc.Value
		if sc, ok := ledger.BuildStateChange(ledger.UpsertStatChange, bookID, chapter, stc.Owner, stc.Name, &value, nil, nil, "", batchID); ok {
			if err := e.Store.InsertStateChange(ctx, sc.BookID, sc.Chapter, sc.CharacterName, sc.Category, sc.Name, sc.Action, sc.ValueDelta, sc.ValueAfter, sc.Detail, sc.BatchID); err != nil {
				return fmt.Errorf("writing stat change %s for %s: %w", stc.Name, stc.Owner, err)
			}
		}
	}

	for _, ev := range r.Events.Events {
		if _, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Event", ev.Description, ev.Description, batchID); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
	}

	for _, loc := range r.Lore.Locations {
		if _, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Location", loc.Name, loc.Description, batchID); err != nil {
			return fmt.Errorf("writing location %s: %w", loc.Name, err)
		}
	}
	for _, it := range r.Lore.Items {
		id, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Item", it.Name, it.Description, batchID)
		if err != nil {
			return fmt.Errorf("writing item %s: %w", it.Name, err)
		}
		if ownerID, ok := charIDs[it.Owner]; ok {
			_ = e.Store.UpsertRelationship(ctx, bookID, ownerID, id, "POSSESSES", chapter, nil, nil)
		}
		if sc, ok := ledger.BuildStateChange(ledger.UpsertItem, bookID, chapter, it.Owner, it.Name, nil, nil, nil, "", batchID); ok {
			if err := e.Store.InsertStateChange(ctx, sc.BookID, sc.Chapter, sc.CharacterName, sc.Category, sc.Name, sc.Action, sc.ValueDelta, sc.ValueAfter, sc.Detail, sc.BatchID); err != nil {
				return fmt.Errorf("writing item state change %s: %w", it.Name, err)
			}
		}
	}
	for _, cr := range r.Lore.Creatures {
		if _, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Creature", cr.Name, cr.Description, batchID); err != nil {
			return fmt.Errorf("writing creature %s: %w", cr.Name, err)
		}
	}
	for _, f := range r.Lore.Factions {
		if _, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Faction", f.Name, f.Description, batchID); err != nil {
			return fmt.Errorf("writing faction %s: %w", f.Name, err)
		}
	}
	for _, c := range r.Lore.Concepts {
		if _, err := e.Store.UpsertOwnedEntity(ctx, bookID, "Concept", c.Name, c.Description, batchID); err != nil {
			return fmt.Errorf("writing concept %s: %w", c.Name, err)
		}
	}

	if r.Series != nil {
		for _, se := range r.Series.Entities {
			kind := ledger.UpsertBloodline
			if se.TypeName == "Profession" {
				kind = ledger.UpsertProfession
			}
			if _, err := e.Store.UpsertOwnedEntity(ctx, bookID, se.TypeName, se.Name, se.Description, batchID); err != nil {
				return fmt.Errorf("writing series entity %s: %w", se.Name, err)
			}
			if sc, ok := ledger.BuildStateChange(kind, bookID, chapter, se.Owner, se.Name, nil, nil, nil, "", batchID); ok {
				if err := e.Store.InsertStateChange(ctx, sc.BookID, sc.Chapter, sc.CharacterName, sc.Category, sc.Name, sc.Action, sc.ValueDelta, sc.ValueAfter, sc.Detail, sc.BatchID); err != nil {
					return fmt.Errorf("writing series state change %s: %w", se.Name, err)
				}
			}
		}
	}

	return nil
}

// writeMentions writes one mention row per occurrence from two
// independent sources (§4.9; mentions are CREATE-only, never merged):
// the LLM's own grounded spans (mention_type=langextract) and a
// word-boundary scan over the surviving characters' names/aliases and
// the surviving skill and location names (see mentionEntities).
func (e *Engine) writeMentions(ctx context.Context, bookID string, chapter int, r *extract.ChapterExtractionResult, grounded []extract.GroundedEntity) error {
	for _, ge := range grounded {
		entityID, err := e.resolveMentionEntity(ctx, bookID, ge.EntityName)
		if err != nil {
			continue // dropped by quality.Filter after the pass produced its grounding
		}
		m := mention.Mention{
			EntityKey: ge.EntityName, CharStart: ge.CharOffsetStart, CharEnd: ge.CharOffsetEnd,
			MentionText: ge.ExtractionText, MentionType: "langextract",
			Confidence: ge.Confidence, AlignmentStatus: ge.AlignmentStatus,
		}
		if err := e.Store.InsertMention(ctx, bookID, chapter, entityID, m, ge.PassName); err != nil {
			return fmt.Errorf("inserting grounded mention for %s: %w", ge.EntityName, err)
		}
	}

	knownEntities := mentionEntities(r)
	if len(knownEntities) == 0 {
		return nil
	}

	chapterRow, err := e.Store.GetChapter(ctx, bookID, chapter)
	if err != nil {
		return fmt.Errorf("loading chapter text for mentions: %w", err)
	}
	directMentions := mention.DetectMentions(chapterRow.Text, knownEntities)

	for _, m := range directMentions {
		entityID, err := e.resolveMentionEntity(ctx, bookID, m.EntityKey)
		if err != nil {
			continue // entity was filtered by quality.Filter after detection; skip its mentions
		}
		if err := e.Store.InsertMention(ctx, bookID, chapter, entityID, m, "mentions"); err != nil {
			return fmt.Errorf("inserting mention for %s: %w", m.EntityKey, err)
		}
	}

	// Optional coreference pass (§4.9, §9 Open Questions): resolve
	// pronouns to the nearest preceding direct-name or alias mention
	// (of a character, skill or location) within the same scene segment.
	_, sceneBounds := paragraphsAndScenes(chapterRow.Text)
	pronounSpans := mention.DetectMentions(chapterRow.Text, pronounKnownEntities())
	characterMentions := make([]mention.Mention, 0, len(directMentions))
	for _, m := range directMentions {
		if m.MentionType == "direct_name" || m.MentionType == "alias" {
			characterMentions = append(characterMentions, m)
		}
	}
	resolved := mention.ResolvePronouns(chapterRow.Text, pronounSpans, characterMentions, sceneBounds)
	for _, m := range resolved {
		entityID, err := e.resolveMentionEntity(ctx, bookID, m.EntityKey)
		if err != nil {
			continue
		}
		if err := e.Store.InsertMention(ctx, bookID, chapter, entityID, m, "coreference"); err != nil {
			return fmt.Errorf("inserting pronoun mention: %w", err)
		}
	}
	return nil
}

// pronounKnownEntities exposes the English pronoun vocabulary as
// mention.KnownEntity values so mention.DetectMentions can locate
// pronoun spans the same way it locates direct names.
func pronounKnownEntities() []mention.KnownEntity {
	englishPronouns := []string{"he", "she", "they", "him", "her", "them", "his", "hers", "their", "theirs", "himself", "herself", "themselves"}
	out := make([]mention.KnownEntity, 0, len(englishPronouns))
	for _, p := range englishPronouns {
		out = append(out, mention.KnownEntity{Key: p, Name: p})
	}
	return out
}

// resolveMentionEntity looks up an entity id by trying each type the
// mention key could plausibly belong to, since mentionEntities pools
// characters/skills/locations under one key space.
func (e *Engine) resolveMentionEntity(ctx context.Context, bookID, key string) (int64, error) {
	for _, entityType := range []string{"Character", "Skill", "Location"} {
		if id, err := e.Store.FindEntityByCanonicalName(ctx, bookID, entityType, key); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("pipeline: no entity found for mention key %q", key)
}
