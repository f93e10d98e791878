package reconcile

import (
	"context"
	"fmt"

	"github.com/worldrag/worldrag/dedup"
	"github.com/worldrag/worldrag/extract"
	"github.com/worldrag/worldrag/llm"
)

// Conflict records an ambiguous merge decision left unresolved (§4.6:
// "Ambiguous merges ... are recorded in conflicts[] and left unresolved;
// the caller proceeds").
type Conflict struct {
	SurfaceForm string
	Candidates  []string
}

// Reconciler runs dedup per entity type and applies the resulting union
// alias map across every pass's output (§4.6).
type Reconciler struct {
	Chat       llm.Provider
	Model      string
	DedupCfg   dedup.Config
}

// New builds a Reconciler with the given LLM client (may be nil) and
// dedup thresholds.
func New(chat llm.Provider, model string, cfg dedup.Config) *Reconciler {
	return &Reconciler{Chat: chat, Model: model, DedupCfg: cfg}
}

// Reconcile dedups characters/skills/classes/locations/items/factions
// independently (titles are not deduped), unions their alias maps (collapsing chains,
// §9), rewrites every cross-reference, and optionally ties surviving
// characters to a cross-book series registry (§4.6).
func (rc *Reconciler) Reconcile(ctx context.Context, result *extract.ChapterExtractionResult, seriesRegistry *EntityRegistry) ([]Conflict, error) {
	union := map[string]string{}
	var conflicts []Conflict

	mergeUnion := func(alias map[string]string) {
		for k, v := range alias {
			union[k] = v
		}
	}

	// Characters.
	charRes, err := dedup.Dedup(ctx, result.Characters.Characters,
		func(c extract.Character) string { return c.Name },
		mergeCharacter, rc.Chat, rc.Model, rc.DedupCfg)
	if err != nil {
		return nil, fmt.Errorf("reconcile: character dedup: %w", err)
	}
	result.Characters.Characters = charRes.Entities
	mergeUnion(charRes.AliasMap)
	for _, c := range charRes.Candidates {
		conflicts = append(conflicts, Conflict{SurfaceForm: c[0], Candidates: []string{c[1]}})
	}

	// Skills, classes, locations, items, factions: same shape,
	// dedup independently and union their alias maps.
	skillRes, err := dedup.Dedup(ctx, result.Systems.Skills,
		func(s extract.Skill) string { return s.Name },
		func(a, b extract.Skill) extract.Skill {
			if len(b.Description) > len(a.Description) {
				a.Description = b.Description
			}
			return a
		}, rc.Chat, rc.Model, rc.DedupCfg)
	if err != nil {
		return nil, fmt.Errorf("reconcile: skill dedup: %w", err)
	}
	result.Systems.Skills = skillRes.Entities
	mergeUnion(skillRes.AliasMap)

	classRes, err := dedup.Dedup(ctx, result.Systems.Classes,
		func(c extract.Class) string { return c.Name },
		func(a, b extract.Class) extract.Class { return a }, rc.Chat, rc.Model, rc.DedupCfg)
	if err != nil {
		return nil, fmt.Errorf("reconcile: class dedup: %w", err)
	}
	result.Systems.Classes = classRes.Entities
	mergeUnion(classRes.AliasMap)

	locRes, err := dedup.Dedup(ctx, result.Lore.Locations,
		func(l extract.Location) string { return l.Name },
		func(a, b extract.Location) extract.Location { return a }, rc.Chat, rc.Model, rc.DedupCfg)
	if err != nil {
		return nil, fmt.Errorf("reconcile: location dedup: %w", err)
	}
	result.Lore.Locations = locRes.Entities
	mergeUnion(locRes.AliasMap)

	itemRes, err := dedup.Dedup(ctx, result.Lore.Items,
		func(i extract.Item) string { return i.Name },
		func(a, b extract.Item) extract.Item { return a }, rc.Chat, rc.Model, rc.DedupCfg)
	if err != nil {
		return nil, fmt.Errorf("reconcile: item dedup: %w", err)
	}
	result.Lore.Items = itemRes.Entities
	mergeUnion(itemRes.AliasMap)

	factionRes, err := dedup.Dedup(ctx, result.Lore.Factions,
		func(f extract.Faction) string { return f.Name },
		func(a, b extract.Faction) extract.Faction { return a }, rc.Chat, rc.Model, rc.DedupCfg)
	if err != nil {
		return nil, fmt.Errorf("reconcile: faction dedup: %w", err)
	}
	result.Lore.Factions = factionRes.Entities
	mergeUnion(factionRes.AliasMap)

	// §9 "Alias chains": collapse any a→b, b→c chains before applying.
	union = CollapseChains(union)
	result.AliasMap = union

	apply(union, result)

	if seriesRegistry != nil {
		rc.applyCrossBookRegistry(result, seriesRegistry, union)
	}

	return conflicts, nil
}

func mergeCharacter(a, b extract.Character) extract.Character {
	a.Aliases = append(a.Aliases, b.Aliases...)
	if a.Description == "" {
		a.Description = b.Description
	}
	return a
}

// apply rewrites every cross-reference per §4.6's explicit list:
// event.participants, skill/class/title/item/level_change owner,
// character.name/canonical_name (not aliases), relationship.source/target.
func apply(alias map[string]string, r *extract.ChapterExtractionResult) {
	rewrite := func(s string) string {
		if v, ok := alias[s]; ok {
			return v
		}
		return s
	}

	for i := range r.Characters.Characters {
		r.Characters.Characters[i].Name = rewrite(r.Characters.Characters[i].Name)
		r.Characters.Characters[i].CanonicalName = rewrite(r.Characters.Characters[i].CanonicalName)
	}
	for i := range r.Characters.Relationships {
		r.Characters.Relationships[i].Source = rewrite(r.Characters.Relationships[i].Source)
		r.Characters.Relationships[i].Target = rewrite(r.Characters.Relationships[i].Target)
	}
	for i := range r.Systems.Skills {
		r.Systems.Skills[i].Owner = rewrite(r.Systems.Skills[i].Owner)
	}
	for i := range r.Systems.Classes {
		r.Systems.Classes[i].Owner = rewrite(r.Systems.Classes[i].Owner)
	}
	for i := range r.Systems.Titles {
		r.Systems.Titles[i].Owner = rewrite(r.Systems.Titles[i].Owner)
	}
	for i := range r.Systems.LevelChanges {
		r.Systems.LevelChanges[i].Owner = rewrite(r.Systems.LevelChanges[i].Owner)
	}
	for i := range r.Systems.StatChanges {
		r.Systems.StatChanges[i].Owner = rewrite(r.Systems.StatChanges[i].Owner)
	}
	for i := range r.Lore.Items {
		r.Lore.Items[i].Owner = rewrite(r.Lore.Items[i].Owner)
	}
	for i := range r.Events.Events {
		for j := range r.Events.Events[i].Participants {
			r.Events.Events[i].Participants[j] = rewrite(r.Events.Events[i].Participants[j])
		}
	}
}

// applyCrossBookRegistry ties each surviving character to a prior
// canonical name from seriesRegistry when a name/alias match exists
// (§4.6 "Cross-book step").
func (rc *Reconciler) applyCrossBookRegistry(r *extract.ChapterExtractionResult, reg *EntityRegistry, union map[string]string) {
	for i, c := range r.Characters.Characters {
		if entry, ok := reg.Lookup(c.CanonicalName); ok && entry.CanonicalName != c.CanonicalName {
			union[c.CanonicalName] = entry.CanonicalName
			r.Characters.Characters[i].CanonicalName = entry.CanonicalName
		}
	}
	r.AliasMap = CollapseChains(union)
	apply(r.AliasMap, r)
}

// CollapseChains applies union-find over the alias map so that any a→b,
// b→c chain resolves directly to the chain's root, satisfying the
// bijective, single-step alias-map invariant (spec §3, §9, §8
// "Alias map is idempotent: applying twice = applying once").
func CollapseChains(alias map[string]string) map[string]string {
	parent := map[string]string{}
	var find func(string) string
	find = func(x string) string {
		p, ok := parent[x]
		if !ok {
			return x
		}
		root := find(p)
		parent[x] = root
		return root
	}
	for a, b := range alias {
		if _, ok := parent[a]; !ok {
			parent[a] = b
		}
	}
	out := make(map[string]string, len(alias))
	for a := range alias {
		out[a] = find(a)
	}
	return out
}
