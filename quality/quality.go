// Package quality implements the entity-quality filter (spec §4.7):
// a closed set of rejection rules applied after reconciliation, before
// persistence.
package quality

import (
	"log/slog"
	"strings"

	"github.com/worldrag/worldrag/extract"
	"github.com/worldrag/worldrag/ontology"
)

// Report records per-type removal counts for logging (§4.7: "Counts per
// removed type are logged").
type Report struct {
	RemovedByType map[string]int
}

func newReport() *Report { return &Report{RemovedByType: map[string]int{}} }

func (r *Report) drop(entityType string) { r.RemovedByType[entityType]++ }

// rejectName applies the shared, type-agnostic rules (§4.7): pronouns and
// demonstratives, garbage tokens, length bounds, parentheticals. Returns
// true if the name should be rejected outright, before any per-type rule
// runs.
func rejectName(name string) bool {
	n := strings.TrimSpace(name)
	lower := strings.ToLower(n)
	if ontology.Pronouns[lower] || ontology.GarbageTokens[lower] {
		return true
	}
	if len(n) < ontology.MinEntityNameLen || len(n) > ontology.MaxEntityNameLen {
		return true
	}
	if ontology.ReParenthetical.MatchString(n) {
		return true
	}
	return false
}

// Filter applies the closed rule set to a ChapterExtractionResult in
// place, dropping relationships whose endpoints were filtered, and
// returns a Report of per-type removal counts. `total_entities` is
// recomputed on the result from the surviving entities before returning.
func Filter(result *extract.ChapterExtractionResult) *Report {
	report := newReport()

	survivingNames := map[string]bool{}

	keepCharacters := result.Characters.Characters[:0]
	for _, c := range result.Characters.Characters {
		if rejectName(c.Name) || ontology.ReArticleNoun.MatchString(c.Name) ||
			ontology.RePossessiveRelation.MatchString(c.Name) || ontology.ReFrenchPossessive.MatchString(c.Name) {
			report.drop("Character")
			continue
		}
		survivingNames[c.Name] = true
		keepCharacters = append(keepCharacters, c)
	}
	result.Characters.Characters = keepCharacters

	keepRels := result.Characters.Relationships[:0]
	for _, rel := range result.Characters.Relationships {
		if !survivingNames[rel.Source] || !survivingNames[rel.Target] {
			report.drop("CharacterRelationship")
			continue
		}
		keepRels = append(keepRels, rel)
	}
	result.Characters.Relationships = keepRels

	keepSkills := result.Systems.Skills[:0]
	for _, s := range result.Systems.Skills {
		if rejectName(s.Name) || ontology.ReSkillVerbLike.MatchString(s.Name) {
			report.drop("Skill")
			continue
		}
		keepSkills = append(keepSkills, s)
	}
	result.Systems.Skills = keepSkills

	keepClasses := result.Systems.Classes[:0]
	for _, c := range result.Systems.Classes {
		if rejectName(c.Name) {
			report.drop("Class")
			continue
		}
		keepClasses = append(keepClasses, c)
	}
	result.Systems.Classes = keepClasses

	keepTitles := result.Systems.Titles[:0]
	for _, ti := range result.Systems.Titles {
		if rejectName(ti.Name) {
			report.drop("Title")
			continue
		}
		keepTitles = append(keepTitles, ti)
	}
	result.Systems.Titles = keepTitles

	keepEvents := result.Events.Events[:0]
	for _, e := range result.Events.Events {
		if ontology.GenericEventPhrases[strings.ToLower(strings.TrimSpace(e.Description))] {
			report.drop("Event")
			continue
		}
		keepEvents = append(keepEvents, e)
	}
	result.Events.Events = keepEvents

	keepLocations := result.Lore.Locations[:0]
	for _, l := range result.Lore.Locations {
		if rejectName(l.Name) || ontology.ReArticleNoun.MatchString(l.Name) {
			report.drop("Location")
			continue
		}
		keepLocations = append(keepLocations, l)
	}
	result.Lore.Locations = keepLocations

	keepItems := result.Lore.Items[:0]
	for _, it := range result.Lore.Items {
		if rejectName(it.Name) || ontology.ReArticleNoun.MatchString(it.Name) {
			report.drop("Item")
			continue
		}
		keepItems = append(keepItems, it)
	}
	result.Lore.Items = keepItems

	keepCreatures := result.Lore.Creatures[:0]
	for _, cr := range result.Lore.Creatures {
		if rejectName(cr.Name) || ontology.ReArticleNoun.MatchString(cr.Name) {
			report.drop("Creature")
			continue
		}
		keepCreatures = append(keepCreatures, cr)
	}
	result.Lore.Creatures = keepCreatures

	keepFactions := result.Lore.Factions[:0]
	for _, f := range result.Lore.Factions {
		if rejectName(f.Name) || ontology.ReGenericFaction.MatchString(f.Name) {
			report.drop("Faction")
			continue
		}
		keepFactions = append(keepFactions, f)
	}
	result.Lore.Factions = keepFactions

	keepConcepts := result.Lore.Concepts[:0]
	for _, c := range result.Lore.Concepts {
		if rejectName(c.Name) {
			report.drop("Concept")
			continue
		}
		keepConcepts = append(keepConcepts, c)
	}
	result.Lore.Concepts = keepConcepts

	result.TotalEntities = len(result.Characters.Characters) + len(result.Systems.Skills) +
		len(result.Systems.Classes) + len(result.Systems.Titles) + len(result.Events.Events) +
		len(result.Lore.Locations) + len(result.Lore.Items) + len(result.Lore.Creatures) +
		len(result.Lore.Factions) + len(result.Lore.Concepts)
	if result.Series != nil {
		result.TotalEntities += len(result.Series.Entities)
	}

	for entityType, n := range report.RemovedByType {
		slog.Info("quality: removed entities", "entity_type", entityType, "count", n)
	}

	return report
}
