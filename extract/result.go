package extract

// CharactersResult is the characters pass's typed output.
type CharactersResult struct {
	Characters    []Character             `json:"characters"`
	Relationships []CharacterRelationship `json:"relationships"`
	Grounded      []GroundedEntity        `json:"grounded_entities"`
}

// SystemsResult is the systems pass's typed output.
type SystemsResult struct {
	Skills        []Skill          `json:"skills"`
	Classes       []Class          `json:"classes"`
	Titles        []Title          `json:"titles"`
	LevelChanges  []LevelChange    `json:"level_changes"`
	StatChanges   []StatChange     `json:"stat_changes"`
	Grounded      []GroundedEntity `json:"grounded_entities"`
}

// EventsResult is the events pass's typed output.
type EventsResult struct {
	Events   []Event          `json:"events"`
	Grounded []GroundedEntity `json:"grounded_entities"`
}

// LoreResult is the lore pass's typed output.
type LoreResult struct {
	Locations []Location       `json:"locations"`
	Items     []Item           `json:"items"`
	Creatures []Creature       `json:"creatures"`
	Factions  []Faction        `json:"factions"`
	Concepts  []Concept        `json:"concepts"`
	Grounded  []GroundedEntity `json:"grounded_entities"`
}

// SeriesResult is the optional series pass's typed output.
type SeriesResult struct {
	Entities []SeriesEntity   `json:"entities"`
	Grounded []GroundedEntity `json:"grounded_entities"`
}

// ChapterExtractionResult is the merge node's output (§4.4, §6): five
// sub-results plus a flattened grounded-entity list, pass bookkeeping,
// and accumulated per-chapter cost.
type ChapterExtractionResult struct {
	BookID         string             `json:"book_id"`
	ChapterNumber  int                `json:"chapter_number"`
	Characters     CharactersResult   `json:"characters"`
	Systems        SystemsResult      `json:"systems"`
	Events         EventsResult       `json:"events"`
	Lore           LoreResult         `json:"lore"`
	Series         *SeriesResult      `json:"series,omitempty"`
	GroundedEntities []GroundedEntity `json:"grounded_entities"`
	AliasMap       map[string]string  `json:"alias_map"`
	TotalEntities  int                `json:"total_entities"`
	TotalCostUSD   float64            `json:"total_cost_usd"`
	PassesCompleted []string          `json:"passes_completed"`
	PassErrors     []PassResult       `json:"-"`
}

// Merge collects per-pass outputs into a single ChapterExtractionResult,
// flattening grounded entities and recording which passes actually
// completed (§4.4). Passes that errored are simply absent from their
// corresponding field (callers pass the zero value) and are recorded in
// PassErrors and omitted from PassesCompleted.
func Merge(bookID string, chapterNumber int, characters CharactersResult, systems SystemsResult,
	events EventsResult, lore LoreResult, series *SeriesResult, passErrors []PassResult) *ChapterExtractionResult {

	r := &ChapterExtractionResult{
		BookID:        bookID,
		ChapterNumber: chapterNumber,
		Characters:    characters,
		Systems:       systems,
		Events:        events,
		Lore:          lore,
		Series:        series,
		PassErrors:    passErrors,
	}

	failed := map[string]bool{}
	for _, pe := range passErrors {
		if pe.Err != nil {
			failed[pe.PassName] = true
		}
	}
	for _, name := range []string{"characters", "systems", "events", "lore", "series"} {
		if !failed[name] {
			if name == "series" && series == nil {
				continue
			}
			r.PassesCompleted = append(r.PassesCompleted, name)
		}
	}

	r.GroundedEntities = append(r.GroundedEntities, characters.Grounded...)
	r.GroundedEntities = append(r.GroundedEntities, systems.Grounded...)
	r.GroundedEntities = append(r.GroundedEntities, events.Grounded...)
	r.GroundedEntities = append(r.GroundedEntities, lore.Grounded...)
	if series != nil {
		r.GroundedEntities = append(r.GroundedEntities, series.Grounded...)
	}

	r.TotalEntities = len(characters.Characters) + len(systems.Skills) + len(systems.Classes) +
		len(systems.Titles) + len(events.Events) + len(lore.Locations) + len(lore.Items) +
		len(lore.Creatures) + len(lore.Factions) + len(lore.Concepts)
	if series != nil {
		r.TotalEntities += len(series.Entities)
	}

	return r
}
