// Package ledger implements the immutable StateChange ledger (spec §3),
// the per-entity-type upsert-dispatch descriptor table (§9 "Dynamic
// dispatch over entity types"), and the state-reconstruction queries
// (§4.11).
package ledger

// StateChange is the immutable ledger record (§3). Never updated, never
// deleted in normal operation.
type StateChange struct {
	BookID        string  `json:"book_id"`
	Chapter       int     `json:"chapter"`
	Category      string  `json:"category"` // stat|level|skill|class|title|item|bloodline|profession
	Name          string  `json:"name"`
	Action        string  `json:"action"` // gain|lose|acquire|drop|upgrade|evolve|awaken
	ValueDelta    *int    `json:"value_delta,omitempty"`
	ValueAfter    *int    `json:"value_after,omitempty"`
	Detail        string  `json:"detail,omitempty"`
	CharacterName string  `json:"character_name"`
	BatchID       string  `json:"batch_id"`
}

// UpsertKind enumerates the progression-relevant upsert kinds that pair
// with a StateChange write (§4.8's table).
type UpsertKind int

const (
	UpsertSkill UpsertKind = iota
	UpsertClass
	UpsertTitle
	UpsertItem
	UpsertStatChange
	UpsertLevelChange
	UpsertBloodline
	UpsertProfession
)

// Descriptor is the per-variant dispatch record spec §9 asks for: model
// the per-entity upsert logic "as a closed algebraic type plus a
// per-variant (label, match_property, temporal_edge?) descriptor; dispatch
// on the descriptor rather than duplicating branches."
type Descriptor struct {
	Label          string
	MatchProperty  string
	Temporal       bool
	StateCategory  string
	DefaultAction  string
}

// Descriptors is the closed table from §4.8.
var Descriptors = map[UpsertKind]Descriptor{
	UpsertSkill:       {Label: "Skill", MatchProperty: "name", Temporal: true, StateCategory: "skill", DefaultAction: "acquire"},
	UpsertClass:       {Label: "Class", MatchProperty: "name", Temporal: true, StateCategory: "class", DefaultAction: "acquire"},
	UpsertTitle:       {Label: "Title", MatchProperty: "name", Temporal: true, StateCategory: "title", DefaultAction: "acquire"},
	UpsertItem:        {Label: "Item", MatchProperty: "name", Temporal: true, StateCategory: "item", DefaultAction: "acquire"},
	UpsertStatChange:  {Label: "Stat", MatchProperty: "name", Temporal: false, StateCategory: "stat", DefaultAction: "gain"},
	UpsertLevelChange: {Label: "Level", MatchProperty: "", Temporal: false, StateCategory: "level", DefaultAction: "gain"},
	UpsertBloodline:   {Label: "Bloodline", MatchProperty: "name", Temporal: true, StateCategory: "bloodline", DefaultAction: "awaken"},
	UpsertProfession:  {Label: "Profession", MatchProperty: "name", Temporal: true, StateCategory: "profession", DefaultAction: "acquire"},
}

// BuildStateChange dispatches on kind's Descriptor to build the paired
// StateChange for a progression-relevant upsert (§4.8's table), returning
// ok=false when the upsert has no owner and the caller should skip the
// write ("Upserts with missing owner skip the StateChange write").
func BuildStateChange(kind UpsertKind, bookID string, chapter int, owner, name string,
	value *int, oldLevel, newLevel *int, detail, batchID string) (StateChange, bool) {

	if owner == "" {
		return StateChange{}, false
	}
	d := Descriptors[kind]
	sc := StateChange{
		BookID: bookID, Chapter: chapter, Category: d.StateCategory,
		Name: name, Action: d.DefaultAction, CharacterName: owner, BatchID: batchID, Detail: detail,
	}

	switch kind {
	case UpsertStatChange:
		sc.ValueDelta = value
		if value != nil && *value < 0 {
			sc.Action = "lose"
		}
	case UpsertLevelChange:
		if oldLevel != nil && newLevel != nil {
			delta := *newLevel - *oldLevel
			sc.ValueDelta = &delta
		}
		sc.ValueAfter = newLevel
	}

	return sc, true
}
