// Package router selects which optional LLM extraction passes run for a
// chapter, from cheap keyword heuristics and the Passe 0 summary (spec
// §4.2). It is a pure function: no LLM calls, no package-level state.
package router

import (
	"github.com/worldrag/worldrag/ontology"
	"github.com/worldrag/worldrag/regexpre"
)

const (
	PassCharacters = "characters"
	PassSystems    = "systems"
	PassEvents     = "events"
	PassLore       = "lore"
	PassSeries     = "series"
)

// Thresholds mirrors the Config knobs the router consumes, kept as its own
// small struct so the function stays pure and testable without the full
// worldrag.Config import cycle.
type Thresholds struct {
	ShortChapterChars  int
	SystemsKeywordMin  int
	EventsKeywordMin   int
	LoreKeywordMin     int
	SystemsGenreMinHit int
}

// DefaultThresholds mirrors spec §4.2's stated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortChapterChars:  2000,
		SystemsKeywordMin:  2,
		EventsKeywordMin:   2,
		LoreKeywordMin:     3,
		SystemsGenreMinHit: 1,
	}
}

// Route is the pure decision function. chapterText + genre + the Passe 0
// matches for this chapter in, a pass-name set out. `characters` is always
// included (§4.2). Short chapters bypass routing entirely and run every
// pass, per "Chapters shorter than SHORT_CHAPTER_CHARS skip routing and
// run all passes."
func Route(chapterText string, genre string, matches []regexpre.RegexMatch, th Thresholds) []string {
	if len(chapterText) < th.ShortChapterChars {
		return []string{PassCharacters, PassSystems, PassEvents, PassLore}
	}

	passes := []string{PassCharacters}

	systemHits := ontology.CountSystemKeywords(chapterText)
	g := ontology.Genre(genre)
	triggerSystems := systemHits >= th.SystemsKeywordMin ||
		len(matches) > 0 ||
		(g.IsSystemsGenre() && systemHits >= th.SystemsGenreMinHit)
	if triggerSystems {
		passes = append(passes, PassSystems)
	}

	eventHits := ontology.CountEventKeywords(chapterText)
	triggerEvents := eventHits >= th.EventsKeywordMin
	if !triggerEvents && !triggerSystems && eventHits >= 1 && len(matches) == 0 {
		// "fallback: ≥ 1 keyword if no other signal" (§4.2).
		triggerEvents = true
	}
	if triggerEvents {
		passes = append(passes, PassEvents)
	}

	if ontology.CountLoreKeywords(chapterText) >= th.LoreKeywordMin {
		passes = append(passes, PassLore)
	}

	return passes
}
