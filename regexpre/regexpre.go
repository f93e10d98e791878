// Package regexpre is Passe 0 (spec §4.1): a pure, infallible regex
// pre-extractor that mines structured system notifications ("blue boxes")
// out of chapter text before any LLM call is made, yielding grounded
// character offsets that downstream LLM passes are given as hints.
package regexpre

import (
	"log/slog"
	"regexp"
	"sort"

	"github.com/spf13/cast"

	"github.com/worldrag/worldrag/ontology"
)

// RegexMatch mirrors spec §3/§6's RegexMatch record exactly.
type RegexMatch struct {
	PatternName     string            `json:"pattern_name"`
	EntityType      string            `json:"entity_type"`
	Captures        map[string]string `json:"captures"`
	RawText         string            `json:"raw_text"`
	CharOffsetStart int               `json:"char_offset_start"`
	CharOffsetEnd   int               `json:"char_offset_end"`
	ChapterNumber   int               `json:"chapter_number"`
	Layer           ontology.Layer    `json:"layer"`
}

// IntCapture reads a numeric capture (e.g. "old_value", "new_value")
// coercing via spf13/cast, returning ok=false if the key is absent or
// unparsable, so a LevelChange/StatChange value can be read straight off
// a RegexMatch without re-parsing text.
func (m RegexMatch) IntCapture(key string) (int, bool) {
	raw, ok := m.Captures[key]
	if !ok {
		return 0, false
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Extractor holds the compiled, ontology-layered pattern set. Built once
// at startup from core + genre + optional series patterns (§9: "layer
// source visible on each RegexMatch for audit").
type Extractor struct {
	specific []ontology.Pattern
	generic  []ontology.Pattern
}

// NewExtractor compiles the built-in core pattern set plus any caller
// supplied genre/series layers, keeping specific-before-generic ordering
// (§4.1: "Specific patterns are applied first, then a generic
// bracketed-box catch-all").
func NewExtractor(extra ...ontology.Pattern) *Extractor {
	e := &Extractor{}
	for _, p := range corePatterns() {
		e.add(p)
	}
	for _, p := range extra {
		e.add(p)
	}
	return e
}

func (e *Extractor) add(p ontology.Pattern) {
	if p.Generic {
		e.generic = append(e.generic, p)
	} else {
		e.specific = append(e.specific, p)
	}
}

// Extract runs every compiled pattern over text in specific-then-generic
// order and returns RegexMatch sorted by start offset, dropping generic
// matches fully contained by a specific span already claimed and any match
// overlapping an earlier-starting one (§4.1). Extract never panics or returns an error: a pattern whose
// Regex is nil (a compile failure caught at load time) is simply skipped.
func (e *Extractor) Extract(text string, chapterNumber int) []RegexMatch {
	var claimed []span
	var matches []RegexMatch

	for _, p := range e.specific {
		if p.Regex == nil {
			slog.Warn("regexpre: skipping pattern with nil regex", "pattern", p.Name)
			continue
		}
		for _, m := range findAll(p, text, chapterNumber) {
			matches = append(matches, m)
			claimed = append(claimed, span{m.CharOffsetStart, m.CharOffsetEnd})
		}
	}

	for _, p := range e.generic {
		if p.Regex == nil {
			continue
		}
		for _, m := range findAll(p, text, chapterNumber) {
			s := span{m.CharOffsetStart, m.CharOffsetEnd}
			if containedByAny(s, claimed) {
				continue
			}
			matches = append(matches, m)
		}
	}

	return dropOverlappingDuplicates(matches)
}

type span struct{ start, end int }

func containedByAny(s span, claimed []span) bool {
	for _, c := range claimed {
		if c.start <= s.start && s.end <= c.end {
			return true
		}
	}
	return false
}

func findAll(p ontology.Pattern, text string, chapterNumber int) []RegexMatch {
	locs := p.Regex.FindAllStringSubmatchIndex(text, -1)
	out := make([]RegexMatch, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		captures := map[string]string{}
		for name, idx := range p.Captures {
			gs, ge := idx*2, idx*2+1
			if gs >= 0 && ge < len(loc) && loc[gs] >= 0 && loc[ge] >= 0 {
				captures[name] = text[loc[gs]:loc[ge]]
			}
		}
		out = append(out, RegexMatch{
			PatternName:     p.Name,
			EntityType:      p.EntityType,
			Captures:        captures,
			RawText:         text[start:end],
			CharOffsetStart: start,
			CharOffsetEnd:   end,
			ChapterNumber:   chapterNumber,
			Layer:           p.Layer,
		})
	}
	return out
}

// dropOverlappingDuplicates keeps matches across distinct patterns only
// when their spans are disjoint (§4.1: "duplicates across patterns are
// kept only when their (start, end) spans are disjoint").
func dropOverlappingDuplicates(matches []RegexMatch) []RegexMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CharOffsetStart < matches[j].CharOffsetStart
	})
	var out []RegexMatch
	for _, m := range matches {
		overlaps := false
		for _, kept := range out {
			if m.CharOffsetStart < kept.CharOffsetEnd && kept.CharOffsetStart < m.CharOffsetEnd {
				overlaps = true
				break
			}
		}
		if !overlaps {
			out = append(out, m)
		}
	}
	return out
}

// corePatterns is the built-in layer-0 pattern set: bracketed system
// notifications common to LitRPG/progression-fantasy prose.
func corePatterns() []ontology.Pattern {
	mustCompile := func(expr string) *regexp.Regexp {
		re, err := regexp.Compile(expr)
		if err != nil {
			slog.Warn("regexpre: core pattern failed to compile", "expr", expr, "error", err)
			return nil
		}
		return re
	}

	return []ontology.Pattern{
		{
			Name:       "skill_acquired",
			EntityType: "Skill",
			Regex:      mustCompile(`(?i)\[Skill Acquired:\s*([^-\]]+?)(?:\s*-\s*([^\]]+))?\]`),
			Captures:   map[string]int{"name": 1, "rank": 2},
			Layer:      ontology.LayerCore,
		},
		{
			Name:       "stat_increase",
			EntityType: "Stat",
			Regex:      mustCompile(`(?im)^\+(\d+)\s+([A-Za-z][A-Za-z ]*)$`),
			Captures:   map[string]int{"value": 1, "stat_name": 2},
			Layer:      ontology.LayerCore,
		},
		{
			Name:       "stat_decrease",
			EntityType: "Stat",
			Regex:      mustCompile(`(?im)^-(\d+)\s+([A-Za-z][A-Za-z ]*)$`),
			Captures:   map[string]int{"value": 1, "stat_name": 2},
			Layer:      ontology.LayerCore,
		},
		{
			Name:       "level_up",
			EntityType: "Level",
			Regex:      mustCompile(`(?i)Level:\s*(\d+)\s*->\s*(\d+)`),
			Captures:   map[string]int{"old_value": 1, "new_value": 2},
			Layer:      ontology.LayerCore,
		},
		{
			Name:       "class_acquired",
			EntityType: "Class",
			Regex:      mustCompile(`(?i)\[Class Acquired:\s*([^\]]+)\]`),
			Captures:   map[string]int{"name": 1},
			Layer:      ontology.LayerCore,
		},
		{
			Name:       "title_earned",
			EntityType: "Title",
			Regex:      mustCompile(`(?i)\[Title Earned:\s*([^\]]+)\]`),
			Captures:   map[string]int{"name": 1},
			Layer:      ontology.LayerCore,
		},
		{
			Name:       "generic_bracketed_box",
			EntityType: "Unknown",
			Regex:      mustCompile(`\[[^\[\]]{3,200}\]`),
			Captures:   map[string]int{},
			Layer:      ontology.LayerCore,
			Generic:    true,
		},
	}
}
