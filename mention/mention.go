// Package mention implements the mention detector and grounding layer
// (spec §4.9): word-boundary-anchored scanning that ties every known
// entity's name/aliases to independent spans in the chapter text.
package mention

import (
	"strings"
	"unicode"
)

// Mention mirrors spec §3's MENTIONED_IN edge fields.
type Mention struct {
	EntityKey       string  `json:"entity_key"`
	CharStart       int     `json:"char_start"`
	CharEnd         int     `json:"char_end"`
	MentionText     string  `json:"mention_text"`
	MentionType     string  `json:"mention_type"` // langextract|direct_name|alias|pronoun
	Confidence      float64 `json:"confidence"`
	AlignmentStatus string  `json:"alignment_status"` // exact|fuzzy|unaligned
	PassName        string  `json:"pass_name"`
}

// KnownEntity is one (entityKey, name-or-alias) pair to scan for; callers
// pass one KnownEntity per alias so each gets scanned independently (the
// detector treats direct names and aliases identically apart from the
// resulting MentionType).
type KnownEntity struct {
	Key       string
	Name      string
	IsAlias   bool
}

// DetectMentions scans text case-insensitively with word-boundary
// anchoring for every known entity's name/aliases of length >= 2,
// emitting one independent Mention per match (§4.9). Overlapping matches
// are resolved by keeping the longer span when one strictly contains the
// other (§4.9 "Overlap rule"); matches inside other words are rejected by
// the word-boundary check.
func DetectMentions(text string, entities []KnownEntity) []Mention {
	var raw []Mention
	lowerText := strings.ToLower(text)

	for _, e := range entities {
		name := strings.TrimSpace(e.Name)
		if len([]rune(name)) < 2 {
			continue
		}
		lowerName := strings.ToLower(name)
		mentionType := "direct_name"
		if e.IsAlias {
			mentionType = "alias"
		}

		start := 0
		for {
			idx := strings.Index(lowerText[start:], lowerName)
			if idx < 0 {
				break
			}
			absStart := start + idx
			absEnd := absStart + len(lowerName)

			if wordBoundary(text, absStart, absEnd) {
				raw = append(raw, Mention{
					EntityKey:       e.Key,
					CharStart:       absStart,
					CharEnd:         absEnd,
					MentionText:     text[absStart:absEnd],
					MentionType:     mentionType,
					Confidence:      1.0,
					AlignmentStatus: "exact",
				})
			}
			start = absStart + 1
			if start >= len(lowerText) {
				break
			}
		}
	}

	return resolveOverlaps(raw)
}

// wordBoundary reports whether [start,end) in text is flanked by
// non-word characters (or string boundaries), rejecting substring
// matches inside other words (e.g. "Jake" in "Jakesson", §4.9).
func wordBoundary(text string, start, end int) bool {
	if start > 0 {
		r := []rune(text[:start])
		if isWordRune(r[len(r)-1]) {
			return false
		}
	}
	if end < len(text) {
		r := []rune(text[end:])
		if len(r) > 0 && isWordRune(r[0]) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// resolveOverlaps keeps the longer span when two matches overlap and one
// strictly contains the other (§4.9 "Overlap rule"). Non-overlapping and
// non-containing overlaps (partial overlaps from different entities) are
// both kept since each is an independent occurrence.
func resolveOverlaps(matches []Mention) []Mention {
	keep := make([]bool, len(matches))
	for i := range matches {
		keep[i] = true
	}
	for i := range matches {
		if !keep[i] {
			continue
		}
		for j := range matches {
			if i == j || !keep[j] {
				continue
			}
			if matches[j].CharStart <= matches[i].CharStart && matches[i].CharEnd <= matches[j].CharEnd &&
				!(matches[j].CharStart == matches[i].CharStart && matches[j].CharEnd == matches[i].CharEnd) {
				keep[i] = false
				break
			}
		}
	}
	out := make([]Mention, 0, len(matches))
	for i, m := range matches {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}
