package mention

// PronounMention is a low-confidence coreference resolution candidate
// (§4.9: "an optional coreference pass resolves pronouns to known
// entities with mention_type = pronoun and confidence <= 0.8").
// ResolvePronouns is a minimal, bounded heuristic: it resolves a pronoun
// occurrence to the nearest preceding direct-name mention of a character
// within the same scene segment (§9 Open Questions: "should ... not cross
// scene breaks").
func ResolvePronouns(text string, pronounSpans []Mention, directMentions []Mention, sceneBoundaries []int) []Mention {
	var resolved []Mention
	for _, p := range pronounSpans {
		scene := sceneIndex(p.CharStart, sceneBoundaries)
		var best *Mention
		for i := range directMentions {
			d := directMentions[i]
			if d.CharEnd > p.CharStart {
				continue
			}
			if sceneIndex(d.CharStart, sceneBoundaries) != scene {
				continue
			}
			if best == nil || d.CharStart > best.CharStart {
				best = &directMentions[i]
			}
		}
		if best == nil {
			continue
		}
		resolved = append(resolved, Mention{
			EntityKey:       best.EntityKey,
			CharStart:       p.CharStart,
			CharEnd:         p.CharEnd,
			MentionText:     p.MentionText,
			MentionType:     "pronoun",
			Confidence:      0.7,
			AlignmentStatus: "exact",
		})
	}
	return resolved
}

func sceneIndex(charOffset int, boundaries []int) int {
	idx := 0
	for _, b := range boundaries {
		if charOffset >= b {
			idx++
		}
	}
	return idx
}
