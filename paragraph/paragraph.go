// Package paragraph classifies raw chapter text into the Paragraph
// type's structural categories (§6 "Chapter text format": narration,
// dialogue, blue_box, scene_break, header), adapted from the teacher's
// chunker.structure heading/table/definition heuristics onto
// progression-fantasy prose instead of legal/standards documents.
package paragraph

import (
	"regexp"
	"strings"
)

// Type is one of the five structural paragraph categories (§6).
type Type string

const (
	TypeNarration  Type = "narration"
	TypeDialogue   Type = "dialogue"
	TypeBlueBox    Type = "blue_box"
	TypeSceneBreak Type = "scene_break"
	TypeHeader     Type = "header"
)

// Paragraph is one classified block with its character offsets into the
// raw chapter text (§3 Chunk, §6).
type Paragraph struct {
	Text            string
	CharOffsetStart int
	CharOffsetEnd   int
	Type            Type
	Speaker         string
}

// headingPatterns adapts the teacher's headingPatterns onto chapter
// titles instead of legal section headings: "Chapter 12", "Chapter
// Twelve: The Awakening", markdown-style headers.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^chapter\s+\d+`),
	regexp.MustCompile(`(?i)^chapter\s+[a-z]+`),
	regexp.MustCompile(`^#{1,6}\s+\S`),
	regexp.MustCompile(`^[A-Z][A-Z\s]{4,}$`),
}

// sceneBreakPatterns match the conventional scene-break glyphs authors
// use in place of a blank scene transition (***, ---, §, a lone "* * *").
var sceneBreakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[\*\-=~•]{3,}$`),
	regexp.MustCompile(`^(\*\s*){3,}$`),
	regexp.MustCompile(`^§+$`),
}

// blueBoxPatterns detect system-notification "boxes" — bracketed or
// boxed status text ("[Skill Acquired]", "┌─...─┐" ascii-art borders).
var blueBoxPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*[\[【].+[\]】]\s*$`),
	regexp.MustCompile(`^[┌┏╔].*[┐┓╗]$`),
	regexp.MustCompile(`^[│┃║]`),
	regexp.MustCompile(`^[└┗╚].*[┘┛╝]$`),
}

// dialoguePattern matches a line that opens with a quotation mark, the
// most common convention for spoken dialogue in prose.
var dialoguePattern = regexp.MustCompile(`^\s*["“\x60]`)

// speakerAttrPattern captures a leading "Name:" tag; saidPattern and
// saidFirstPattern capture a "Name said" or "said Name" attribution, the
// conventional speaker-tag shapes.
var speakerAttrPattern = regexp.MustCompile(`(?i)^([A-Z][a-zA-Z' -]{1,30}):\s`)
var saidPattern = regexp.MustCompile(`(?i)\b([A-Z][a-zA-Z' -]{1,30})\s+(?:said|asked|replied|shouted|whispered|muttered)\b`)
var saidFirstPattern = regexp.MustCompile(`\b(?i:said|asked|replied|shouted|whispered|muttered)\s+([A-Z][a-zA-Z'-]{1,30})`)

// Classify assigns one Type to a paragraph of text, in the priority
// order scene_break > header > blue_box > dialogue > narration — mirrors
// the teacher's ContentType cascade of specific heuristics before the
// generic fallback.
func Classify(text string) Type {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return TypeNarration
	}

	for _, re := range sceneBreakPatterns {
		if re.MatchString(trimmed) {
			return TypeSceneBreak
		}
	}
	if isHeader(trimmed) {
		return TypeHeader
	}
	if looksLikeBlueBox(trimmed) {
		return TypeBlueBox
	}
	if dialoguePattern.MatchString(trimmed) {
		return TypeDialogue
	}
	return TypeNarration
}

func isHeader(line string) bool {
	first := firstLine(line)
	for _, re := range headingPatterns {
		if re.MatchString(first) {
			return true
		}
	}
	return false
}

// looksLikeBlueBox reports whether at least half of the non-empty lines
// of the block match a box-glyph pattern, the same "most lines must match" shape
// the teacher uses for looksLikeTable.
func looksLikeBlueBox(text string) bool {
	lines := strings.Split(text, "\n")
	matched := 0
	nonEmpty := 0
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		nonEmpty++
		for _, re := range blueBoxPatterns {
			if re.MatchString(l) {
				matched++
				break
			}
		}
	}
	return nonEmpty > 0 && matched >= nonEmpty/2+nonEmpty%2
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// DetectSpeaker extracts a speaker attribution from a dialogue paragraph,
// trying a leading "Name:" tag before a "said Name"/"Name said" phrase
// elsewhere in the text; returns "" when neither matches.
func DetectSpeaker(text string) string {
	if m := speakerAttrPattern.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	if m := saidPattern.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	if m := saidFirstPattern.FindStringSubmatch(text); len(m) == 2 {
		return m[1]
	}
	return ""
}

// Segment splits raw chapter text on blank-line boundaries (§6 "paragraph
// boundaries as double newlines") into classified Paragraphs carrying
// char offsets into the original text.
func Segment(chapterText string) []Paragraph {
	var out []Paragraph
	offset := 0
	blocks := strings.Split(chapterText, "\n\n")
	for _, block := range blocks {
		start := offset
		end := start + len(block)
		offset = end + 2 // account for the stripped "\n\n"

		if strings.TrimSpace(block) == "" {
			continue
		}
		t := Classify(block)
		p := Paragraph{Text: block, CharOffsetStart: start, CharOffsetEnd: end, Type: t}
		if t == TypeDialogue {
			p.Speaker = DetectSpeaker(block)
		}
		out = append(out, p)
	}
	return out
}

// SceneBoundaries returns the char offsets of every scene_break
// paragraph, the raw-int input mention.ResolvePronouns needs for
// bounding coreference to within a scene (§9 Open Questions: "should not
// cross scene breaks").
func SceneBoundaries(paragraphs []Paragraph) []int {
	var bounds []int
	for _, p := range paragraphs {
		if p.Type == TypeSceneBreak {
			bounds = append(bounds, p.CharOffsetStart)
		}
	}
	return bounds
}
