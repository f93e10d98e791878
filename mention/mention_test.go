package mention

import "testing"

func TestMentionSpanIndependenceScenario3(t *testing.T) {
	text := "Jake walked in. Later, Jake spoke. Across the room, Jake waited."
	entities := []KnownEntity{{Key: "jake", Name: "Jake"}}
	matches := DetectMentions(text, entities)

	if len(matches) != 3 {
		t.Fatalf("expected 3 independent mentions, got %d: %+v", len(matches), matches)
	}
	for _, m := range matches {
		if text[m.CharStart:m.CharEnd] != m.MentionText {
			t.Errorf("mention span mismatch: %q vs %q", text[m.CharStart:m.CharEnd], m.MentionText)
		}
	}
}

func TestMentionRejectsSubstringInsideWord(t *testing.T) {
	text := "Jakesson walked into the room."
	entities := []KnownEntity{{Key: "jake", Name: "Jake"}}
	matches := DetectMentions(text, entities)
	if len(matches) != 0 {
		t.Fatalf("expected no match inside Jakesson, got %+v", matches)
	}
}

func TestMentionOverlapKeepsLongerSpan(t *testing.T) {
	text := "Jake Thayne walked in."
	entities := []KnownEntity{
		{Key: "jake", Name: "Jake"},
		{Key: "jake-thayne", Name: "Jake Thayne"},
	}
	matches := DetectMentions(text, entities)
	if len(matches) != 1 {
		t.Fatalf("expected overlap resolved to 1 mention, got %d: %+v", len(matches), matches)
	}
	if matches[0].EntityKey != "jake-thayne" {
		t.Errorf("expected longer span (Jake Thayne) to win, got %+v", matches[0])
	}
}

func TestMentionSkipsShortNames(t *testing.T) {
	text := "He said hi."
	entities := []KnownEntity{{Key: "x", Name: "i"}}
	matches := DetectMentions(text, entities)
	if len(matches) != 0 {
		t.Fatalf("expected short names (<2 chars) to be skipped, got %+v", matches)
	}
}
