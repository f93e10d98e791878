package paragraph

import "testing"

func TestClassifyHeader(t *testing.T) {
	if got := Classify("Chapter 12: The Awakening"); got != TypeHeader {
		t.Fatalf("expected header, got %v", got)
	}
}

func TestClassifySceneBreak(t *testing.T) {
	if got := Classify("* * *"); got != TypeSceneBreak {
		t.Fatalf("expected scene_break, got %v", got)
	}
	if got := Classify("---"); got != TypeSceneBreak {
		t.Fatalf("expected scene_break for dash rule, got %v", got)
	}
}

func TestClassifyBlueBox(t *testing.T) {
	text := "[Skill Acquired: Fireball]"
	if got := Classify(text); got != TypeBlueBox {
		t.Fatalf("expected blue_box, got %v", got)
	}
}

func TestClassifyDialogueWithSpeaker(t *testing.T) {
	text := `"We need to move," said Jake.`
	if got := Classify(text); got != TypeDialogue {
		t.Fatalf("expected dialogue, got %v", got)
	}
	if speaker := DetectSpeaker(text); speaker != "Jake" {
		t.Fatalf("expected speaker Jake, got %q", speaker)
	}
}

func TestClassifyNarrationFallback(t *testing.T) {
	if got := Classify("The sun rose over the ruined city."); got != TypeNarration {
		t.Fatalf("expected narration, got %v", got)
	}
}

func TestSegmentTracksCharOffsets(t *testing.T) {
	text := "Chapter 1\n\nJake walked forward.\n\n* * *\n\n\"Hello,\" Jake said."
	paras := Segment(text)
	if len(paras) != 4 {
		t.Fatalf("expected 4 paragraphs, got %d: %+v", len(paras), paras)
	}
	if paras[0].Type != TypeHeader {
		t.Fatalf("expected first paragraph to be header, got %v", paras[0].Type)
	}
	if text[paras[1].CharOffsetStart:paras[1].CharOffsetEnd] != paras[1].Text {
		t.Fatalf("char offsets do not round-trip to the original text")
	}
}

func TestSceneBoundariesCollectsOnlyBreaks(t *testing.T) {
	paras := []Paragraph{
		{Type: TypeNarration, CharOffsetStart: 0},
		{Type: TypeSceneBreak, CharOffsetStart: 50},
		{Type: TypeDialogue, CharOffsetStart: 80},
		{Type: TypeSceneBreak, CharOffsetStart: 120},
	}
	bounds := SceneBoundaries(paras)
	if len(bounds) != 2 || bounds[0] != 50 || bounds[1] != 120 {
		t.Fatalf("expected [50 120], got %v", bounds)
	}
}
