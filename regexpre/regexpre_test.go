package regexpre

import "testing"

func TestExtractBracketedSkillNotification(t *testing.T) {
	text := "[Skill Acquired: Basic Archery - Inferior]\n+2 Perception\nLevel: 1 -> 3"
	e := NewExtractor()
	matches := e.Extract(text, 7)

	byPattern := map[string]RegexMatch{}
	for _, m := range matches {
		byPattern[m.PatternName] = m
	}

	skill, ok := byPattern["skill_acquired"]
	if !ok {
		t.Fatalf("expected skill_acquired match, got %+v", matches)
	}
	if skill.Captures["name"] != "Basic Archery" {
		t.Errorf("expected name %q, got %q", "Basic Archery", skill.Captures["name"])
	}
	if skill.Captures["rank"] != "Inferior" {
		t.Errorf("expected rank %q, got %q", "Inferior", skill.Captures["rank"])
	}

	stat, ok := byPattern["stat_increase"]
	if !ok {
		t.Fatalf("expected stat_increase match")
	}
	if v, ok := stat.IntCapture("value"); !ok || v != 2 {
		t.Errorf("expected stat value 2, got %v ok=%v", v, ok)
	}

	level, ok := byPattern["level_up"]
	if !ok {
		t.Fatalf("expected level_up match")
	}
	oldV, _ := level.IntCapture("old_value")
	newV, _ := level.IntCapture("new_value")
	if oldV != 1 || newV != 3 {
		t.Errorf("expected level 1->3, got %d->%d", oldV, newV)
	}

	for _, m := range matches {
		if text[m.CharOffsetStart:m.CharOffsetEnd] != m.RawText {
			t.Errorf("span mismatch for %s: %q vs raw %q", m.PatternName,
				text[m.CharOffsetStart:m.CharOffsetEnd], m.RawText)
		}
	}
}

func TestExtractGenericCatchAllDroppedWhenContained(t *testing.T) {
	text := "[Skill Acquired: Fireball]"
	e := NewExtractor()
	matches := e.Extract(text, 1)
	for _, m := range matches {
		if m.PatternName == "generic_bracketed_box" {
			t.Fatalf("expected generic catch-all to be dropped when contained by specific match")
		}
	}
}

func TestExtractIsPure(t *testing.T) {
	text := "[Title Earned: Dragonslayer]"
	e := NewExtractor()
	a := e.Extract(text, 1)
	b := e.Extract(text, 1)
	if len(a) != len(b) {
		t.Fatalf("expected identical match counts across calls: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].PatternName != b[i].PatternName || a[i].RawText != b[i].RawText ||
			a[i].CharOffsetStart != b[i].CharOffsetStart || a[i].CharOffsetEnd != b[i].CharOffsetEnd {
			t.Fatalf("expected identical match %d across calls, got %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestExtractInfallibleOnEmptyString(t *testing.T) {
	e := NewExtractor()
	matches := e.Extract("", 1)
	if len(matches) != 0 {
		t.Fatalf("expected no matches on empty string, got %d", len(matches))
	}
}
