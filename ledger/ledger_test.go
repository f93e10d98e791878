package ledger

import (
	"context"
	"testing"
)

type fakeReader struct {
	changes []StateChange
}

func (f *fakeReader) ChangesUpTo(ctx context.Context, character, bookID string, chapter int, category string) ([]StateChange, error) {
	var out []StateChange
	for _, c := range f.changes {
		if c.CharacterName == character && c.BookID == bookID && c.Chapter <= chapter &&
			(category == "" || c.Category == category) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeReader) ChangesBetween(ctx context.Context, character, bookID string, from, to int) ([]StateChange, error) {
	var out []StateChange
	for _, c := range f.changes {
		if c.CharacterName == character && c.BookID == bookID && c.Chapter > from && c.Chapter <= to {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeReader) TemporalRelationsAt(ctx context.Context, character, bookID, relType string, chapter int) ([]string, error) {
	if relType == "HAS_SKILL" {
		return []string{"Basic Archery"}, nil
	}
	return nil, nil
}

func intPtr(i int) *int { return &i }

func TestSheetReconstructionScenario5(t *testing.T) {
	reader := &fakeReader{changes: []StateChange{
		{BookID: "B1", Chapter: 5, Category: "skill", Name: "Basic Archery", Action: "acquire", CharacterName: "Jake Thayne"},
		{BookID: "B1", Chapter: 5, Category: "stat", Name: "Perception", Action: "gain", ValueDelta: intPtr(2), CharacterName: "Jake Thayne"},
		{BookID: "B1", Chapter: 42, Category: "level", Action: "gain", ValueAfter: intPtr(88), Detail: "D-grade", CharacterName: "Jake Thayne"},
	}}

	stats, err := StatsAt(context.Background(), reader, "Jake Thayne", "B1", 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 1 || stats[0].Name != "Perception" || stats[0].Value != 2 {
		t.Fatalf("expected Perception=2, got %+v", stats)
	}

	level, err := LevelAt(context.Background(), reader, "Jake Thayne", "B1", 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if level.Level == nil || *level.Level != 88 || level.Realm != "D-grade" {
		t.Fatalf("expected level 88/D-grade, got %+v", level)
	}

	skills, err := SkillsAt(context.Background(), reader, "Jake Thayne", "B1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, s := range skills {
		if s == "Basic Archery" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Basic Archery in skills_at, got %v", skills)
	}
}

func TestBuildStateChangeSkipsWithoutOwner(t *testing.T) {
	_, ok := BuildStateChange(UpsertSkill, "B1", 1, "", "Basic Archery", nil, nil, nil, "", "batch-1")
	if ok {
		t.Fatalf("expected skip when owner is missing")
	}
}

func TestBuildStateChangeLevelChange(t *testing.T) {
	sc, ok := BuildStateChange(UpsertLevelChange, "B1", 42, "Jake Thayne", "", nil, intPtr(1), intPtr(3), "D-grade", "batch-1")
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if sc.ValueDelta == nil || *sc.ValueDelta != 2 {
		t.Fatalf("expected value_delta=2, got %+v", sc.ValueDelta)
	}
	if sc.ValueAfter == nil || *sc.ValueAfter != 3 {
		t.Fatalf("expected value_after=3, got %+v", sc.ValueAfter)
	}
}
