package quality

import (
	"testing"

	"github.com/worldrag/worldrag/extract"
)

func TestFilterDropsLLMNoiseScenario4(t *testing.T) {
	result := &extract.ChapterExtractionResult{
		Characters: extract.CharactersResult{
			Characters: []extract.Character{
				{Name: "Jake Thayne"},
				{Name: "the warrior"},
				{Name: "Jake's girlfriend"},
				{Name: "null"},
				{Name: "Forest (implied by context)"},
			},
			Relationships: []extract.CharacterRelationship{
				{Source: "Jake Thayne", Target: "the warrior", Type: "ally"},
			},
		},
	}

	Filter(result)

	if len(result.Characters.Characters) != 1 || result.Characters.Characters[0].Name != "Jake Thayne" {
		t.Fatalf("expected only Jake Thayne to survive, got %+v", result.Characters.Characters)
	}
	if len(result.Characters.Relationships) != 0 {
		t.Fatalf("expected relationship with filtered target to be dropped, got %+v", result.Characters.Relationships)
	}
}

func TestFilterRejectsOutOfBoundsLength(t *testing.T) {
	result := &extract.ChapterExtractionResult{
		Systems: extract.SystemsResult{
			Skills: []extract.Skill{
				{Name: "X"},
				{Name: "Basic Archery"},
			},
		},
	}
	Filter(result)
	if len(result.Systems.Skills) != 1 || result.Systems.Skills[0].Name != "Basic Archery" {
		t.Fatalf("expected single-char skill name rejected, got %+v", result.Systems.Skills)
	}
}
