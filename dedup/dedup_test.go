package dedup

import (
	"context"
	"testing"
)

type testEntity struct {
	Name string
}

func nameOfTest(e testEntity) string { return e.Name }
func mergeTest(a, b testEntity) testEntity {
	if len(b.Name) > len(a.Name) {
		return b
	}
	return a
}

func TestDedupTier1ExactNormalize(t *testing.T) {
	entities := []testEntity{{Name: "The Warrior"}, {Name: "warrior"}}
	result, err := Dedup(context.Background(), entities, nameOfTest, mergeTest, nil, "", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected 1 surviving entity after exact normalize, got %d: %+v", len(result.Entities), result.Entities)
	}
}

func TestDedupNoLLMClientLeavesCandidatesUnresolved(t *testing.T) {
	entities := []testEntity{{Name: "Jake"}, {Name: "Jake Thayne"}}
	result, err := Dedup(context.Background(), entities, nameOfTest, mergeTest, nil, "", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("expected both entities to survive without an LLM client, got %d", len(result.Entities))
	}
}

func TestFuzzyRatioBoundaries(t *testing.T) {
	if fuzzyRatio("jake", "jake") != 100 {
		t.Errorf("expected identical strings to score 100")
	}
	if r := fuzzyRatio("abc", "xyz"); r > 10 {
		t.Errorf("expected totally dissimilar strings to score near 0, got %d", r)
	}
}
