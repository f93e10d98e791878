package extract

import "testing"

func TestMergeRecordsPassesCompleted(t *testing.T) {
	result := Merge("book-1", 7,
		CharactersResult{Characters: []Character{{Name: "Jake"}}},
		SystemsResult{Skills: []Skill{{Name: "Basic Archery", Owner: "Jake"}}},
		EventsResult{},
		LoreResult{},
		nil,
		[]PassResult{{PassName: "events", Err: errSentinel}},
	)

	if contains := func(s []string, v string) bool {
		for _, x := range s {
			if x == v {
				return true
			}
		}
		return false
	}; contains(result.PassesCompleted, "events") {
		t.Fatalf("expected events pass to be absent from PassesCompleted: %v", result.PassesCompleted)
	}
	found := false
	for _, p := range result.PassesCompleted {
		if p == "characters" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected characters pass present: %v", result.PassesCompleted)
	}
	if result.TotalEntities != 2 {
		t.Errorf("expected 2 total entities, got %d", result.TotalEntities)
	}
}

var errSentinel = &mergeTestError{}

type mergeTestError struct{}

func (*mergeTestError) Error() string { return "boom" }
