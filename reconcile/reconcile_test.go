package reconcile

import "testing"

func TestRegistryJSONRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.Upsert("jake-thayne", RegistryEntity{
		CanonicalName: "Jake Thayne", EntityType: "Character",
		Aliases: []string{"Jake"}, FirstSeenChapter: 1, LastSeenChapter: 5,
	})

	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := FromJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Entities["jake-thayne"].CanonicalName != "Jake Thayne" {
		t.Errorf("round trip lost canonical name: %+v", back.Entities)
	}
	if _, ok := back.Lookup("Jake"); !ok {
		t.Errorf("expected alias lookup to survive round trip")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewRegistry()
	r.Upsert("jake", RegistryEntity{CanonicalName: "Jake", EntityType: "Character"})

	clone, err := r.Clone()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clone.Upsert("mira", RegistryEntity{CanonicalName: "Mira", EntityType: "Character"})

	if _, ok := r.Entities["mira"]; ok {
		t.Fatalf("mutating clone should not affect original registry")
	}
}

func TestCollapseChains(t *testing.T) {
	alias := map[string]string{"a": "b", "b": "c"}
	collapsed := CollapseChains(alias)
	if collapsed["a"] != "c" {
		t.Errorf("expected chain a->b->c to collapse to c, got %q", collapsed["a"])
	}
	if collapsed["b"] != "c" {
		t.Errorf("expected b to resolve to c, got %q", collapsed["b"])
	}
}

func TestCollapseChainsIdempotent(t *testing.T) {
	alias := map[string]string{"a": "b", "b": "c"}
	once := CollapseChains(alias)
	twice := CollapseChains(once)
	for k, v := range once {
		if twice[k] != v {
			t.Errorf("applying collapse twice changed %q: %q vs %q", k, v, twice[k])
		}
	}
}
