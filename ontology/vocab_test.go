package ontology

import "testing"

func TestCountSystemKeywords(t *testing.T) {
	text := "His Perception stat rose and he felt a surge of Mana before the level up."
	if n := CountSystemKeywords(text); n < 2 {
		t.Fatalf("expected at least 2 system keyword hits, got %d", n)
	}
}

func TestCountEventKeywordsNoMatch(t *testing.T) {
	text := "The weather was pleasant and nothing of note happened."
	if n := CountEventKeywords(text); n != 0 {
		t.Fatalf("expected 0 event keyword hits, got %d", n)
	}
}

func TestPronounsBilingual(t *testing.T) {
	for _, p := range []string{"he", "elle", "themselves", "celui"} {
		if !Pronouns[p] {
			t.Errorf("expected %q to be a recognized pronoun", p)
		}
	}
}
