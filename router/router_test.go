package router

import (
	"testing"

	"github.com/worldrag/worldrag/regexpre"
)

func contains(passes []string, name string) bool {
	for _, p := range passes {
		if p == name {
			return true
		}
	}
	return false
}

func TestRouteAlwaysIncludesCharacters(t *testing.T) {
	longText := make([]byte, 3000)
	for i := range longText {
		longText[i] = 'x'
	}
	passes := Route(string(longText), "fantasy", nil, DefaultThresholds())
	if !contains(passes, PassCharacters) {
		t.Fatalf("expected characters pass always present, got %v", passes)
	}
}

func TestRouteShortChapterRunsAllPasses(t *testing.T) {
	passes := Route("A very short chapter.", "litrpg", nil, DefaultThresholds())
	for _, want := range []string{PassCharacters, PassSystems, PassEvents, PassLore} {
		if !contains(passes, want) {
			t.Errorf("expected short chapter to include %s, got %v", want, passes)
		}
	}
}

func TestRouteSystemsTriggeredByRegexMatch(t *testing.T) {
	longText := make([]byte, 2500)
	for i := range longText {
		longText[i] = 'x'
	}
	matches := []regexpre.RegexMatch{{PatternName: "skill_acquired"}}
	passes := Route(string(longText), "fantasy", matches, DefaultThresholds())
	if !contains(passes, PassSystems) {
		t.Fatalf("expected systems pass triggered by regex pre-extraction match, got %v", passes)
	}
}

func TestRouteLitRPGGenreLowersSystemsBar(t *testing.T) {
	longText := make([]byte, 2500)
	for i := range longText {
		longText[i] = 'x'
	}
	longText = append(longText, []byte(" mana ")...)
	passes := Route(string(longText), "litrpg", nil, DefaultThresholds())
	if !contains(passes, PassSystems) {
		t.Fatalf("expected litrpg genre with 1 system keyword to trigger systems pass, got %v", passes)
	}
}
