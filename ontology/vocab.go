package ontology

import "strings"

// Keyword vocabularies used by the router (§4.2) to decide which optional
// LLM passes run. Bilingual (English/French) because the corpus this was
// distilled from mixes both; counts are simple substring/word hits, not
// stemmed or lemmatized — cheap on purpose (§4.2 "No LLM calls in the router").

var SystemKeywords = []string{
	"level up", "level-up", "stat", "stats", "skill acquired", "skill learned",
	"class change", "class upgrade", "title earned", "experience", "mana",
	"perception", "strength", "dexterity", "vitality", "endurance", "grade",
	"realm", "cultivation", "qi", "mana pool", "system notification",
	"niveau", "compétence", "classe", "titre", "expérience", "statistique",
	"force", "dextérité", "vitalité", "endurance", "percée", "royaume",
}

var EventKeywords = []string{
	"battle", "fight", "duel", "ambush", "betrayal", "died", "killed",
	"wedding", "coronation", "escape", "rescue", "discovered", "revealed",
	"bataille", "combat", "duel", "embuscade", "trahison", "mort", "tué",
	"mariage", "couronnement", "évasion", "sauvetage", "découvert", "révélé",
}

var LoreKeywords = []string{
	"kingdom", "empire", "guild", "temple", "ruins", "dungeon", "artifact",
	"relic", "faction", "order", "church", "bloodline", "prophecy", "legend",
	"royaume", "empire", "guilde", "temple", "ruines", "donjon", "artefact",
	"relique", "faction", "ordre", "église", "lignée", "prophétie", "légende",
}

// Pronouns is the bilingual hard-reject list used by the entity-quality
// filter (§4.7) and as the seed set for the optional coreference pass.
var Pronouns = map[string]bool{
	"he": true, "she": true, "it": true, "they": true, "him": true, "her": true,
	"them": true, "his": true, "hers": true, "their": true, "theirs": true,
	"himself": true, "herself": true, "itself": true, "themselves": true,
	"this": true, "that": true, "these": true, "those": true,
	"il": true, "elle": true, "ils": true, "elles": true, "lui": true,
	"leur": true, "leurs": true, "celui": true, "celle": true, "ceux": true,
	"celles": true, "ceci": true, "cela": true, "ça": true,
}

// GarbageTokens are LLM-hallucinated placeholder names rejected outright.
var GarbageTokens = map[string]bool{
	"null": true, "none": true, "unknown": true, "n/a": true, "na": true,
	"undefined": true, "tbd": true, "": true,
}

func countKeywords(text string, vocab []string) int {
	n := 0
	lower := strings.ToLower(text)
	for _, kw := range vocab {
		if strings.Contains(lower, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

// CountSystemKeywords, CountEventKeywords, CountLoreKeywords are the exact
// counters the router consumes (§4.2 thresholds operate on these).
func CountSystemKeywords(text string) int { return countKeywords(text, SystemKeywords) }
func CountEventKeywords(text string) int  { return countKeywords(text, EventKeywords) }
func CountLoreKeywords(text string) int   { return countKeywords(text, LoreKeywords) }
