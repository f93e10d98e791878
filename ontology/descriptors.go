package ontology

import "regexp"

// GenericDescriptor regexes back the entity-quality filter's per-type
// rejection rules (§4.7): "the warrior", "le guerrier", "Jake's girlfriend",
// "une épée", "la forêt", "bêtes", "service financier", relational
// possessives, and verb-like skill descriptions.
var (
	ReArticleNoun        = regexp.MustCompile(`(?i)^(the|a|an|le|la|les|un|une|des)\s+\S+$`)
	RePossessiveRelation = regexp.MustCompile(`(?i)^\S+('s|’s)\s+\S+$`)
	ReFrenchPossessive   = regexp.MustCompile(`(?i)^(le|la|les)\s+\S+\s+de\s+\S+$`)
	ReParenthetical      = regexp.MustCompile(`[()]`)
	ReSkillVerbLike      = regexp.MustCompile(`(?i)^(skill of|compétence de|ability to|capacité de)\s+`)
	ReGenericFaction     = regexp.MustCompile(`(?i)^(service|department|bureau|guild hall|service financier|ministère)\b`)
)

// GenericEventPhrases are trivial events the quality filter drops verbatim
// (case-insensitive), e.g. "he walked", "il marche" (§4.7).
var GenericEventPhrases = map[string]bool{
	"he walked": true, "she walked": true, "he ran": true, "she ran": true,
	"he spoke": true, "she spoke": true, "he looked": true, "she looked": true,
	"il marche": true, "elle marche": true, "il court": true, "elle court": true,
	"il parle": true, "elle parle": true,
}

// MaxEntityNameLen and MinEntityNameLen bound acceptable entity name length
// (§4.7: "strings of length ≤ 1 or > 80 chars").
const (
	MinEntityNameLen = 2
	MaxEntityNameLen = 80
)
