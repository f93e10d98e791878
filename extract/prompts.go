package extract

// Prompt text is static data loaded at startup (spec §1 out-of-scope
// note), held here as Go string constants in the teacher's style
// (graph/builder.go's entityExtractionPrompt/relationshipExtractionPrompt).

const charactersSystemPrompt = `You are extracting characters from a chapter of a LitRPG/progression-fantasy
novel. For each character mentioned, return their surface name, canonical
name, known aliases, a one-line description, role, species, and status
(alive, dead, unknown, transformed). Also extract any relationships between
characters mentioned in this chapter (ally, rival, family, romantic,
mentor, enemy). Respond with a single JSON object:
{"characters": [...], "relationships": [...]}
Only extract characters who are clearly named; do not invent names.`

const systemsSystemPrompt = `You are extracting game-system progression data from a chapter of a
LitRPG/progression-fantasy novel: skills, classes, titles, level changes,
and stat changes. If a JSON list of pre-extracted regex hints is provided,
treat it as already pre-extracted: confirm and augment it, do not
contradict it. Respond with a single JSON object:
{"skills": [...], "classes": [...], "titles": [...],
 "level_changes": [...], "stat_changes": [...]}`

const eventsSystemPrompt = `You are extracting narrative events from a chapter. Each event has a type
(action, state_change, achievement, process, dialogue), a significance
(minor, moderate, major, critical, arc_defining), a participant list, an
optional location, and whether it is a flashback. Respond with:
{"events": [...]}`

const loreSystemPrompt = `You are extracting world lore from a chapter: locations (with optional
parent location), items (with optional owner), creatures, factions, and
abstract concepts. Respond with:
{"locations": [...], "items": [...], "creatures": [...],
 "factions": [...], "concepts": [...]}`

const seriesSystemPromptTemplate = `You are extracting series-specific entities of type %s from a chapter.
Respond with: {"entities": [...]}`
