package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/worldrag/worldrag/llm"
	"github.com/worldrag/worldrag/regexpre"
)

// Input is the common shape every pass receives (§4.3): chapter text plus
// optional context (registry summary, Passe 0 hints, previous-chapter
// summary).
type Input struct {
	ChapterText     string
	RegistrySummary string
	RegexMatches    []regexpre.RegexMatch
	PrevChapterSummary string
	SeriesTypeName  string // only used by the series pass
}

// Pass is the common shape every extraction pass implements, letting the
// pipeline orchestrator fan out over a slice of Pass without a type
// switch per pass.
type Pass interface {
	Name() string
	Run(ctx context.Context, chat llm.Provider, model string, in Input) (any, []GroundedEntity, error)
}

func chatJSON(ctx context.Context, chat llm.Provider, model, systemPrompt, userContent string, out any) error {
	req := llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0.2,
	}
	_, err := llm.StructuredChat(ctx, chat, req, out)
	return err
}

func regexHintsJSON(matches []regexpre.RegexMatch) string {
	if len(matches) == 0 {
		return "[]"
	}
	b, err := json.Marshal(matches)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// CharactersPass implements Pass for §4.3's "characters" extraction.
type CharactersPass struct{}

func (CharactersPass) Name() string { return "characters" }

func (CharactersPass) Run(ctx context.Context, chat llm.Provider, model string, in Input) (any, []GroundedEntity, error) {
	user := fmt.Sprintf("Registry context:\n%s\n\nChapter text:\n%s", in.RegistrySummary, in.ChapterText)
	var out CharactersResult
	if err := chatJSON(ctx, chat, model, charactersSystemPrompt, user, &out); err != nil {
		return CharactersResult{}, nil, fmt.Errorf("extract: characters pass: %w", err)
	}
	return out, out.Grounded, nil
}

// SystemsPass implements Pass for §4.3's "systems" extraction.
type SystemsPass struct{}

func (SystemsPass) Name() string { return "systems" }

func (SystemsPass) Run(ctx context.Context, chat llm.Provider, model string, in Input) (any, []GroundedEntity, error) {
	user := fmt.Sprintf("Pre-extracted regex hints (confirm and augment):\n%s\n\nChapter text:\n%s",
		regexHintsJSON(in.RegexMatches), in.ChapterText)
	var out SystemsResult
	if err := chatJSON(ctx, chat, model, systemsSystemPrompt, user, &out); err != nil {
		return SystemsResult{}, nil, fmt.Errorf("extract: systems pass: %w", err)
	}
	return out, out.Grounded, nil
}

// EventsPass implements Pass for §4.3's "events" extraction.
type EventsPass struct{}

func (EventsPass) Name() string { return "events" }

func (EventsPass) Run(ctx context.Context, chat llm.Provider, model string, in Input) (any, []GroundedEntity, error) {
	var out EventsResult
	if err := chatJSON(ctx, chat, model, eventsSystemPrompt, in.ChapterText, &out); err != nil {
		return EventsResult{}, nil, fmt.Errorf("extract: events pass: %w", err)
	}
	return out, out.Grounded, nil
}

// LorePass implements Pass for §4.3's "lore" extraction.
type LorePass struct{}

func (LorePass) Name() string { return "lore" }

func (LorePass) Run(ctx context.Context, chat llm.Provider, model string, in Input) (any, []GroundedEntity, error) {
	var out LoreResult
	if err := chatJSON(ctx, chat, model, loreSystemPrompt, in.ChapterText, &out); err != nil {
		return LoreResult{}, nil, fmt.Errorf("extract: lore pass: %w", err)
	}
	return out, out.Grounded, nil
}

// SeriesPass implements Pass for §4.3's optional "series" extraction,
// parameterized on the layer-3 type configured for the series (e.g.
// "Bloodline", "Profession").
type SeriesPass struct{}

func (SeriesPass) Name() string { return "series" }

func (SeriesPass) Run(ctx context.Context, chat llm.Provider, model string, in Input) (any, []GroundedEntity, error) {
	systemPrompt := fmt.Sprintf(seriesSystemPromptTemplate, in.SeriesTypeName)
	var out SeriesResult
	if err := chatJSON(ctx, chat, model, systemPrompt, in.ChapterText, &out); err != nil {
		return SeriesResult{}, nil, fmt.Errorf("extract: series pass: %w", err)
	}
	return out, out.Grounded, nil
}
