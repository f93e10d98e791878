package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/worldrag/worldrag/graphstore"
)

// EventType is one of the four ordered event kinds QueryStream emits
// (§4.12 "Streaming variant emits SSE events in order").
type EventType string

const (
	EventSources EventType = "sources"
	EventToken   EventType = "token"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// Event is one item on the channel QueryStream returns. An out-of-scope
// HTTP layer adapts this to real Server-Sent Events (§1 Non-goals); this
// package stops at the typed Go channel since no HTTP transport is wired
// here.
type Event struct {
	Type            EventType
	Sources         []Source
	RelatedEntities []graphstore.RelatedEntity
	Token           string
	Err             error
}

// QueryStream runs the same pipeline as Query but emits events as they
// become available: `sources` once retrieval/rerank/enrichment finish,
// then one `token` event per word of the generated answer (the
// underlying llm.Provider has no native streaming Chat method, so the
// complete answer is chunked after generation rather than streamed
// token-by-token from the provider), then a terminal `done` (or `error`
// on failure, per §4.12).
func (e *Engine) QueryStream(ctx context.Context, bookID, query string, opts QueryOptions) <-chan Event {
	out := make(chan Event, 8)
	go func() {
		defer close(out)
		opts = opts.withDefaults(e.Cfg)

		chunks, err := e.retrieveChunks(ctx, bookID, query, opts.TopK, opts.MaxChapter)
		if err != nil {
			out <- Event{Type: EventError, Err: fmt.Errorf("retrieval: retrieving chunks: %w", err)}
			return
		}
		if len(chunks) == 0 {
			out <- Event{Type: EventSources}
			emitTokens(out, msgNoRelevantContent)
			out <- Event{Type: EventDone}
			return
		}

		reranked, err := e.rerank(ctx, query, chunks, opts.RerankTopN, opts.MinRelevance)
		if err != nil {
			out <- Event{Type: EventError, Err: fmt.Errorf("retrieval: reranking: %w", err)}
			return
		}
		if len(reranked) == 0 {
			out <- Event{Type: EventSources}
			emitTokens(out, msgNotRelevantEnough)
			out <- Event{Type: EventDone}
			return
		}

		entities, err := e.relatedEntities(ctx, bookID, reranked)
		if err != nil {
			out <- Event{Type: EventError, Err: fmt.Errorf("retrieval: fetching related entities: %w", err)}
			return
		}

		sourcesEvent := Event{Type: EventSources, RelatedEntities: entities}
		if opts.IncludeSources {
			sourcesEvent.Sources = toSources(reranked)
		}
		out <- sourcesEvent

		answer, err := e.generate(ctx, query, reranked, entities)
		if err != nil {
			out <- Event{Type: EventError, Err: fmt.Errorf("retrieval: generating answer: %w", err)}
			return
		}
		emitTokens(out, answer)
		out <- Event{Type: EventDone}
	}()
	return out
}

func emitTokens(out chan<- Event, text string) {
	for _, word := range strings.Fields(text) {
		out <- Event{Type: EventToken, Token: word + " "}
	}
}
