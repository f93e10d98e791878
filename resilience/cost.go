package resilience

import (
	"strconv"
	"strings"
	"sync"
)

// CostEntry records one priced LLM call (§4.10).
type CostEntry struct {
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	Operation    string
	BookID       string
	Chapter      int
	CostUSD      float64
}

// PriceTable prices (input_per_M_tokens, output_per_M_tokens) keyed by
// model name, with substring fallback and a conservative default (§6).
type PriceTable struct {
	entries map[string][2]float64
	fallback [2]float64
}

// NewPriceTable builds a price table from exact model-name entries; the
// fallback applies to any model name not found by exact or substring
// match.
func NewPriceTable(entries map[string][2]float64, fallback [2]float64) *PriceTable {
	return &PriceTable{entries: entries, fallback: fallback}
}

func (t *PriceTable) priceFor(model string) (inputPerM, outputPerM float64) {
	if p, ok := t.entries[model]; ok {
		return p[0], p[1]
	}
	for name, p := range t.entries {
		if name != "" && strings.Contains(model, name) {
			return p[0], p[1]
		}
	}
	return t.fallback[0], t.fallback[1]
}

// CostTracker aggregates cost by book, by (book, chapter), by provider,
// by model, by operation, with O(1) lookups and a retained audit list
// (§4.10). All mutation paths are serialized by a single mutex.
type CostTracker struct {
	mu sync.Mutex

	prices *PriceTable

	entries []CostEntry

	byBook        map[string]float64
	byBookChapter map[string]float64 // key: bookID + "\x00" + chapter
	byProvider    map[string]float64
	byModel       map[string]float64
	byOperation   map[string]float64

	ceilingPerChapter float64
	ceilingPerBook    float64
}

// NewCostTracker builds an empty tracker with the given price table and
// ceilings (§6).
func NewCostTracker(prices *PriceTable, ceilingPerChapter, ceilingPerBook float64) *CostTracker {
	return &CostTracker{
		prices:            prices,
		byBook:            map[string]float64{},
		byBookChapter:     map[string]float64{},
		byProvider:        map[string]float64{},
		byModel:           map[string]float64{},
		byOperation:       map[string]float64{},
		ceilingPerChapter: ceilingPerChapter,
		ceilingPerBook:    ceilingPerBook,
	}
}

func bookChapterKey(bookID string, chapter int) string {
	return bookID + "\x00" + strconv.Itoa(chapter)
}

// Record adds one priced call to the tracker (§4.10 "Records every LLM
// call with (model, provider, input_tokens, output_tokens, operation,
// book_id?, chapter?)").
func (c *CostTracker) Record(provider, model string, inputTokens, outputTokens int, operation, bookID string, chapter int) CostEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	inPerM, outPerM := c.prices.priceFor(model)
	cost := (float64(inputTokens)/1_000_000)*inPerM + (float64(outputTokens)/1_000_000)*outPerM

	entry := CostEntry{
		Model: model, Provider: provider, InputTokens: inputTokens, OutputTokens: outputTokens,
		Operation: operation, BookID: bookID, Chapter: chapter, CostUSD: cost,
	}
	c.entries = append(c.entries, entry)
	c.byBook[bookID] += cost
	c.byBookChapter[bookChapterKey(bookID, chapter)] += cost
	c.byProvider[provider] += cost
	c.byModel[model] += cost
	c.byOperation[operation] += cost

	return entry
}

// CheckChapterCeiling reports whether the next call is still allowed
// for (book, chapter): false once the accumulated sum is >= the ceiling
// (§3 invariant: "Cost ceilings are monotonic ... once the sum ... >=
// ceiling_per_chapter, extraction aborts"; §8: "Cost ceiling exactly met:
// the next call is rejected").
func (c *CostTracker) CheckChapterCeiling(bookID string, chapter int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byBookChapter[bookChapterKey(bookID, chapter)] < c.ceilingPerChapter
}

// CheckBookCeiling is CheckChapterCeiling's book-scoped counterpart.
func (c *CostTracker) CheckBookCeiling(bookID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byBook[bookID] < c.ceilingPerBook
}

// TotalForBook, TotalForChapter, TotalForProvider, TotalForModel,
// TotalForOperation are O(1) aggregate lookups.
func (c *CostTracker) TotalForBook(bookID string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byBook[bookID]
}

func (c *CostTracker) TotalForChapter(bookID string, chapter int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byBookChapter[bookChapterKey(bookID, chapter)]
}

func (c *CostTracker) TotalForProvider(provider string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byProvider[provider]
}

func (c *CostTracker) TotalForModel(model string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byModel[model]
}

func (c *CostTracker) TotalForOperation(operation string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byOperation[operation]
}

// Entries returns a copy of the retained audit list.
func (c *CostTracker) Entries() []CostEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CostEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
