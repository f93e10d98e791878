// Package reconcile implements the EntityRegistry (spec §3) and the
// reconciler (§4.6): applying dedup's alias maps across every pass's
// output and integrating the cross-book series registry.
package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/tiendc/go-deepcopy"
)

// RegistryEntity is one catalog entry in the EntityRegistry (§3).
type RegistryEntity struct {
	CanonicalName   string   `json:"canonical_name"`
	EntityType      string   `json:"entity_type"`
	Aliases         []string `json:"aliases"`
	Significance    string   `json:"significance"`
	FirstSeenChapter int     `json:"first_seen_chapter"`
	LastSeenChapter  int     `json:"last_seen_chapter"`
	Description      string  `json:"description"`
}

// EntityRegistry is the per-book, growing catalog of known canonical
// entities plus aliases (§3). It is serialized to JSON on the Book node
// after each chapter and used as prompt context for the next chapter.
type EntityRegistry struct {
	Entities        map[string]RegistryEntity `json:"entities"`
	AliasMap        map[string]string         `json:"alias_map"`
	ChapterSummaries []string                 `json:"chapter_summaries"`
}

// NewRegistry returns an empty registry ready for the first chapter.
func NewRegistry() *EntityRegistry {
	return &EntityRegistry{
		Entities: map[string]RegistryEntity{},
		AliasMap: map[string]string{},
	}
}

// ToJSON serializes the registry losslessly (§8 round-trip law).
func (r *EntityRegistry) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON deserializes a registry previously produced by ToJSON.
func FromJSON(data []byte) (*EntityRegistry, error) {
	r := NewRegistry()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("reconcile: decoding registry: %w", err)
	}
	if r.Entities == nil {
		r.Entities = map[string]RegistryEntity{}
	}
	if r.AliasMap == nil {
		r.AliasMap = map[string]string{}
	}
	return r, nil
}

// Clone deep-copies the registry via tiendc/go-deepcopy so the caller can
// mutate the clone for the next chapter without aliasing the JSON
// snapshot already handed to a prompt builder (§3 EntityRegistry usage).
func (r *EntityRegistry) Clone() (*EntityRegistry, error) {
	var out EntityRegistry
	if err := deepcopy.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("reconcile: cloning registry: %w", err)
	}
	if out.Entities == nil {
		out.Entities = map[string]RegistryEntity{}
	}
	if out.AliasMap == nil {
		out.AliasMap = map[string]string{}
	}
	return &out, nil
}

// Upsert adds or updates one entity in the registry, expanding its known
// aliases and widening first/last-seen chapter bounds.
func (r *EntityRegistry) Upsert(key string, e RegistryEntity) {
	existing, ok := r.Entities[key]
	if !ok {
		r.Entities[key] = e
		for _, a := range e.Aliases {
			r.AliasMap[strings.ToLower(a)] = key
		}
		r.AliasMap[strings.ToLower(e.CanonicalName)] = key
		return
	}
	existing.Aliases = lo.UniqBy(append(existing.Aliases, e.Aliases...), strings.ToLower)
	if e.FirstSeenChapter != 0 && (existing.FirstSeenChapter == 0 || e.FirstSeenChapter < existing.FirstSeenChapter) {
		existing.FirstSeenChapter = e.FirstSeenChapter
	}
	if e.LastSeenChapter > existing.LastSeenChapter {
		existing.LastSeenChapter = e.LastSeenChapter
	}
	if e.Description != "" {
		existing.Description = e.Description
	}
	r.Entities[key] = existing
	for _, a := range existing.Aliases {
		r.AliasMap[strings.ToLower(a)] = key
	}
}

// Lookup resolves a surface name/alias to its canonical registry entry.
func (r *EntityRegistry) Lookup(nameOrAlias string) (RegistryEntity, bool) {
	key, ok := r.AliasMap[strings.ToLower(nameOrAlias)]
	if !ok {
		return RegistryEntity{}, false
	}
	e, ok := r.Entities[key]
	return e, ok
}

// Summary renders a compact textual digest used as prompt context for the
// next chapter (§3: "used as prompt context for the next chapter").
func (r *EntityRegistry) Summary(maxEntities int) string {
	if len(r.Entities) == 0 {
		return "(no known entities yet)"
	}
	s := ""
	n := 0
	for _, e := range r.Entities {
		if n >= maxEntities {
			s += "...\n"
			break
		}
		s += fmt.Sprintf("- %s (%s): %s\n", e.CanonicalName, e.EntityType, e.Description)
		n++
	}
	return s
}
