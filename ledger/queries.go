package ledger

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Reader is the narrow read surface the state-reconstruction queries need
// from the graph store (§4.11); graphstore.Store implements it.
type Reader interface {
	ChangesUpTo(ctx context.Context, character, bookID string, chapter int, category string) ([]StateChange, error)
	ChangesBetween(ctx context.Context, character, bookID string, from, to int) ([]StateChange, error)
	TemporalRelationsAt(ctx context.Context, character, bookID, relType string, chapter int) ([]string, error)
}

// StatSummary is stats_at's per-name result (§4.11).
type StatSummary struct {
	Name       string
	Value      int
	MaxChapter int
}

// StatsAt sums value_delta over category='stat' StateChange with
// chapter <= N, grouped by name (§4.11, §8 "stats_at(c, book, N).value ==
// Σ value_delta over category='stat' StateChange with chapter <= N").
func StatsAt(ctx context.Context, r Reader, character, bookID string, chapter int) ([]StatSummary, error) {
	changes, err := r.ChangesUpTo(ctx, character, bookID, chapter, "stat")
	if err != nil {
		return nil, fmt.Errorf("ledger: stats_at: %w", err)
	}
	sums := map[string]*StatSummary{}
	var order []string
	for _, c := range changes {
		s, ok := sums[c.Name]
		if !ok {
			s = &StatSummary{Name: c.Name}
			sums[c.Name] = s
			order = append(order, c.Name)
		}
		if c.ValueDelta != nil {
			s.Value += *c.ValueDelta
		}
		if c.Chapter > s.MaxChapter {
			s.MaxChapter = c.Chapter
		}
	}
	out := make([]StatSummary, 0, len(order))
	for _, name := range order {
		out = append(out, *sums[name])
	}
	return out, nil
}

// LevelSnapshot is level_at's result (§4.11); zero value is
// {nil, "", nil} per §8 boundary "default {null, "", null}".
type LevelSnapshot struct {
	Level       *int
	Realm       string
	SinceChapter *int
}

// LevelAt returns the latest StateChange with category='level' at or
// before chapter (§4.11, §8 "level_at(c, book, N) = folding all
// category='level' StateChanges <= N").
func LevelAt(ctx context.Context, r Reader, character, bookID string, chapter int) (LevelSnapshot, error) {
	changes, err := r.ChangesUpTo(ctx, character, bookID, chapter, "level")
	if err != nil {
		return LevelSnapshot{}, fmt.Errorf("ledger: level_at: %w", err)
	}
	if len(changes) == 0 {
		return LevelSnapshot{}, nil
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Chapter < changes[j].Chapter })
	latest := changes[len(changes)-1]
	ch := latest.Chapter
	return LevelSnapshot{Level: latest.ValueAfter, Realm: latest.Detail, SinceChapter: &ch}, nil
}

// SkillsAt, ClassesAt, ItemsAt, TitlesAt traverse temporal relationships
// valid at chapter N (§4.11: "valid_from_chapter <= N AND (valid_to_chapter
// IS NULL OR valid_to_chapter > N)" — pushed down into Reader since that
// predicate is most naturally a graph-store query).
func SkillsAt(ctx context.Context, r Reader, character, bookID string, chapter int) ([]string, error) {
	return r.TemporalRelationsAt(ctx, character, bookID, "HAS_SKILL", chapter)
}

func ClassesAt(ctx context.Context, r Reader, character, bookID string, chapter int) ([]string, error) {
	return r.TemporalRelationsAt(ctx, character, bookID, "HAS_CLASS", chapter)
}

func ItemsAt(ctx context.Context, r Reader, character, bookID string, chapter int) ([]string, error) {
	return r.TemporalRelationsAt(ctx, character, bookID, "POSSESSES", chapter)
}

func TitlesAt(ctx context.Context, r Reader, character, bookID string, chapter int) ([]string, error) {
	return r.TemporalRelationsAt(ctx, character, bookID, "HAS_TITLE", chapter)
}

// ChangesBetween returns all StateChange in (from, to] (§4.11).
func ChangesBetween(ctx context.Context, r Reader, character, bookID string, from, to int) ([]StateChange, error) {
	changes, err := r.ChangesBetween(ctx, character, bookID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ledger: changes_between: %w", err)
	}
	return changes, nil
}

// ProgressionMilestones returns a paginated ledger slice plus the total
// count (§4.11), optionally filtered to one category.
func ProgressionMilestones(ctx context.Context, r Reader, character, bookID string, category string, offset, limit int) ([]StateChange, int, error) {
	all, err := r.ChangesUpTo(ctx, character, bookID, int(^uint(0)>>1), category)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: progression_milestones: %w", err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Chapter < all[j].Chapter })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return all[offset:end], total, nil
}

// SheetSnapshot is the as-of-chapter view of a character's full sheet
// (§4.11 "A full sheet snapshot at chapter N is these queries run in
// parallel, stitched together with the character's header info").
type SheetSnapshot struct {
	Character string
	Chapter   int
	Stats     []StatSummary
	Level     LevelSnapshot
	Skills    []string
	Classes   []string
	Items     []string
	Titles    []string
}

// BuildSheetSnapshot runs every state-reconstruction query concurrently
// via errgroup and stitches the results together (§4.11, §5 "idiomatic
// concurrency primitive").
func BuildSheetSnapshot(ctx context.Context, r Reader, character, bookID string, chapter int) (*SheetSnapshot, error) {
	snap := &SheetSnapshot{Character: character, Chapter: chapter}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Stats, err = StatsAt(gctx, r, character, bookID, chapter)
		return err
	})
	g.Go(func() (err error) {
		snap.Level, err = LevelAt(gctx, r, character, bookID, chapter)
		return err
	})
	g.Go(func() (err error) {
		snap.Skills, err = SkillsAt(gctx, r, character, bookID, chapter)
		return err
	})
	g.Go(func() (err error) {
		snap.Classes, err = ClassesAt(gctx, r, character, bookID, chapter)
		return err
	})
	g.Go(func() (err error) {
		snap.Items, err = ItemsAt(gctx, r, character, bookID, chapter)
		return err
	})
	g.Go(func() (err error) {
		snap.Titles, err = TitlesAt(gctx, r, character, bookID, chapter)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ledger: building sheet snapshot: %w", err)
	}
	return snap, nil
}
