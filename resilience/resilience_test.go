package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerTripScenario6(t *testing.T) {
	b := NewCircuitBreaker(3, 60*time.Second, 2)
	failing := func() error { return errors.New("upstream failure") }

	for i := 0; i < 3; i++ {
		if err := b.Call(failing); err == nil {
			t.Fatalf("expected failure %d to propagate", i)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected breaker to be OPEN after 3 consecutive failures, got %v", b.State())
	}

	called := false
	err := b.Call(func() error { called = true; return nil })
	if called {
		t.Fatalf("expected call to fail fast without invoking wrapped function")
	}
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	b := NewCircuitBreaker(1, 10*time.Millisecond, 2)
	_ = b.Call(func() error { return errors.New("fail") })
	if b.State() != StateOpen {
		t.Fatalf("expected OPEN after 1 failure with threshold 1")
	}
	time.Sleep(20 * time.Millisecond)

	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected half-open call to succeed: %v", err)
	}
	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected second half-open success: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected breaker to close after half_open_max_calls successes, got %v", b.State())
	}
}

func TestRetryStopsOnNonTransient(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), LLMRetryProfile(), func(error) bool { return false },
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("non-transient")
		})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for non-transient error, got %d", calls)
	}
}

func TestCostCeilingExactlyMetRejectsNextCall(t *testing.T) {
	// 1,000,000 input tokens at $0.50/M = exactly $0.50, the default
	// per-chapter ceiling (§6, §8 "Cost ceiling exactly met: the next
	// call is rejected; previous results are preserved").
	prices := NewPriceTable(map[string][2]float64{"gpt": {0.50, 0}}, [2]float64{0.50, 0})
	tracker := NewCostTracker(prices, 0.50, 50.0)

	if !tracker.CheckChapterCeiling("B1", 1) {
		t.Fatalf("expected ceiling check to pass before any spend")
	}
	tracker.Record("openai", "gpt", 1_000_000, 0, "systems", "B1", 1)

	if tracker.CheckChapterCeiling("B1", 1) {
		t.Fatalf("expected ceiling check to reject once the sum equals the ceiling")
	}
	if tracker.TotalForChapter("B1", 1) != 0.50 {
		t.Fatalf("expected previous results preserved at $0.50, got %v", tracker.TotalForChapter("B1", 1))
	}
}

func TestDLQPushAndRetrySingle(t *testing.T) {
	dispatched := []int{}
	dispatcher := fakeDispatcher{onChapter: func(bookID string, chapter int) error {
		dispatched = append(dispatched, chapter)
		return nil
	}}
	q := NewDeadLetterQueue(dispatcher)
	e := q.Push("B1", 7, "CostCeilingExceeded", "ceiling hit", 3)

	if q.Size() != 1 {
		t.Fatalf("expected size 1, got %d", q.Size())
	}
	if err := q.RetrySingle(e.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Size() != 0 {
		t.Fatalf("expected entry removed after retry, got size %d", q.Size())
	}
	if len(dispatched) != 1 || dispatched[0] != 7 {
		t.Fatalf("expected chapter 7 re-dispatched, got %v", dispatched)
	}
}

type fakeDispatcher struct {
	onChapter func(bookID string, chapter int) error
}

func (f fakeDispatcher) EnqueueChapterExtraction(bookID string, chapter int) error {
	return f.onChapter(bookID, chapter)
}

func (f fakeDispatcher) EnqueueBookExtraction(bookID string) error { return nil }
