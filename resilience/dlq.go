package resilience

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DLQEntry is one terminally-failed chapter (§4.10, §7).
type DLQEntry struct {
	ID           string
	BookID       string
	Chapter      int
	ErrorType    string
	ErrorMessage string
	Timestamp    time.Time
	AttemptCount int
}

// DeadLetterQueue is an in-memory, per-process queue (§4.10); its entries
// are not persisted and do not survive a restart.
// JobDispatcher is the narrow interface RetrySingle/RetryAll need; the
// concrete job-queue broker is out of scope (spec §1) so it is modeled
// here as an interface.
type JobDispatcher interface {
	EnqueueChapterExtraction(bookID string, chapter int) error
	EnqueueBookExtraction(bookID string) error
}

type DeadLetterQueue struct {
	mu       sync.Mutex
	entries  []DLQEntry
	dispatch JobDispatcher
}

// NewDeadLetterQueue builds an empty DLQ bound to a job dispatcher used
// by RetrySingle/RetryAll.
func NewDeadLetterQueue(dispatch JobDispatcher) *DeadLetterQueue {
	return &DeadLetterQueue{dispatch: dispatch}
}

// Push records a terminal chapter failure.
func (q *DeadLetterQueue) Push(bookID string, chapter int, errorType, errorMessage string, attemptCount int) DLQEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := DLQEntry{
		ID: uuid.NewString(), BookID: bookID, Chapter: chapter,
		ErrorType: errorType, ErrorMessage: errorMessage,
		Timestamp: time.Now(), AttemptCount: attemptCount,
	}
	q.entries = append(q.entries, e)
	return e
}

// List returns a copy of every current entry.
func (q *DeadLetterQueue) List() []DLQEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DLQEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Size returns the current entry count.
func (q *DeadLetterQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear removes every entry.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}

// Remove deletes one entry by id.
func (q *DeadLetterQueue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RetrySingle re-issues a single-chapter extraction job for one DLQ entry
// and removes it from the queue (§6 "The DLQ retry endpoint re-issues a
// single-chapter extraction job").
func (q *DeadLetterQueue) RetrySingle(id string) error {
	q.mu.Lock()
	var target *DLQEntry
	for i := range q.entries {
		if q.entries[i].ID == id {
			target = &q.entries[i]
			break
		}
	}
	q.mu.Unlock()
	if target == nil {
		return nil
	}
	if err := q.dispatch.EnqueueChapterExtraction(target.BookID, target.Chapter); err != nil {
		return err
	}
	q.Remove(id)
	return nil
}

// RetryAll dispatches one book-level job per distinct book represented in
// the queue and clears it (§4.10 "retry-all (one job per book)").
func (q *DeadLetterQueue) RetryAll() error {
	q.mu.Lock()
	books := map[string]bool{}
	for _, e := range q.entries {
		books[e.BookID] = true
	}
	q.mu.Unlock()

	for bookID := range books {
		if err := q.dispatch.EnqueueBookExtraction(bookID); err != nil {
			return err
		}
	}
	q.Clear()
	return nil
}
