package main

import "sync"

// job is one unit of work the in-memory queue dispatches: either a
// chapter-extraction job, a whole-book-extraction job, or an embedding
// job enqueued once a chapter finishes extraction (§5, §6 "Job queue
// contract").
type job struct {
	kind    string // "book_extraction", "chapter_extraction", "embedding"
	bookID  string
	chapter int
}

const (
	jobBookExtraction    = "book_extraction"
	jobChapterExtraction = "chapter_extraction"
	jobEmbedding         = "embedding"
)

// memQueue is an in-memory stand-in for the concrete job-queue broker,
// which spec.md's Non-goals explicitly excludes ("the concrete job-queue
// broker... is modeled as the narrowest interface the core needs and is
// exercised here via an in-memory/sqlite-backed fake"). It satisfies
// pipeline.JobQueue (EnqueueEmbedding) and resilience.JobDispatcher
// (EnqueueChapterExtraction/EnqueueBookExtraction) so the worker loop and
// the dead-letter queue's retry path can both push back onto it.
type memQueue struct {
	mu   sync.Mutex
	jobs []job
}

func newMemQueue() *memQueue {
	return &memQueue{}
}

func (q *memQueue) push(j job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, j)
}

// pop removes and returns the oldest queued job, FIFO.
func (q *memQueue) pop() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *memQueue) EnqueueBookExtraction(bookID string) error {
	q.push(job{kind: jobBookExtraction, bookID: bookID})
	return nil
}

func (q *memQueue) EnqueueChapterExtraction(bookID string, chapter int) error {
	q.push(job{kind: jobChapterExtraction, bookID: bookID, chapter: chapter})
	return nil
}

func (q *memQueue) EnqueueEmbedding(bookID string, chapterNumber int) error {
	q.push(job{kind: jobEmbedding, bookID: bookID, chapter: chapterNumber})
	return nil
}
