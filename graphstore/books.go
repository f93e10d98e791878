package graphstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Book mirrors the books table (§4.1 Book ingestion).
type Book struct {
	ID             string
	Title          string
	SeriesName     string
	OrderInSeries  int
	Author         string
	Genre          string
	TotalChapters  int
	Status         string
	RegistryJSON   string
}

// UpsertBook MERGEs a book on id, grounded on the teacher's UpsertDocument.
func (s *Store) UpsertBook(ctx context.Context, b Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, series_name, order_in_series, author, genre, total_chapters, status, registry_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, series_name=excluded.series_name, order_in_series=excluded.order_in_series,
			author=excluded.author, genre=excluded.genre, total_chapters=excluded.total_chapters,
			status=excluded.status, registry_json=excluded.registry_json
	`, b.ID, b.Title, b.SeriesName, b.OrderInSeries, b.Author, b.Genre, b.TotalChapters, b.Status, b.RegistryJSON)
	if err != nil {
		return fmt.Errorf("graphstore: upserting book: %w", err)
	}
	return nil
}

// GetBook loads one book by id.
func (s *Store) GetBook(ctx context.Context, id string) (*Book, error) {
	var b Book
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, series_name, order_in_series, author, genre, total_chapters, status, registry_json
		FROM books WHERE id = ?
	`, id).Scan(&b.ID, &b.Title, &b.SeriesName, &b.OrderInSeries, &b.Author, &b.Genre, &b.TotalChapters, &b.Status, &b.RegistryJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("graphstore: getting book: %w", err)
	}
	return &b, nil
}

// UpdateBookStatus updates a book's processing status (teacher's
// UpdateDocumentStatus).
func (s *Store) UpdateBookStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE books SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("graphstore: updating book status: %w", err)
	}
	return nil
}

// UpdateBookRegistry persists the serialized cross-chapter entity
// registry snapshot (§4.6 "the registry is persisted alongside the book").
func (s *Store) UpdateBookRegistry(ctx context.Context, id, registryJSON string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE books SET registry_json = ? WHERE id = ?`, registryJSON, id)
	if err != nil {
		return fmt.Errorf("graphstore: updating book registry: %w", err)
	}
	return nil
}

// Chapter mirrors the chapters table.
type Chapter struct {
	BookID           string
	Number           int
	Title            string
	Text             string
	WordCount        int
	Status           string
	RegexMatchesJSON string
	MentionDataJSON  string
	BatchID          string
}

// UpsertChapter MERGEs a chapter on (book_id, number).
func (s *Store) UpsertChapter(ctx context.Context, c Chapter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapters (book_id, number, title, text, word_count, status, regex_matches_data, mention_data, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(book_id, number) DO UPDATE SET
			title=excluded.title, text=excluded.text, word_count=excluded.word_count,
			status=excluded.status, regex_matches_data=excluded.regex_matches_data,
			mention_data=excluded.mention_data, batch_id=excluded.batch_id
	`, c.BookID, c.Number, c.Title, c.Text, c.WordCount, c.Status, c.RegexMatchesJSON, c.MentionDataJSON, c.BatchID)
	if err != nil {
		return fmt.Errorf("graphstore: upserting chapter: %w", err)
	}
	return nil
}

// UpdateChapterStatus transitions a chapter's processing status
// (pending|processing|extracted|partial|failed, §4.1 state machine).
func (s *Store) UpdateChapterStatus(ctx context.Context, bookID string, number int, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chapters SET status = ? WHERE book_id = ? AND number = ?`, status, bookID, number)
	if err != nil {
		return fmt.Errorf("graphstore: updating chapter status: %w", err)
	}
	return nil
}

// GetChapter loads one chapter by (book_id, number).
func (s *Store) GetChapter(ctx context.Context, bookID string, number int) (*Chapter, error) {
	var c Chapter
	err := s.db.QueryRowContext(ctx, `
		SELECT book_id, number, title, text, word_count, status, regex_matches_data, mention_data, batch_id
		FROM chapters WHERE book_id = ? AND number = ?
	`, bookID, number).Scan(&c.BookID, &c.Number, &c.Title, &c.Text, &c.WordCount, &c.Status, &c.RegexMatchesJSON, &c.MentionDataJSON, &c.BatchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("graphstore: getting chapter: %w", err)
	}
	return &c, nil
}
