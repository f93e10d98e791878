package graphstore

import "fmt"

// schemaSQL is the complete DDL, adapted from the teacher's store/schema.go
// onto WorldRAG's domain (books/chapters/chunks/entities/relationships/
// state_changes/mentions) instead of the teacher's documents/chunks/
// entities/relationships/communities. Entities are stored in one typed
// table with a `entity_type` discriminator rather than one table per type,
// mirroring the teacher's single `entities` table with UNIQUE(name,
// entity_type) (§3: "canonical_name is the MERGE key for Characters; name
// for the rest").
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	series_name TEXT,
	order_in_series INTEGER,
	author TEXT,
	genre TEXT NOT NULL,
	total_chapters INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	registry_json TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chapters (
	book_id TEXT NOT NULL REFERENCES books(id),
	number INTEGER NOT NULL,
	title TEXT,
	text TEXT NOT NULL,
	word_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	regex_matches_data TEXT NOT NULL DEFAULT '[]',
	mention_data TEXT NOT NULL DEFAULT '{}',
	batch_id TEXT,
	PRIMARY KEY (book_id, number)
);

CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id TEXT NOT NULL,
	chapter_number INTEGER NOT NULL,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	token_count INTEGER NOT NULL,
	char_offset_start INTEGER NOT NULL,
	char_offset_end INTEGER NOT NULL,
	FOREIGN KEY (book_id, chapter_number) REFERENCES chapters(book_id, number)
);

CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
	chunk_id INTEGER PRIMARY KEY,
	embedding FLOAT[%d]
);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	text, content='chunks', content_rowid='id', tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
	INSERT INTO chunks_fts(rowid, text) VALUES (new.id, new.text);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES ('delete', old.id, old.text);
END;
CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
	INSERT INTO chunks_fts(chunks_fts, rowid, text) VALUES ('delete', old.id, old.text);
	INSERT INTO chunks_fts(rowid, text) VALUES (new.id, new.text);
END;

CREATE TABLE IF NOT EXISTS entities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	name TEXT NOT NULL,
	canonical_name TEXT NOT NULL,
	description TEXT,
	aliases_json TEXT NOT NULL DEFAULT '[]',
	role TEXT,
	species TEXT,
	status TEXT,
	last_seen_chapter INTEGER,
	level INTEGER,
	batch_id TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(book_id, entity_type, canonical_name)
);

CREATE TABLE IF NOT EXISTS relationships (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id TEXT NOT NULL,
	source_id INTEGER NOT NULL REFERENCES entities(id),
	target_id INTEGER NOT NULL REFERENCES entities(id),
	rel_type TEXT NOT NULL,
	valid_from_chapter INTEGER,
	valid_to_chapter INTEGER,
	value INTEGER,
	UNIQUE(source_id, rel_type, target_id, valid_from_chapter)
);

CREATE TABLE IF NOT EXISTS state_changes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id TEXT NOT NULL,
	chapter INTEGER NOT NULL,
	character_name TEXT NOT NULL,
	category TEXT NOT NULL,
	name TEXT,
	action TEXT NOT NULL,
	value_delta INTEGER,
	value_after INTEGER,
	detail TEXT,
	batch_id TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_state_changes_char ON state_changes(book_id, character_name, category, chapter);

CREATE TABLE IF NOT EXISTS mentions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id TEXT NOT NULL,
	chapter_number INTEGER NOT NULL,
	entity_id INTEGER NOT NULL REFERENCES entities(id),
	char_start INTEGER NOT NULL,
	char_end INTEGER NOT NULL,
	mention_text TEXT NOT NULL,
	mention_type TEXT NOT NULL,
	confidence REAL NOT NULL,
	alignment_status TEXT NOT NULL,
	pass_name TEXT
);
CREATE INDEX IF NOT EXISTS idx_mentions_chapter ON mentions(book_id, chapter_number);

CREATE INDEX IF NOT EXISTS idx_entities_book_type ON entities(book_id, entity_type);
CREATE INDEX IF NOT EXISTS idx_relationships_book ON relationships(book_id, rel_type);
`, embeddingDim)
}
