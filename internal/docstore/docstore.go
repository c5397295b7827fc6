// Package docstore is the reference document store collaborator: a
// SQLite-backed table of crawled documents, keyed by a dense
// monotonically assigned id, readable both as a bulk iteration source
// for building an index and as a point-lookup source for hydrating
// query results.
package docstore

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"

	"github.com/go-mizu/finsearch/internal/errs"
	"github.com/go-mizu/finsearch/internal/index"
)

// Document is one crawled page as stored and retrieved.
type Document struct {
	ID          uint64
	URL         string
	Title       string
	Body        string
	Domain      string
	Language    string
	ContentType string
	FetchedAt   time.Time
}

// Store wraps a *sql.DB over a single documents table.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if absent) a SQLite database at path in WAL
// mode and ensures the schema exists.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Resource("docstore: open %q: %v", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers; WAL still allows concurrent readers via separate connections if needed later
	s := &Store{db: db, log: log}
	if err := s.ensure(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensure(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			domain TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			fetched_at INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errs.Resource("docstore: ensure schema: %v", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Upsert inserts doc or, if its URL already exists, replaces its
// content while keeping the original id.
func (s *Store) Upsert(ctx context.Context, doc *Document) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (url, title, body, domain, language, content_type, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title=excluded.title, body=excluded.body, domain=excluded.domain,
			language=excluded.language, content_type=excluded.content_type,
			fetched_at=excluded.fetched_at
	`, doc.URL, doc.Title, doc.Body, doc.Domain, doc.Language, doc.ContentType, doc.FetchedAt.Unix())
	if err != nil {
		return errs.Resource("docstore: upsert %q: %v", doc.URL, err)
	}
	if doc.ID == 0 {
		id, err := res.LastInsertId()
		if err == nil && id > 0 {
			doc.ID = uint64(id)
		} else {
			existing, ferr := s.GetByURL(ctx, doc.URL)
			if ferr == nil && existing != nil {
				doc.ID = existing.ID
			}
		}
	}
	return nil
}

// GetByURL fetches a document by its unique URL, or nil if none exists.
func (s *Store) GetByURL(ctx context.Context, url string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, body, domain, language, content_type, fetched_at
		FROM documents WHERE url = ?`, url)
	return scanDocument(row)
}

// GetByID fetches a document by id, or nil if none exists.
func (s *Store) GetByID(ctx context.Context, id uint64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, body, domain, language, content_type, fetched_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var d Document
	var fetchedAt int64
	err := row.Scan(&d.ID, &d.URL, &d.Title, &d.Body, &d.Domain, &d.Language, &d.ContentType, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Resource("docstore: scan: %v", err)
	}
	d.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &d, nil
}

// CountDocuments implements index.DocSource.
func (s *Store) CountDocuments(ctx context.Context) (uint64, error) {
	var n uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, errs.Resource("docstore: count: %v", err)
	}
	return n, nil
}

// IterateDocuments implements index.DocSource: walks every document
// in ascending id order, batched, as the two-pass builder requires.
func (s *Store) IterateDocuments(ctx context.Context, batchSize int, fn func(batch []index.Document) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	var lastID uint64
	for {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, url, title, body, domain, language, content_type, fetched_at
			FROM documents WHERE id > ? ORDER BY id ASC LIMIT ?`, lastID, batchSize)
		if err != nil {
			return errs.Resource("docstore: iterate query: %v", err)
		}

		batch := make([]index.Document, 0, batchSize)
		for rows.Next() {
			d, err := scanDocument(rows)
			if err != nil {
				rows.Close()
				return err
			}
			batch = append(batch, index.Document{ID: d.ID, Body: d.Body})
			lastID = d.ID
		}
		rowsErr := rows.Err()
		rows.Close()
		if rowsErr != nil {
			return errs.Resource("docstore: iterate rows: %v", rowsErr)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
	}
}

// Hydrate implements bm25.Hydrator: fetch display metadata for one
// winning doc_id. A missing row is reported as ok=false, not an error,
// so the evaluator can drop it from the result set and keep going.
func (s *Store) Hydrate(ctx context.Context, docID uint64) (title, url, body string, ok bool, err error) {
	d, err := s.GetByID(ctx, docID)
	if err != nil {
		return "", "", "", false, err
	}
	if d == nil {
		return "", "", "", false, nil
	}
	return d.Title, d.URL, d.Body, true, nil
}
