package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// DefaultDocumentName is the row or key name used when none is given.
const DefaultDocumentName = "default"

// SQLiteStore keeps the document as a single msgpack row in SQLite.
type SQLiteStore struct {
	db           *sql.DB
	dbPath       string
	name         string
	queryTimeout time.Duration
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) the SQLite database at dbPath and stores the
// document in the row called name. If dbPath is empty or ":memory:", an in-memory
// database is used.
func NewSQLite(ctx context.Context, dbPath string, name string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	if name == "" {
		name = DefaultDocumentName
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ioError(err, "open sqlite %s", dbPath)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, ioError(err, "enable wal")
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, ioError(err, "create documents table")
	}
	return &SQLiteStore{
		db:           db,
		dbPath:       dbPath,
		name:         name,
		queryTimeout: DefaultQueryTimeout,
	}, nil
}

func (s *SQLiteStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.queryTimeout)
}

func (s *SQLiteStore) Location() string {
	return "sqlite://" + s.dbPath + "#" + s.name
}

func (s *SQLiteStore) Load(ctx context.Context) (Document, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	var body []byte
	err := s.db.QueryRowContext(qctx, `SELECT body FROM documents WHERE name = ?`, s.name).Scan(&body)
	if err == sql.ErrNoRows {
		return Document{}, nil
	}
	if err != nil {
		return nil, ioError(err, "load document %s", s.name)
	}
	return decodeMsgpack(body), nil
}

func (s *SQLiteStore) Save(ctx context.Context, doc Document) error {
	body, err := encodeMsgpack(doc)
	if err != nil {
		return err
	}
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	_, err = s.db.ExecContext(qctx,
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		s.name, body, time.Now().Unix(),
	)
	if err != nil {
		return ioError(err, "save document %s", s.name)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeMsgpack(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	body, err := msgpack.Marshal(doc)
	if err != nil {
		return nil, ioError(err, "encode document")
	}
	return body, nil
}

func decodeMsgpack(body []byte) Document {
	if len(body) == 0 {
		return Document{}
	}
	doc := Document{}
	if err := msgpack.Unmarshal(body, &doc); err != nil || doc == nil {
		return Document{}
	}
	return doc
}
