package store

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/google/renameio/v2"
)

const (
	// maxReadBuffer caps the read buffer for large documents.
	maxReadBuffer = 128 * 1024
	// writeBufferSize is the buffer between the encoder and the pending file.
	writeBufferSize = 128 * 1024
)

// FileStore keeps the document as a JSON file.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFile returns a Store backed by the JSON file at path. The file and its parent
// directories are created on the first Save.
func NewFile(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Location() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (Document, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return Document{}, nil
	}
	if err != nil {
		return nil, ioError(err, "open %s", s.path)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, ioError(err, "stat %s", s.path)
	}
	if info.IsDir() {
		return nil, ioError(os.ErrInvalid, "%s is a directory", s.path)
	}
	size := int(info.Size())
	if size == 0 {
		return Document{}, nil
	}
	var buf bytes.Buffer
	buf.Grow(size + bytes.MinRead)
	if _, err := buf.ReadFrom(bufio.NewReaderSize(f, min(size, maxReadBuffer))); err != nil {
		return nil, ioError(err, "read %s", s.path)
	}
	doc := Document{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil || doc == nil {
		// a damaged file is replaced on the next write
		return Document{}, nil
	}
	return doc, nil
}

// Save replaces the file atomically. Readers see either the previous document or
// the complete new one.
func (s *FileStore) Save(_ context.Context, doc Document) error {
	if doc == nil {
		doc = Document{}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return ioError(err, "create directory for %s", s.path)
	}
	pf, err := renameio.NewPendingFile(s.path, renameio.WithPermissions(0o644))
	if err != nil {
		return ioError(err, "create pending file for %s", s.path)
	}
	defer pf.Cleanup()
	w := bufio.NewWriterSize(pf, writeBufferSize)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return ioError(err, "encode %s", s.path)
	}
	if err := w.Flush(); err != nil {
		return ioError(err, "write %s", s.path)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return ioError(err, "replace %s", s.path)
	}
	return nil
}

// Close is a no-op, the file is not held open between operations.
func (s *FileStore) Close() error {
	return nil
}
