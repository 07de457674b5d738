package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"hadirku/internal/model"
)

// FileStore is the embedded backend: one JSON array per collection, kept in
// a file named after the collection. Records keep insertion order and missing
// ids are absent, never errors.
type FileStore struct {
	dir string

	mu   sync.Mutex
	data map[Collection][]Document

	// now allows tests to pin id generation.
	now func() time.Time
}

// OpenFileStore loads (or creates) the data directory. An empty directory is
// seeded with the demo reference data so a fresh install is usable at once.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	fs := &FileStore{
		dir:  dir,
		data: make(map[Collection][]Document, len(Collections)),
		now:  time.Now,
	}
	for _, col := range Collections {
		docs, exists, err := fs.load(col)
		if err != nil {
			return nil, err
		}
		if !exists {
			docs = seedData[col]
			if len(docs) > 0 {
				log.Printf("seeded %s with %d demo records", col, len(docs))
			}
			if err := fs.flush(col, docs); err != nil {
				return nil, err
			}
		}
		fs.data[col] = docs
	}
	return fs, nil
}

func (fs *FileStore) path(col Collection) string {
	return filepath.Join(fs.dir, string(col)+".json")
}

func (fs *FileStore) load(col Collection) ([]Document, bool, error) {
	raw, err := os.ReadFile(fs.path(col))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Op: "load", Collection: col, Err: err}
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, false, &StorageError{Op: "load", Collection: col, Err: err}
	}
	return docs, true, nil
}

func (fs *FileStore) flush(col Collection, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	raw, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return &StorageError{Op: "flush", Collection: col, Err: err}
	}
	if err := os.WriteFile(fs.path(col), raw, 0o644); err != nil {
		return &StorageError{Op: "flush", Collection: col, Err: err}
	}
	return nil
}

func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// ListAll returns every record in insertion order.
func (fs *FileStore) ListAll(_ context.Context, col Collection) ([]Document, error) {
	if !col.Known() {
		return nil, ErrUnknownCollection
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	docs := fs.data[col]
	out := make([]Document, len(docs))
	for i, doc := range docs {
		out[i] = cloneDoc(doc)
	}
	return out, nil
}

// GetByID returns the record with the given id, nil when absent.
func (fs *FileStore) GetByID(_ context.Context, col Collection, id string) (Document, error) {
	if !col.Known() {
		return nil, ErrUnknownCollection
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, doc := range fs.data[col] {
		if doc.ID() == id {
			return cloneDoc(doc), nil
		}
	}
	return nil, nil
}

// Create appends a record with a fresh timestamp-derived id.
func (fs *FileStore) Create(_ context.Context, col Collection, doc Document) (Document, error) {
	if !col.Known() {
		return nil, ErrUnknownCollection
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	stored := cloneDoc(doc)
	stored["id"] = fs.freshID(col)
	fs.data[col] = append(fs.data[col], stored)
	if err := fs.flush(col, fs.data[col]); err != nil {
		return nil, err
	}
	return cloneDoc(stored), nil
}

// freshID derives ids from the clock the way the original store did, with a
// numeric suffix when two creates land on the same millisecond.
func (fs *FileStore) freshID(col Collection) string {
	base := strconv.FormatInt(fs.now().UnixMilli(), 10)
	id := base
	for n := 1; fs.idTaken(col, id); n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}

func (fs *FileStore) idTaken(col Collection, id string) bool {
	for _, doc := range fs.data[col] {
		if doc.ID() == id {
			return true
		}
	}
	return false
}

// Update replaces a record's fields in place, keeping its position.
func (fs *FileStore) Update(_ context.Context, col Collection, id string, doc Document) (Document, error) {
	if !col.Known() {
		return nil, ErrUnknownCollection
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i, existing := range fs.data[col] {
		if existing.ID() != id {
			continue
		}
		stored := cloneDoc(doc)
		stored["id"] = id
		fs.data[col][i] = stored
		if err := fs.flush(col, fs.data[col]); err != nil {
			return nil, err
		}
		return cloneDoc(stored), nil
	}
	return nil, ErrNotFound
}

// Delete removes a record; absent ids succeed silently.
func (fs *FileStore) Delete(_ context.Context, col Collection, id string) error {
	if !col.Known() {
		return ErrUnknownCollection
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	docs := fs.data[col]
	for i, doc := range docs {
		if doc.ID() == id {
			fs.data[col] = append(docs[:i:i], docs[i+1:]...)
			return fs.flush(col, fs.data[col])
		}
	}
	return nil
}

// Query filters in memory, preserving insertion order.
func (fs *FileStore) Query(_ context.Context, col Collection, f Filter) ([]Document, error) {
	if !col.Known() {
		return nil, ErrUnknownCollection
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var out []Document
	for _, doc := range fs.data[col] {
		if matches(doc, f) {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}

// Login implements the shared lookup-by-email contract.
func (fs *FileStore) Login(ctx context.Context, email, password string) (*model.User, error) {
	return loginUser(ctx, fs, email, password)
}

// Healthy always holds for the embedded store once opened.
func (fs *FileStore) Healthy(context.Context) bool { return true }

// Close is a no-op; every write is flushed eagerly.
func (fs *FileStore) Close() error { return nil }
