package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gksapp/gks/internal/domain"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// DocumentStore keeps collections of JSON documents in BoltDB, one bucket
// per collection, and notifies in-process listeners after every committed write.
type DocumentStore struct {
	db     *bolt.DB
	logger *slog.Logger

	mu        sync.Mutex // protects listeners and nextID
	listeners map[string]map[uint64]*listener
	nextID    uint64
	closed    bool
}

// Open opens (or creates) the store file at path
func Open(path string, logger *slog.Logger) (*DocumentStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	return &DocumentStore{
		db:        db,
		logger:    logger,
		listeners: make(map[string]map[uint64]*listener),
	}, nil
}

// Close stops every listener and closes the database
func (s *DocumentStore) Close() error {
	s.mu.Lock()
	s.closed = true
	var all []*listener
	for _, set := range s.listeners {
		for _, l := range set {
			all = append(all, l)
		}
	}
	s.listeners = make(map[string]map[uint64]*listener)
	s.mu.Unlock()

	for _, l := range all {
		l.stop()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Writes ===

// Put inserts or replaces one document. An empty ID gets a fresh UUID.
func (s *DocumentStore) Put(collection string, doc domain.Document) (domain.Document, error) {
	docs, err := s.PutMany(collection, []domain.Document{doc})
	if err != nil {
		return domain.Document{}, err
	}
	return docs[0], nil
}

// PutMany writes docs in a single transaction
func (s *DocumentStore) PutMany(collection string, docs []domain.Document) ([]domain.Document, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}
	stored := make([]domain.Document, len(docs))
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		for i, doc := range docs {
			if doc.ID == "" {
				doc.ID = uuid.NewString()
			}
			data, err := json.Marshal(doc.Fields)
			if err != nil {
				return fmt.Errorf("encode %s/%s: %w", collection, doc.ID, err)
			}
			if err := b.Put([]byte(doc.ID), data); err != nil {
				return err
			}
			// Round-trip so callers see the stored representation
			fields, err := decodeFields(data)
			if err != nil {
				return err
			}
			stored[i] = domain.Document{ID: doc.ID, Fields: fields}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to write documents", "error", err, "collection", collection)
		return nil, err
	}
	s.logger.Debug("wrote documents", "collection", collection, "count", len(docs))
	s.notify(collection)
	return stored, nil
}

// Delete removes one document. Missing documents are not an error.
func (s *DocumentStore) Delete(collection, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		s.logger.Error("failed to delete document", "error", err, "collection", collection, "id", id)
		return err
	}
	s.notify(collection)
	return nil
}

// DropCollection deletes a collection and all of its documents
func (s *DocumentStore) DropCollection(collection string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(collection)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(collection))
	})
	if err != nil {
		return err
	}
	s.notify(collection)
	return nil
}

// === Reads ===

// Get returns a single document
func (s *DocumentStore) Get(collection, id string) (domain.Document, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil || data == nil {
		return domain.Document{}, false, err
	}
	fields, err := decodeFields(data)
	if err != nil {
		return domain.Document{}, false, err
	}
	return domain.Document{ID: id, Fields: fields}, true, nil
}

// Collections lists the collection names with their document counts
func (s *DocumentStore) Collections() (map[string]int, error) {
	out := make(map[string]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			out[string(name)] = b.Stats().KeyN
			return nil
		})
	})
	return out, err
}

// Query implements domain.CollectionQuerier.
//
// Documents lacking OrderField are excluded. Ties are broken by ID, and
// StartAfter resumes strictly after the named document's position.
func (s *DocumentStore) Query(ctx context.Context, collection string, opts domain.QueryOptions) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return domain.Page{}, err
	}

	var docs []domain.Document
	var cursor *domain.Document
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			if opts.StartAfter != "" {
				return domain.ErrCursorNotFound
			}
			return nil
		}
		if opts.StartAfter != "" {
			v := b.Get([]byte(opts.StartAfter))
			if v == nil {
				return domain.ErrCursorNotFound
			}
			fields, err := decodeFields(v)
			if err != nil {
				return err
			}
			cursor = &domain.Document{ID: opts.StartAfter, Fields: fields}
		}
		return b.ForEach(func(k, v []byte) error {
			fields, err := decodeFields(v)
			if err != nil {
				return fmt.Errorf("decode %s/%s: %w", collection, k, err)
			}
			docs = append(docs, domain.Document{ID: string(k), Fields: fields})
			return nil
		})
	})
	if err != nil {
		return domain.Page{}, err
	}

	docs = applyQuery(docs, cursor, opts)
	page := domain.Page{Docs: docs}
	if n := len(docs); n > 0 {
		page.LastKey = docs[n-1].ID
	}
	return page, nil
}

func decodeFields(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	return fields, nil
}
