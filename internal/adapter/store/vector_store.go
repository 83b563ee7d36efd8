package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"pdfrag/internal/domain"
)

const dbFileName = "index.db"

var errNotOpen = errors.New("store not open: call Reset first")

// BoltStore persists index entries in a BoltDB file, one bucket per
// collection. The store directory is owned wholesale by the pipeline: Reset
// deletes it and starts fresh, so the store always reflects a prefix of the
// last run.
type BoltStore struct {
	path      string
	dimension int
	db        *bbolt.DB
}

type storedEntry struct {
	Vector []float32       `json:"v"`
	Text   string          `json:"t"`
	Meta   domain.Metadata `json:"m"`
}

// NewBoltStore prepares a store rooted at path. Nothing is touched on disk
// until Reset is called.
func NewBoltStore(path string, dimension int) *BoltStore {
	return &BoltStore{
		path:      path,
		dimension: dimension,
	}
}

// Open opens an existing store for inspection without touching its contents.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(filepath.Join(path, dbFileName), 0644, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	return &BoltStore{path: path, db: db}, nil
}

// Reset deletes everything at the store path, recreates the directory and
// opens a fresh database with one empty collection. Idempotent.
func (s *BoltStore) Reset(collection string) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
		s.db = nil
	}

	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove store at %s: %w", s.path, err)
	}
	if err := os.MkdirAll(s.path, 0755); err != nil {
		return fmt.Errorf("create store dir %s: %w", s.path, err)
	}

	db, err := bbolt.Open(filepath.Join(s.path, dbFileName), 0644, nil)
	if err != nil {
		return fmt.Errorf("open store at %s: %w", s.path, err)
	}
	s.db = db

	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(collection))
		return err
	})
}

// Add writes one batch inside a single transaction: either every entry in
// the batch lands or none do. All four slices must have equal length and
// every vector must match the store dimension.
func (s *BoltStore) Add(collection string, ids []string, vectors [][]float32, texts []string, metas []domain.Metadata) error {
	if s.db == nil {
		return errNotOpen
	}
	if len(ids) != len(vectors) || len(ids) != len(texts) || len(ids) != len(metas) {
		return fmt.Errorf("parallel slice length mismatch: %d ids, %d vectors, %d texts, %d metadatas",
			len(ids), len(vectors), len(texts), len(metas))
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("collection %q not found", collection)
		}

		for i, id := range ids {
			if len(vectors[i]) != s.dimension {
				return fmt.Errorf("%w: entry %s has %d dimensions, store expects %d",
					domain.ErrDimensionMismatch, id, len(vectors[i]), s.dimension)
			}

			data, err := json.Marshal(storedEntry{
				Vector: vectors[i],
				Text:   texts[i],
				Meta:   metas[i],
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of entries in the collection.
func (s *BoltStore) Count(collection string) (int, error) {
	if s.db == nil {
		return 0, errNotOpen
	}

	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return fmt.Errorf("collection %q not found", collection)
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

// Collections lists the collection names present in the store.
func (s *BoltStore) Collections() ([]string, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
