package port

import "pdfrag/internal/domain"

// VectorStore persists (id, vector, text, metadata) tuples in named
// collections. A run owns the store's on-disk location wholesale: Reset wipes
// it and recreates an empty collection before the first write.
type VectorStore interface {
	// Reset deletes any persisted data and recreates an empty collection.
	// Idempotent; safe to call when nothing exists yet.
	Reset(collection string) error

	// Add writes one batch. The four slices are parallel and must have equal
	// length. Writes are all-or-nothing per batch.
	Add(collection string, ids []string, vectors [][]float32, texts []string, metas []domain.Metadata) error

	// Count returns the number of entries in the collection.
	Count(collection string) (int, error)

	Close() error
}
