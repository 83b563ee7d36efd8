package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"pdfrag/internal/adapter/extractor"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// IndexUseCase runs the full ingestion pipeline: scan the source directory,
// reset the store, then per document extract, chunk, embed and write in
// batches. Nothing past configuration validation aborts the run: a failing
// document or batch is logged, counted and skipped.
type IndexUseCase struct {
	scanner   *fs.Scanner
	extractor *extractor.ContentExtractor
	embedder  port.Embedder
	store     port.VectorStore
	log       *slog.Logger

	collection   string
	batchSize    int
	embedTimeout time.Duration
}

// Options configures a run. Zero values fall back to the reference defaults.
type Options struct {
	Collection   string
	BatchSize    int
	EmbedTimeout time.Duration
}

func NewIndexUseCase(
	scanner *fs.Scanner,
	ext *extractor.ContentExtractor,
	embedder port.Embedder,
	store port.VectorStore,
	log *slog.Logger,
	opts Options,
) *IndexUseCase {
	if opts.Collection == "" {
		opts.Collection = "pdf_documents"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 60 * time.Second
	}
	return &IndexUseCase{
		scanner:      scanner,
		extractor:    ext,
		embedder:     embedder,
		store:        store,
		log:          log,
		collection:   opts.Collection,
		batchSize:    opts.BatchSize,
		embedTimeout: opts.EmbedTimeout,
	}
}

// Progress is called before each document and once after the last one.
type Progress func(processed, total int, current string)

// Index processes every matching document in dir and returns the run's
// terminal report. An empty directory returns ErrNoDocuments before any side
// effect; the store is reset only once documents are found. Cancellation is
// honored at batch boundaries, so an interrupted run leaves a clean prefix
// of the would-be-complete run in the store.
func (u *IndexUseCase) Index(ctx context.Context, dir string, progress Progress) (*domain.Summary, error) {
	summary := &domain.Summary{}

	files, err := u.scanner.Scan(dir)
	if err != nil {
		return summary, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return summary, fmt.Errorf("%w in %s", domain.ErrNoDocuments, dir)
	}
	summary.DocumentsFound = len(files)
	u.log.Info("documents found", "count", len(files), "dir", dir)

	// Fresh store per run: whatever a previous run persisted is gone before
	// the first write.
	if err := u.store.Reset(u.collection); err != nil {
		return summary, fmt.Errorf("reset store: %w", err)
	}

	// The chunk counter spans the whole run so ids stay unique across
	// documents.
	counter := &chunkCounter{}

	for i, path := range files {
		if progress != nil {
			progress(i, len(files), filepath.Base(path))
		}

		written, err := u.indexDocument(ctx, path, counter, summary)
		summary.ChunksWritten += written
		if written > 0 {
			summary.DocumentsIndexed++
		}
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			u.log.Error("skipping document", "source", filepath.Base(path), "error", err)
			summary.DocumentsFailed++
		}
	}

	if progress != nil {
		progress(len(files), len(files), "")
	}
	return summary, nil
}

// indexDocument extracts one document and writes its chunks in batches,
// returning how many chunks were written. An extraction error fails the
// document; a batch error drops that batch only.
func (u *IndexUseCase) indexDocument(ctx context.Context, path string, counter *chunkCounter, summary *domain.Summary) (int, error) {
	doc := domain.NewDocument(path)

	chunks, err := u.extractor.Extract(doc)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		u.log.Warn("no content extracted", "source", doc.Name)
		return 0, nil
	}

	// Ids are assigned to every extracted chunk up front, so the numbering
	// is deterministic for a given input regardless of later batch failures.
	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s_chunk_%d", doc.Stem, counter.next())
	}

	written := 0
	for start := 0; start < len(chunks); start += u.batchSize {
		// Batch boundaries are the only cancellation points.
		if err := ctx.Err(); err != nil {
			return written, err
		}

		end := min(start+u.batchSize, len(chunks))
		if err := u.writeBatch(ctx, chunks[start:end]); err != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			u.log.Error("batch dropped",
				"source", doc.Name, "from", start, "to", end, "error", err)
			summary.BatchesFailed++
			continue
		}
		written += end - start
	}

	u.log.Info("document indexed", "source", doc.Name, "chunks", written)
	return written, nil
}

func (u *IndexUseCase) writeBatch(ctx context.Context, batch []domain.Chunk) error {
	ids := make([]string, len(batch))
	texts := make([]string, len(batch))
	metas := make([]domain.Metadata, len(batch))
	for i, c := range batch {
		ids[i] = c.ID
		texts[i] = c.Text
		metas[i] = c.Meta
	}

	ectx, cancel := context.WithTimeout(ctx, u.embedTimeout)
	defer cancel()

	vectors, err := u.embedder.Embed(ectx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrDimensionMismatch, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != u.embedder.Dimension() {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, len(v), u.embedder.Dimension())
		}
	}

	if err := u.store.Add(u.collection, ids, vectors, texts, metas); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// chunkCounter assigns the run-scoped global chunk index. It is owned by a
// single Index call and threaded through explicitly; parallelizing across
// documents would require making it atomic.
type chunkCounter struct {
	n int
}

func (c *chunkCounter) next() int {
	v := c.n
	c.n++
	return v
}
