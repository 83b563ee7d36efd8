package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/adapter/extractor"
	"pdfrag/internal/adapter/fs"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

type fakePage struct {
	text   string
	tables [][][]string
}

func (p *fakePage) Text() (string, error)         { return p.text, nil }
func (p *fakePage) Tables() ([][][]string, error) { return p.tables, nil }

type fakeDocument struct {
	pages []*fakePage
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }
func (d *fakeDocument) Page(n int) (port.Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, errors.New("page out of range")
	}
	return d.pages[n-1], nil
}
func (d *fakeDocument) Close() error { return nil }

type fakeParser struct {
	docs map[string]*fakeDocument
}

func (p *fakeParser) Open(path string) (port.ParsedDocument, error) {
	doc, ok := p.docs[filepath.Base(path)]
	if !ok {
		return nil, errors.New("corrupt file")
	}
	return doc, nil
}

type fakeEmbedder struct {
	dim      int
	calls    int
	batches  []int
	failCall map[int]bool
	shortVec bool
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.batches = append(e.batches, len(texts))
	if e.failCall[e.calls] {
		return nil, errors.New("provider unavailable")
	}
	dim := e.dim
	if e.shortVec {
		dim--
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, dim)
	}
	return out, nil
}

func (e *fakeEmbedder) Dimension() int    { return e.dim }
func (e *fakeEmbedder) ModelName() string { return "fake" }

type fakeStore struct {
	resetCalls int
	addCalls   int
	failAdd    map[int]bool
	ids        []string
}

func (s *fakeStore) Reset(string) error {
	s.resetCalls++
	s.ids = nil
	return nil
}

func (s *fakeStore) Add(_ string, ids []string, vectors [][]float32, texts []string, metas []domain.Metadata) error {
	s.addCalls++
	if s.failAdd[s.addCalls] {
		return errors.New("disk full")
	}
	if len(ids) != len(vectors) || len(ids) != len(texts) || len(ids) != len(metas) {
		return errors.New("length mismatch")
	}
	s.ids = append(s.ids, ids...)
	return nil
}

func (s *fakeStore) Count(string) (int, error) { return len(s.ids), nil }
func (s *fakeStore) Close() error              { return nil }

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}
}

// tablePages builds a single page carrying n identical tables, giving an
// exact, controllable chunk count.
func tablePages(n int) []*fakePage {
	tables := make([][][]string, n)
	for i := range tables {
		tables[i] = [][]string{{"name", "price"}, {"apple", "1.20"}}
	}
	return []*fakePage{{tables: tables}}
}

func newPipeline(t *testing.T, parser port.DocumentParser, emb port.Embedder, st port.VectorStore, batchSize int) *IndexUseCase {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ext := extractor.New(parser, chunker.NewSentenceChunker(800, 200, nil), log)
	return NewIndexUseCase(fs.NewScanner("*.pdf"), ext, emb, st, log, Options{
		Collection: "docs",
		BatchSize:  batchSize,
	})
}

func TestIndexEmptyDirectoryNoSideEffects(t *testing.T) {
	st := &fakeStore{}
	uc := newPipeline(t, &fakeParser{}, &fakeEmbedder{dim: 4}, st, 100)

	summary, err := uc.Index(context.Background(), t.TempDir(), nil)
	if !errors.Is(err, domain.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
	if st.resetCalls != 0 {
		t.Error("store must not be reset when no documents were found")
	}
	if summary.DocumentsFound != 0 || summary.ChunksWritten != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}

func TestIndexBatchBoundaries(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "big.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"big.pdf": {pages: tablePages(250)},
	}}
	emb := &fakeEmbedder{dim: 4}
	st := &fakeStore{}
	uc := newPipeline(t, parser, emb, st, 100)

	summary, err := uc.Index(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	wantBatches := []int{100, 100, 50}
	if len(emb.batches) != len(wantBatches) {
		t.Fatalf("expected %d embed calls, got %v", len(wantBatches), emb.batches)
	}
	for i, want := range wantBatches {
		if emb.batches[i] != want {
			t.Errorf("batch %d: expected %d texts, got %d", i, want, emb.batches[i])
		}
	}
	if summary.ChunksWritten != 250 {
		t.Errorf("expected 250 chunks written, got %d", summary.ChunksWritten)
	}
	if len(st.ids) != 250 {
		t.Errorf("expected 250 entries in store, got %d", len(st.ids))
	}
}

func TestIndexIDsUniqueAndRunScoped(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "alpha.pdf")
	touch(t, dir, "beta.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"alpha.pdf": {pages: tablePages(3)},
		"beta.pdf":  {pages: tablePages(2)},
	}}
	st := &fakeStore{}
	uc := newPipeline(t, parser, &fakeEmbedder{dim: 4}, st, 100)

	if _, err := uc.Index(context.Background(), dir, nil); err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for _, id := range st.ids {
		if seen[id] {
			t.Errorf("duplicate id: %s", id)
		}
		seen[id] = true
	}

	// The global index keeps counting across documents.
	want := []string{
		"alpha_chunk_0", "alpha_chunk_1", "alpha_chunk_2",
		"beta_chunk_3", "beta_chunk_4",
	}
	if len(st.ids) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, st.ids)
	}
	for i := range want {
		if st.ids[i] != want[i] {
			t.Errorf("id %d: expected %s, got %s", i, want[i], st.ids[i])
		}
	}
}

func TestIndexFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "corrupt.pdf")
	touch(t, dir, "good.pdf")

	// corrupt.pdf is absent from the parser's map, so Open fails.
	parser := &fakeParser{docs: map[string]*fakeDocument{
		"good.pdf": {pages: tablePages(4)},
	}}
	st := &fakeStore{}
	uc := newPipeline(t, parser, &fakeEmbedder{dim: 4}, st, 100)

	summary, err := uc.Index(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	if summary.DocumentsFound != 2 {
		t.Errorf("expected 2 documents found, got %d", summary.DocumentsFound)
	}
	if summary.DocumentsFailed != 1 {
		t.Errorf("expected 1 failed document, got %d", summary.DocumentsFailed)
	}
	if summary.DocumentsIndexed != 1 {
		t.Errorf("expected 1 indexed document, got %d", summary.DocumentsIndexed)
	}
	for _, id := range st.ids {
		if !strings.HasPrefix(id, "good_chunk_") {
			t.Errorf("unexpected id in store: %s", id)
		}
	}
}

func TestIndexEmbedFailureDropsBatchOnly(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "big.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"big.pdf": {pages: tablePages(250)},
	}}
	emb := &fakeEmbedder{dim: 4, failCall: map[int]bool{2: true}}
	st := &fakeStore{}
	uc := newPipeline(t, parser, emb, st, 100)

	summary, err := uc.Index(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	if summary.BatchesFailed != 1 {
		t.Errorf("expected 1 failed batch, got %d", summary.BatchesFailed)
	}
	if summary.ChunksWritten != 150 {
		t.Errorf("expected 150 chunks written, got %d", summary.ChunksWritten)
	}
	if len(st.ids) != 150 {
		t.Errorf("expected 150 entries in store, got %d", len(st.ids))
	}
}

func TestIndexStoreFailureDropsBatchOnly(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "big.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"big.pdf": {pages: tablePages(250)},
	}}
	st := &fakeStore{failAdd: map[int]bool{1: true}}
	uc := newPipeline(t, parser, &fakeEmbedder{dim: 4}, st, 100)

	summary, err := uc.Index(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	if summary.BatchesFailed != 1 {
		t.Errorf("expected 1 failed batch, got %d", summary.BatchesFailed)
	}
	if summary.ChunksWritten != 150 {
		t.Errorf("expected 150 chunks written, got %d", summary.ChunksWritten)
	}
}

func TestIndexRejectsShortVectors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"a.pdf": {pages: tablePages(2)},
	}}
	st := &fakeStore{}
	uc := newPipeline(t, parser, &fakeEmbedder{dim: 4, shortVec: true}, st, 100)

	summary, err := uc.Index(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	if summary.BatchesFailed != 1 {
		t.Errorf("expected the short-vector batch to fail, got %+v", summary)
	}
	if len(st.ids) != 0 {
		t.Errorf("partial vectors must never be written, got %d entries", len(st.ids))
	}
}

func TestIndexRepeatedRunsSameCounts(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "alpha.pdf")
	touch(t, dir, "beta.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"alpha.pdf": {pages: tablePages(7)},
		"beta.pdf":  {pages: tablePages(5)},
	}}
	st := &fakeStore{}
	uc := newPipeline(t, parser, &fakeEmbedder{dim: 4}, st, 100)

	first, err := uc.Index(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.Index(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	if first.ChunksWritten != second.ChunksWritten {
		t.Errorf("chunk counts differ across runs: %d vs %d", first.ChunksWritten, second.ChunksWritten)
	}
	if st.resetCalls != 2 {
		t.Errorf("expected one reset per run, got %d", st.resetCalls)
	}
	count, _ := st.Count("docs")
	if count != first.ChunksWritten {
		t.Errorf("store holds %d entries, expected %d", count, first.ChunksWritten)
	}
}

func TestIndexCancellationAtBatchBoundary(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "big.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"big.pdf": {pages: tablePages(250)},
	}}
	st := &fakeStore{}
	uc := newPipeline(t, parser, &fakeEmbedder{dim: 4}, st, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := uc.Index(ctx, dir, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.ChunksWritten != 0 {
		t.Errorf("expected no chunks written after immediate cancel, got %d", summary.ChunksWritten)
	}
}

func TestIndexProgressCallback(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a.pdf")
	touch(t, dir, "b.pdf")

	parser := &fakeParser{docs: map[string]*fakeDocument{
		"a.pdf": {pages: tablePages(2)},
		"b.pdf": {pages: tablePages(2)},
	}}
	uc := newPipeline(t, parser, &fakeEmbedder{dim: 4}, &fakeStore{}, 100)

	var calls []string
	progress := func(processed, total int, current string) {
		calls = append(calls, fmt.Sprintf("%d/%d:%s", processed, total, current))
	}

	if _, err := uc.Index(context.Background(), dir, progress); err != nil {
		t.Fatal(err)
	}

	want := []string{"0/2:a.pdf", "1/2:b.pdf", "2/2:"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d progress calls, got %v", len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], calls[i])
		}
	}
}
