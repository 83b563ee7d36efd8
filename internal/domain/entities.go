package domain

import (
	"path/filepath"
	"strings"
)

// Content kinds. Every chunk in the store is one or the other.
const (
	KindText  = "text"
	KindTable = "table"
)

// Document is a single input file. Inputs are read-only; the pipeline never
// writes back to the source directory.
type Document struct {
	Path string
	Name string // base name, recorded in chunk metadata for citation
	Stem string // base name without extension, used in chunk IDs
}

func NewDocument(path string) Document {
	name := filepath.Base(path)
	return Document{
		Path: path,
		Name: name,
		Stem: strings.TrimSuffix(name, filepath.Ext(name)),
	}
}

// Metadata identifies where a chunk came from. Which positional fields are
// meaningful depends on Kind: ChunkIndex/TotalChunksOnPage for text chunks,
// TableIndex for table chunks.
type Metadata struct {
	Source            string `json:"source"`
	Page              int    `json:"page"`
	Kind              string `json:"type"`
	ChunkIndex        int    `json:"chunk_index"`
	TotalChunksOnPage int    `json:"total_chunks_on_page"`
	TableIndex        int    `json:"table_index"`
}

// Chunk is one unit of indexable text. The ID is assigned by the pipeline
// after extraction and is unique within a run.
type Chunk struct {
	ID   string
	Text string
	Meta Metadata
}

// Summary is the terminal report of an indexing run.
type Summary struct {
	DocumentsFound   int
	DocumentsIndexed int // documents that contributed at least one written chunk
	DocumentsFailed  int
	ChunksWritten    int
	BatchesFailed    int
}
