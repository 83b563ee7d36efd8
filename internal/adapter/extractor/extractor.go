package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"pdfrag/internal/adapter/chunker"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// ContentExtractor turns one document into indexable chunks: for each page,
// the detected tables first, then the page text split by the chunker.
//
// Table text is not subtracted from the page text, so tabular content can
// appear both as a structured table chunk and inside a text chunk. That
// duplication is intentional; retrieval recall depends on it.
type ContentExtractor struct {
	parser  port.DocumentParser
	chunker port.Chunker
	log     *slog.Logger
}

func New(parser port.DocumentParser, chk port.Chunker, log *slog.Logger) *ContentExtractor {
	return &ContentExtractor{
		parser:  parser,
		chunker: chk,
		log:     log,
	}
}

// Extract reads every page of the document in order. A failure opening the
// document or reading a page fails the whole document; table extraction is
// best-effort and never aborts page processing.
func (e *ContentExtractor) Extract(doc domain.Document) ([]domain.Chunk, error) {
	parsed, err := e.parser.Open(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", doc.Name, err)
	}
	defer parsed.Close()

	var chunks []domain.Chunk
	for pageNum := 1; pageNum <= parsed.PageCount(); pageNum++ {
		page, err := parsed.Page(pageNum)
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", pageNum, doc.Name, err)
		}

		chunks = append(chunks, e.tableChunks(doc, page, pageNum)...)

		pageText, err := page.Text()
		if err != nil {
			return nil, fmt.Errorf("text of page %d of %s: %w", pageNum, doc.Name, err)
		}
		chunks = append(chunks, e.textChunks(doc, pageText, pageNum)...)
	}

	return chunks, nil
}

func (e *ContentExtractor) tableChunks(doc domain.Document, page port.Page, pageNum int) []domain.Chunk {
	grids, err := page.Tables()
	if err != nil {
		e.log.Warn("table extraction failed",
			"source", doc.Name, "page", pageNum, "error", err)
		return nil
	}

	var chunks []domain.Chunk
	for i, cells := range grids {
		text := chunker.FormatTable(cells)
		if text == "" {
			e.log.Warn("skipping empty table",
				"source", doc.Name, "page", pageNum, "table", i)
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text: text,
			Meta: domain.Metadata{
				Source:     doc.Name,
				Page:       pageNum,
				Kind:       domain.KindTable,
				TableIndex: i,
			},
		})
	}
	return chunks
}

func (e *ContentExtractor) textChunks(doc domain.Document, pageText string, pageNum int) []domain.Chunk {
	if strings.TrimSpace(pageText) == "" {
		return nil
	}

	pieces := e.chunker.Chunk(pageText)

	var chunks []domain.Chunk
	for idx, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text: piece,
			Meta: domain.Metadata{
				Source:            doc.Name,
				Page:              pageNum,
				Kind:              domain.KindText,
				ChunkIndex:        idx,
				TotalChunksOnPage: len(pieces),
			},
		})
	}
	return chunks
}
