package parser

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfrag/internal/port"
)

const (
	// Fragments within this many points vertically belong to the same row.
	rowTolerance = 2.0
	// Horizontal gaps wider than this fraction of the font size get a space.
	wordGapEm = 0.3
	// Horizontal gaps wider than this many font sizes start a new cell.
	cellGapEm = 2.0
)

// PDFParser reads PDF files with ledongthuc/pdf. Page text comes from the
// library's plain-text extraction; tables are detected from positioned text
// fragments by clustering them into visual rows and splitting each row into
// cells at large horizontal gaps. Detection is best-effort layout analysis,
// and table text is not removed from the page text stream.
type PDFParser struct{}

func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

func (*PDFParser) Open(path string) (doc port.ParsedDocument, err error) {
	// The underlying library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &pdfDocument{file: f, reader: r}, nil
}

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func (d *pdfDocument) PageCount() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) Page(n int) (port.Page, error) {
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d missing", n)
	}
	return &pdfPage{page: p}, nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

type pdfPage struct {
	page pdf.Page
}

func (p *pdfPage) Text() (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text extraction: %v", r)
		}
	}()
	return p.page.GetPlainText(nil)
}

func (p *pdfPage) Tables() (tables [][][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("table extraction: %v", r)
		}
	}()
	return detectTables(groupRows(p.page.Content().Text)), nil
}

type visualRow struct {
	y     float64
	cells []string
}

// groupRows clusters positioned fragments into visual rows, top to bottom.
// PDF Y coordinates grow upward, so rows are ordered by descending Y; each
// row's fragments are then joined left to right into cells.
func groupRows(frags []pdf.Text) []visualRow {
	var texts []pdf.Text
	for _, t := range frags {
		if strings.TrimSpace(t.S) != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return nil
	}

	sort.SliceStable(texts, func(i, j int) bool {
		return texts[i].Y > texts[j].Y
	})

	var rows []visualRow
	var current []pdf.Text
	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(i, j int) bool {
			return current[i].X < current[j].X
		})
		rows = append(rows, buildRow(current))
		current = nil
	}

	for _, t := range texts {
		if len(current) > 0 && current[0].Y-t.Y > rowTolerance {
			flush()
		}
		current = append(current, t)
	}
	flush()

	return rows
}

// buildRow joins one row's fragments into cells: a small horizontal gap
// continues the current cell, a gap wider than cellGapEm font sizes starts
// a new one.
func buildRow(frags []pdf.Text) visualRow {
	row := visualRow{y: frags[0].Y}

	var cell strings.Builder
	prevEnd := frags[0].X
	for i, t := range frags {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		gap := t.X - prevEnd
		switch {
		case i > 0 && gap > cellGapEm*size:
			row.cells = append(row.cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		case i > 0 && gap > wordGapEm*size:
			cell.WriteByte(' ')
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	if s := strings.TrimSpace(cell.String()); s != "" {
		row.cells = append(row.cells, s)
	}

	return row
}

// detectTables returns each run of two or more consecutive multi-cell rows
// as a cell grid, padded so every row has the same number of columns.
func detectTables(rows []visualRow) [][][]string {
	var tables [][][]string
	var run [][]string
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, padGrid(run))
		}
		run = nil
	}

	for _, r := range rows {
		if len(r.cells) >= 2 {
			run = append(run, r.cells)
		} else {
			flush()
		}
	}
	flush()

	return tables
}

func padGrid(grid [][]string) [][]string {
	cols := 0
	for _, row := range grid {
		if len(row) > cols {
			cols = len(row)
		}
	}
	for i, row := range grid {
		for len(row) < cols {
			row = append(row, "")
		}
		grid[i] = row
	}
	return grid
}
