package port

// DocumentParser opens a document file and exposes its pages. Implementations
// wrap a concrete parsing library; tests substitute in-memory fakes.
type DocumentParser interface {
	Open(path string) (ParsedDocument, error)
}

type ParsedDocument interface {
	PageCount() int

	// Page returns the 1-based nth page.
	Page(n int) (Page, error)

	Close() error
}

type Page interface {
	// Text returns the page's full text, including any text that also
	// appears inside detected tables.
	Text() (string, error)

	// Tables returns the cell grids of the tables detected on the page,
	// in reading order. Detection is best-effort.
	Tables() ([][][]string, error)
}
