package port

// SentenceSplitter breaks text into sentence units. The chunk-accumulation
// algorithm is independent of the boundary rule, so a more sophisticated
// tokenizer can be substituted without touching the chunker.
type SentenceSplitter func(text string) []string

// Chunker splits a text block into ordered, possibly overlapping chunks.
type Chunker interface {
	Chunk(text string) []string
}
