package chunker

import (
	"strings"
	"unicode/utf8"

	"pdfrag/internal/port"
)

// SentenceChunker splits text into overlapping chunks along sentence
// boundaries, bounded by a target character size. A single sentence longer
// than the target is never split further; it becomes one oversized chunk.
type SentenceChunker struct {
	targetSize int
	overlap    int
	split      port.SentenceSplitter
}

// NewSentenceChunker creates a chunker. The caller is responsible for
// validating overlap < targetSize before construction. A nil splitter uses
// the default punctuation heuristic.
func NewSentenceChunker(targetSize, overlap int, split port.SentenceSplitter) *SentenceChunker {
	if split == nil {
		split = SplitSentences
	}
	return &SentenceChunker{
		targetSize: targetSize,
		overlap:    overlap,
		split:      split,
	}
}

// Chunk greedily accumulates sentences into chunks of roughly targetSize
// characters. When a sentence would overflow the buffer, the buffer is
// emitted and the next one is seeded with the last overlap characters of the
// closed buffer, so context carries across chunk boundaries.
func (c *SentenceChunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.targetSize {
		return []string{text}
	}

	var chunks []string
	var buf string

	for _, sentence := range c.split(text) {
		if buf != "" && len(buf)+len(sentence) > c.targetSize {
			chunks = append(chunks, strings.TrimSpace(buf))
			buf = carryOver(buf, c.overlap) + " " + sentence
			continue
		}
		if buf != "" {
			buf += " "
		}
		buf += sentence
	}

	if trimmed := strings.TrimSpace(buf); trimmed != "" {
		chunks = append(chunks, trimmed)
	}

	return chunks
}

// carryOver returns the last n bytes of buf, or the whole buffer when it is
// shorter. The slice is a raw character count, not sentence-aligned, so it
// may start mid-word; it only backs up far enough to land on a rune boundary.
func carryOver(buf string, n int) string {
	if len(buf) <= n {
		return buf
	}
	start := len(buf) - n
	for start < len(buf) && !utf8.RuneStart(buf[start]) {
		start++
	}
	return buf[start:]
}

// SplitSentences is the default boundary rule: a sentence ends immediately
// after '.', '!' or '?' followed by whitespace. It is a heuristic, not a
// sentence tokenizer; abbreviations, decimal numbers and quoted punctuation
// are not special-cased.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if !isSpace(text[i+1]) {
				continue
			}
			sentences = append(sentences, text[start:i+1])
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
