// Package chunking splits extracted document text into overlapping,
// size-bounded chunks and resolves the section heading each chunk falls under.
package chunking

import (
	"regexp"
	"strings"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// builder accumulates the pieces of the chunk under construction together
// with the joined length, so size checks do not re-join on every append.
type builder struct {
	pieces []string
	length int
	sep    string
}

func (b *builder) fits(n, chunkSize int) bool {
	extra := 0
	if len(b.pieces) > 0 {
		extra = len(b.sep)
	}
	return b.length+extra+n <= chunkSize
}

func (b *builder) add(piece string) {
	if len(b.pieces) > 0 {
		b.length += len(b.sep)
	}
	b.pieces = append(b.pieces, piece)
	b.length += len(piece)
}

func (b *builder) text() string {
	return strings.Join(b.pieces, b.sep)
}

// Chunk splits text into chunks of at most chunkSize characters, packing whole
// paragraphs greedily and seeding each new chunk with the tail overlap
// characters of the previous one. Oversized paragraphs are split by sentence,
// oversized sentences by word, and a final pass hard-caps anything that is
// still too large. Empty or whitespace-only input yields no chunks.
func Chunk(text string, chunkSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	var chunks []string
	cur := builder{sep: "\n\n"}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if cur.fits(len(para), chunkSize) {
			cur.add(para)
			continue
		}

		if cur.length > 0 {
			chunks = append(chunks, cur.text())
		}
		cur = builder{sep: "\n\n"}

		if len(para) > chunkSize {
			chunks = splitParagraph(chunks, para, chunkSize, overlap)
			continue
		}

		if tail := overlapTail(chunks, overlap); tail != "" {
			cur.add(tail)
		}
		cur.add(para)
	}

	if cur.length > 0 {
		chunks = append(chunks, cur.text())
	}

	return hardCap(chunks, chunkSize, overlap)
}

// splitParagraph breaks a paragraph larger than chunkSize along sentence
// boundaries, falling back to word boundaries for sentences that are
// themselves oversized.
func splitParagraph(chunks []string, para string, chunkSize, overlap int) []string {
	cur := builder{sep: " "}

	for _, sentence := range SplitSentences(para) {
		if cur.fits(len(sentence), chunkSize) {
			cur.add(sentence)
			continue
		}

		if cur.length > 0 {
			flushed := cur.text()
			chunks = append(chunks, flushed)
			cur = builder{sep: " "}
			if len(flushed) > overlap {
				cur.add(flushed[len(flushed)-overlap:])
			}
			cur.add(sentence)
			continue
		}

		// Sentence alone exceeds the chunk size: fall back to words.
		chunks, cur = splitWords(chunks, cur, sentence, chunkSize)
	}

	if cur.length > 0 {
		chunks = append(chunks, cur.text())
	}

	return chunks
}

func splitWords(chunks []string, cur builder, sentence string, chunkSize int) ([]string, builder) {
	for _, word := range strings.Fields(sentence) {
		if cur.fits(len(word), chunkSize) {
			cur.add(word)
			continue
		}

		if cur.length > 0 {
			chunks = append(chunks, cur.text())
			// Carry a few trailing words into the next chunk as overlap.
			var carried []string
			if len(cur.pieces) > 10 {
				carried = append(carried, cur.pieces[len(cur.pieces)-5:]...)
			}
			cur = builder{sep: " "}
			for _, c := range carried {
				cur.add(c)
			}
		}
		cur.add(word)
	}
	return chunks, cur
}

// SplitSentences splits text on sentence-ending punctuation (. ! ?) followed
// by whitespace, keeping the punctuation attached to the sentence.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 >= len(text) || !isSpace(text[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(text[start : i+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func overlapTail(chunks []string, overlap int) string {
	if overlap <= 0 || len(chunks) == 0 {
		return ""
	}
	last := chunks[len(chunks)-1]
	if len(last) <= overlap {
		return ""
	}
	return last[len(last)-overlap:]
}

// hardCap slices any chunk still above chunkSize into windows that step by
// chunkSize-overlap, then trims whitespace and drops empty results.
func hardCap(chunks []string, chunkSize, overlap int) []string {
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	final := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		for len(chunk) > chunkSize {
			final = append(final, chunk[:chunkSize])
			chunk = chunk[step:]
		}
		if chunk != "" {
			final = append(final, chunk)
		}
	}

	trimmed := final[:0]
	for _, chunk := range final {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			trimmed = append(trimmed, chunk)
		}
	}
	if len(trimmed) == 0 {
		return nil
	}
	return trimmed
}
