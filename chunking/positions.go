package chunking

import "strings"

// Piece is a chunk located within the original text, carrying its character
// span and the heading in effect at its start. Heading is empty when the
// chunk precedes any detected heading.
type Piece struct {
	Text    string
	Start   int
	End     int
	Heading string
}

// ChunkWithHeadings chunks text and recovers each chunk's character span in
// the original input by searching forward from just past the previous chunk's
// start. Chunker transformations (whitespace normalization, word splits) can
// break exact matching; in that case the running cursor is used as an
// approximate offset instead of failing.
func ChunkWithHeadings(text string, chunkSize, overlap int) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	headings := ExtractHeadings(text)
	chunks := Chunk(text, chunkSize, overlap)

	pieces := make([]Piece, 0, len(chunks))
	search := 0
	for _, chunk := range chunks {
		start := -1
		if search <= len(text) {
			if idx := strings.Index(text[search:], chunk); idx >= 0 {
				start = search + idx
			}
		}
		if start < 0 {
			start = search
		}
		if start > len(text) {
			start = len(text)
		}

		end := start + len(chunk)
		if end > len(text) {
			end = len(text)
		}
		search = start + 1

		pieces = append(pieces, Piece{
			Text:    chunk,
			Start:   start,
			End:     end,
			Heading: headings.At(start),
		})
	}
	return pieces
}
