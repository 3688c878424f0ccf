package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkEmptyInput(t *testing.T) {
	require.Nil(t, Chunk("", 1000, 150))
	require.Nil(t, Chunk("   \n\n\t  ", 1000, 150))
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	chunks := Chunk("hello world", 1000, 150)
	require.Equal(t, []string{"hello world"}, chunks)
}

func TestChunkPacksWholeParagraphs(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks := Chunk(text, 1000, 150)
	require.Len(t, chunks, 1)
	require.Equal(t, strings.TrimSpace(text), chunks[0])
}

func TestChunkNormalizesExcessNewlines(t *testing.T) {
	chunks := Chunk("alpha\n\n\n\n\nbeta", 1000, 150)
	require.Equal(t, []string{"alpha\n\nbeta"}, chunks)
}

func TestChunkSeedsOverlapFromPreviousChunk(t *testing.T) {
	paraA := strings.Repeat("a", 60) + strings.Repeat("b", 20)
	paraB := strings.Repeat("c", 80)
	chunks := Chunk(paraA+"\n\n"+paraB, 120, 20)

	require.Len(t, chunks, 2)
	require.Equal(t, paraA, chunks[0])
	require.True(t, strings.HasPrefix(chunks[1], strings.Repeat("b", 20)),
		"second chunk should start with the tail of the first")
	require.Contains(t, chunks[1], paraB)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 120)
	}
}

func TestChunkSplitsOversizedParagraphBySentence(t *testing.T) {
	var sentences []string
	for i := 0; i < 6; i++ {
		sentences = append(sentences, "The quick brown fox jumps number "+strings.Repeat("x", i+1)+".")
	}
	para := strings.Join(sentences, " ")
	require.Greater(t, len(para), 80)

	chunks := Chunk(para, 80, 10)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), 80)
	}
	joined := strings.Join(chunks, " ")
	for _, sentence := range sentences {
		require.Contains(t, joined, sentence)
	}
}

func TestChunkHardCapsUnbreakableText(t *testing.T) {
	chunks := Chunk(strings.Repeat("x", 250), 100, 20)

	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 100)
	require.Len(t, chunks[1], 100)
	require.Len(t, chunks[2], 90)
}

func TestChunkNeverExceedsChunkSize(t *testing.T) {
	var parts []string
	parts = append(parts, strings.Repeat("long unbroken run ", 30))
	parts = append(parts, strings.Repeat("y", 500))
	parts = append(parts, "A short closing paragraph.")
	text := strings.Join(parts, "\n\n")

	for _, chunk := range Chunk(text, 120, 30) {
		require.LessOrEqual(t, len(chunk), 120)
		require.NotEmpty(t, strings.TrimSpace(chunk))
	}
}

func TestSplitSentences(t *testing.T) {
	sentences := SplitSentences("First one. Second one! Is this the third? Yes.")
	require.Equal(t, []string{"First one.", "Second one!", "Is this the third?", "Yes."}, sentences)
}

func TestSplitSentencesNoTerminalPunctuation(t *testing.T) {
	sentences := SplitSentences("no punctuation at all")
	require.Equal(t, []string{"no punctuation at all"}, sentences)
}

func TestSplitSentencesKeepsAbbreviationsTogether(t *testing.T) {
	// A period not followed by whitespace is not a boundary.
	sentences := SplitSentences("Version 1.2 shipped. Done.")
	require.Equal(t, []string{"Version 1.2 shipped.", "Done."}, sentences)
}
