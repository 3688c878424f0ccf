package rag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanAnswerRemovesUUIDs(t *testing.T) {
	cleaned := cleanAnswer("See 123e4567-e89b-12d3-a456-426614174000 for details.")
	require.NotContains(t, cleaned, "123e4567")
	require.Contains(t, cleaned, "for details.")
}

func TestCleanAnswerRemovesChunkReferences(t *testing.T) {
	cleaned := cleanAnswer("Vacation policy applies to all staff. Chunk: abc-123")
	require.NotContains(t, cleaned, "Chunk:")
	require.NotContains(t, cleaned, "abc-123")
	require.Contains(t, cleaned, "Vacation policy applies to all staff.")
}

func TestCleanAnswerStripsPreambles(t *testing.T) {
	cleaned := cleanAnswer("I've checked the provided documents. Employees get 15 vacation days.")
	require.NotContains(t, cleaned, "I've checked")
	require.Contains(t, cleaned, "Employees get 15 vacation days.")
}

func TestCleanAnswerCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "One.\n\nTwo. Three.", cleanAnswer("One.\n\n\n\n\nTwo.    Three.   "))
}

func TestCleanAnswerEmptyInput(t *testing.T) {
	require.Equal(t, "", cleanAnswer(""))
	require.Equal(t, "", cleanAnswer("   \n  "))
}
