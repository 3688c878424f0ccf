package rag

import (
	"regexp"
	"strings"
)

// Verbose preamble patterns stripped from raw model output. Each matches from
// the phrase head up to (not including) the next period, colon, or newline.
var preamblePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)I've (checked|searched|reviewed) (through )?(the )?(provided )?documents?[^.:\n]*`),
	regexp.MustCompile(`(?i)I've found relevant information[^.:\n]*`),
	regexp.MustCompile(`(?i)According to (Document|Chunk)[^.:\n]*`),
	regexp.MustCompile(`(?i)As stated in (Document|Chunk)[^.:\n]*`),
	regexp.MustCompile(`(?i)Based on (Document|Chunk)[^.:\n]*`),
	regexp.MustCompile(`(?i)Document checked:[^.:\n]*`),
	regexp.MustCompile(`(?i)Documents? (checked|reviewed|searched):[^.:\n]*`),
}

var (
	uuidPattern       = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	chunkRefPattern   = regexp.MustCompile(`(?i)Chunk:\s*[^\s,]+`)
	excessNewlines    = regexp.MustCompile(`\n{3,}`)
	excessSpaces      = regexp.MustCompile(` {2,}`)
	trailingLineSpace = regexp.MustCompile(`[ \t]+\n`)
)

// cleanAnswer strips citation noise from raw model output: verbose preambles,
// embedded UUIDs, literal "Chunk: <id>" fragments, and excess whitespace.
// Internal identifiers must never surface in a user-facing answer.
func cleanAnswer(answer string) string {
	if answer == "" {
		return answer
	}

	cleaned := answer
	for _, pattern := range preamblePatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}

	cleaned = uuidPattern.ReplaceAllString(cleaned, "")
	cleaned = chunkRefPattern.ReplaceAllString(cleaned, "")
	cleaned = excessNewlines.ReplaceAllString(cleaned, "\n\n")
	cleaned = excessSpaces.ReplaceAllString(cleaned, " ")
	cleaned = trailingLineSpace.ReplaceAllString(cleaned, "\n")

	return strings.TrimSpace(cleaned)
}
