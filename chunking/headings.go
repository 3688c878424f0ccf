package chunking

import (
	"regexp"
	"sort"
	"strings"
)

var (
	outlinePrefix = regexp.MustCompile(`^\d+(\.\d+)*\s+`)
	upperLine     = regexp.MustCompile(`^[A-Z\s]+$`)
)

// IsHeading reports whether a line looks like a section heading. A line
// qualifies if it starts with a numeric outline prefix ("2.1 Incident
// Reporting"), ends with a colon and stays under 120 characters, or consists
// of uppercase letters and spaces under 80 characters.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if outlinePrefix.MatchString(line) {
		return true
	}
	if strings.HasSuffix(line, ":") && len(line) < 120 {
		return true
	}
	if len(line) < 80 && upperLine.MatchString(line) && strings.ContainsAny(line, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return true
	}
	return false
}

// HeadingLabel derives the display label for a heading line by stripping the
// numeric outline prefix and a trailing colon.
func HeadingLabel(line string) string {
	line = strings.TrimSpace(line)
	label := strings.TrimSpace(outlinePrefix.ReplaceAllString(line, ""))
	label = strings.TrimSpace(strings.TrimSuffix(label, ":"))
	if label == "" {
		return line
	}
	return label
}

// HeadingMap associates line-start character offsets with the heading in
// effect at that offset. Offsets are stored sorted so lookups can binary
// search for the greatest offset at or before a position.
type HeadingMap struct {
	offsets  []int
	headings []string
}

// ExtractHeadings scans text line by line, carrying the most recent heading
// forward to every subsequent line start. Lines before any heading map to the
// empty string.
func ExtractHeadings(text string) HeadingMap {
	lines := strings.Split(text, "\n")
	m := HeadingMap{
		offsets:  make([]int, 0, len(lines)),
		headings: make([]string, 0, len(lines)),
	}

	current := ""
	pos := 0
	for _, line := range lines {
		if IsHeading(line) {
			current = HeadingLabel(line)
		}
		m.offsets = append(m.offsets, pos)
		m.headings = append(m.headings, current)
		pos += len(line) + 1
	}
	return m
}

// At returns the heading in effect at the given character position, or the
// empty string when no heading precedes it.
func (m HeadingMap) At(position int) string {
	i := sort.SearchInts(m.offsets, position+1) - 1
	if i < 0 {
		return ""
	}
	return m.headings[i]
}

// Len returns the number of tracked line offsets.
func (m HeadingMap) Len() int {
	return len(m.offsets)
}
