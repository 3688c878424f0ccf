package rag

import (
	"regexp"
	"strings"
)

const (
	maxQuotesPerChunk  = 2
	maxQuotesPerSource = 3
	maxQuoteLength     = 220
)

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"may": {}, "might": {}, "must": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "i": {}, "you": {}, "he": {}, "she": {},
	"it": {}, "we": {}, "they": {}, "what": {}, "which": {}, "who": {},
	"where": {}, "when": {}, "why": {}, "how": {}, "if": {}, "then": {},
	"than": {}, "more": {}, "most": {}, "less": {}, "least": {}, "very": {},
	"much": {}, "many": {}, "some": {}, "any": {}, "all": {}, "each": {},
	"every": {}, "no": {}, "not": {}, "only": {}, "just": {},
}

// answerKeywords extracts the lowercase keywords of the generated answer used
// for quote grounding: whole words of at least three characters with common
// stop words removed, plus any numbers regardless of length.
func answerKeywords(answer string) map[string]struct{} {
	keywords := make(map[string]struct{})
	if answer == "" {
		return keywords
	}

	for _, word := range wordPattern.FindAllString(strings.ToLower(answer), -1) {
		if len(word) <= 2 && !isNumber(word) {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords[word] = struct{}{}
	}
	return keywords
}

func isNumber(word string) bool {
	for i := 0; i < len(word); i++ {
		if word[i] < '0' || word[i] > '9' {
			return false
		}
	}
	return len(word) > 0
}

// quoteIsRelevant reports whether the quote shares at least one whole-word
// keyword with the answer. This is the grounding check: a quote with no
// overlap does not support the answer and is dropped.
func quoteIsRelevant(quote string, keywords map[string]struct{}) bool {
	if quote == "" || len(keywords) == 0 {
		return false
	}
	for _, word := range wordPattern.FindAllString(strings.ToLower(quote), -1) {
		if _, ok := keywords[word]; ok {
			return true
		}
	}
	return false
}

// extractQuotes pulls up to maxQuotes verbatim quotes from a chunk, preferring
// whole sentences. A first sentence over the length cap is truncated at a
// word boundary with an ellipsis; text without sentence boundaries falls back
// to its leading span.
func extractQuotes(text string, maxQuotes, maxLength int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitQuoteSentences(text)
	if len(sentences) > 0 {
		quotes := make([]string, 0, maxQuotes)
		for _, sentence := range sentences {
			if len(sentence) <= maxLength {
				quotes = append(quotes, sentence)
				if len(quotes) >= maxQuotes {
					break
				}
			} else if len(quotes) == 0 {
				quotes = append(quotes, truncateAtWord(sentence, maxLength))
				break
			}
		}
		if len(quotes) > 0 {
			return quotes
		}
	}

	if len(text) > maxLength {
		return []string{truncateAtWord(text, maxLength)}
	}
	return []string{text}
}

// splitQuoteSentences splits on . ! ? followed by whitespace, keeping the
// punctuation with the sentence.
func splitQuoteSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) {
			next := text[i+1]
			if next != ' ' && next != '\t' && next != '\n' && next != '\r' {
				continue
			}
		}
		if sentence := strings.TrimSpace(text[start : i+1]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// truncateAtWord cuts to maxLength, backing up to the last word boundary only
// when that keeps more than 70% of the cap, and appends an ellipsis.
func truncateAtWord(text string, maxLength int) string {
	cut := text[:maxLength]
	if i := strings.LastIndex(cut, " "); i > maxLength*7/10 {
		return cut[:i] + "..."
	}
	return strings.TrimRight(cut, " ") + "..."
}

// quotesNearDuplicate reports whether two quotes are near-identical: one
// contains the other, or more than 80% of the new quote's characters occur in
// the existing one relative to the shorter length. The character-overlap
// heuristic is approximate and can merge distinct short quotes that share an
// alphabet; a false merge only drops a redundant quote from a citation.
func quotesNearDuplicate(quote, existing string) bool {
	if quote == "" || existing == "" {
		return false
	}
	if strings.Contains(existing, quote) || strings.Contains(quote, existing) {
		return true
	}

	shorter := len(quote)
	if len(existing) < shorter {
		shorter = len(existing)
	}
	common := 0
	for _, r := range quote {
		if strings.ContainsRune(existing, r) {
			common++
		}
	}
	return float64(common)/float64(shorter) > 0.8
}
