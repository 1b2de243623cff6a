// Package detect implements the mention-detection core: scanning free text
// against the currency catalog and ranking the hits by mention count.
package detect

import (
	"regexp"

	"coin-radar/internal/catalog"
	"coin-radar/internal/domain"
)

// FindMentions scans text for every catalog currency and returns one Finding
// per currency that occurs at least once. It is a pure function of its
// inputs, so callers may memoize results keyed on (text, catalog).
//
// Matching convention:
//   - Pass 1, per currency in catalog order: case-insensitive whole-word
//     match on the display name, then on the name with a trailing "s".
//     Spans are appended pass-first (all singular, then all plural), not by
//     text position.
//   - A currency with at least one name/plural span is claimed.
//   - Pass 2, per unclaimed currency in catalog order: case-sensitive
//     whole-word match on the symbol. Symbols are short, so case-insensitive
//     matching would flood the results with ordinary two/three-letter words.
//   - Claimed currencies are never scanned for their symbol; a symbol-only
//     currency yields a Finding whose spans are all symbol matches.
//
// Word boundaries sit at alphanumeric/non-alphanumeric transitions, so "Bit"
// never matches inside "bitcoin".
func FindMentions(text string, cat *catalog.Catalog) []domain.Finding {
	var findings []domain.Finding
	index := make(map[string]int) // slug -> position in findings
	claimed := make(map[string]bool)

	appendSpans := func(cur domain.Currency, spans []domain.Span) {
		if len(spans) == 0 {
			return
		}
		i, ok := index[cur.Slug]
		if !ok {
			findings = append(findings, domain.Finding{
				Slug:     cur.Slug,
				Name:     cur.Name,
				Sentence: text,
			})
			i = len(findings) - 1
			index[cur.Slug] = i
		}
		findings[i].Spans = append(findings[i].Spans, spans...)
	}

	for _, cur := range cat.Currencies() {
		singular := matchWord(text, cur.Name, true)
		plural := matchWord(text, cur.Name+"s", true)
		if len(singular)+len(plural) == 0 {
			continue
		}
		claimed[cur.Slug] = true
		appendSpans(cur, singular)
		appendSpans(cur, plural)
	}

	for _, cur := range cat.Currencies() {
		if claimed[cur.Slug] || cur.Symbol == "" {
			continue
		}
		appendSpans(cur, matchWord(text, cur.Symbol, false))
	}

	return findings
}

// matchWord returns the spans of every whole-word occurrence of word in text.
func matchWord(text, word string, caseInsensitive bool) []domain.Span {
	pattern := `\b` + regexp.QuoteMeta(word) + `\b`
	if caseInsensitive {
		pattern = `(?i)` + pattern
	}
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}

	var spans []domain.Span
	for _, loc := range rx.FindAllStringIndex(text, -1) {
		spans = append(spans, domain.Span{Start: loc[0], End: loc[1]})
	}
	return spans
}
