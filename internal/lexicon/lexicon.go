package lexicon

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed words.txt
var wordsFS embed.FS

// Lexicon answers whether a token is an ordinary English dictionary word.
// The catalog uses it to drop currencies whose names would match everyday
// prose (Dash, Stellar, Waves and friends).
type Lexicon struct {
	words map[string]struct{}
}

// New loads the embedded word list.
func New() *Lexicon {
	f, err := wordsFS.Open("words.txt")
	if err != nil {
		// The word list is compiled into the binary; a missing file is a
		// build defect, not a runtime condition.
		panic("lexicon: embedded word list missing: " + err.Error())
	}
	defer f.Close()

	words := make(map[string]struct{}, 1024)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		words[word] = struct{}{}
	}
	return &Lexicon{words: words}
}

// Contains reports whether word is in the dictionary. Case-insensitive.
func (l *Lexicon) Contains(word string) bool {
	_, ok := l.words[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// Len returns the number of loaded words.
func (l *Lexicon) Len() int {
	return len(l.words)
}
