package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator masks blocklisted words in outgoing completions.
// Matching runs on a folded copy of the text (lower case, leet digits mapped
// back to letters, punctuation and spaces dropped) so "B.4.d" still hits "bad".
type Moderator struct {
	log         *slog.Logger
	matcher     *goahocorasick.Machine
	replacement rune
}

// folded is the searchable form of a text plus, for each folded rune,
// the index of the rune it came from.
type folded struct {
	runes  []rune
	origin []int
}

// NewModerator builds the automaton. An empty word list yields a moderator
// that returns every text unchanged.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if f := fold([]rune(word)); len(f.runes) > 0 {
			patterns = append(patterns, f.runes)
		}
	}
	m := &Moderator{log: log, replacement: replacement}
	if len(patterns) == 0 {
		return m, nil
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	m.matcher = machine
	return m, nil
}

// Censor returns text with every match replaced rune by rune, spacing kept,
// along with the blocklisted words that were found.
func (m *Moderator) Censor(text string) (string, []string) {
	if m == nil || m.matcher == nil {
		return text, nil
	}
	original := []rune(text)
	f := fold(original)
	if len(f.runes) == 0 {
		return text, nil
	}

	hits := m.matcher.MultiPatternSearch(f.runes, false)
	if len(hits) == 0 {
		return text, nil
	}

	found := make([]string, 0, len(hits))
	for _, hit := range hits {
		end := hit.Pos + len(hit.Word)
		if hit.Pos < 0 || end > len(f.origin) {
			continue
		}
		for i := f.origin[hit.Pos]; i <= f.origin[end-1]; i++ {
			original[i] = m.replacement
		}
		found = append(found, string(hit.Word))
	}
	m.log.Debug("Moderation hit", "words", found)
	return string(original), found
}

func fold(input []rune) folded {
	f := folded{runes: make([]rune, 0, len(input)), origin: make([]int, 0, len(input))}
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.origin = append(f.origin, i)
	}
	return f
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	}
	return r
}
