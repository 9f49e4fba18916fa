package moderation

import (
	"sort"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// KeywordClassifier accepts a text when it contains a greeting phrase or a topic keyword.
// Matching is a case-insensitive substring search done by two Aho-Corasick automata.
type KeywordClassifier struct {
	greetings *goahocorasick.Machine
	topics    *goahocorasick.Machine
}

// NewKeywordClassifier builds both automata. Blank entries are ignored.
func NewKeywordClassifier(greetings, topics []string) (*KeywordClassifier, error) {
	g, err := buildMachine(greetings)
	if err != nil {
		return nil, err
	}
	t, err := buildMachine(topics)
	if err != nil {
		return nil, err
	}
	return &KeywordClassifier{greetings: g, topics: t}, nil
}

// IsOnTopic checks greetings first, then topic keywords.
func (c *KeywordClassifier) IsOnTopic(text string) bool {
	content := normalize(text)
	if len(content) == 0 {
		return false
	}
	return contains(c.greetings, content) || contains(c.topics, content)
}

// IsGreeting reports whether the text contains one of the greeting phrases.
func (c *KeywordClassifier) IsGreeting(text string) bool {
	return contains(c.greetings, normalize(text))
}

func buildMachine(words []string) (*goahocorasick.Machine, error) {
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		if p := string(normalize(w)); p != "" {
			unique[p] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return nil, nil
	}
	// The double-array trie under the automaton expects sorted, distinct keys.
	keys := make([]string, 0, len(unique))
	for k := range unique {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	patterns := make([][]rune, len(keys))
	for i, k := range keys {
		patterns[i] = []rune(k)
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return m, nil
}

func contains(m *goahocorasick.Machine, content []rune) bool {
	if m == nil || len(content) == 0 {
		return false
	}
	return len(m.MultiPatternSearch(content, true)) > 0
}

// normalize lower-cases every rune. Spaces and punctuation are kept so multi-word phrases still match.
func normalize(input string) []rune {
	out := []rune(input)
	for i, r := range out {
		out[i] = unicode.ToLower(r)
	}
	return out
}
