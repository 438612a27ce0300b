// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package articles

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/biomed-rag/pkg/types"
)

// Filter keeps articles that mention at least one topic. Matching is
// case-insensitive. By default a topic must occur on word boundaries, so
// "ra" does not match inside "parameter", while a plural "s" or "es" is
// tolerated on topics of four or more runes. Substring restores plain
// containment.
type Filter struct {
	topics []string

	// Substring selects plain substring containment.
	Substring bool

	// IncludeBody adds body text to the searchable text.
	IncludeBody bool
}

// NewFilter returns a Filter over topics. Blank topics are ignored, so an
// empty topic set matches nothing.
func NewFilter(topics []string) *Filter {
	f := &Filter{}
	for _, t := range topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			f.topics = append(f.topics, t)
		}
	}
	return f
}

// Apply returns the articles that Match, preserving order.
func (f *Filter) Apply(arts []types.Article) []types.Article {
	var out []types.Article
	for _, a := range arts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// Match reports whether any topic occurs in the title and abstract (plus the
// body when IncludeBody is set) or in any MeSH term or keyword.
func (f *Filter) Match(a types.Article) bool {
	text := a.Title + " " + a.Abstract
	if f.IncludeBody && a.Body != "" {
		text += " " + a.Body
	}
	text = strings.ToLower(text)

	for _, topic := range f.topics {
		if f.contains(text, topic) {
			return true
		}
	}
	for _, term := range a.Terms() {
		term = strings.ToLower(term)
		for _, topic := range f.topics {
			if f.contains(term, topic) {
				return true
			}
		}
	}
	return false
}

func (f *Filter) contains(text, topic string) bool {
	if f.Substring {
		return strings.Contains(text, topic)
	}
	return containsWord(text, topic)
}

// minInflectLen is the shortest topic, in runes, for which a plural "s" or
// "es" is tolerated. Shorter topics are mostly acronyms ("ra" must not match
// "ras").
const minInflectLen = 4

// containsWord reports whether topic occurs in text with no letter or digit
// directly before or after it. Edges of topic that are not themselves word
// characters need no boundary. For topics of minInflectLen runes or more a
// trailing "s" or "es" is tolerated on either side, so singular and plural
// forms match each other.
func containsWord(text, topic string) bool {
	plural := inflectable(topic)
	if containsBounded(text, topic, plural) {
		return true
	}
	if !plural {
		return false
	}
	for _, suffix := range []string{"s", "es"} {
		stem, ok := strings.CutSuffix(topic, suffix)
		if ok && inflectable(stem) && containsBounded(text, stem, true) {
			return true
		}
	}
	return false
}

func inflectable(topic string) bool {
	last, _ := utf8.DecodeLastRuneInString(topic)
	return unicode.IsLetter(last) && utf8.RuneCountInString(topic) >= minInflectLen
}

// containsBounded finds topic on word boundaries. With plural set, an "s" or
// "es" directly after the match still counts as a boundary.
func containsBounded(text, topic string, plural bool) bool {
	first, _ := utf8.DecodeRuneInString(topic)
	last, _ := utf8.DecodeLastRuneInString(topic)
	needLeft, needRight := isWordRune(first), isWordRune(last)

	for offset := 0; offset <= len(text); {
		i := strings.Index(text[offset:], topic)
		if i < 0 {
			return false
		}
		pos := offset + i
		rest := text[pos+len(topic):]

		before, _ := utf8.DecodeLastRuneInString(text[:pos])
		leftOK := !needLeft || pos == 0 || !isWordRune(before)
		rightOK := !needRight || boundaryAt(rest)
		if !rightOK && plural {
			for _, suffix := range []string{"s", "es"} {
				if r, ok := strings.CutPrefix(rest, suffix); ok && boundaryAt(r) {
					rightOK = true
					break
				}
			}
		}
		if leftOK && rightOK {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[pos:])
		offset = pos + size
	}
	return false
}

func boundaryAt(rest string) bool {
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
