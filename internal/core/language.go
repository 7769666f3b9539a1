package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language is one of the catalog languages the renamer can produce names in.
type Language int

const (
	English Language = iota
	German
	French
	Spanish
	Italian
	Dutch
)

type languageEntry struct {
	tag   language.Tag
	label string
}

var languageTable = map[Language]languageEntry{
	English: {tag: language.English, label: "English"},
	German:  {tag: language.German, label: "Deutsch"},
	French:  {tag: language.French, label: "Français"},
	Spanish: {tag: language.Spanish, label: "Español"},
	Italian: {tag: language.Italian, label: "Italiano"},
	Dutch:   {tag: language.Dutch, label: "Nederlands"},
}

// AllLanguages returns every supported language in declaration order.
func AllLanguages() []Language {
	return []Language{English, German, French, Spanish, Italian, Dutch}
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	if e, ok := languageTable[l]; ok {
		return e.tag
	}
	return language.Und
}

// Code returns the two letter ISO 639-1 code, e.g. "en".
func (l Language) Code() string {
	base, _ := l.Tag().Base()
	return base.String()
}

// String returns the language's own display label.
func (l Language) String() string {
	if e, ok := languageTable[l]; ok {
		return e.label
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// Valid reports whether l is a member of the supported set.
func (l Language) Valid() bool {
	_, ok := languageTable[l]
	return ok
}

// ParseLanguage accepts codes like "en", "de-DE" or "ger" and returns the
// supported language with the same base.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty language")
	}
	tag, err := language.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid language %q: %w", s, err)
	}
	base, _ := tag.Base()
	for _, l := range AllLanguages() {
		if b, _ := l.Tag().Base(); b == base {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unsupported language %q", s)
}

// ParseLanguages parses a list of codes, dropping duplicates while keeping order.
func ParseLanguages(codes []string) ([]Language, error) {
	out := make([]Language, 0, len(codes))
	seen := make(map[Language]bool, len(codes))
	for _, c := range codes {
		l, err := ParseLanguage(c)
		if err != nil {
			return nil, err
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out, nil
}

// LanguageCodes converts languages to their codes.
func LanguageCodes(langs []Language) []string {
	codes := make([]string, len(langs))
	for i, l := range langs {
		codes[i] = l.Code()
	}
	return codes
}
