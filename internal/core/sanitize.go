package core

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// titleReplacer rewrites characters that are either invalid in file names on
// common filesystems or typographic variants that render poorly in listings.
var titleReplacer = strings.NewReplacer(
	":", "",
	"?", "",
	"/", " ",
	"\\", " ",
	"*", " ",
	"\"", "'",
	"<", "",
	">", "",
	"|", "",
	"–", "-",
	"...", "…",
	"’", "'",
	"„", "'",
	"“", "'",
	"!", "",
)

// surroundingDotsRe strips leading and trailing dots from an episode title.
var surroundingDotsRe = regexp.MustCompile(`[.]*([^.].*[^.])[.]*`)

// SanitizeTitle makes a catalog title safe to embed in a file name.
func SanitizeTitle(name string) string {
	return collapseSpaces(titleReplacer.Replace(name))
}

// trimDots removes leading and trailing dots. Titles shorter than two
// characters are returned unchanged.
func trimDots(name string) string {
	if m := surroundingDotsRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// collapseSpaces trims s and folds runs of whitespace and control
// characters into a single space.
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	for _, r := range s {
		if r < 32 || r == 127 || unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// validateFilename rejects names that cannot be used as a single path element.
func validateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is empty after sanitization")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q contains a path separator", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("name %q is reserved", name)
	}
	return nil
}
