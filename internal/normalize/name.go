// Package normalize cleans raw game names before they are sent to a lookup
// provider and defines the exact-match predicate providers share.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

var (
	platformPattern = regexp.MustCompile(`(?i)\s+(?:PS[1-5]|Xbox|PC|Switch|Steam|Epic|GOG|Origin)(?:\s|$)`)
	phrasePattern   = regexp.MustCompile(`(?i)\s+(?:Game\s+of\s+the\s+Year|Director's\s+Cut|Enhanced\s+Edition|Special\s+Edition)(?:\s|$)`)
	editionPattern  = regexp.MustCompile(`(?i)\s+(?:Edition|Deluxe|GOTY|Complete|Ultimate|Remastered|HD|Definitive)(?:\s|$)`)
)

var trademarkReplacer = strings.NewReplacer("®", "", "™", "", "©", "", "’", "'", "‘", "'")

// Name strips trademark glyphs, platform tokens, edition tokens, and stray
// punctuation from raw, then collapses whitespace. Tokens are only removed
// when preceded by whitespace, so a name is never reduced by its leading word.
//
// Name is idempotent: Name(Name(s)) == Name(s).
func Name(raw string) string {
	cleaned := keepAllowed(trademarkReplacer.Replace(raw))
	for {
		next := stripTokens(cleaned)
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

func stripTokens(value string) string {
	value = phrasePattern.ReplaceAllString(value, " ")
	value = editionPattern.ReplaceAllString(value, " ")
	value = platformPattern.ReplaceAllString(value, " ")
	return value
}

// keepAllowed drops every rune outside letters, digits, underscore, whitespace,
// hyphen, colon, period, and apostrophe. Whitespace is folded to a plain space.
func keepAllowed(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == '-' || r == ':' || r == '.' || r == '\'':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether two names match case-insensitively.
func Equal(a, b string) bool {
	folder := cases.Fold()
	return folder.String(strings.TrimSpace(a)) == folder.String(strings.TrimSpace(b))
}
