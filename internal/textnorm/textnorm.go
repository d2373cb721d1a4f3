// Package textnorm folds text for diacritic-, width- and case-insensitive
// matching. The compiler normalises $like patterns with Normalise at
// compile time; the store registers the same functions with SQLite so
// column values are folded identically at query time.
package textnorm

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalise trims s, lower-cases it, strips combining marks and folds
// full-width forms: "  Café " → "cafe", "ＡＢＣ" → "abc".
func Normalise(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		width.Fold,
		cases.Lower(language.Und),
		norm.NFC,
	)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

// Lower lower-cases s using Unicode case mapping rather than ASCII only.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

var (
	likeMu    sync.Mutex
	likeCache = map[string]*regexp.Regexp{}
)

// Like reports whether value matches an SQL LIKE pattern: % matches any
// run of characters, _ matches exactly one. Matching is case-insensitive
// over all of Unicode.
func Like(pattern, value string) bool {
	return likeRegexp(pattern).MatchString(value)
}

func likeRegexp(pattern string) *regexp.Regexp {
	likeMu.Lock()
	defer likeMu.Unlock()

	if re, ok := likeCache[pattern]; ok {
		return re
	}

	var b strings.Builder
	b.WriteString(`(?is)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)

	re := regexp.MustCompile(b.String())
	if len(likeCache) > 256 {
		clear(likeCache)
	}
	likeCache[pattern] = re
	return re
}
