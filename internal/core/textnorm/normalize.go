// Package textnorm provides language detection and text normalization for
// the digest pipeline. All functions are pure; missing stop-word data
// degrades to an empty stop-word set instead of failing.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokens shorter than this many runes carry no topical signal.
const minTokenLen = 3

var (
	urlRe     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionRe = regexp.MustCompile(`@\w+`)
	hashtagRe = regexp.MustCompile(`#\w+`)
)

// Clean strips URLs, @mentions, #hashtags, emoji, and punctuation outside a
// small whitelist, collapsing runs of whitespace. Case is preserved.
func Clean(text string) string {
	text = urlRe.ReplaceAllString(text, " ")
	text = mentionRe.ReplaceAllString(text, " ")
	text = hashtagRe.ReplaceAllString(text, " ")

	var b strings.Builder

	b.Grow(len(text))

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '\'':
			// Kept so hyphenated words and contractions survive cleaning.
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Normalize cleans and tokenizes text for the given language: lower-cased
// tokens with stop words and tokens shorter than three runes removed.
func Normalize(text string, lang Language) []string {
	stop := StopwordsFor(lang)

	var tokens []string

	for _, tok := range strings.Fields(strings.ToLower(Clean(text))) {
		tok = strings.Trim(tok, "-'")
		if utf8.RuneCountInString(tok) < minTokenLen {
			continue
		}

		if _, ok := stop[tok]; ok {
			continue
		}

		tokens = append(tokens, tok)
	}

	return tokens
}

// Tokenize lower-cases and splits cleaned text without stop-word filtering.
// The keyword extractor uses stop words as phrase boundaries and needs them
// in place.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(Clean(text)))
}
