package textnorm

import "unicode"

// Language is a short language code recognized by the normalizer.
type Language string

// Supported languages.
const (
	LangRussian Language = "ru"
	LangEnglish Language = "en"
)

// If more than 30% of letters are Cyrillic the text is treated as Russian
// even when Latin letters dominate (mixed-script channel posts).
const cyrillicRatioThreshold = 0.3

// Detect returns the dominant language of the text using a character-ratio
// heuristic. Empty input and ties default to Russian.
func Detect(text string) Language {
	var cyrillic, latin, letters int

	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}

		letters++

		switch {
		case isCyrillic(r):
			cyrillic++
		case isLatin(r):
			latin++
		}
	}

	if letters == 0 {
		return LangRussian
	}

	if float64(cyrillic)/float64(letters) > cyrillicRatioThreshold {
		return LangRussian
	}

	if latin > cyrillic {
		return LangEnglish
	}

	return LangRussian
}

func isCyrillic(r rune) bool {
	return (r >= 0x0400 && r <= 0x04FF) || // Cyrillic
		(r >= 0x0500 && r <= 0x052F) // Cyrillic Supplement
}

func isLatin(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
		(r >= 0x00C0 && r <= 0x00FF) || // Latin-1 Supplement
		(r >= 0x0100 && r <= 0x017F) // Latin Extended-A
}
