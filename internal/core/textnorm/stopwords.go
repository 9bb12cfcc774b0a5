package textnorm

// Stop-word sets are compiled in. StopwordsFor returns an empty set for an
// unknown language so normalization degrades instead of failing.

var russianStopwords = map[string]struct{}{
	"или": {}, "это": {}, "эта": {}, "этот": {}, "эти": {}, "как": {}, "так": {},
	"все": {}, "всё": {}, "она": {}, "они": {}, "оно": {}, "его": {}, "её": {},
	"ещё": {}, "еще": {}, "уже": {}, "для": {}, "при": {}, "про": {}, "под": {},
	"над": {}, "без": {}, "был": {}, "была": {}, "было": {}, "были": {}, "быть": {},
	"есть": {}, "нет": {}, "чем": {}, "чего": {}, "что": {}, "чтобы": {}, "кто": {},
	"где": {}, "когда": {}, "только": {}, "очень": {}, "может": {}, "можно": {},
	"будет": {}, "него": {}, "нее": {}, "них": {}, "нас": {}, "вас": {}, "вам": {},
	"нам": {}, "мне": {}, "тебе": {}, "себе": {}, "также": {}, "тоже": {},
	"после": {}, "перед": {}, "между": {}, "через": {}, "который": {},
	"которая": {}, "которое": {}, "которые": {}, "свой": {}, "своя": {},
	"свои": {}, "наш": {}, "ваш": {}, "сейчас": {}, "здесь": {}, "там": {},
	"потому": {}, "поэтому": {}, "даже": {}, "вот": {}, "год": {}, "года": {},
	"году": {}, "лет": {},
}

var englishStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"all": {}, "any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "has": {}, "have": {}, "him": {}, "his": {}, "how": {},
	"its": {}, "may": {}, "new": {}, "now": {}, "old": {}, "see": {}, "two": {},
	"way": {}, "who": {}, "did": {}, "get": {}, "from": {}, "they": {}, "this": {},
	"that": {}, "with": {}, "will": {}, "been": {}, "were": {}, "than": {},
	"then": {}, "them": {}, "these": {}, "those": {}, "when": {}, "what": {},
	"where": {}, "which": {}, "while": {}, "would": {}, "there": {}, "their": {},
	"about": {}, "after": {}, "before": {}, "between": {}, "into": {}, "over": {},
	"under": {}, "just": {}, "only": {}, "also": {}, "more": {}, "most": {},
	"some": {}, "such": {}, "very": {}, "your": {}, "because": {}, "could": {},
	"should": {}, "here": {}, "other": {}, "being": {}, "during": {}, "each": {},
	"does": {}, "doing": {},
}

// StopwordsFor returns the stop-word set for a language. Unknown languages
// get an empty set rather than an error.
func StopwordsFor(lang Language) map[string]struct{} {
	switch lang {
	case LangRussian:
		return russianStopwords
	case LangEnglish:
		return englishStopwords
	default:
		return map[string]struct{}{}
	}
}

// IsStopword reports whether the token is a stop word in either supported
// language. Used by the keyword extractor, which works on mixed text.
func IsStopword(token string) bool {
	if _, ok := russianStopwords[token]; ok {
		return true
	}

	_, ok := englishStopwords[token]

	return ok
}
