// Package textstats measures plain text: word and sentence counts, Flesch reading ease,
// keyword density and frequency ranking.
package textstats

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"but": true, "by": true, "for": true, "from": true, "has": true, "have": true, "how": true,
	"in": true, "into": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "our": true, "that": true, "the": true, "their": true, "this": true, "to": true,
	"was": true, "we": true, "what": true, "when": true, "which": true, "will": true, "with": true,
	"you": true, "your": true, "can": true, "more": true, "all": true, "about": true, "than": true,
}

// IsStopWord reports whether w is ignored for keyword ranking.
func IsStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}

// Words returns the lowercased words of text. Apostrophes and hyphens inside a word are kept.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

// Sentences counts runs of text terminated by ., ! or ?. Trailing text without a terminator
// counts as one sentence.
func Sentences(text string) int {
	n := 0
	inSentence := false
	for _, r := range text {
		switch {
		case r == '.' || r == '!' || r == '?':
			if inSentence {
				n++
				inSentence = false
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			inSentence = true
		}
	}
	if inSentence {
		n++
	}
	return n
}

// Syllables estimates the syllable count of an English word by counting vowel groups.
func Syllables(word string) int {
	word = strings.ToLower(strings.Trim(word, "'-"))
	if word == "" {
		return 0
	}
	count := 0
	prevVowel := false
	for _, r := range word {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

type Stats struct {
	Words             int     `json:"words"`
	Sentences         int     `json:"sentences"`
	AvgSentenceLength float64 `json:"avgSentenceLength"`
	ReadingEase       float64 `json:"readingEase"`
	ReadingLevel      string  `json:"readingLevel"`
	ReadingTimeMin    int     `json:"readingTimeMinutes"`
}

// Analyze computes the Flesch reading ease
// 206.835 - 1.015*(words/sentences) - 84.6*(syllables/words), clamped to [0, 100].
func Analyze(text string) Stats {
	words := Words(text)
	s := Stats{Words: len(words), Sentences: Sentences(text)}
	if s.Words == 0 {
		return s
	}
	if s.Sentences == 0 {
		s.Sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += Syllables(w)
	}
	wps := float64(s.Words) / float64(s.Sentences)
	spw := float64(syllables) / float64(s.Words)
	ease := 206.835 - 1.015*wps - 84.6*spw

	s.AvgSentenceLength = round2(wps)
	s.ReadingEase = round2(math.Max(0, math.Min(100, ease)))
	s.ReadingLevel = level(s.ReadingEase)
	s.ReadingTimeMin = int(math.Ceil(float64(s.Words) / 200))
	return s
}

func level(ease float64) string {
	switch {
	case ease >= 80:
		return "easy"
	case ease >= 60:
		return "standard"
	case ease >= 30:
		return "difficult"
	default:
		return "very difficult"
	}
}

// KeywordDensity is the share of words, in percent, taken by occurrences of keyword. A
// multi-word keyword counts once per phrase occurrence, weighted by its length.
func KeywordDensity(text, keyword string) float64 {
	words := Words(text)
	kw := Words(keyword)
	if len(words) == 0 || len(kw) == 0 {
		return 0
	}
	hits := 0
	for i := 0; i+len(kw) <= len(words); i++ {
		match := true
		for j := range kw {
			if words[i+j] != kw[j] {
				match = false
				break
			}
		}
		if match {
			hits++
		}
	}
	return round2(float64(hits*len(kw)) / float64(len(words)) * 100)
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// TopKeywords ranks non-stop words of at least three letters by frequency, then
// alphabetically.
func TopKeywords(text string, n int) []KeywordCount {
	counts := map[string]int{}
	for _, w := range Words(text) {
		if len([]rune(w)) < 3 || stopWords[w] {
			continue
		}
		counts[w]++
	}
	out := make([]KeywordCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, KeywordCount{Keyword: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Slug lowercases text and joins its words with hyphens.
func Slug(text string) string {
	parts := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !unicode.IsDigit(r)
	})
	return strings.Join(parts, "-")
}

// Truncate cuts text to at most n runes at a word boundary when possible.
func Truncate(text string, n int) string {
	r := []rune(strings.TrimSpace(text))
	if len(r) <= n {
		return string(r)
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
