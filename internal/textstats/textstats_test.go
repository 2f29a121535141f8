package textstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordsAndSentences(t *testing.T) {
	text := "Content marketing works. Does it? Yes! Follow-up matters"
	assert.Equal(t, []string{"content", "marketing", "works", "does", "it", "yes", "follow-up", "matters"}, Words(text))
	assert.Equal(t, 4, Sentences(text))
	assert.Equal(t, 0, Sentences("..."))
}

func TestSyllables(t *testing.T) {
	tests := map[string]int{
		"cat":       1,
		"make":      1,
		"table":     2,
		"marketing": 3,
		"rhythm":    1,
		"":          0,
	}
	for word, want := range tests {
		assert.Equal(t, want, Syllables(word), word)
	}
}

func TestAnalyze(t *testing.T) {
	s := Analyze("The cat sat on the mat. The dog ran.")
	assert.Equal(t, 9, s.Words)
	assert.Equal(t, 2, s.Sentences)
	assert.Equal(t, 4.5, s.AvgSentenceLength)
	assert.Equal(t, 100.0, s.ReadingEase)
	assert.Equal(t, "easy", s.ReadingLevel)
	assert.Equal(t, 1, s.ReadingTimeMin)

	empty := Analyze("")
	assert.Zero(t, empty.Words)
	assert.Zero(t, empty.ReadingEase)
}

func TestKeywordDensity(t *testing.T) {
	text := "email marketing beats cold calls and email marketing scales"
	assert.Equal(t, 44.44, KeywordDensity(text, "email marketing"))
	assert.Equal(t, 11.11, KeywordDensity(text, "calls"))
	assert.Zero(t, KeywordDensity(text, "seo"))
	assert.Zero(t, KeywordDensity("", "seo"))
}

func TestTopKeywords(t *testing.T) {
	got := TopKeywords("SEO tips: the best SEO tips for SEO beginners", 3)
	assert.Equal(t, []KeywordCount{{"seo", 3}, {"tips", 2}, {"beginners", 1}}, got)
}

func TestSlugAndTruncate(t *testing.T) {
	assert.Equal(t, "go-in-action-2nd-edition", Slug("Go in Action: 2nd Edition!"))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "the quick brown", Truncate("the quick brown fox jumps", 17))
}
