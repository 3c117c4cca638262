// Package readtime derives the estimated reading time of rich content.
package readtime

import (
	"strings"

	"github.com/hamxasajid/blogsite-core/internal/pkg/markdown"
)

// WordsPerMinute is the average reading speed the estimate assumes.
const WordsPerMinute = 200

// Minutes returns ceil(wordCount / 200) with a minimum of 1, counting words
// on the plain text extracted from the (markdown) content.
func Minutes(content string) int {
	return minutesForWords(WordCount(content))
}

// WordCount counts whitespace-separated words in the plain text of content.
func WordCount(content string) int {
	return len(strings.Fields(markdown.PlainText(content)))
}

func minutesForWords(words int) int {
	if words <= 0 {
		return 1
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}
