// Package feedback builds feedback records from user drafts.
package feedback

import (
	"strings"

	"github.com/kimhsiao/feedbacksync/internal/models"
)

var positiveWords = []string{
	"good", "great", "excellent", "amazing", "wonderful",
	"fantastic", "love", "perfect", "awesome", "brilliant",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "horrible", "hate",
	"worst", "poor", "disappointing", "frustrating", "annoying",
}

// AnalyzeSentiment counts how many positive and negative keywords occur in
// text (each keyword at most once, case-insensitive substring match) and
// returns the side with more hits. Ties, including zero-zero, are neutral.
func AnalyzeSentiment(text string) models.Sentiment {
	lower := strings.ToLower(text)
	pos := countHits(lower, positiveWords)
	neg := countHits(lower, negativeWords)

	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func countHits(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}
