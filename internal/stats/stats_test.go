package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kimhsiao/feedbacksync/internal/models"
)

func withRatings(ratings ...int) []models.Feedback {
	out := make([]models.Feedback, len(ratings))
	for i, r := range ratings {
		out[i] = models.Feedback{ID: string(rune('a' + i)), Rating: r, Category: models.CategoryGeneral, Sentiment: models.SentimentNeutral}
	}
	return out
}

func TestProject_empty(t *testing.T) {
	s := Project(nil)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.AverageRating)
	assert.Equal(t, 0, s.SatisfactionRate)
	assert.NotNil(t, s.Categories)
	assert.Empty(t, s.Categories)
}

func TestProject_satisfactionAndAverage(t *testing.T) {
	// 5, 5 and 4 count as satisfied: 3/5
	s := Project(withRatings(5, 5, 4, 3, 2))

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3.8, s.AverageRating)
	assert.Equal(t, 60, s.SatisfactionRate)
}

func TestProject_rounding(t *testing.T) {
	// 2 of 3 satisfied = 66.67% -> 67; mean 11/3 = 3.67 -> 3.7
	s := Project(withRatings(4, 5, 2))

	assert.Equal(t, 67, s.SatisfactionRate)
	assert.Equal(t, 3.7, s.AverageRating)
}

func TestProject_counts(t *testing.T) {
	records := []models.Feedback{
		{ID: "1", Rating: 5, Sentiment: models.SentimentPositive, Category: models.CategoryService},
		{ID: "2", Rating: 1, Sentiment: models.SentimentNegative, Category: models.CategoryService, IsAnonymous: true},
		{ID: "3", Rating: 3, Sentiment: models.SentimentNeutral, Category: ""},
		{ID: "4", Rating: 4, Sentiment: models.SentimentPositive, Category: models.CategorySuggestion, IsAnonymous: true},
	}

	s := Project(records)

	assert.Equal(t, 2, s.Positive)
	assert.Equal(t, 1, s.Negative)
	assert.Equal(t, 1, s.Neutral)
	assert.Equal(t, 2, s.Anonymous)
	assert.Equal(t, map[models.Category]int{
		models.CategoryService:    2,
		models.CategoryGeneral:    1,
		models.CategorySuggestion: 1,
	}, s.Categories)
}

func TestCategories(t *testing.T) {
	records := []models.Feedback{
		{Rating: 5, Category: models.CategoryProduct},
		{Rating: 4, Category: models.CategoryProduct},
		{Rating: 2, Category: models.CategoryGeneral},
	}

	got := Categories(records)

	assert.Equal(t, []CategoryBreakdown{
		{Category: models.CategoryGeneral, Count: 1, Percentage: 33.3, AverageRating: 2},
		{Category: models.CategoryProduct, Count: 2, Percentage: 66.7, AverageRating: 4.5},
	}, got)
	assert.Nil(t, Categories(nil))
}

func TestRatingDistribution(t *testing.T) {
	dist := RatingDistribution(withRatings(5, 5, 4, 3, 2, 9))

	assert.Equal(t, [5]int{0, 1, 1, 1, 2}, dist)
}
